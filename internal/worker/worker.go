package worker

import (
	"log/slog"

	"github.com/prelink-app/identity/internal/cache"
	"github.com/prelink-app/identity/internal/config"
	"github.com/prelink-app/identity/internal/smtp"
	"github.com/prelink-app/identity/internal/stream"
)

const (
	// verifiedGroupID is used for workers that take action when an identity
	// verification completes successfully
	verifiedGroupID = "identity-verified-group"

	// failedGroupID is used for workers that take action when a verification
	// attempt fails with an infrastructure error
	failedGroupID = "identity-failed-group"
)

// Workers consume the verification events the engine publishes. Everything
// they do is best effort; the outcome is already durable by the time an
// event is produced.
type Worker struct {
	KafkaStream *stream.KafkaStream
	Mailer      smtp.MailerInterface
	Cache       *cache.Cache
	Config      *config.Config
	Logger      *slog.Logger
}

func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		Mailer:      wk.Mailer,
		Cache:       wk.Cache,
		Config:      wk.Config,
		Logger:      wk.Logger,
	}
}
