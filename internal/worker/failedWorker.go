package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/prelink-app/identity/internal/stream"
	"github.com/prelink-app/identity/internal/verify"
)

// FailedWorker reports infrastructure failures to the ops mailbox. These are
// the attempts the client is asked to retry, so a burst of them usually
// means an upstream provider is down.
func (wk *Worker) FailedWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: failedGroupID,
		Topic:   verify.VerificationFailedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}

	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var failed verify.Event
			if err := json.Unmarshal(e.Value, &failed); err != nil {
				wk.Logger.Error("invalid verification event", "error", err)
				continue
			}

			wk.handleFailed(&failed)
		case kafka.Error:
			wk.Logger.Error("kafka consumer error", "error", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) handleFailed(event *verify.Event) {
	wk.Logger.Error("verification attempt failed",
		"user_id", event.UserID,
		"request_id", event.RequestID,
		"detail", event.ErrorDetail,
	)

	if wk.Config.Notifications.Email == "" {
		return
	}

	data := map[string]any{
		"UserID":      event.UserID,
		"RequestID":   event.RequestID,
		"ErrorDetail": event.ErrorDetail,
	}

	err := wk.Mailer.Send(wk.Config.Notifications.Email, data, "verification-failed-report.tmpl")
	if err != nil {
		wk.Logger.Error("failed to send failure report email",
			"request_id", event.RequestID, "error", err)
	}
}
