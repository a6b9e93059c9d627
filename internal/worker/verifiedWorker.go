package worker

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/prelink-app/identity/internal/stream"
	"github.com/prelink-app/identity/internal/verify"
)

// VerifiedWorker sends the confirmation email for successful verifications
// and warms the current-status cache so the next status read skips the
// database.
func (wk *Worker) VerifiedWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: verifiedGroupID,
		Topic:   verify.VerificationSuccessTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}

	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var verified verify.Event
			if err := json.Unmarshal(e.Value, &verified); err != nil {
				wk.Logger.Error("invalid verification event", "error", err)
				continue
			}

			wk.handleVerified(&verified)
		case kafka.Error:
			wk.Logger.Error("kafka consumer error", "error", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) handleVerified(event *verify.Event) {
	if wk.Cache != nil && event.ExpiresAt != nil {
		wk.refreshStatusCache(event)
	}

	if event.Email == "" {
		return
	}

	data := map[string]any{
		"Name":      event.Name,
		"ExpiresAt": "",
	}
	if event.ExpiresAt != nil {
		data["ExpiresAt"] = event.ExpiresAt.Format("2 January 2006")
	}

	err := wk.Mailer.Send(event.Email, data, "verification-success.tmpl")
	if err != nil {
		wk.Logger.Error("failed to send verification confirmation email",
			"request_id", event.RequestID, "error", err)
		return
	}

	wk.Logger.Info("verification confirmation email sent", "request_id", event.RequestID)
}

func (wk *Worker) refreshStatusCache(event *verify.Event) {
	cached := map[string]any{
		"verified":           true,
		"request_id":         event.RequestID,
		"name":               event.Name,
		"overall_similarity": event.OverallSimilarity,
		"expires_at":         event.ExpiresAt,
	}

	serialized, err := json.Marshal(cached)
	if err != nil {
		return
	}

	ttl := time.Until(*event.ExpiresAt)
	if ttl <= 0 {
		return
	}

	key := fmt.Sprintf("identity:status:%s", event.UserID)
	if err := wk.Cache.Set(key, string(serialized), ttl); err != nil {
		wk.Logger.Error("failed to warm status cache", "user_id", event.UserID, "error", err)
	}
}
