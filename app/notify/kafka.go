package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
)

// Event is the message published for every inserted or updated alert.
type Event struct {
	Action        database.UpsertAction `json:"action"`
	Source        alert.Source          `json:"source"`
	ExternalID    string                `json:"external_id"`
	Title         string                `json:"title"`
	Severity      alert.Severity        `json:"severity"`
	Category      string                `json:"category"`
	LinkURL       string                `json:"link_url,omitempty"`
	Locations     []string              `json:"locations"`
	DatePublished time.Time             `json:"date_published"`
	Hash          string                `json:"hash"`
	SyncedAt      time.Time             `json:"synced_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	slog.Info("Kafka publisher enabled", "brokers", brokers, "topic", topic)

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, action database.UpsertAction, a alert.NormalizedAlert) error {
	msg, err := NewMessage(action, a, time.Now())
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s/%s: %w", a.Source, a.ExternalID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewMessage builds the Kafka message for an alert change. Messages for the
// same alert share a key, so they land on one partition in order.
func NewMessage(action database.UpsertAction, a alert.NormalizedAlert, syncedAt time.Time) (kafka.Message, error) {
	event := Event{
		Action:        action,
		Source:        a.Source,
		ExternalID:    a.ExternalID,
		Title:         a.Title,
		Severity:      a.Severity,
		Category:      a.Category,
		LinkURL:       a.LinkURL,
		Locations:     a.Locations,
		DatePublished: a.DatePublished.UTC(),
		Hash:          a.Hash,
		SyncedAt:      syncedAt.UTC(),
	}
	if event.Locations == nil {
		event.Locations = []string{}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(string(a.Source) + ":" + a.ExternalID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(action)},
			{Key: "severity", Value: []byte(a.Severity)},
		},
		Time: syncedAt,
	}, nil
}
