package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/arbscanner/internal/models"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PublishAlerts writes alerts as JSON keyed by market id. A nil writer is a no-op.
func PublishAlerts(ctx context.Context, writer MessageWriter, alerts ...models.Alert) error {
	if writer == nil || len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(alerts))
	for _, a := range alerts {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", a.Hash, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(a.MarketID), Value: payload})
	}
	return writer.WriteMessages(ctx, msgs...)
}

// DecodeAlert parses a message written by PublishAlerts.
func DecodeAlert(msg kafka.Message) (models.Alert, error) {
	var a models.Alert
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		return models.Alert{}, fmt.Errorf("decode alert at offset %d: %w", msg.Offset, err)
	}
	return a, nil
}
