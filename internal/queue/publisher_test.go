package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestPublishAlerts(t *testing.T) {
	w := &recordingWriter{}
	alert := models.Alert{
		Hash:       "abc123",
		MarketID:   "0xmarket",
		Threshold:  decimal.RequireFromString("0.01"),
		Edge:       decimal.RequireFromString("0.0153"),
		TargetSize: decimal.NewFromInt(50),
		DetectedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := PublishAlerts(context.Background(), w, alert); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "0xmarket" {
		t.Fatalf("unexpected messages: %+v", w.msgs)
	}

	got, err := DecodeAlert(w.msgs[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash != alert.Hash || !got.Edge.Equal(alert.Edge) || !got.Threshold.Equal(alert.Threshold) || !got.DetectedAt.Equal(alert.DetectedAt) {
		t.Fatalf("decoded %+v, want %+v", got, alert)
	}
}

func TestPublishAlertsNoop(t *testing.T) {
	if err := PublishAlerts(context.Background(), nil, models.Alert{}); err != nil {
		t.Fatalf("nil writer: %v", err)
	}
	w := &recordingWriter{}
	if err := PublishAlerts(context.Background(), w); err != nil || len(w.msgs) != 0 {
		t.Fatalf("empty publish wrote %d messages, err %v", len(w.msgs), err)
	}
}

func TestPublishAlertsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	err := PublishAlerts(context.Background(), &recordingWriter{err: boom}, models.Alert{Hash: "h"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDecodeAlertRejectsGarbage(t *testing.T) {
	if _, err := DecodeAlert(kafka.Message{Value: []byte("{")}); err == nil {
		t.Fatal("expected decode error")
	}
}
