package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/cache"
	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/queue"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type brokenCache struct{ cache.AlertCache }

func (brokenCache) Get(context.Context, string) (*cache.AlertRecord, bool, error) {
	return nil, false, errors.New("redis unavailable")
}

func defaultThresholds() []decimal.Decimal {
	return []decimal.Decimal{d("0.02"), d("0.005"), d("0.01")}
}

func opp(hash, edge string) models.Opportunity {
	return models.Opportunity{
		Hash: hash, MarketID: "m1", MarketTitle: "Test", TargetSize: d("50"),
		Edge: d(edge), Timestamp: time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestLevel(t *testing.T) {
	a := New(defaultThresholds(), nil, nil)
	tests := []struct {
		edge   string
		want   string
		wantOK bool
	}{
		{"0.001", "0", false},
		{"0.005", "0.005", true},
		{"0.0099", "0.005", true},
		{"0.015", "0.01", true},
		{"0.5", "0.02", true},
	}
	for _, tt := range tests {
		got, ok := a.Level(d(tt.edge))
		if ok != tt.wantOK || !got.Equal(d(tt.want)) {
			t.Errorf("Level(%s) = (%s, %v), want (%s, %v)", tt.edge, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNotifyOncePerLevel(t *testing.T) {
	w := &captureWriter{}
	a := New(defaultThresholds(), nil, w)
	ctx := context.Background()

	steps := []struct {
		edge      string
		published bool
	}{
		{"0.003", false},
		{"0.006", true},
		{"0.007", false},
		{"0.012", true},
		{"0.006", false},
		{"0.03", true},
		{"0.04", false},
	}
	for i, s := range steps {
		got, err := a.Notify(ctx, opp("h1", s.edge))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != s.published {
			t.Fatalf("step %d edge %s: published = %v, want %v", i, s.edge, got, s.published)
		}
	}
	if len(w.msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(w.msgs))
	}
	last, err := queue.DecodeAlert(w.msgs[2])
	if err != nil {
		t.Fatal(err)
	}
	if !last.Threshold.Equal(d("0.02")) || !last.Edge.Equal(d("0.03")) {
		t.Fatalf("last alert = %+v", last)
	}

	if ok, _ := a.Notify(ctx, opp("h2", "0.006")); !ok {
		t.Fatal("a different hash should alert independently")
	}
}

func TestNotifyErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("broker down")
	a := New(defaultThresholds(), nil, &captureWriter{err: boom})
	if _, err := a.Notify(ctx, opp("h", "0.01")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want broker error", err)
	}

	a = New(defaultThresholds(), brokenCache{}, &captureWriter{})
	if _, err := a.Notify(ctx, opp("h", "0.01")); err == nil {
		t.Fatal("expected cache error")
	}
}

func TestNotifyWithoutWriter(t *testing.T) {
	a := New(defaultThresholds(), nil, nil)
	ok, err := a.Notify(context.Background(), opp("h", "0.02"))
	if err != nil || !ok {
		t.Fatalf("Notify = (%v, %v), want (true, nil)", ok, err)
	}
}
