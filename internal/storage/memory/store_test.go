package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/storage"
)

func TestAppendOpportunityDedup(t *testing.T) {
	s := New()
	ctx := context.Background()
	ts := time.Unix(1_700_000_000, 0).UTC()
	o := models.Opportunity{Hash: "h", Timestamp: ts, Edge: decimal.RequireFromString("0.01")}

	if ok, _ := s.AppendOpportunity(ctx, o); !ok {
		t.Fatal("first append should insert")
	}
	if ok, _ := s.AppendOpportunity(ctx, o); ok {
		t.Fatal("duplicate append should be ignored")
	}
	later := o
	later.Timestamp = ts.Add(time.Second)
	if ok, _ := s.AppendOpportunity(ctx, later); !ok {
		t.Fatal("same hash at a new timestamp should insert")
	}

	opps, _ := s.ListOpportunities(ctx)
	if len(opps) != 2 || !opps[0].Timestamp.Equal(later.Timestamp) {
		t.Fatalf("unexpected list: %+v", opps)
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.GetPersistence(ctx, "h"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	start := time.Unix(1_700_000_000, 0).UTC()
	for i, e := range []string{"0.01", "0.02"} {
		_, err := s.UpsertPersistence(ctx, models.Observation{
			Hash: "h", MarketID: "m", TargetSize: decimal.NewFromInt(50),
			Timestamp: start.Add(time.Duration(i) * 5 * time.Second),
			Edge:      decimal.RequireFromString(e),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	rec, err := s.GetPersistence(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ObservationCount != 2 || rec.DurationSeconds != 5 {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.AvgEdge.Equal(decimal.RequireFromString("0.015")) {
		t.Fatalf("avg = %s, want 0.015", rec.AvgEdge)
	}
}

func TestUpsertHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().UpsertPersistence(ctx, models.Observation{Hash: "h"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
