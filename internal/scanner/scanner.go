// Package scanner runs detection passes over every active binary market:
// fetch both ask books, simulate fills per target size, compute the
// fee-adjusted edge, then persist and track what it finds.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/arbscanner/internal/arb"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/tracker"
)

// ErrPersistence wraps store and tracker failures. It is the only error
// ScanOnce returns.
var ErrPersistence = errors.New("persistence failure")

type MarketSource interface {
	ListActiveMarkets(ctx context.Context) ([]models.Market, error)
}

// BookSource returns a token's asks sorted ascending by price.
type BookSource interface {
	FetchAsks(ctx context.Context, tokenID string) ([]arb.PriceLevel, error)
}

type OpportunityStore interface {
	AppendOpportunity(ctx context.Context, o models.Opportunity) (bool, error)
}

type Observer interface {
	Observe(ctx context.Context, obs models.Observation) (models.PersistenceRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, o models.Opportunity) (bool, error)
}

// Config is everything a pass needs besides its collaborators.
type Config struct {
	TargetSizes      []decimal.Decimal
	Fees             arb.Fees
	Window           time.Duration
	PollInterval     time.Duration
	FetchConcurrency int
	// VWAPLogLimit is how many VWAP pairs per pass are logged at info.
	VWAPLogLimit int
}

type Scanner struct {
	cfg      Config
	markets  MarketSource
	books    BookSource
	store    OpportunityStore
	observer Observer
	notifier Notifier
	now      func() time.Time
}

// New builds a Scanner. notifier may be nil.
func New(cfg Config, markets MarketSource, books BookSource, store OpportunityStore, observer Observer, notifier Notifier) *Scanner {
	if cfg.Window <= 0 {
		cfg.Window = tracker.DefaultWindow
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	return &Scanner{
		cfg:      cfg,
		markets:  markets,
		books:    books,
		store:    store,
		observer: observer,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type marketBooks struct {
	market models.Market
	yes    []arb.PriceLevel
	no     []arb.PriceLevel
	ok     bool
}

// ScanOnce runs one full pass and returns the number of opportunities found.
// Listing and book failures are logged and skipped. A persistence failure
// aborts the pass with an error wrapping ErrPersistence.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	scanID := uuid.NewString()
	started := time.Now()

	all, err := s.markets.ListActiveMarkets(ctx)
	if err != nil {
		logging.Errorf("[scanner] %s list markets: %v", scanID, err)
		return 0, nil
	}

	markets := make([]models.Market, 0, len(all))
	for _, m := range all {
		if err := m.Validate(); err != nil {
			logging.Debugf("[scanner] %s skip: %v", scanID, err)
			continue
		}
		markets = append(markets, m)
	}
	logging.Infof("[scanner] %s scanning %d binary markets (%d listed)", scanID, len(markets), len(all))

	books := s.fetchBooks(ctx, scanID, markets)

	found := 0
	logged := 0
	for _, mb := range books {
		if !mb.ok {
			continue
		}
		for _, size := range s.cfg.TargetSizes {
			inputs := s.simulate(mb, size)
			if inputs.VWAPYes.IsZero() || inputs.VWAPNo.IsZero() {
				continue
			}
			if logged < s.cfg.VWAPLogLimit {
				logging.Infof("[scanner] %s vwap %s size=%s yes=%s no=%s",
					scanID, inputs.MarketID, size, inputs.VWAPYes.StringFixed(4), inputs.VWAPNo.StringFixed(4))
				logged++
			} else {
				logging.Debugf("[scanner] %s vwap %s size=%s yes=%s no=%s",
					scanID, inputs.MarketID, size, inputs.VWAPYes.StringFixed(4), inputs.VWAPNo.StringFixed(4))
			}

			opp, ok := s.detect(inputs)
			if !ok {
				continue
			}
			found++
			if err := s.record(ctx, opp); err != nil {
				return found, err
			}
		}
	}

	logging.Infof("[scanner] %s pass done: %d opportunities in %s", scanID, found, time.Since(started).Round(time.Millisecond))
	return found, nil
}

// fetchBooks loads both legs of every market with bounded concurrency. A
// failed market is marked !ok and skipped by the caller.
func (s *Scanner) fetchBooks(ctx context.Context, scanID string, markets []models.Market) []marketBooks {
	out := make([]marketBooks, len(markets))
	var g errgroup.Group
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, m := range markets {
		g.Go(func() error {
			out[i].market = m
			if ctx.Err() != nil {
				return nil
			}
			yes, err := s.books.FetchAsks(ctx, m.YesToken())
			if err != nil {
				logging.Warnf("[scanner] %s skip market %s: yes book: %v", scanID, m.ID, err)
				return nil
			}
			no, err := s.books.FetchAsks(ctx, m.NoToken())
			if err != nil {
				logging.Warnf("[scanner] %s skip market %s: no book: %v", scanID, m.ID, err)
				return nil
			}
			out[i].yes, out[i].no, out[i].ok = yes, no, true
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Scanner) simulate(mb marketBooks, size decimal.Decimal) models.ArbitrageInputs {
	vwapYes, depthYes := arb.SimulateFill(mb.yes, size)
	vwapNo, depthNo := arb.SimulateFill(mb.no, size)
	return models.ArbitrageInputs{
		MarketID:     mb.market.ID,
		MarketTitle:  mb.market.Title,
		TargetSize:   size,
		VWAPYes:      vwapYes,
		VWAPNo:       vwapNo,
		YesBookDepth: depthYes,
		NoBookDepth:  depthNo,
	}
}

func (s *Scanner) detect(in models.ArbitrageInputs) (models.Opportunity, bool) {
	edge, ok := arb.ComputeEdge(in.VWAPYes, in.VWAPNo, in.TargetSize, s.cfg.Fees)
	if !ok {
		return models.Opportunity{}, false
	}
	ts := s.now()
	return models.Opportunity{
		Hash:          tracker.HashAt(in.MarketID, in.TargetSize, ts, s.cfg.Window),
		Timestamp:     ts,
		MarketID:      in.MarketID,
		MarketTitle:   in.MarketTitle,
		TargetSize:    in.TargetSize,
		VWAPYes:       in.VWAPYes,
		VWAPNo:        in.VWAPNo,
		RawSum:        edge.RawSum,
		FeeRateYes:    s.cfg.Fees.Yes,
		FeeRateNo:     s.cfg.Fees.No,
		EffectiveCost: edge.EffectiveCost,
		Edge:          edge.Edge,
		YesBookDepth:  in.YesBookDepth,
		NoBookDepth:   in.NoBookDepth,
	}, true
}

// record appends o and, unless it was a duplicate, feeds the tracker.
func (s *Scanner) record(ctx context.Context, o models.Opportunity) error {
	inserted, err := s.store.AppendOpportunity(ctx, o)
	if err != nil {
		return fmt.Errorf("%w: append %s: %w", ErrPersistence, o.Hash, err)
	}
	if !inserted {
		logging.Debugf("[scanner] duplicate opportunity %s at %s ignored", o.Hash, o.Timestamp.Format(time.RFC3339Nano))
		return nil
	}

	rec, err := s.observer.Observe(ctx, o.Observation())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	logging.Debugf("[scanner] %s edge=%s seen=%d for %.1fs",
		o.Hash, o.Edge.StringFixed(4), rec.ObservationCount, rec.DurationSeconds)

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, o); err != nil {
			logging.Warnf("[scanner] alert %s: %v", o.Hash, err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled, sleeping PollInterval between passes.
// Passes never overlap. It returns the number of completed passes.
func (s *Scanner) Run(ctx context.Context) int {
	passes := 0
	for {
		if ctx.Err() != nil {
			return passes
		}
		if _, err := s.ScanOnce(ctx); err != nil {
			logging.Errorf("[scanner] pass aborted: %v", err)
		}
		passes++

		t := time.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return passes
		case <-t.C:
		}
	}
}
