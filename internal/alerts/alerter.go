// Package alerts publishes an alert the first time an opportunity's edge
// reaches each configured threshold level. Thresholds never affect detection.
package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/cache"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/models"
	"github.com/hetulpatel/arbscanner/internal/queue"
)

// Alerter dedups through an AlertCache and publishes through a MessageWriter.
// Either may be nil: a nil cache falls back to an in-process map, a nil
// writer only logs.
type Alerter struct {
	thresholds []decimal.Decimal
	cache      cache.AlertCache
	writer     queue.MessageWriter
	now        func() time.Time
}

func New(thresholds []decimal.Decimal, alertCache cache.AlertCache, writer queue.MessageWriter) *Alerter {
	sorted := append([]decimal.Decimal(nil), thresholds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	if alertCache == nil {
		alertCache = newLocalCache()
	}
	return &Alerter{
		thresholds: sorted,
		cache:      alertCache,
		writer:     writer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Level returns the highest threshold edge reaches.
func (a *Alerter) Level(edge decimal.Decimal) (decimal.Decimal, bool) {
	for i := len(a.thresholds) - 1; i >= 0; i-- {
		if edge.GreaterThanOrEqual(a.thresholds[i]) {
			return a.thresholds[i], true
		}
	}
	return decimal.Zero, false
}

// Notify reports whether an alert was published for o.
func (a *Alerter) Notify(ctx context.Context, o models.Opportunity) (bool, error) {
	level, ok := a.Level(o.Edge)
	if !ok {
		return false, nil
	}

	prev, found, err := a.cache.Get(ctx, o.Hash)
	if err != nil {
		return false, fmt.Errorf("alert cache get %s: %w", o.Hash, err)
	}
	if found && prev.Threshold.GreaterThanOrEqual(level) {
		return false, nil
	}

	alert := models.NewAlert(o, level)
	logging.Infof("[alerts] edge %s >= %s on %s (%s) size=%s",
		o.Edge.StringFixed(4), level.String(), o.MarketID, o.MarketTitle, o.TargetSize.String())

	if a.writer != nil {
		if err := queue.PublishAlerts(ctx, a.writer, alert); err != nil {
			return false, fmt.Errorf("publish alert %s: %w", o.Hash, err)
		}
	}

	record := cache.AlertRecord{MarketID: o.MarketID, Threshold: level, Edge: o.Edge, AlertedAt: a.now()}
	if err := a.cache.Set(ctx, o.Hash, record); err != nil {
		return true, fmt.Errorf("alert cache set %s: %w", o.Hash, err)
	}
	return true, nil
}

type localCache struct {
	mu      sync.Mutex
	records map[string]cache.AlertRecord
}

func newLocalCache() *localCache {
	return &localCache{records: make(map[string]cache.AlertRecord)}
}

func (c *localCache) Get(_ context.Context, hash string) (*cache.AlertRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[hash]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (c *localCache) Set(_ context.Context, hash string, record cache.AlertRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[hash] = record
	return nil
}

func (c *localCache) Close() error { return nil }
