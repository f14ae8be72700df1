// Package report summarizes stored opportunities and persistence records
// and exports them as CSV.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/models"
)

const topN = 10

type ThresholdCount struct {
	Threshold decimal.Decimal
	Count     int
	Share     float64
}

type SizeStats struct {
	Size   decimal.Decimal
	Count  int
	Avg    decimal.Decimal
	Median decimal.Decimal
	Max    decimal.Decimal
}

// DurationBucket counts records with Min <= duration < Max.
type DurationBucket struct {
	Label string
	Min   float64
	Max   float64
	Count int
	Share float64
}

type MarketCount struct {
	MarketID string
	Title    string
	Count    int
}

type TimeSeries struct {
	First   time.Time
	Last    time.Time
	Span    time.Duration
	PerHour float64
}

type Summary struct {
	Total      int
	Edges      []ThresholdCount
	Sizes      []SizeStats
	Records    int
	Durations  []DurationBucket
	Longest    []models.PersistenceRecord
	TopMarkets []MarketCount
	Series     TimeSeries
}

func durationBuckets() []DurationBucket {
	return []DurationBucket{
		{Label: "0-10s", Min: 0, Max: 10},
		{Label: "10-30s", Min: 10, Max: 30},
		{Label: "30-60s", Min: 30, Max: 60},
		{Label: "60-120s", Min: 60, Max: 120},
		{Label: ">120s", Min: 120, Max: math.Inf(1)},
	}
}

// Analyze builds the summary. thresholds and sizes come from configuration;
// sizes with no opportunities are left out.
func Analyze(opps []models.Opportunity, records []models.PersistenceRecord, thresholds, sizes []decimal.Decimal) Summary {
	s := Summary{Total: len(opps), Records: len(records)}
	if len(opps) == 0 {
		return s
	}

	for _, th := range thresholds {
		tc := ThresholdCount{Threshold: th}
		for _, o := range opps {
			if o.Edge.GreaterThanOrEqual(th) {
				tc.Count++
			}
		}
		tc.Share = share(tc.Count, len(opps))
		s.Edges = append(s.Edges, tc)
	}

	for _, size := range sizes {
		var edges []decimal.Decimal
		for _, o := range opps {
			if o.TargetSize.Equal(size) {
				edges = append(edges, o.Edge)
			}
		}
		if len(edges) == 0 {
			continue
		}
		s.Sizes = append(s.Sizes, sizeStats(size, edges))
	}

	if len(records) > 0 {
		s.Durations = durationBuckets()
		for _, r := range records {
			for i := range s.Durations {
				b := &s.Durations[i]
				if r.DurationSeconds >= b.Min && r.DurationSeconds < b.Max {
					b.Count++
					break
				}
			}
		}
		for i := range s.Durations {
			s.Durations[i].Share = share(s.Durations[i].Count, len(records))
		}

		longest := append([]models.PersistenceRecord(nil), records...)
		sort.SliceStable(longest, func(i, j int) bool {
			return longest[i].DurationSeconds > longest[j].DurationSeconds
		})
		s.Longest = longest[:min(topN, len(longest))]
	}

	s.TopMarkets = topMarkets(opps)
	s.Series = timeSeries(opps)
	return s
}

func sizeStats(size decimal.Decimal, edges []decimal.Decimal) SizeStats {
	sorted := append([]decimal.Decimal(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	return SizeStats{
		Size:   size,
		Count:  len(edges),
		Avg:    decimal.Sum(edges[0], edges[1:]...).Div(decimal.NewFromInt(int64(len(edges)))),
		Median: sorted[len(sorted)/2],
		Max:    sorted[len(sorted)-1],
	}
}

// topMarkets ranks by count; ties keep first-seen order.
func topMarkets(opps []models.Opportunity) []MarketCount {
	index := make(map[string]int)
	var counts []MarketCount
	for _, o := range opps {
		i, ok := index[o.MarketID]
		if !ok {
			i = len(counts)
			index[o.MarketID] = i
			counts = append(counts, MarketCount{MarketID: o.MarketID, Title: o.MarketTitle})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts[:min(topN, len(counts))]
}

func timeSeries(opps []models.Opportunity) TimeSeries {
	ts := TimeSeries{First: opps[0].Timestamp, Last: opps[0].Timestamp}
	for _, o := range opps[1:] {
		if o.Timestamp.Before(ts.First) {
			ts.First = o.Timestamp
		}
		if o.Timestamp.After(ts.Last) {
			ts.Last = o.Timestamp
		}
	}
	ts.Span = ts.Last.Sub(ts.First)
	if ts.Span > 0 {
		ts.PerHour = float64(len(opps)) / ts.Span.Hours()
	}
	return ts
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
