package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func pct(d decimal.Decimal, places int32) string {
	return d.Mul(hundred).StringFixed(places) + "%"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Render writes the text report.
func (s Summary) Render(w io.Writer) error {
	rule := strings.Repeat("=", 70)
	sep := strings.Repeat("-", 70)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nPOLYMARKET ARBITRAGE SCANNER - OPPORTUNITY ANALYSIS\n%s\n", rule, rule)
	if s.Total == 0 {
		b.WriteString("\nNo opportunities found in database.\nRun the scanner first to collect data.\n\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "\nTotal Opportunities Logged: %d\n", s.Total)

	fmt.Fprintf(&b, "\n%s\nEDGE DISTRIBUTION\n%s\n", sep, sep)
	for _, e := range s.Edges {
		fmt.Fprintf(&b, "  Edge >= %6s: %5d opportunities (%5.1f%%)\n", pct(e.Threshold, 1), e.Count, e.Share)
	}

	fmt.Fprintf(&b, "\n%s\nSTATISTICS BY TARGET SIZE\n%s\n", sep, sep)
	for _, st := range s.Sizes {
		fmt.Fprintf(&b, "\n  Target Size: $%s\n", st.Size)
		fmt.Fprintf(&b, "    Count:       %d\n", st.Count)
		fmt.Fprintf(&b, "    Avg Edge:    %s\n", pct(st.Avg, 3))
		fmt.Fprintf(&b, "    Median Edge: %s\n", pct(st.Median, 3))
		fmt.Fprintf(&b, "    Max Edge:    %s\n", pct(st.Max, 3))
	}

	fmt.Fprintf(&b, "\n%s\nOPPORTUNITY PERSISTENCE\n%s\n", sep, sep)
	if s.Records == 0 {
		b.WriteString("  No persistence data available.\n")
	} else {
		for _, d := range s.Durations {
			fmt.Fprintf(&b, "  %10s: %5d opportunities (%5.1f%%)\n", d.Label, d.Count, d.Share)
		}
		fmt.Fprintf(&b, "\n  Top %d Longest-Lasting Opportunities:\n  %s\n", topN, strings.Repeat("-", 66))
		for i, r := range s.Longest {
			fmt.Fprintf(&b, "  %2d. Duration: %6.1fs | Avg Edge: %6s | Observations: %3d\n",
				i+1, r.DurationSeconds, pct(r.AvgEdge, 2), r.ObservationCount)
		}
	}

	fmt.Fprintf(&b, "\n%s\nTOP MARKETS BY OPPORTUNITY COUNT\n%s\n", sep, sep)
	for i, m := range s.TopMarkets {
		fmt.Fprintf(&b, "  %2d. %s\n      Opportunities: %d\n", i+1, truncate(m.Title, 55), m.Count)
	}

	fmt.Fprintf(&b, "\n%s\nTIME SERIES SUMMARY\n%s\n", sep, sep)
	const layout = "2006-01-02 15:04:05 UTC"
	fmt.Fprintf(&b, "  First Scan:  %s\n", s.Series.First.UTC().Format(layout))
	fmt.Fprintf(&b, "  Last Scan:   %s\n", s.Series.Last.UTC().Format(layout))
	fmt.Fprintf(&b, "  Duration:    %.2f hours (%.2f days)\n", s.Series.Span.Hours(), s.Series.Span.Hours()/24)
	if s.Series.Span > 0 {
		fmt.Fprintf(&b, "  Avg Rate:    %.1f opportunities/hour\n", s.Series.PerHour)
	}
	fmt.Fprintf(&b, "\n%s\n\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}
