package arb

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func levels(pairs ...string) []PriceLevel {
	out := make([]PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, PriceLevel{Price: d(pairs[i]), Size: d(pairs[i+1])})
	}
	return out
}

func TestSimulateFill(t *testing.T) {
	tests := []struct {
		name      string
		levels    []PriceLevel
		target    string
		wantVWAP  string
		wantDepth int
	}{
		{"partial second level", levels("0.40", "30", "0.42", "40"), "50", "0.408", 2},
		{"single level exact", levels("0.55", "100"), "100", "0.55", 1},
		{"fills inside first level", levels("0.30", "500", "0.90", "10"), "50", "0.30", 1},
		{"exactly consumes two levels", levels("0.10", "10", "0.20", "10", "0.30", "10"), "20", "0.15", 2},
		{"insufficient liquidity", levels("0.40", "10", "0.50", "5"), "20", "0", 2},
		{"empty book", nil, "50", "0", 0},
		{"zero target", levels("0.40", "30"), "0", "0", 0},
		{"negative target", levels("0.40", "30"), "-5", "0", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vwap, depth := SimulateFill(tc.levels, d(tc.target))
			if !vwap.Equal(d(tc.wantVWAP)) {
				t.Fatalf("vwap = %s, want %s", vwap, tc.wantVWAP)
			}
			if depth != tc.wantDepth {
				t.Fatalf("depth = %d, want %d", depth, tc.wantDepth)
			}
		})
	}
}

func TestSimulateFillDoesNotSort(t *testing.T) {
	// Worse price first: the walk must honour the given order.
	vwap, depth := SimulateFill(levels("0.60", "10", "0.40", "10"), d("10"))
	if !vwap.Equal(d("0.60")) || depth != 1 {
		t.Fatalf("got (%s, %d), want (0.60, 1)", vwap, depth)
	}
}

func TestSimulateFillInsufficientTouchesEveryLevel(t *testing.T) {
	book := levels("0.10", "1", "0.20", "1", "0.30", "1", "0.40", "1")
	vwap, depth := SimulateFill(book, d("5"))
	if !vwap.IsZero() {
		t.Fatalf("vwap = %s, want 0", vwap)
	}
	if depth != len(book) {
		t.Fatalf("depth = %d, want %d", depth, len(book))
	}
}

func TestDepth(t *testing.T) {
	if got := Depth(levels("0.1", "5", "0.2", "7.5")); !got.Equal(d("12.5")) {
		t.Fatalf("Depth = %s, want 12.5", got)
	}
	if got := Depth(nil); !got.IsZero() {
		t.Fatalf("Depth(nil) = %s, want 0", got)
	}
}

func FuzzSimulateFill(f *testing.F) {
	f.Add([]byte{40, 30, 42, 40}, uint16(50))
	f.Add([]byte{10, 1}, uint16(5))
	f.Add([]byte{}, uint16(1))

	tolerance := d("0.000000001")
	f.Fuzz(func(t *testing.T, raw []byte, rawTarget uint16) {
		var book []PriceLevel
		for i := 0; i+1 < len(raw); i += 2 {
			price := decimal.NewFromInt(int64(raw[i]%99) + 1).Div(decimal.NewFromInt(100))
			size := decimal.NewFromInt(int64(raw[i+1]%50) + 1)
			book = append(book, PriceLevel{Price: price, Size: size})
		}
		target := decimal.NewFromInt(int64(rawTarget%500) + 1)

		vwap, depth := SimulateFill(book, target)
		if depth > len(book) {
			t.Fatalf("depth %d exceeds %d levels", depth, len(book))
		}

		if Depth(book).LessThan(target) {
			if !vwap.IsZero() || depth != len(book) {
				t.Fatalf("insufficient book: got (%s, %d), want (0, %d)", vwap, depth, len(book))
			}
			return
		}

		remaining := target
		cost := decimal.Zero
		for _, lvl := range book[:depth] {
			take := decimal.Min(remaining, lvl.Size)
			cost = cost.Add(take.Mul(lvl.Price))
			remaining = remaining.Sub(take)
		}
		if !remaining.IsZero() {
			t.Fatalf("levels touched do not cover target: %s left", remaining)
		}
		if diff := vwap.Mul(target).Sub(cost).Abs(); diff.GreaterThan(tolerance) {
			t.Fatalf("vwap*target = %s, cost = %s", vwap.Mul(target), cost)
		}
	})
}
