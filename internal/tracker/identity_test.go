package tracker

import (
	"testing"
	"time"
)

func TestTimeBucket(t *testing.T) {
	tests := []struct {
		unix   int64
		window time.Duration
		want   int64
	}{
		{0, 30 * time.Second, 0},
		{29, 30 * time.Second, 0},
		{30, 30 * time.Second, 1},
		{59, 30 * time.Second, 1},
		{1_700_000_009, 30 * time.Second, 56_666_666},
		{1_700_000_010, 30 * time.Second, 56_666_667},
		{-1, 30 * time.Second, -1},
		{-30, 30 * time.Second, -1},
		{-31, 30 * time.Second, -2},
		{42, 0, 42},
		{42, 500 * time.Millisecond, 42},
	}
	for _, tc := range tests {
		if got := TimeBucket(time.Unix(tc.unix, 0), tc.window); got != tc.want {
			t.Errorf("TimeBucket(%d, %s) = %d, want %d", tc.unix, tc.window, got, tc.want)
		}
	}
}

func TestHashIsShortAndDeterministic(t *testing.T) {
	h := Hash("0xabc", d("50"), 123)
	if len(h) != 16 {
		t.Fatalf("hash length = %d, want 16", len(h))
	}
	if h != Hash("0xabc", d("50"), 123) {
		t.Fatal("hash is not deterministic")
	}
	if h != Hash("0xabc", d("50.00"), 123) {
		t.Fatal("equal sizes with different scale should hash the same")
	}
	for name, other := range map[string]string{
		"market": Hash("0xabd", d("50"), 123),
		"size":   Hash("0xabc", d("200"), 123),
		"bucket": Hash("0xabc", d("50"), 124),
	} {
		if other == h {
			t.Errorf("changing %s did not change the hash", name)
		}
	}
}

func TestHashAtSplitsAtBucketBoundary(t *testing.T) {
	a := HashAt("m1", d("50"), time.Unix(1_700_000_005, 0), DefaultWindow)
	b := HashAt("m1", d("50"), time.Unix(1_700_000_009, 999_000_000), DefaultWindow)
	c := HashAt("m1", d("50"), time.Unix(1_700_000_010, 0), DefaultWindow)
	if a != b {
		t.Fatalf("same bucket produced different hashes: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("crossing the bucket boundary should produce a new hash")
	}
}
