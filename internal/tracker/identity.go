package tracker

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/hashutil"
)

// DefaultWindow is the width of an opportunity time bucket.
const DefaultWindow = 30 * time.Second

const hashLength = 16

// TimeBucket returns floor(unix seconds / window seconds). Windows shorter
// than a second are treated as one second.
func TimeBucket(t time.Time, window time.Duration) int64 {
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	unix := t.Unix()
	bucket := unix / secs
	if unix%secs != 0 && unix < 0 {
		bucket--
	}
	return bucket
}

// Hash derives the identity of an opportunity on marketID at size within one
// time bucket. The same market and size in a later bucket hash differently,
// so a long-lived opportunity is tracked as one record per bucket.
func Hash(marketID string, size decimal.Decimal, bucket int64) string {
	return hashutil.ShortHash(hashLength, marketID, size.String(), strconv.FormatInt(bucket, 10))
}

// HashAt is Hash for the bucket containing t.
func HashAt(marketID string, size decimal.Decimal, t time.Time, window time.Duration) string {
	return Hash(marketID, size, TimeBucket(t, window))
}
