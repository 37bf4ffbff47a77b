package types

import "time"

// TimeBucket is the duration of one candle.
type TimeBucket string

const (
	TimeBucket1m  TimeBucket = "1m"
	TimeBucket5m  TimeBucket = "5m"
	TimeBucket15m TimeBucket = "15m"
	TimeBucket1h  TimeBucket = "1h"
	TimeBucket4h  TimeBucket = "4h"
	TimeBucket1d  TimeBucket = "1d"
	TimeBucket7d  TimeBucket = "7d"
)

// AllTimeBuckets lists the supported candle durations.
var AllTimeBuckets = []TimeBucket{
	TimeBucket1m,
	TimeBucket5m,
	TimeBucket15m,
	TimeBucket1h,
	TimeBucket4h,
	TimeBucket1d,
	TimeBucket7d,
}

// Duration returns the wall clock duration of one candle in this bucket.
func (b TimeBucket) Duration() time.Duration {
	switch b {
	case TimeBucket1m:
		return time.Minute
	case TimeBucket5m:
		return 5 * time.Minute
	case TimeBucket15m:
		return 15 * time.Minute
	case TimeBucket1h:
		return time.Hour
	case TimeBucket4h:
		return 4 * time.Hour
	case TimeBucket1d:
		return 24 * time.Hour
	case TimeBucket7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// IsValid reports whether the bucket is one of the supported values.
func (b TimeBucket) IsValid() bool {
	return b.Duration() > 0
}
