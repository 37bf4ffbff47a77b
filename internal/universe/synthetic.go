package universe

import (
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Default configuration constants for synthetic candle generation.
const (
	// DefaultMinimumPrice is the price floor to prevent negative or zero prices.
	DefaultMinimumPrice = 0.01
	// DefaultBaseVolume is the base volume for generated candles.
	DefaultBaseVolume = 1_000_000.0
	// DefaultVolatilityPercent is the per-candle price change volatility.
	DefaultVolatilityPercent = 2.0
)

// SyntheticCandleConfig configures deterministic random walk candle generation.
// Mostly used by tests and examples that need a universe without real data.
type SyntheticCandleConfig struct {
	// StartTime is the timestamp of the first candle.
	StartTime time.Time
	// EndTime is the exclusive upper bound for candle timestamps.
	EndTime time.Time
	// Bucket is the candle duration.
	Bucket types.TimeBucket
	// InitialPrice is the open of the first candle.
	InitialPrice float64
	// VolatilityPercent is the per-candle price change volatility.
	// Defaults to DefaultVolatilityPercent.
	VolatilityPercent float64
	// Seed seeds the random generator so runs are reproducible.
	Seed int64
}

// GenerateSyntheticCandles generates a reproducible random walk candle series.
func GenerateSyntheticCandles(config SyntheticCandleConfig) ([]types.Candle, error) {
	if config.StartTime.IsZero() || !config.EndTime.After(config.StartTime) {
		return nil, errors.New(errors.ErrCodeCandleRangeInvalid, "synthetic candles require start time before end time")
	}

	if !config.Bucket.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported time bucket %s", config.Bucket)
	}

	if config.InitialPrice <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial price must be positive, got %f", config.InitialPrice)
	}

	volatility := config.VolatilityPercent
	if volatility <= 0 {
		volatility = DefaultVolatilityPercent
	}

	rng := rand.New(rand.NewSource(config.Seed))
	step := config.Bucket.Duration()
	price := config.InitialPrice

	var candles []types.Candle

	for ts := config.StartTime; ts.Before(config.EndTime); ts = ts.Add(step) {
		change := (rng.Float64()*2 - 1) * volatility / 100

		open := price
		closePrice := open * (1 + change)

		if closePrice < DefaultMinimumPrice {
			closePrice = DefaultMinimumPrice
		}

		high := open
		if closePrice > high {
			high = closePrice
		}

		high *= 1 + rng.Float64()*volatility/200

		low := open
		if closePrice < low {
			low = closePrice
		}

		low *= 1 - rng.Float64()*volatility/200
		if low < DefaultMinimumPrice {
			low = DefaultMinimumPrice
		}

		candles = append(candles, types.Candle{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: DefaultBaseVolume * (0.5 + rng.Float64()),
		})

		price = closePrice
	}

	return candles, nil
}
