package universe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// TradingUniverse is the fixed set of tradeable pairs, their candle history
// and the date range a backtest or indicator cache applies to.
//
// The universe is immutable after construction and safe to share across
// worker goroutines without copying.
type TradingUniverse struct {
	chainSlug string
	bucket    types.TimeBucket
	pairs     []types.TradingPair
	candles   map[int][]types.Candle
}

// New creates a trading universe. Candles are keyed by pair InternalID and
// must be sorted by time ascending; every pair must have candle data.
func New(chainSlug string, bucket types.TimeBucket, pairs []types.TradingPair, candles map[int][]types.Candle) (*TradingUniverse, error) {
	if len(pairs) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyUniverse, "universe requires at least one trading pair")
	}

	if !bucket.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported time bucket %s", bucket)
	}

	sorted := make([]types.TradingPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].InternalID < sorted[j].InternalID
	})

	for _, pair := range sorted {
		pairCandles, ok := candles[pair.InternalID]
		if !ok || len(pairCandles) == 0 {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "no candles for pair %s", pair.Ticker())
		}

		for i := 1; i < len(pairCandles); i++ {
			if !pairCandles[i].Time.After(pairCandles[i-1].Time) {
				return nil, errors.Newf(errors.ErrCodeCandleRangeInvalid,
					"candles for pair %s are not sorted by time at index %d", pair.Ticker(), i)
			}
		}
	}

	return &TradingUniverse{
		chainSlug: chainSlug,
		bucket:    bucket,
		pairs:     sorted,
		candles:   candles,
	}, nil
}

// ChainSlug returns the chain name, e.g. "ethereum".
func (u *TradingUniverse) ChainSlug() string {
	return u.chainSlug
}

// Bucket returns the candle duration of the universe.
func (u *TradingUniverse) Bucket() types.TimeBucket {
	return u.bucket
}

// Pairs returns the trading pairs ordered by InternalID.
func (u *TradingUniverse) Pairs() []types.TradingPair {
	return u.pairs
}

// PairCount returns the number of trading pairs.
func (u *TradingUniverse) PairCount() int {
	return len(u.pairs)
}

// PairByTicker looks up a pair by its base and quote token tickers.
func (u *TradingUniverse) PairByTicker(base, quote string) (types.TradingPair, error) {
	for _, pair := range u.pairs {
		if pair.Base.Ticker == base && pair.Quote.Ticker == quote {
			return pair, nil
		}
	}

	return types.TradingPair{}, errors.Newf(errors.ErrCodePairNotFound, "no pair %s-%s in universe", base, quote)
}

// Candles returns the full candle history of a pair.
func (u *TradingUniverse) Candles(pair types.TradingPair) []types.Candle {
	return u.candles[pair.InternalID]
}

// CandlesBetween returns the pair's candles with start <= time <= end.
func (u *TradingUniverse) CandlesBetween(pair types.TradingPair, start, end time.Time) []types.Candle {
	return types.CandlesBetween(u.candles[pair.InternalID], start, end)
}

// TimestampRange returns the first and last candle timestamps across all pairs.
func (u *TradingUniverse) TimestampRange() (time.Time, time.Time) {
	var first, last time.Time

	for _, pair := range u.pairs {
		pairCandles := u.candles[pair.InternalID]
		if len(pairCandles) == 0 {
			continue
		}

		if first.IsZero() || pairCandles[0].Time.Before(first) {
			first = pairCandles[0].Time
		}

		if last.IsZero() || pairCandles[len(pairCandles)-1].Time.After(last) {
			last = pairCandles[len(pairCandles)-1].Time
		}
	}

	return first, last
}

// CacheKey returns the string that uniquely fingerprints this universe for
// indicator cache namespacing: chain, time bucket, pair tickers in InternalID
// order and the candle date range, e.g.
// "ethereum,1d,WETH-USDC-WBTC-USDC,2021-06-01-2021-12-31".
//
// Any change in the pair set, bucket or date range changes the key, so a new
// universe can never silently reuse stale cached indicator values.
func (u *TradingUniverse) CacheKey() string {
	tickers := make([]string, len(u.pairs))
	for i, pair := range u.pairs {
		tickers[i] = pair.Ticker()
	}

	first, last := u.TimestampRange()

	return fmt.Sprintf("%s,%s,%s,%s-%s",
		u.chainSlug,
		u.bucket,
		strings.Join(tickers, "-"),
		first.Format("2006-01-02"),
		last.Format("2006-01-02"),
	)
}
