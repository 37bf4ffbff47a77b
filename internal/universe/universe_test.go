package universe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type UniverseTestSuite struct {
	suite.Suite

	universe *TradingUniverse
	startAt  time.Time
	endAt    time.Time
}

func TestUniverseSuite(t *testing.T) {
	suite.Run(t, new(UniverseTestSuite))
}

func (suite *UniverseTestSuite) SetupTest() {
	suite.startAt = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	suite.endAt = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	usdc := types.AssetIdentifier{ChainID: 1, Address: "0x01", Ticker: "USDC", Decimals: 6}
	weth := types.AssetIdentifier{ChainID: 1, Address: "0x02", Ticker: "WETH", Decimals: 18}
	wbtc := types.AssetIdentifier{ChainID: 1, Address: "0x03", Ticker: "WBTC", Decimals: 8}

	wethUsdc := types.TradingPair{Base: weth, Quote: usdc, PoolAddress: "0xa1", InternalID: 1, Fee: 0.003}
	wbtcUsdc := types.TradingPair{Base: wbtc, Quote: usdc, PoolAddress: "0xa2", InternalID: 2, Fee: 0.003}

	wethCandles, err := GenerateSyntheticCandles(SyntheticCandleConfig{
		StartTime:    suite.startAt,
		EndTime:      suite.endAt,
		Bucket:       types.TimeBucket1d,
		InitialPrice: 3000,
		Seed:         1,
	})
	suite.Require().NoError(err)

	wbtcCandles, err := GenerateSyntheticCandles(SyntheticCandleConfig{
		StartTime:    suite.startAt,
		EndTime:      suite.endAt,
		Bucket:       types.TimeBucket1d,
		InitialPrice: 50_000,
		Seed:         2,
	})
	suite.Require().NoError(err)

	universe, err := New("ethereum", types.TimeBucket1d,
		[]types.TradingPair{wbtcUsdc, wethUsdc},
		map[int][]types.Candle{
			wethUsdc.InternalID: wethCandles,
			wbtcUsdc.InternalID: wbtcCandles,
		},
	)
	suite.Require().NoError(err)

	suite.universe = universe
}

func (suite *UniverseTestSuite) TestPairsOrderedByInternalID() {
	pairs := suite.universe.Pairs()
	suite.Len(pairs, 2)
	suite.Equal("WETH-USDC", pairs[0].Ticker())
	suite.Equal("WBTC-USDC", pairs[1].Ticker())
	suite.Equal(2, suite.universe.PairCount())
}

func (suite *UniverseTestSuite) TestCacheKey() {
	suite.Equal("ethereum,1d,WETH-USDC-WBTC-USDC,2021-06-01-2021-12-31", suite.universe.CacheKey())
}

func (suite *UniverseTestSuite) TestPairByTicker() {
	pair, err := suite.universe.PairByTicker("WETH", "USDC")
	suite.NoError(err)
	suite.Equal(1, pair.InternalID)

	_, err = suite.universe.PairByTicker("DOGE", "USDC")
	suite.True(errors.HasCode(err, errors.ErrCodePairNotFound))
}

func (suite *UniverseTestSuite) TestCandlesBetween() {
	pair, err := suite.universe.PairByTicker("WETH", "USDC")
	suite.Require().NoError(err)

	full := suite.universe.Candles(pair)
	suite.Len(full, 214)

	sliced := suite.universe.CandlesBetween(pair, suite.startAt, suite.startAt.Add(9*24*time.Hour))
	suite.Len(sliced, 10)
}

func (suite *UniverseTestSuite) TestTimestampRange() {
	first, last := suite.universe.TimestampRange()
	suite.Equal(suite.startAt, first)
	suite.Equal(time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), last)
}

func (suite *UniverseTestSuite) TestEmptyUniverseRejected() {
	_, err := New("ethereum", types.TimeBucket1d, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyUniverse))
}

func (suite *UniverseTestSuite) TestMissingCandlesRejected() {
	pair := types.TradingPair{
		Base:       types.AssetIdentifier{Ticker: "WETH"},
		Quote:      types.AssetIdentifier{Ticker: "USDC"},
		InternalID: 1,
	}

	_, err := New("ethereum", types.TimeBucket1d, []types.TradingPair{pair}, map[int][]types.Candle{})
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *UniverseTestSuite) TestUnsortedCandlesRejected() {
	pair := types.TradingPair{
		Base:       types.AssetIdentifier{Ticker: "WETH"},
		Quote:      types.AssetIdentifier{Ticker: "USDC"},
		InternalID: 1,
	}

	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		{Time: now.Add(24 * time.Hour), Close: 1},
		{Time: now, Close: 2},
	}

	_, err := New("ethereum", types.TimeBucket1d, []types.TradingPair{pair}, map[int][]types.Candle{1: candles})
	suite.True(errors.HasCode(err, errors.ErrCodeCandleRangeInvalid))
}

func (suite *UniverseTestSuite) TestSyntheticCandlesDeterministic() {
	config := SyntheticCandleConfig{
		StartTime:    suite.startAt,
		EndTime:      suite.startAt.Add(10 * 24 * time.Hour),
		Bucket:       types.TimeBucket1d,
		InitialPrice: 100,
		Seed:         42,
	}

	a, err := GenerateSyntheticCandles(config)
	suite.Require().NoError(err)

	b, err := GenerateSyntheticCandles(config)
	suite.Require().NoError(err)

	suite.Equal(a, b)
	suite.Len(a, 10)

	for _, candle := range a {
		suite.GreaterOrEqual(candle.High, candle.Open)
		suite.GreaterOrEqual(candle.High, candle.Close)
		suite.LessOrEqual(candle.Low, candle.Open)
		suite.LessOrEqual(candle.Low, candle.Close)
	}
}
