package smacross

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/backtest"
	"github.com/rxtech-lab/argo-research/internal/indicator"
	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/internal/universe"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type SmaCrossTestSuite struct {
	suite.Suite

	pair types.TradingPair
	univ *universe.TradingUniverse
	log  *logger.Logger
}

func TestSmaCrossSuite(t *testing.T) {
	suite.Run(t, new(SmaCrossTestSuite))
}

func (suite *SmaCrossTestSuite) SetupTest() {
	suite.log = logger.NewNopLogger()
	suite.pair = types.TradingPair{
		Base:       types.AssetIdentifier{ChainID: 1, Ticker: "WETH", Decimals: 18},
		Quote:      types.AssetIdentifier{ChainID: 1, Ticker: "USDC", Decimals: 6},
		InternalID: 1,
	}

	// A price path that forces a golden cross and a later death cross:
	// a slow decline, then a sustained rally, then a sustained selloff.
	// The decline keeps RSI mid-range when the averages cross, so the
	// overbought filter does not block the entry.
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	var closes []float64

	for i := 0; i < 20; i++ {
		closes = append(closes, 1100-float64(i+1)*5)
	}

	for i := 0; i < 20; i++ {
		closes = append(closes, 1000+float64(i+1)*15)
	}

	for i := 0; i < 20; i++ {
		closes = append(closes, 1300-float64(i+1)*20)
	}

	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	univ, err := universe.New("ethereum", types.TimeBucket1d,
		[]types.TradingPair{suite.pair}, map[int][]types.Candle{1: candles})
	suite.Require().NoError(err)
	suite.univ = univ
}

func (suite *SmaCrossTestSuite) parameters() *strategy.Parameters {
	return strategy.NewParameters().
		With(ParamFastLength, 5).
		With(ParamSlowLength, 15).
		With(ParamRSILength, 14).
		Build()
}

func (suite *SmaCrossTestSuite) TestCreateIndicatorsRegistersThree() {
	set := indicator.NewSet(suite.log)

	err := CreateIndicators(suite.parameters(), set, suite.univ, strategy.NewUnitTestExecutionContext())
	suite.NoError(err)
	suite.Equal([]string{"fast_sma", "slow_sma", "rsi"}, set.Names())

	fast, ok := set.Get("fast_sma")
	suite.True(ok)
	suite.Equal("fast_sma(length=5)", fast.PathFragment())
}

func (suite *SmaCrossTestSuite) TestFastNotShorterThanSlowRejected() {
	parameters := strategy.NewParameters().
		With(ParamFastLength, 20).
		With(ParamSlowLength, 20).
		With(ParamRSILength, 14).
		Build()

	err := CreateIndicators(parameters, indicator.NewSet(suite.log), suite.univ, strategy.NewUnitTestExecutionContext())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *SmaCrossTestSuite) TestCrossoverTradesRoundTrip() {
	storage, err := indicator.NewDiskStorage(suite.T().TempDir(), suite.univ.CacheKey(), suite.log)
	suite.Require().NoError(err)

	results, err := indicator.CalculateAndLoadIndicators(
		context.Background(),
		suite.univ,
		storage,
		CreateIndicators,
		strategy.NewUnitTestExecutionContext(),
		suite.parameters(),
		indicator.DefaultCalculationOptions(),
		suite.log,
	)
	suite.Require().NoError(err)

	run, err := backtest.Run(context.Background(), backtest.RunConfig{
		Name:           "smacross",
		InitialDeposit: 10000,
		FeeRate:        -1,
		DecideTrades:   DecideTrades,
		Universe:       suite.univ,
		Parameters:     suite.parameters(),
		Indicators:     results,
		Logger:         suite.log,
	})
	suite.NoError(err)

	trades := run.State.Trades()
	suite.Require().NotEmpty(trades)
	suite.Equal(backtest.OrderSideBuy, trades[0].Side)

	// The rally entry is closed by the selloff cross.
	var sold bool

	for _, trade := range trades {
		if trade.Side == backtest.OrderSideSell {
			sold = true
		}
	}

	suite.True(sold)
	suite.Equal(0, run.Summary.OpenPositions)
	suite.Greater(run.Summary.TradePnl.RealizedPnL, 0.0)
}
