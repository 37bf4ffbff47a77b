package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/indicator"
	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/internal/universe"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// DefaultFeeRate is the proportional fee applied per fill when the run
// config does not set one, 30 bps like a typical DEX pool.
const DefaultFeeRate = 0.003

// DecideTradesInput is everything a strategy decision sees for one time
// bucket. Deciders must only read candles up to Timestamp, e.g. via
// Universe.CandlesBetween, to avoid look-ahead bias.
type DecideTradesInput struct {
	Timestamp  time.Time
	Universe   *universe.TradingUniverse
	Indicators indicator.Results
	Parameters *strategy.Parameters
	State      *State
}

// DecideTradesFunc maps one time bucket to zero or more orders. Returning an
// error aborts the run.
type DecideTradesFunc func(input DecideTradesInput) ([]Order, error)

// RunConfig configures one backtest run.
type RunConfig struct {
	Name           string  `validate:"required"`
	InitialDeposit float64 `validate:"required,gt=0"`
	// FeeRate is the proportional fee per fill. Zero means DefaultFeeRate,
	// a negative value means no fees.
	FeeRate      float64
	StartAt      optional.Option[time.Time]
	EndAt        optional.Option[time.Time]
	DecideTrades DecideTradesFunc          `validate:"required"`
	Universe     *universe.TradingUniverse `validate:"required"`
	Parameters   *strategy.Parameters      `validate:"required"`
	Indicators   indicator.Results
	Logger       *logger.Logger
}

// Result bundles the final portfolio state and its derived statistics.
type Result struct {
	State   *State
	Summary types.TradeSummary
	Metrics types.PerformanceMetrics
}

// Run executes one backtest: for every candle timestamp of the universe it
// asks the decider for orders and fills them at that bucket's close price.
// Mark-to-market snapshots are taken every bucket, so drawdown reflects
// open positions, not just closed trades.
func Run(ctx context.Context, config RunConfig) (*Result, error) {
	validate := validator.New()

	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid run config", err)
	}

	log := config.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	feeRate := config.FeeRate
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	} else if feeRate < 0 {
		feeRate = 0
	}

	state, err := NewState(config.InitialDeposit, feeRate)
	if err != nil {
		return nil, err
	}

	first, last := config.Universe.TimestampRange()
	startAt := config.StartAt.TakeOr(first)
	endAt := config.EndAt.TakeOr(last)

	if !endAt.After(startAt) {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError,
			"run %s has end %s not after start %s", config.Name, endAt, startAt)
	}

	timestamps := runTimestamps(config.Universe, startAt, endAt)
	if len(timestamps) == 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError,
			"run %s has no candles between %s and %s", config.Name, startAt, endAt)
	}

	log.Debug("Starting backtest run",
		zap.String("name", config.Name),
		zap.String("run_id", state.ID()),
		zap.Int("buckets", len(timestamps)),
	)

	for _, ts := range timestamps {
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(errors.ErrCodeBacktestAborted, ctx.Err(), "run %s aborted", config.Name)
		default:
		}

		prices := closePricesAt(config.Universe, ts)

		orders, err := config.DecideTrades(DecideTradesInput{
			Timestamp:  ts,
			Universe:   config.Universe,
			Indicators: config.Indicators,
			Parameters: config.Parameters,
			State:      state,
		})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeBacktestRunFailed, err,
				"run %s decider failed at %s", config.Name, ts)
		}

		for _, order := range orders {
			if err := validate.Struct(order); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeInvalidOrder, err,
					"run %s emitted an invalid order at %s", config.Name, ts)
			}

			price, ok := prices[order.Pair]
			if !ok {
				return nil, errors.Newf(errors.ErrCodeInvalidOrder,
					"run %s ordered %s at %s but the pair has no candle", config.Name, order.Pair.Ticker(), ts)
			}

			if err := state.ExecuteOrder(order, price, ts); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeBacktestRunFailed, err,
					"run %s order failed at %s", config.Name, ts)
			}
		}

		state.MarkToMarket(prices, ts)
	}

	finalPrices := closePricesAt(config.Universe, timestamps[len(timestamps)-1])
	summary := state.Summary(finalPrices)
	metrics := state.Metrics(timestamps[0], timestamps[len(timestamps)-1])

	log.Debug("Backtest run finished",
		zap.String("name", config.Name),
		zap.Int("trades", summary.NumberOfTrades),
		zap.Float64("total_return", metrics.TotalReturn),
	)

	return &Result{
		State:   state,
		Summary: summary,
		Metrics: metrics,
	}, nil
}

// runTimestamps returns the sorted union of candle timestamps across all
// pairs inside [startAt, endAt].
func runTimestamps(univ *universe.TradingUniverse, startAt, endAt time.Time) []time.Time {
	seen := make(map[time.Time]struct{})

	var timestamps []time.Time

	for _, pair := range univ.Pairs() {
		for _, candle := range univ.CandlesBetween(pair, startAt, endAt) {
			if _, ok := seen[candle.Time]; ok {
				continue
			}

			seen[candle.Time] = struct{}{}
			timestamps = append(timestamps, candle.Time)
		}
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return timestamps
}

// closePricesAt returns the close price of every pair with a candle exactly
// at the given timestamp.
func closePricesAt(univ *universe.TradingUniverse, at time.Time) map[types.TradingPair]float64 {
	prices := make(map[types.TradingPair]float64, univ.PairCount())

	for _, pair := range univ.Pairs() {
		candles := univ.CandlesBetween(pair, at, at)
		if len(candles) == 1 {
			prices[pair] = candles[0].Close
		}
	}

	return prices
}
