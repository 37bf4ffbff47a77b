// Package smacross is the reference grid search strategy: a simple moving
// average crossover with a relative strength filter. It exists so the
// gridsearch binary and the documentation have a complete, searchable
// strategy out of the box.
package smacross

import (
	"math"

	"github.com/rxtech-lab/argo-research/internal/backtest"
	"github.com/rxtech-lab/argo-research/internal/indicator"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/internal/universe"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Searched parameter names.
const (
	ParamFastLength = "fast_sma"
	ParamSlowLength = "slow_sma"
	ParamRSILength  = "rsi_length"
)

// PositionFraction is the share of free cash committed per entry.
const PositionFraction = 0.95

// rsiOverbought blocks entries when momentum is already stretched.
const rsiOverbought = 70.0

// CreateIndicators registers the fast and slow moving averages and the RSI
// filter for the searched parameter set.
func CreateIndicators(
	parameters *strategy.Parameters,
	indicators *indicator.Set,
	univ *universe.TradingUniverse,
	execCtx strategy.ExecutionContext,
) error {
	fast, err := parameters.Int(ParamFastLength)
	if err != nil {
		return err
	}

	slow, err := parameters.Int(ParamSlowLength)
	if err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"fast sma length %d must be shorter than slow sma length %d", fast, slow)
	}

	rsiLength, err := parameters.Int(ParamRSILength)
	if err != nil {
		return err
	}

	if err := indicators.Add("fast_sma", indicator.SMA(), indicator.Parameters{{Name: "length", Value: fast}}); err != nil {
		return err
	}

	if err := indicators.Add("slow_sma", indicator.SMA(), indicator.Parameters{{Name: "length", Value: slow}}); err != nil {
		return err
	}

	return indicators.Add("rsi", indicator.RSI(), indicator.Parameters{{Name: "length", Value: rsiLength}})
}

// DecideTrades enters a pair when its fast average crosses above the slow
// one and RSI is not overbought, and exits on the opposite cross. One
// position per pair, long only.
func DecideTrades(input backtest.DecideTradesInput) ([]backtest.Order, error) {
	var orders []backtest.Order

	// Entries in the same bucket share this budget so a multi-pair signal
	// cannot overdraw the account.
	availableCash, _ := input.State.Cash().Float64()

	for _, pair := range input.Universe.Pairs() {
		fast, ok := indicatorValueAt(input.Indicators, pair, "fast_sma", input)
		if !ok {
			continue
		}

		slow, ok := indicatorValueAt(input.Indicators, pair, "slow_sma", input)
		if !ok {
			continue
		}

		rsi, ok := indicatorValueAt(input.Indicators, pair, "rsi", input)
		if !ok {
			continue
		}

		position := input.State.Position(pair)

		if position == nil && fast > slow && rsi < rsiOverbought {
			order, spent, ok := entryOrder(input, pair, availableCash)
			if ok {
				orders = append(orders, order)
				availableCash -= spent
			}

			continue
		}

		if position != nil && fast < slow {
			quantity, _ := position.Quantity.Float64()
			orders = append(orders, backtest.Order{
				Pair:     pair,
				Side:     backtest.OrderSideSell,
				Quantity: quantity,
				Reason:   "sma cross exit",
			})
		}
	}

	return orders, nil
}

func entryOrder(input backtest.DecideTradesInput, pair types.TradingPair, availableCash float64) (backtest.Order, float64, bool) {
	candles := input.Universe.CandlesBetween(pair, input.Timestamp, input.Timestamp)
	if len(candles) != 1 || candles[0].Close <= 0 {
		return backtest.Order{}, 0, false
	}

	budget := availableCash * PositionFraction / float64(input.Universe.PairCount())

	quantity := budget / candles[0].Close
	if quantity <= 0 {
		return backtest.Order{}, 0, false
	}

	return backtest.Order{
		Pair:     pair,
		Side:     backtest.OrderSideBuy,
		Quantity: quantity,
		Reason:   "sma cross entry",
	}, budget, true
}

func indicatorValueAt(results indicator.Results, pair types.TradingPair, name string, input backtest.DecideTradesInput) (float64, bool) {
	result, ok := results.ByName(pair, name)
	if !ok {
		return 0, false
	}

	value, err := result.Frame.ValueAt(types.SeriesColumn, input.Timestamp)
	if err != nil || math.IsNaN(value) {
		return 0, false
	}

	return value, true
}
