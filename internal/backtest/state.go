package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order is one trade instruction emitted by a strategy decision.
type Order struct {
	Pair     types.TradingPair `validate:"required"`
	Side     OrderSide         `validate:"required,oneof=buy sell"`
	Quantity float64           `validate:"required,gt=0"`
	// Reason is a free-form note recorded on the resulting trade,
	// e.g. "sma crossover entry".
	Reason string
}

// Position is the open holding of one trading pair.
type Position struct {
	Pair          types.TradingPair
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	TotalFees     decimal.Decimal
}

// Trade is one executed order.
type Trade struct {
	ID          string
	Pair        types.TradingPair
	Side        OrderSide
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	ExecutedAt  time.Time
	RealizedPnL decimal.Decimal
	Reason      string
}

// EquityPoint is a mark-to-market snapshot of total portfolio value.
type EquityPoint struct {
	Time  time.Time
	Value decimal.Decimal
}

// State is the mutable portfolio of one backtest run. All money math is
// decimal so repeated fills cannot accumulate float drift. State is not
// safe for concurrent use; each backtest run owns exactly one.
type State struct {
	id          string
	initialCash decimal.Decimal
	cash        decimal.Decimal
	feeRate     decimal.Decimal
	positions   map[types.TradingPair]*Position
	trades      []Trade
	equity      []EquityPoint
}

// NewState creates a portfolio state with the given starting cash and a
// proportional fee rate applied to every fill (e.g. 0.0005 for 5 bps).
func NewState(initialDeposit float64, feeRate float64) (*State, error) {
	if initialDeposit <= 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "initial deposit must be positive, got %f", initialDeposit)
	}

	if feeRate < 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "fee rate must not be negative, got %f", feeRate)
	}

	deposit := decimal.NewFromFloat(initialDeposit)

	return &State{
		id:          uuid.NewString(),
		initialCash: deposit,
		cash:        deposit,
		feeRate:     decimal.NewFromFloat(feeRate),
		positions:   make(map[types.TradingPair]*Position),
	}, nil
}

// ID returns the unique run identifier of this state.
func (s *State) ID() string {
	return s.id
}

// Cash returns the current free cash balance.
func (s *State) Cash() decimal.Decimal {
	return s.cash
}

// InitialCash returns the starting deposit.
func (s *State) InitialCash() decimal.Decimal {
	return s.initialCash
}

// Position returns the open position for a pair, or nil when flat.
func (s *State) Position(pair types.TradingPair) *Position {
	return s.positions[pair]
}

// Trades returns all executed trades in execution order.
func (s *State) Trades() []Trade {
	return s.trades
}

// EquityCurve returns the recorded mark-to-market snapshots.
func (s *State) EquityCurve() []EquityPoint {
	return s.equity
}

// ExecuteOrder fills an order at the given price. Buys that exceed free cash
// and sells that exceed the open position are rejected without mutating state.
func (s *State) ExecuteOrder(order Order, price float64, executedAt time.Time) error {
	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "fill price must be positive, got %f", price)
	}

	quantity := decimal.NewFromFloat(order.Quantity)
	fillPrice := decimal.NewFromFloat(price)
	notional := quantity.Mul(fillPrice)
	fee := notional.Mul(s.feeRate)

	switch order.Side {
	case OrderSideBuy:
		cost := notional.Add(fee)
		if cost.GreaterThan(s.cash) {
			return errors.Newf(errors.ErrCodeInsufficientCash,
				"order for %s costs %s but only %s cash available",
				order.Pair.Ticker(), cost.StringFixed(2), s.cash.StringFixed(2))
		}

		s.cash = s.cash.Sub(cost)
		s.applyBuy(order.Pair, quantity, fillPrice, fee)
		s.recordTrade(order, quantity, fillPrice, fee, executedAt, decimal.Zero)

		return nil
	case OrderSideSell:
		position := s.positions[order.Pair]
		if position == nil || quantity.GreaterThan(position.Quantity) {
			held := decimal.Zero
			if position != nil {
				held = position.Quantity
			}

			return errors.Newf(errors.ErrCodeInvalidOrder,
				"cannot sell %s %s, position holds %s", quantity, order.Pair.Ticker(), held)
		}

		realized := fillPrice.Sub(position.AvgEntryPrice).Mul(quantity).Sub(fee)
		s.cash = s.cash.Add(notional).Sub(fee)
		s.applySell(order.Pair, quantity, fee)
		s.recordTrade(order, quantity, fillPrice, fee, executedAt, realized)

		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidOrder, "unknown order side %q", order.Side)
	}
}

func (s *State) applyBuy(pair types.TradingPair, quantity, price, fee decimal.Decimal) {
	position := s.positions[pair]
	if position == nil {
		s.positions[pair] = &Position{
			Pair:          pair,
			Quantity:      quantity,
			AvgEntryPrice: price,
			TotalFees:     fee,
		}

		return
	}

	// Weighted average entry across fills.
	oldNotional := position.Quantity.Mul(position.AvgEntryPrice)
	newNotional := quantity.Mul(price)
	total := position.Quantity.Add(quantity)

	position.AvgEntryPrice = oldNotional.Add(newNotional).Div(total)
	position.Quantity = total
	position.TotalFees = position.TotalFees.Add(fee)
}

func (s *State) applySell(pair types.TradingPair, quantity, fee decimal.Decimal) {
	position := s.positions[pair]
	position.Quantity = position.Quantity.Sub(quantity)
	position.TotalFees = position.TotalFees.Add(fee)

	if position.Quantity.IsZero() {
		delete(s.positions, pair)
	}
}

func (s *State) recordTrade(order Order, quantity, price, fee decimal.Decimal, executedAt time.Time, realized decimal.Decimal) {
	s.trades = append(s.trades, Trade{
		ID:          uuid.NewString(),
		Pair:        order.Pair,
		Side:        order.Side,
		Quantity:    quantity,
		Price:       price,
		Fee:         fee,
		ExecutedAt:  executedAt,
		RealizedPnL: realized,
		Reason:      order.Reason,
	})
}

// MarkToMarket records an equity snapshot at the given prices.
func (s *State) MarkToMarket(prices map[types.TradingPair]float64, at time.Time) {
	s.equity = append(s.equity, EquityPoint{
		Time:  at,
		Value: s.TotalEquity(prices),
	})
}

// TotalEquity returns cash plus the value of open positions at the given prices.
func (s *State) TotalEquity(prices map[types.TradingPair]float64) decimal.Decimal {
	total := s.cash

	for pair, position := range s.positions {
		price, ok := prices[pair]
		if !ok {
			continue
		}

		total = total.Add(position.Quantity.Mul(decimal.NewFromFloat(price)))
	}

	return total
}

// Summary aggregates executed trades into a trade statistics report.
func (s *State) Summary(finalPrices map[types.TradingPair]float64) types.TradeSummary {
	var (
		realized   decimal.Decimal
		totalFees  decimal.Decimal
		maxLoss    decimal.Decimal
		maxProfit  decimal.Decimal
		wins       int
		losses     int
		closedSell int
	)

	for _, trade := range s.trades {
		totalFees = totalFees.Add(trade.Fee)

		if trade.Side != OrderSideSell {
			continue
		}

		closedSell++

		realized = realized.Add(trade.RealizedPnL)

		if trade.RealizedPnL.IsPositive() {
			wins++
		} else if trade.RealizedPnL.IsNegative() {
			losses++
		}

		if trade.RealizedPnL.LessThan(maxLoss) {
			maxLoss = trade.RealizedPnL
		}

		if trade.RealizedPnL.GreaterThan(maxProfit) {
			maxProfit = trade.RealizedPnL
		}
	}

	var unrealized decimal.Decimal

	for pair, position := range s.positions {
		price, ok := finalPrices[pair]
		if !ok {
			continue
		}

		unrealized = unrealized.Add(
			decimal.NewFromFloat(price).Sub(position.AvgEntryPrice).Mul(position.Quantity))
	}

	winRate := 0.0
	if closedSell > 0 {
		winRate = float64(wins) / float64(closedSell)
	}

	return types.TradeSummary{
		NumberOfTrades:        len(s.trades),
		NumberOfWinningTrades: wins,
		NumberOfLosingTrades:  losses,
		WinRate:               winRate,
		OpenPositions:         len(s.positions),
		TotalFees:             totalFees.InexactFloat64(),
		TradePnl: types.TradePnl{
			RealizedPnL:   realized.InexactFloat64(),
			UnrealizedPnL: unrealized.InexactFloat64(),
			TotalPnL:      realized.Add(unrealized).InexactFloat64(),
			MaximumLoss:   maxLoss.InexactFloat64(),
			MaximumProfit: maxProfit.InexactFloat64(),
		},
	}
}

// Metrics derives performance metrics from the equity curve.
func (s *State) Metrics(startAt, endAt time.Time) types.PerformanceMetrics {
	finalValue := s.initialCash
	if len(s.equity) > 0 {
		finalValue = s.equity[len(s.equity)-1].Value
	}

	totalReturn := finalValue.Sub(s.initialCash).Div(s.initialCash).InexactFloat64()

	annualized := 0.0
	if years := endAt.Sub(startAt).Hours() / (24 * 365); years > 0 {
		annualized = totalReturn / years
	}

	return types.PerformanceMetrics{
		InitialCash:      s.initialCash.InexactFloat64(),
		FinalValue:       finalValue.InexactFloat64(),
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		MaxDrawdown:      s.maxDrawdown(),
		StartAt:          startAt,
		EndAt:            endAt,
	}
}

// maxDrawdown returns the largest peak-to-trough decline of the equity curve
// as a fraction of the peak.
func (s *State) maxDrawdown() float64 {
	if len(s.equity) == 0 {
		return 0
	}

	peak := s.equity[0].Value
	worst := decimal.Zero

	for _, point := range s.equity {
		if point.Value.GreaterThan(peak) {
			peak = point.Value
		}

		if peak.IsPositive() {
			drawdown := peak.Sub(point.Value).Div(peak)
			if drawdown.GreaterThan(worst) {
				worst = drawdown
			}
		}
	}

	return worst.InexactFloat64()
}
