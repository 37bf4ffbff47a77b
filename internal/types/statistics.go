package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TradePnl groups realised and unrealised profit figures for one run.
type TradePnl struct {
	// Realized PnL. Sum of all closed trades' pnl.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Unrealized PnL. Open position quantity * last close price - cost basis.
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	// Total PnL. RealizedPnL plus UnrealizedPnL.
	TotalPnL float64 `yaml:"total_pnl"`
	// Maximum loss over all closed trades.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Maximum profit over all closed trades.
	MaximumProfit float64 `yaml:"maximum_profit"`
}

// TradeSummary is the aggregate trade outcome of one backtest run.
type TradeSummary struct {
	// Count of all closed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of closed trades with positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of closed trades with negative pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate over closed trades, 0 when there are no trades.
	WinRate float64 `yaml:"win_rate"`
	// Count of positions still open at the end of the run.
	OpenPositions int `yaml:"open_positions"`
	// Total trading fees paid.
	TotalFees float64 `yaml:"total_fees"`
	// PnL of all trades.
	TradePnl TradePnl `yaml:"trade_pnl"`
}

// PerformanceMetrics are the equity curve derived metrics of one backtest run.
type PerformanceMetrics struct {
	// Initial deposit at the start of the run.
	InitialCash float64 `yaml:"initial_cash"`
	// Final portfolio value, cash plus open positions at last close.
	FinalValue float64 `yaml:"final_value"`
	// Total return over the run, e.g. 0.05 for +5%.
	TotalReturn float64 `yaml:"total_return"`
	// Total return scaled to a 365 day year.
	AnnualizedReturn float64 `yaml:"annualized_return"`
	// Largest peak-to-trough equity decline, e.g. 0.2 for -20%.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// First and last equity curve timestamps.
	StartAt time.Time `yaml:"start_at"`
	EndAt   time.Time `yaml:"end_at"`
}

// WritePerformanceReport writes a summary and metrics pair as one YAML document.
func WritePerformanceReport(path string, summary TradeSummary, metrics PerformanceMetrics) error {
	report := struct {
		Summary TradeSummary       `yaml:"summary"`
		Metrics PerformanceMetrics `yaml:"metrics"`
	}{
		Summary: summary,
		Metrics: metrics,
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal performance report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance report to file: %w", err)
	}

	return nil
}
