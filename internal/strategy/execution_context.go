package strategy

import "github.com/rxtech-lab/argo-research/internal/logger"

// ExecutionMode tells indicator and strategy callbacks in which context they
// are being invoked.
type ExecutionMode string

const (
	ExecutionModeBacktest   ExecutionMode = "backtest"
	ExecutionModeGridSearch ExecutionMode = "grid_search"
	ExecutionModeUnitTest   ExecutionMode = "unit_test"
)

// ExecutionContext carries cross-cutting execution information into
// indicator registration and trade decision callbacks.
type ExecutionContext struct {
	Mode   ExecutionMode
	Logger *logger.Logger
}

// NewUnitTestExecutionContext returns an execution context for tests,
// with a no-op logger.
func NewUnitTestExecutionContext() ExecutionContext {
	return ExecutionContext{
		Mode:   ExecutionModeUnitTest,
		Logger: logger.NewNopLogger(),
	}
}
