package grid

import (
	"context"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/argo-research/internal/backtest"
	"github.com/rxtech-lab/argo-research/internal/indicator"
	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/universe"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Worker computes the result of one combination. Workers run concurrently
// and must not share mutable state across calls.
type Worker func(ctx context.Context, combination Combination) (*SearchResult, error)

// SearchOptions tune one grid search run.
type SearchOptions struct {
	// MaxWorkers bounds concurrent combinations. Values below 2 run the
	// search sequentially in combination order, which keeps stack traces
	// and debugger sessions readable.
	MaxWorkers int
	// ShowProgress renders a terminal progress bar across combinations.
	ShowProgress bool
}

// RunCombination resolves one combination: a completed result on disk is
// loaded and returned as cached, otherwise the worker computes it and the
// result is persisted before returning. Running the same combination twice
// therefore computes at most once.
func RunCombination(ctx context.Context, combination Combination, worker Worker) (*SearchResult, error) {
	cached, err := HasResult(combination)
	if err != nil {
		return nil, err
	}

	if cached {
		return LoadResult(combination)
	}

	result, err := worker(ctx, combination)
	if err != nil {
		return nil, err
	}

	if err := SaveResult(combination, result); err != nil {
		return nil, err
	}

	return result, nil
}

// PerformSearch runs every combination through the worker, resuming from
// persisted results. The first failing combination aborts the search and the
// returned error names it. Results are returned in combination order.
func PerformSearch(
	ctx context.Context,
	combinations []Combination,
	worker Worker,
	opts SearchOptions,
	log *logger.Logger,
) ([]*SearchResult, error) {
	if len(combinations) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGrid, "no combinations to search")
	}

	log.Info("Starting grid search",
		zap.Int("combinations", len(combinations)),
		zap.Int("max_workers", opts.MaxWorkers),
	)

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(combinations)), "grid search")
	}

	advance := func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	results := make([]*SearchResult, len(combinations))

	if opts.MaxWorkers <= 1 {
		for i, combination := range combinations {
			result, err := RunCombination(ctx, combination, worker)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeCombinationFailed, err,
					"combination %s failed", combination.Label())
			}

			results[i] = result

			advance()
		}
	} else {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(opts.MaxWorkers)

		for i, combination := range combinations {
			group.Go(func() error {
				result, err := RunCombination(groupCtx, combination, worker)
				if err != nil {
					return errors.Wrapf(errors.ErrCodeCombinationFailed, err,
						"combination %s failed", combination.Label())
				}

				results[i] = result

				advance()

				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return nil, err
		}
	}

	cached := 0
	for _, result := range results {
		if result.Cached {
			cached++
		}
	}

	log.Info("Grid search finished",
		zap.Int("computed", len(results)-cached),
		zap.Int("cached", cached),
	)

	return results, nil
}

// BacktestWorkerConfig wires a strategy into a grid search worker.
type BacktestWorkerConfig struct {
	Universe         *universe.TradingUniverse
	Storage          indicator.Storage
	CreateIndicators indicator.CreateIndicatorsFunc
	DecideTrades     backtest.DecideTradesFunc
	InitialDeposit   float64
	FeeRate          float64
	// Calculation tunes indicator cache concurrency within one combination.
	Calculation indicator.CalculationOptions
	Logger      *logger.Logger
}

// NewBacktestWorker builds a Worker that, for each combination, resolves the
// strategy's indicators through the shared indicator cache and runs one
// backtest over the universe.
//
// The indicator storage is shared across combinations: combinations that
// request the same indicator parameters reuse each other's artifacts, which
// is where most of a grid search's compute savings come from.
func NewBacktestWorker(config BacktestWorkerConfig) Worker {
	log := config.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return func(ctx context.Context, combination Combination) (*SearchResult, error) {
		parameters := combination.StrategyParameters()

		execCtx := strategy.ExecutionContext{
			Mode:   strategy.ExecutionModeGridSearch,
			Logger: log,
		}

		indicators, err := indicator.CalculateAndLoadIndicators(
			ctx,
			config.Universe,
			config.Storage,
			config.CreateIndicators,
			execCtx,
			parameters,
			config.Calculation,
			log,
		)
		if err != nil {
			return nil, err
		}

		run, err := backtest.Run(ctx, backtest.RunConfig{
			Name:           combination.Label(),
			InitialDeposit: config.InitialDeposit,
			FeeRate:        config.FeeRate,
			DecideTrades:   config.DecideTrades,
			Universe:       config.Universe,
			Parameters:     parameters,
			Indicators:     indicators,
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}

		return &SearchResult{
			SchemaVersion: ResultSchemaVersion,
			RunID:         run.State.ID(),
			Parameters:    combination.Parameters(),
			Summary:       run.Summary,
			Metrics:       run.Metrics,
			CompletedAt:   time.Now().UTC(),
		}, nil
	}
}

// RunGridSearchBacktest expands a grid and searches it with a backtest
// worker in one call.
func RunGridSearchBacktest(
	ctx context.Context,
	grid *ParameterGrid,
	resultRoot string,
	workerConfig BacktestWorkerConfig,
	prepareOpts PrepareOptions,
	searchOpts SearchOptions,
	log *logger.Logger,
) ([]*SearchResult, error) {
	combinations, err := PrepareCombinations(grid, resultRoot, prepareOpts, log)
	if err != nil {
		return nil, err
	}

	return PerformSearch(ctx, combinations, NewBacktestWorker(workerConfig), searchOpts, log)
}
