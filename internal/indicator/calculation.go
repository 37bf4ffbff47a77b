package indicator

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/internal/universe"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Result is one computed or cache-loaded indicator frame.
type Result struct {
	Key    Key
	Frame  types.Frame
	Cached bool
}

// Results maps the stable key encoding to the computed result for every
// pair/indicator combination of one calculation run.
type Results map[string]Result

// SortedKeys returns result keys ordered by (pair InternalID, indicator name),
// giving deterministic iteration independent of map order.
func (r Results) SortedKeys() []Key {
	keys := make([]Key, 0, len(r))
	for _, result := range r {
		keys = append(keys, result.Key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Pair.InternalID != keys[j].Pair.InternalID {
			return keys[i].Pair.InternalID < keys[j].Pair.InternalID
		}

		return keys[i].Definition.Name() < keys[j].Definition.Name()
	})

	return keys
}

// ByName returns the result for a pair and indicator name.
func (r Results) ByName(pair types.TradingPair, name string) (Result, bool) {
	for _, result := range r {
		if result.Key.Pair == pair && result.Key.Definition.Name() == name {
			return result, true
		}
	}

	return Result{}, false
}

// CalculationOptions tune the concurrency of one calculation run.
type CalculationOptions struct {
	// MaxWorkers bounds concurrent indicator computations. Values below 1
	// mean sequential execution.
	MaxWorkers int
	// MaxReaders bounds concurrent cache existence checks and loads.
	// Filesystem metadata operations tolerate far more parallelism than CPU
	// bound computation, so this is tuned separately.
	MaxReaders int
}

// DefaultCalculationOptions returns sensible defaults for an interactive run.
func DefaultCalculationOptions() CalculationOptions {
	return CalculationOptions{
		MaxWorkers: 8,
		MaxReaders: 32,
	}
}

func (o CalculationOptions) workers() int {
	if o.MaxWorkers < 1 {
		return 1
	}

	return o.MaxWorkers
}

func (o CalculationOptions) readers() int {
	if o.MaxReaders < 1 {
		return 1
	}

	return o.MaxReaders
}

// CalculateAndLoadIndicators resolves every pair/indicator combination of the
// universe to a frame, loading cached artifacts where present and computing
// and persisting the rest.
//
// The createIndicators callback is invoked exactly once to register the
// definitions for this parameter set. Cache probes run on a reader pool,
// computations on a worker pool; each key is owned by exactly one goroutine
// so no two workers ever write the same artifact. The first failing key
// aborts the run and the returned error names it.
func CalculateAndLoadIndicators(
	ctx context.Context,
	univ *universe.TradingUniverse,
	storage Storage,
	createIndicators CreateIndicatorsFunc,
	execCtx strategy.ExecutionContext,
	parameters *strategy.Parameters,
	opts CalculationOptions,
	log *logger.Logger,
) (Results, error) {
	set := NewSet(log)

	if err := createIndicators(parameters, set, univ, execCtx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "indicator registration failed", err)
	}

	definitions := set.Definitions()
	pairs := univ.Pairs()

	keys := make([]Key, 0, len(pairs)*len(definitions))
	for _, pair := range pairs {
		for _, definition := range definitions {
			keys = append(keys, Key{Pair: pair, Definition: definition})
		}
	}

	if len(keys) == 0 {
		return Results{}, nil
	}

	log.Info("Resolving indicators",
		zap.Int("pairs", len(pairs)),
		zap.Int("indicators", len(definitions)),
		zap.Int("combinations", len(keys)),
		zap.String("universe", storage.UniverseKey()),
	)

	cached := make([]bool, len(keys))

	probeGroup, _ := errgroup.WithContext(ctx)
	probeGroup.SetLimit(opts.readers())

	for i, key := range keys {
		probeGroup.Go(func() error {
			cached[i] = storage.Has(key)

			return nil
		})
	}

	// Has never fails, the group only sequences the probes.
	_ = probeGroup.Wait()

	frames := make([]types.Frame, len(keys))

	loadGroup, _ := errgroup.WithContext(ctx)
	loadGroup.SetLimit(opts.readers())

	for i, key := range keys {
		if !cached[i] {
			continue
		}

		loadGroup.Go(func() error {
			frame, err := storage.Load(key)
			if err != nil {
				return err
			}

			frames[i] = frame

			return nil
		})
	}

	if err := loadGroup.Wait(); err != nil {
		return nil, err
	}

	computeGroup, _ := errgroup.WithContext(ctx)
	computeGroup.SetLimit(opts.workers())

	for i, key := range keys {
		if cached[i] {
			continue
		}

		computeGroup.Go(func() error {
			frame, err := key.Definition.Compute(univ.Candles(key.Pair))
			if err != nil {
				return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err,
					"indicator %s failed for pair %s", key.Definition.Name(), key.Pair.Ticker())
			}

			if err := storage.Save(key, frame); err != nil {
				return err
			}

			frames[i] = frame

			return nil
		})
	}

	if err := computeGroup.Wait(); err != nil {
		return nil, err
	}

	results := make(Results, len(keys))
	computed := 0

	for i, key := range keys {
		results[key.String()] = Result{
			Key:    key,
			Frame:  frames[i],
			Cached: cached[i],
		}

		if !cached[i] {
			computed++
		}
	}

	log.Info("Indicators resolved",
		zap.Int("computed", computed),
		zap.Int("cached", len(keys)-computed),
	)

	return results, nil
}
