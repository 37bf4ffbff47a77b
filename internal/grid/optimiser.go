package grid

import (
	"sort"

	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// MetricFunc extracts the value a search is optimised for from one result.
type MetricFunc func(result *SearchResult) float64

// Builtin optimiser metrics.
var (
	// MetricTotalReturn ranks by total return over the run.
	MetricTotalReturn MetricFunc = func(result *SearchResult) float64 {
		return result.Metrics.TotalReturn
	}

	// MetricTotalPnl ranks by realised plus unrealised profit.
	MetricTotalPnl MetricFunc = func(result *SearchResult) float64 {
		return result.Summary.TradePnl.TotalPnL
	}

	// MetricWinRate ranks by the fraction of winning closed trades.
	MetricWinRate MetricFunc = func(result *SearchResult) float64 {
		return result.Summary.WinRate
	}

	// MetricNegativeMaxDrawdown ranks by smallest drawdown first.
	MetricNegativeMaxDrawdown MetricFunc = func(result *SearchResult) float64 {
		return -result.Metrics.MaxDrawdown
	}
)

// RankedResult is one search result with its extracted optimiser value.
type RankedResult struct {
	Result *SearchResult
	Value  float64
}

// AnalyseSearchResults ranks completed search results by the given metric,
// best first. Ties keep the original combination order, so analysis output
// is deterministic across runs.
func AnalyseSearchResults(results []*SearchResult, metric MetricFunc) ([]RankedResult, error) {
	if len(results) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGrid, "no search results to analyse")
	}

	if metric == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "optimiser metric must not be nil")
	}

	ranked := make([]RankedResult, len(results))
	for i, result := range results {
		ranked[i] = RankedResult{
			Result: result,
			Value:  metric(result),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})

	return ranked, nil
}

// BestResult returns the highest ranked result for the metric.
func BestResult(results []*SearchResult, metric MetricFunc) (*SearchResult, error) {
	ranked, err := AnalyseSearchResults(results, metric)
	if err != nil {
		return nil, err
	}

	return ranked[0].Result, nil
}
