package grid

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type OptimiserTestSuite struct {
	suite.Suite

	results []*SearchResult
}

func TestOptimiserSuite(t *testing.T) {
	suite.Run(t, new(OptimiserTestSuite))
}

func (suite *OptimiserTestSuite) SetupTest() {
	suite.results = []*SearchResult{
		{
			RunID:   "low",
			Summary: types.TradeSummary{WinRate: 0.4, TradePnl: types.TradePnl{TotalPnL: -100}},
			Metrics: types.PerformanceMetrics{TotalReturn: -0.01, MaxDrawdown: 0.3},
		},
		{
			RunID:   "high",
			Summary: types.TradeSummary{WinRate: 0.7, TradePnl: types.TradePnl{TotalPnL: 900}},
			Metrics: types.PerformanceMetrics{TotalReturn: 0.09, MaxDrawdown: 0.1},
		},
		{
			RunID:   "mid",
			Summary: types.TradeSummary{WinRate: 0.5, TradePnl: types.TradePnl{TotalPnL: 400}},
			Metrics: types.PerformanceMetrics{TotalReturn: 0.04, MaxDrawdown: 0.2},
		},
	}
}

func (suite *OptimiserTestSuite) TestRankByTotalReturn() {
	ranked, err := AnalyseSearchResults(suite.results, MetricTotalReturn)
	suite.NoError(err)
	suite.Equal("high", ranked[0].Result.RunID)
	suite.Equal("mid", ranked[1].Result.RunID)
	suite.Equal("low", ranked[2].Result.RunID)
	suite.InDelta(0.09, ranked[0].Value, 1e-9)
}

func (suite *OptimiserTestSuite) TestRankByDrawdown() {
	ranked, err := AnalyseSearchResults(suite.results, MetricNegativeMaxDrawdown)
	suite.NoError(err)
	suite.Equal("high", ranked[0].Result.RunID)
	suite.Equal("low", ranked[2].Result.RunID)
}

func (suite *OptimiserTestSuite) TestTiesKeepOriginalOrder() {
	tied := []*SearchResult{
		{RunID: "first", Metrics: types.PerformanceMetrics{TotalReturn: 0.05}},
		{RunID: "second", Metrics: types.PerformanceMetrics{TotalReturn: 0.05}},
	}

	ranked, err := AnalyseSearchResults(tied, MetricTotalReturn)
	suite.NoError(err)
	suite.Equal("first", ranked[0].Result.RunID)
	suite.Equal("second", ranked[1].Result.RunID)
}

func (suite *OptimiserTestSuite) TestBestResult() {
	best, err := BestResult(suite.results, MetricTotalPnl)
	suite.NoError(err)
	suite.Equal("high", best.RunID)
}

func (suite *OptimiserTestSuite) TestEmptyResultsRejected() {
	_, err := AnalyseSearchResults(nil, MetricTotalReturn)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyGrid))
}

func (suite *OptimiserTestSuite) TestNilMetricRejected() {
	_, err := AnalyseSearchResults(suite.results, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
