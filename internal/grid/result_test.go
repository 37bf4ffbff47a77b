package grid

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type ResultTestSuite struct {
	suite.Suite

	combination Combination
}

func TestResultSuite(t *testing.T) {
	suite.Run(t, new(ResultTestSuite))
}

func (suite *ResultTestSuite) SetupTest() {
	grid := NewParameterGrid().
		Add("sma_length", 21).
		Add("rsi_length", 14)

	combinations, err := PrepareCombinations(grid, suite.T().TempDir(), PrepareOptions{}, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.combination = combinations[0]
}

func (suite *ResultTestSuite) sampleResult() *SearchResult {
	return &SearchResult{
		SchemaVersion: ResultSchemaVersion,
		RunID:         "run-1",
		Parameters:    suite.combination.Parameters(),
		Summary: types.TradeSummary{
			NumberOfTrades: 4,
			WinRate:        0.75,
		},
		Metrics: types.PerformanceMetrics{
			InitialCash: 10000,
			FinalValue:  11000,
			TotalReturn: 0.1,
		},
		CompletedAt: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *ResultTestSuite) TestSaveLoadRoundTrip() {
	has, err := HasResult(suite.combination)
	suite.NoError(err)
	suite.False(has)

	suite.NoError(SaveResult(suite.combination, suite.sampleResult()))

	has, err = HasResult(suite.combination)
	suite.NoError(err)
	suite.True(has)

	loaded, err := LoadResult(suite.combination)
	suite.NoError(err)
	suite.True(loaded.Cached)
	suite.Equal("run-1", loaded.RunID)
	suite.Equal(4, loaded.Summary.NumberOfTrades)
	suite.InDelta(0.1, loaded.Metrics.TotalReturn, 1e-9)
	suite.Len(loaded.Parameters, 2)
	suite.Equal("sma_length", loaded.Parameters[0].Name)
}

func (suite *ResultTestSuite) TestLoadMissingIsNotFound() {
	_, err := LoadResult(suite.combination)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *ResultTestSuite) TestLoadCorruptResult() {
	path, err := suite.combination.ResultPath()
	suite.Require().NoError(err)
	suite.Require().NoError(os.WriteFile(path, []byte("{not yaml"), 0644))

	_, err = LoadResult(suite.combination)
	suite.True(errors.HasCode(err, errors.ErrCodeCacheCorrupt))
}

func (suite *ResultTestSuite) TestSchemaMajorVersionMismatch() {
	result := suite.sampleResult()
	result.SchemaVersion = "2.0.0"
	suite.NoError(SaveResult(suite.combination, result))

	_, err := LoadResult(suite.combination)
	suite.True(errors.HasCode(err, errors.ErrCodeSchemaVersionMismatch))
}

func (suite *ResultTestSuite) TestSchemaMinorVersionAccepted() {
	result := suite.sampleResult()
	result.SchemaVersion = "1.3.0"
	suite.NoError(SaveResult(suite.combination, result))

	loaded, err := LoadResult(suite.combination)
	suite.NoError(err)
	suite.Equal("1.3.0", loaded.SchemaVersion)
}

func (suite *ResultTestSuite) TestInvalidSchemaVersionIsCorrupt() {
	result := suite.sampleResult()
	result.SchemaVersion = "not-a-version"
	suite.NoError(SaveResult(suite.combination, result))

	_, err := LoadResult(suite.combination)
	suite.True(errors.HasCode(err, errors.ErrCodeCacheCorrupt))
}
