package grid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type CombinationTestSuite struct {
	suite.Suite

	root string
	log  *logger.Logger
}

func TestCombinationSuite(t *testing.T) {
	suite.Run(t, new(CombinationTestSuite))
}

func (suite *CombinationTestSuite) SetupTest() {
	suite.root = suite.T().TempDir()
	suite.log = logger.NewNopLogger()
}

func (suite *CombinationTestSuite) prepare(grid *ParameterGrid) []Combination {
	combinations, err := PrepareCombinations(grid, suite.root, PrepareOptions{}, suite.log)
	suite.Require().NoError(err)

	return combinations
}

func (suite *CombinationTestSuite) TestCartesianProductSize() {
	grid := NewParameterGrid().
		Add("sma_length", 10, 21, 50).
		Add("rsi_length", 7, 14)

	suite.Equal(6, grid.Size())
	suite.Len(suite.prepare(grid), 6)
}

func (suite *CombinationTestSuite) TestLastParameterVariesFastest() {
	grid := NewParameterGrid().
		Add("a", 1, 2).
		Add("b", 10, 20)

	combinations := suite.prepare(grid)
	suite.Equal("a=1, b=10", combinations[0].Label())
	suite.Equal("a=1, b=20", combinations[1].Label())
	suite.Equal("a=2, b=10", combinations[2].Label())
	suite.Equal("a=2, b=20", combinations[3].Label())
}

func (suite *CombinationTestSuite) TestParametersKeepDeclarationOrder() {
	grid := NewParameterGrid().
		Add("zebra", 1).
		Add("alpha", 2)

	combinations := suite.prepare(grid)
	parameters := combinations[0].Parameters()
	suite.Equal("zebra", parameters[0].Name)
	suite.Equal("alpha", parameters[1].Name)

	relative, err := combinations[0].RelativeResultPath()
	suite.NoError(err)
	suite.Equal(filepath.Join("zebra=1", "alpha=2"), relative)
}

func (suite *CombinationTestSuite) TestResultDirectoriesCreated() {
	grid := NewParameterGrid().
		Add("sma_length", 21).
		Add("rsi_length", 14)

	combinations := suite.prepare(grid)

	dir, err := combinations[0].ResultDir()
	suite.NoError(err)
	suite.Equal(filepath.Join(suite.root, "sma_length=21", "rsi_length=14"), dir)

	info, err := os.Stat(dir)
	suite.NoError(err)
	suite.True(info.IsDir())
}

func (suite *CombinationTestSuite) TestResultPath() {
	grid := NewParameterGrid().Add("a", 1)
	combinations := suite.prepare(grid)

	path, err := combinations[0].ResultPath()
	suite.NoError(err)
	suite.Equal(filepath.Join(suite.root, "a=1", "result.yaml"), path)
}

func (suite *CombinationTestSuite) TestPathCollisionIsFatal() {
	// int 1 and string "1" render identically.
	grid := NewParameterGrid().Add("a", 1, "1")

	_, err := PrepareCombinations(grid, suite.root, PrepareOptions{}, suite.log)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeResultPathCollision))
}

func (suite *CombinationTestSuite) TestEmptyGridRejected() {
	_, err := PrepareCombinations(NewParameterGrid(), suite.root, PrepareOptions{}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyGrid))

	_, err = PrepareCombinations(nil, suite.root, PrepareOptions{}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyGrid))
}

func (suite *CombinationTestSuite) TestParameterWithoutValuesRejected() {
	grid := NewParameterGrid().Add("a", 1).Add("b")

	_, err := PrepareCombinations(grid, suite.root, PrepareOptions{}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyGrid))
}

func (suite *CombinationTestSuite) TestUnsupportedValueTypeRejected() {
	grid := NewParameterGrid().Add("a", []int{1, 2})

	_, err := PrepareCombinations(grid, suite.root, PrepareOptions{}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedParameterType))
}

func (suite *CombinationTestSuite) TestUnsafeValueRejected() {
	grid := NewParameterGrid().Add("a", "x/y")

	_, err := PrepareCombinations(grid, suite.root, PrepareOptions{}, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsafePathFragment))
}

func (suite *CombinationTestSuite) TestClearCachedResults() {
	grid := NewParameterGrid().Add("a", 1)

	combinations := suite.prepare(grid)
	path, err := combinations[0].ResultPath()
	suite.Require().NoError(err)
	suite.Require().NoError(os.WriteFile(path, []byte("schema_version: 1.0.0"), 0644))

	_, err = PrepareCombinations(grid, suite.root, PrepareOptions{ClearCachedResults: true}, suite.log)
	suite.NoError(err)

	_, err = os.Stat(path)
	suite.True(os.IsNotExist(err))
}

func (suite *CombinationTestSuite) TestAsMapAndStrategyParameters() {
	grid := NewParameterGrid().
		Add("sma_length", 21).
		Add("stop_loss", 0.05)

	combinations := suite.prepare(grid)
	values := combinations[0].AsMap()
	suite.Equal(21, values["sma_length"])
	suite.Equal(0.05, values["stop_loss"])

	parameters := combinations[0].StrategyParameters()
	suite.Equal([]string{"sma_length", "stop_loss"}, parameters.Names())
	suite.Equal([]any{21, 0.05}, combinations[0].Destructure())

	length, err := parameters.Int("sma_length")
	suite.NoError(err)
	suite.Equal(21, length)
}

func (suite *CombinationTestSuite) TestReAddReplacesValuesKeepsPosition() {
	grid := NewParameterGrid().
		Add("a", 1, 2).
		Add("b", 3).
		Add("a", 9)

	suite.Equal([]string{"a", "b"}, grid.Names())
	suite.Equal(1, grid.Size())

	combinations := suite.prepare(grid)
	suite.Equal("a=9, b=3", combinations[0].Label())
}
