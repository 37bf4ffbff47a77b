package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-research/pkg/errors"
)

type ParametersTestSuite struct {
	suite.Suite
}

func TestParametersSuite(t *testing.T) {
	suite.Run(t, new(ParametersTestSuite))
}

func (suite *ParametersTestSuite) TestDeclarationOrderPreserved() {
	params := NewParameters().
		With("rsi_length", 20).
		With("sma_long", 200).
		With("sma_short", 12).
		Build()

	suite.Equal([]string{"rsi_length", "sma_long", "sma_short"}, params.Names())
	suite.Equal(3, params.Len())
}

func (suite *ParametersTestSuite) TestOverwriteKeepsPosition() {
	params := NewParameters().
		With("a", 1).
		With("b", 2).
		With("a", 3).
		Build()

	suite.Equal([]string{"a", "b"}, params.Names())

	v, err := params.Int("a")
	suite.NoError(err)
	suite.Equal(3, v)
}

func (suite *ParametersTestSuite) TestTypedAccess() {
	params := NewParameters().
		With("length", 21).
		With("stddev", 2.5).
		With("source", "close").
		Build()

	length, err := params.Int("length")
	suite.NoError(err)
	suite.Equal(21, length)

	stddev, err := params.Float("stddev")
	suite.NoError(err)
	suite.Equal(2.5, stddev)

	source, err := params.String("source")
	suite.NoError(err)
	suite.Equal("close", source)
}

func (suite *ParametersTestSuite) TestIntFromWholeFloat() {
	params := NewParameters().With("length", 21.0).Build()

	length, err := params.Int("length")
	suite.NoError(err)
	suite.Equal(21, length)
}

func (suite *ParametersTestSuite) TestIntFromFractionalFloatFails() {
	params := NewParameters().With("length", 21.5).Build()

	_, err := params.Int("length")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidType))
}

func (suite *ParametersTestSuite) TestMissingParameter() {
	params := NewParameters().Build()

	_, err := params.Int("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	_, err = params.Float("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	_, err = params.String("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *ParametersTestSuite) TestLabel() {
	params := NewParameters().
		With("a", 1).
		With("b", 10).
		Build()

	suite.Equal("a: 1, b: 10", params.Label())
}

func (suite *ParametersTestSuite) TestBuilderIsolation() {
	builder := NewParameters().With("a", 1)
	first := builder.Build()
	builder.With("b", 2)

	suite.Equal([]string{"a"}, first.Names())
}
