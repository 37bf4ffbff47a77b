package grid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// unsafePathChars are rejected in searched parameter names and rendered
// values so every combination maps to a valid directory path.
const unsafePathChars = "/\\:*?\"<>| \t\n"

// Parameter is one searched parameter pinned to a concrete value.
type Parameter struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// Path returns the "name=value" path element of this parameter. Only scalar
// values render; anything else cannot address a result directory.
func (p Parameter) Path() (string, error) {
	var rendered string

	switch v := p.Value.(type) {
	case int, int64, bool, string, float64:
		rendered = fmt.Sprintf("%v", v)
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedParameterType,
			"grid parameter %s has value of type %T, cannot be used in a result path", p.Name, p.Value)
	}

	if strings.ContainsAny(p.Name, unsafePathChars+"=") || strings.ContainsAny(rendered, unsafePathChars+"=") {
		return "", errors.Newf(errors.ErrCodeUnsafePathFragment,
			"grid parameter %s=%s is unsafe for a result path", p.Name, rendered)
	}

	return fmt.Sprintf("%s=%s", p.Name, rendered), nil
}

// Combination is one point of the searched parameter space: every grid
// parameter pinned to one of its values, in grid declaration order.
type Combination struct {
	resultRoot string
	parameters []Parameter
}

// Parameters returns the pinned parameters in grid declaration order.
func (c Combination) Parameters() []Parameter {
	parameters := make([]Parameter, len(c.parameters))
	copy(parameters, c.parameters)

	return parameters
}

// RelativeResultPath returns the result directory of this combination
// relative to the result root, e.g. "sma_length=21/rsi_length=14".
func (c Combination) RelativeResultPath() (string, error) {
	elements := make([]string, len(c.parameters))

	for i, parameter := range c.parameters {
		element, err := parameter.Path()
		if err != nil {
			return "", err
		}

		elements[i] = element
	}

	return filepath.Join(elements...), nil
}

// ResultDir returns the absolute result directory of this combination.
func (c Combination) ResultDir() (string, error) {
	relative, err := c.RelativeResultPath()
	if err != nil {
		return "", err
	}

	return filepath.Join(c.resultRoot, relative), nil
}

// ResultPath returns the absolute path of this combination's result file.
func (c Combination) ResultPath() (string, error) {
	dir, err := c.ResultDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, resultFilename), nil
}

// Label returns a human readable rendering like "sma_length=21, rsi_length=14".
func (c Combination) Label() string {
	parts := make([]string, len(c.parameters))
	for i, parameter := range c.parameters {
		parts[i] = fmt.Sprintf("%s=%v", parameter.Name, parameter.Value)
	}

	return strings.Join(parts, ", ")
}

// Destructure returns the pinned values in grid declaration order, handy for
// unpacking a combination into strategy locals.
func (c Combination) Destructure() []any {
	values := make([]any, len(c.parameters))
	for i, parameter := range c.parameters {
		values[i] = parameter.Value
	}

	return values
}

// AsMap returns the pinned parameters as a name to value map.
func (c Combination) AsMap() map[string]any {
	values := make(map[string]any, len(c.parameters))
	for _, parameter := range c.parameters {
		values[parameter.Name] = parameter.Value
	}

	return values
}

// StrategyParameters converts the combination into the parameter bag passed
// to indicator registration and trade decisions.
func (c Combination) StrategyParameters() *strategy.Parameters {
	builder := strategy.NewParameters()
	for _, parameter := range c.parameters {
		builder.With(parameter.Name, parameter.Value)
	}

	return builder.Build()
}

// ParameterGrid declares the searched parameter space: each parameter name
// with the candidate values to sweep, in declaration order.
type ParameterGrid struct {
	order  []string
	values map[string][]any
}

// NewParameterGrid creates an empty grid.
func NewParameterGrid() *ParameterGrid {
	return &ParameterGrid{
		order:  nil,
		values: make(map[string][]any),
	}
}

// Add declares one searched parameter with its candidate values. Re-adding a
// name replaces its values but keeps the original declaration position.
func (g *ParameterGrid) Add(name string, values ...any) *ParameterGrid {
	if _, exists := g.values[name]; !exists {
		g.order = append(g.order, name)
	}

	g.values[name] = values

	return g
}

// Names returns the searched parameter names in declaration order.
func (g *ParameterGrid) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)

	return names
}

// Size returns the number of combinations the grid expands to.
func (g *ParameterGrid) Size() int {
	if len(g.order) == 0 {
		return 0
	}

	size := 1
	for _, name := range g.order {
		size *= len(g.values[name])
	}

	return size
}

// PrepareOptions tune combination expansion.
type PrepareOptions struct {
	// ClearCachedResults removes existing result files so every combination
	// recomputes.
	ClearCachedResults bool
}

// PrepareCombinations expands a grid into the full Cartesian product of its
// parameter values and creates the result directory of every combination.
//
// Combinations are ordered with the last declared parameter varying fastest,
// and within each combination the parameters keep grid declaration order.
// Two combinations rendering to the same result path is a configuration
// error: results would silently overwrite each other, so expansion fails
// before any backtest runs.
func PrepareCombinations(grid *ParameterGrid, resultRoot string, opts PrepareOptions, log *logger.Logger) ([]Combination, error) {
	if grid == nil || len(grid.order) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGrid, "parameter grid declares no parameters")
	}

	for _, name := range grid.order {
		if len(grid.values[name]) == 0 {
			return nil, errors.Newf(errors.ErrCodeEmptyGrid, "grid parameter %s declares no values", name)
		}
	}

	if err := os.MkdirAll(resultRoot, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultRootNotWriteable, "failed to create result root", err)
	}

	combinations := make([]Combination, 0, grid.Size())
	indices := make([]int, len(grid.order))

	for {
		parameters := make([]Parameter, len(grid.order))
		for i, name := range grid.order {
			parameters[i] = Parameter{Name: name, Value: grid.values[name][indices[i]]}
		}

		combinations = append(combinations, Combination{
			resultRoot: resultRoot,
			parameters: parameters,
		})

		// Odometer increment, last parameter varies fastest.
		i := len(indices) - 1
		for i >= 0 {
			indices[i]++
			if indices[i] < len(grid.values[grid.order[i]]) {
				break
			}

			indices[i] = 0
			i--
		}

		if i < 0 {
			break
		}
	}

	seen := make(map[string]string, len(combinations))

	for _, combination := range combinations {
		relative, err := combination.RelativeResultPath()
		if err != nil {
			return nil, err
		}

		if previous, collision := seen[relative]; collision {
			return nil, errors.Newf(errors.ErrCodeResultPathCollision,
				"combinations %q and %q both resolve to result path %s",
				previous, combination.Label(), relative)
		}

		seen[relative] = combination.Label()

		dir, err := combination.ResultDir()
		if err != nil {
			return nil, err
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeResultRootNotWriteable, "failed to create result directory", err)
		}

		if opts.ClearCachedResults {
			resultPath := filepath.Join(dir, resultFilename)
			if err := os.Remove(resultPath); err != nil && !os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeResultRootNotWriteable, "failed to clear cached result", err)
			}
		}
	}

	log.Info("Prepared grid combinations",
		zap.Int("parameters", len(grid.order)),
		zap.Int("combinations", len(combinations)),
		zap.String("result_root", resultRoot),
	)

	return combinations, nil
}
