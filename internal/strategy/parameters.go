package strategy

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Parameters is an ordered, immutable bag of named scalar strategy parameters.
//
// The declaration order of parameters is preserved so derived names (cache
// paths, grid combination labels) are deterministic regardless of map
// iteration order. Construct with NewParameters and Build; the built bag
// cannot be mutated.
type Parameters struct {
	order  []string
	values map[string]any
}

// ParametersBuilder accumulates named parameters in declaration order.
type ParametersBuilder struct {
	order  []string
	values map[string]any
}

// NewParameters creates an empty parameters builder.
func NewParameters() *ParametersBuilder {
	return &ParametersBuilder{
		order:  nil,
		values: make(map[string]any),
	}
}

// With adds one named parameter. Setting an existing name overwrites the
// value but keeps its original declaration position.
func (b *ParametersBuilder) With(name string, value any) *ParametersBuilder {
	if _, exists := b.values[name]; !exists {
		b.order = append(b.order, name)
	}

	b.values[name] = value

	return b
}

// Build finalises the builder into an immutable parameter bag.
func (b *ParametersBuilder) Build() *Parameters {
	order := make([]string, len(b.order))
	copy(order, b.order)

	values := make(map[string]any, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}

	return &Parameters{
		order:  order,
		values: values,
	}
}

// Names returns parameter names in declaration order.
func (p *Parameters) Names() []string {
	names := make([]string, len(p.order))
	copy(names, p.order)

	return names
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	return len(p.order)
}

// Get returns a parameter value and whether it exists.
func (p *Parameters) Get(name string) (any, bool) {
	value, ok := p.values[name]

	return value, ok
}

// Int returns a named parameter as int. Float values with no fractional part
// are accepted, matching how YAML decodes numeric grids.
func (p *Parameters) Int(name string) (int, error) {
	value, ok := p.values[name]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "parameter %s not set", name)
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}

		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has fractional value %f", name, v)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has type %T, expected int", name, value)
	}
}

// Float returns a named parameter as float64.
func (p *Parameters) Float(name string) (float64, error) {
	value, ok := p.values[name]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "parameter %s not set", name)
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has type %T, expected float", name, value)
	}
}

// String returns a named parameter as string.
func (p *Parameters) String(name string) (string, error) {
	value, ok := p.values[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeMissingParameter, "parameter %s not set", name)
	}

	s, ok := value.(string)
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidType, "parameter %s has type %T, expected string", name, value)
	}

	return s, nil
}

// Label returns a human readable rendering like "rsi_length: 20, sma_long: 200".
func (p *Parameters) Label() string {
	parts := make([]string, len(p.order))
	for i, name := range p.order {
		parts[i] = fmt.Sprintf("%s: %v", name, p.values[name])
	}

	return strings.Join(parts, ", ")
}
