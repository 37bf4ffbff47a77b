package indicator

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// unsafePathChars are rejected in indicator names and rendered parameter
// values so the path fragment is always a valid single path element.
const unsafePathChars = "/\\:*?\"<>| \t\n"

// Parameter is one named indicator parameter.
type Parameter struct {
	Name  string
	Value any
}

// Parameters is an ordered list of indicator parameters. Order is the
// declaration order and is significant for cache file naming.
type Parameters []Parameter

// Get returns the value of a named parameter and whether it exists.
func (p Parameters) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}

	return nil, false
}

// Func is a pure transform from candle data to a derived series or table.
//
// Params declares the parameter names the transform accepts; definitions are
// validated against this list at construction so a typoed parameter can never
// silently compute the wrong indicator.
type Func struct {
	Params  []string
	Compute func(candles []types.Candle, params Parameters) (types.Frame, error)
}

// Definition describes a named, parameterized indicator. Immutable after
// construction.
type Definition struct {
	name       string
	fn         Func
	parameters Parameters
}

// NewDefinition creates an indicator definition, validating that every
// declared parameter is accepted by the function and that the definition has
// a filesystem-safe path rendering.
func NewDefinition(name string, fn Func, parameters Parameters) (*Definition, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "indicator name must not be empty")
	}

	if strings.ContainsAny(name, unsafePathChars) || strings.ContainsAny(name, "(),=") {
		return nil, errors.Newf(errors.ErrCodeUnsafePathFragment,
			"indicator name %q contains characters unsafe for a cache path", name)
	}

	if fn.Compute == nil {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "indicator %s has no compute function", name)
	}

	accepted := make(map[string]struct{}, len(fn.Params))
	for _, p := range fn.Params {
		accepted[p] = struct{}{}
	}

	var rejected []string

	for _, param := range parameters {
		if _, ok := accepted[param.Name]; !ok {
			rejected = append(rejected, param.Name)
		}
	}

	if len(rejected) > 0 {
		return nil, errors.Newf(errors.ErrCodeSignatureMismatch,
			"indicator %s does not accept parameter(s) %s, accepted parameters are %s",
			name, strings.Join(rejected, ", "), strings.Join(fn.Params, ", "))
	}

	for _, param := range parameters {
		rendered, err := renderParameterValue(param.Value)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeUnsupportedParameterType, err,
				"indicator %s parameter %s", name, param.Name)
		}

		if strings.ContainsAny(param.Name, unsafePathChars) || strings.ContainsAny(rendered, unsafePathChars) {
			return nil, errors.Newf(errors.ErrCodeUnsafePathFragment,
				"indicator %s parameter %s=%s is unsafe for a cache path", name, param.Name, rendered)
		}
	}

	params := make(Parameters, len(parameters))
	copy(params, parameters)

	return &Definition{
		name:       name,
		fn:         fn,
		parameters: params,
	}, nil
}

// Name returns the indicator name.
func (d *Definition) Name() string {
	return d.name
}

// Parameters returns the declared parameters in declaration order.
func (d *Definition) Parameters() Parameters {
	params := make(Parameters, len(d.parameters))
	copy(params, d.parameters)

	return params
}

// PathFragment returns the deterministic encoding used for cache filenames
// and combination labels, e.g. "sma(length=21,offset=1)". Parameter order is
// the declaration order.
func (d *Definition) PathFragment() string {
	parts := make([]string, len(d.parameters))
	for i, param := range d.parameters {
		// Values were validated at construction, rendering cannot fail here.
		rendered, _ := renderParameterValue(param.Value)
		parts[i] = fmt.Sprintf("%s=%s", param.Name, rendered)
	}

	return fmt.Sprintf("%s(%s)", d.name, strings.Join(parts, ","))
}

// Compute runs the indicator function over candle data.
func (d *Definition) Compute(candles []types.Candle) (types.Frame, error) {
	return d.fn.Compute(candles, d.parameters)
}

// Equal reports whether two definitions have the same name and the same
// ordered parameters. Function identity is intentionally not part of
// equality: a definition reconstructed in another worker process must
// compare equal to the original.
func (d *Definition) Equal(other *Definition) bool {
	if other == nil {
		return false
	}

	return d.PathFragment() == other.PathFragment()
}

func renderParameterValue(value any) (string, error) {
	switch v := value.(type) {
	case int, int64, bool, string:
		return fmt.Sprintf("%v", v), nil
	case float64:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedParameterType,
			"cannot render parameter value of type %T as a path", value)
	}
}

// Key identifies one computed indicator artifact: a trading pair plus an
// indicator definition. Key equality across process boundaries is defined by
// String(), which is stable and deterministic.
type Key struct {
	Pair       types.TradingPair
	Definition *Definition
}

// String returns the stable cache encoding, e.g. "sma(length=21)-WETH-USDC".
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Definition.PathFragment(), k.Pair.Base.Ticker, k.Pair.Quote.Ticker)
}
