package indicator

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-research/internal/logger"
	"github.com/rxtech-lab/argo-research/internal/strategy"
	"github.com/rxtech-lab/argo-research/internal/universe"
)

// Set collects the indicator definitions requested by one strategy
// configuration, keyed by name in registration order.
type Set struct {
	logger      *logger.Logger
	order       []string
	definitions map[string]*Definition
}

// NewSet creates an empty indicator set.
func NewSet(log *logger.Logger) *Set {
	return &Set{
		logger:      log,
		order:       nil,
		definitions: make(map[string]*Definition),
	}
}

// Add registers an indicator by name. Registering a duplicate name overwrites
// the earlier definition with a warning; the last registration wins. This is
// deliberate, documented behaviour so strategies can override a default
// indicator, not an error.
func (s *Set) Add(name string, fn Func, parameters Parameters) error {
	definition, err := NewDefinition(name, fn, parameters)
	if err != nil {
		return err
	}

	if _, exists := s.definitions[name]; exists {
		s.logger.Warn("Duplicate indicator registration, last registration wins",
			zap.String("indicator", name),
		)
	} else {
		s.order = append(s.order, name)
	}

	s.definitions[name] = definition

	return nil
}

// Len returns the number of registered indicators.
func (s *Set) Len() int {
	return len(s.order)
}

// Names returns the registered indicator names in registration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)

	return names
}

// Get returns a registered definition by name.
func (s *Set) Get(name string) (*Definition, bool) {
	definition, ok := s.definitions[name]

	return definition, ok
}

// Definitions returns the registered definitions in registration order.
func (s *Set) Definitions() []*Definition {
	definitions := make([]*Definition, len(s.order))
	for i, name := range s.order {
		definitions[i] = s.definitions[name]
	}

	return definitions
}

// CreateIndicatorsFunc is the strategy callback that registers the indicators
// a strategy configuration needs. Called once per calculation run.
type CreateIndicatorsFunc func(
	parameters *strategy.Parameters,
	indicators *Set,
	univ *universe.TradingUniverse,
	execCtx strategy.ExecutionContext,
) error
