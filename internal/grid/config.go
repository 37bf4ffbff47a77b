package grid

import (
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
	"github.com/rxtech-lab/argo-research/pkg/utils"
)

// GridSpec is the searched parameter space as declared in a config file.
// YAML mappings do not guarantee key order, so GridSpec keeps its own
// declaration order from the document.
type GridSpec struct {
	order  []string
	values map[string][]any
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving the document order
// of the grid keys.
func (g *GridSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.New(errors.ErrCodeInvalidConfiguration, "grid must be a mapping of parameter name to value list")
	}

	g.values = make(map[string][]any)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var values []any
		if err := node.Content[i+1].Decode(&values); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "grid parameter %s has invalid values", name)
		}

		if _, exists := g.values[name]; !exists {
			g.order = append(g.order, name)
		}

		g.values[name] = values
	}

	return nil
}

// ToParameterGrid converts the declared values into an expandable parameter grid.
func (g *GridSpec) ToParameterGrid() *ParameterGrid {
	grid := NewParameterGrid()
	for _, name := range g.order {
		grid.Add(name, g.values[name]...)
	}

	return grid
}

// Names returns the declared parameter names in document order.
func (g *GridSpec) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)

	return names
}

// SearchConfig is the YAML configuration of one grid search run.
type SearchConfig struct {
	Name           string                     `yaml:"name" json:"name" jsonschema:"title=Name,description=Name of the grid search run" validate:"required"`
	ChainSlug      string                     `yaml:"chain_slug" json:"chain_slug" jsonschema:"title=Chain Slug,description=Chain the trading universe lives on (e.g. ethereum)" validate:"required"`
	Bucket         types.TimeBucket           `yaml:"bucket" json:"bucket" jsonschema:"title=Time Bucket,description=Candle duration of the universe"`
	InitialDeposit float64                    `yaml:"initial_deposit" json:"initial_deposit" jsonschema:"title=Initial Deposit,description=Starting cash of every combination in USD,minimum=0" validate:"required,gt=0"`
	FeeRate        float64                    `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Proportional fee per fill (e.g. 0.003 for 30 bps)"`
	MaxWorkers     int                        `yaml:"max_workers" json:"max_workers" jsonschema:"title=Max Workers,description=Concurrent combinations; 1 runs sequentially,minimum=1" validate:"required,gte=1"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest window"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest window"`
	Grid           GridSpec                   `yaml:"grid" json:"grid" jsonschema:"title=Grid,description=Searched parameters with their candidate values"`
}

// UnmarshalYAML implements custom unmarshaling so optional timestamps decode
// from plain YAML timestamps.
func (c *SearchConfig) UnmarshalYAML(node *yaml.Node) error {
	type config struct {
		Name           string           `yaml:"name"`
		ChainSlug      string           `yaml:"chain_slug"`
		Bucket         types.TimeBucket `yaml:"bucket"`
		InitialDeposit float64          `yaml:"initial_deposit"`
		FeeRate        float64          `yaml:"fee_rate"`
		MaxWorkers     int              `yaml:"max_workers"`
		StartTime      *time.Time       `yaml:"start_time"`
		EndTime        *time.Time       `yaml:"end_time"`
		Grid           GridSpec         `yaml:"grid"`
	}

	var decoded config
	if err := node.Decode(&decoded); err != nil {
		return err
	}

	c.Name = decoded.Name
	c.ChainSlug = decoded.ChainSlug
	c.Bucket = decoded.Bucket
	c.InitialDeposit = decoded.InitialDeposit
	c.FeeRate = decoded.FeeRate
	c.MaxWorkers = decoded.MaxWorkers
	c.Grid = decoded.Grid

	if decoded.StartTime != nil {
		c.StartTime = optional.Some(*decoded.StartTime)
	}

	if decoded.EndTime != nil {
		c.EndTime = optional.Some(*decoded.EndTime)
	}

	return nil
}

// LoadSearchConfig reads and validates a search config file.
func LoadSearchConfig(path string) (*SearchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read search config", err)
	}

	var config SearchConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse search config", err)
	}

	if config.Bucket == "" {
		config.Bucket = types.TimeBucket1d
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the config against its constraints.
func (c *SearchConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid search config", err)
	}

	if !c.Bucket.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported time bucket %s", c.Bucket)
	}

	if len(c.Grid.order) == 0 {
		return errors.New(errors.ErrCodeEmptyGrid, "search config declares no grid parameters")
	}

	return nil
}

// GenerateSchema generates the JSON schema of the search config format.
func (c *SearchConfig) GenerateSchema() *jsonschema.Schema {
	return utils.GenerateSchema(c, searchConfigSchemaOptions())
}

// GenerateSchemaJSON renders the config schema as indented JSON.
func (c *SearchConfig) GenerateSchemaJSON() (string, error) {
	schemaJSON, err := utils.GenerateSchemaJSON(c, searchConfigSchemaOptions())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return schemaJSON, nil
}

func searchConfigSchemaOptions() utils.SchemaOptions {
	return utils.SchemaOptions{
		Title:       "grid-search-config",
		Description: "Configuration schema for a grid search run",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t == reflect.TypeOf(GridSpec{}) {
				return &jsonschema.Schema{
					Type: "object",
					AdditionalProperties: &jsonschema.Schema{
						Type: "array",
					},
				}
			}

			return nil
		},
	}
}
