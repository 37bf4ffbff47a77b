// Package utils holds small helpers shared across packages.
package utils

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// SchemaOptions configure JSON schema generation for a config struct.
type SchemaOptions struct {
	Title       string
	Description string
	// Mapper overrides the schema of specific Go types, e.g. rendering an
	// optional timestamp as a date-time string.
	Mapper func(t reflect.Type) *jsonschema.Schema
}

// GenerateSchema reflects a JSON schema from a config struct.
func GenerateSchema(v any, opts SchemaOptions) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper:                     opts.Mapper,
	}

	schema := reflector.Reflect(v)
	schema.Title = opts.Title
	schema.Description = opts.Description
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders the reflected schema as indented JSON.
func GenerateSchemaJSON(v any, opts SchemaOptions) (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(v, opts), "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
