package model

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the published Model schema.
const SchemaID = "https://flowc.dev/schema/model.json"

// JSONSchema describes the Model.
func JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{}
	s := r.Reflect(&Model{})
	// Outcome describes itself, so ErrorOutcome is never reached by the
	// reflector.
	for name, def := range r.Reflect(&ErrorOutcome{}).Definitions {
		if _, ok := s.Definitions[name]; !ok {
			s.Definitions[name] = def
		}
	}
	s.ID = SchemaID
	s.Title = "flowc model"
	return s
}

// JSONSchemaBytes renders JSONSchema as indented JSON.
func JSONSchemaBytes() ([]byte, error) {
	return json.MarshalIndent(JSONSchema(), "", "  ")
}

// JSONSchema describes When as a single ref or an array of refs.
func (When) JSONSchema() *jsonschema.Schema {
	ref := &jsonschema.Schema{Ref: "#/$defs/Ref"}
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			ref,
			{Type: "array", Items: ref},
		},
	}
}

// JSONSchema describes Outcome as a ref or an error.
func (Outcome) JSONSchema() *jsonschema.Schema {
	errProps := jsonschema.NewProperties()
	errProps.Set("error", &jsonschema.Schema{Ref: "#/$defs/ErrorOutcome"})
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Ref: "#/$defs/Ref"},
			{Type: "object", Properties: errProps, Required: []string{"error"}},
		},
	}
}
