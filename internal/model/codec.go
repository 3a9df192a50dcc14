package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a serialization format of the Model.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// Encode writes m to w.
func Encode(w io.Writer, m *Model, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encoding model as yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encoding model as json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown model format %q", format)
}

// Decode reads a Model from r.
func Decode(r io.Reader, format Format) (*Model, error) {
	m := &Model{}
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(m); err != nil {
			return nil, fmt.Errorf("decoding yaml model: %w", err)
		}
		normalizeNumbers(m)
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("decoding json model: %w", err)
		}
		normalizeNumbers(m)
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}
	return m, nil
}

// maxSafeInteger is the largest integer a JavaScript number holds exactly.
const maxSafeInteger = 1<<53 - 1

// normalizeNumbers turns decoded example numbers into int64 or float64 the
// way the DSL runtime exports them: integral values become int64.
func normalizeNumbers(m *Model) {
	Walk(m, func(r *Ref) {
		r.ExampleData = convertNumbers(r.ExampleData).(map[string]any)
	})
}

func convertNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case int:
		return int64(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) <= maxSafeInteger {
			return int64(x)
		}
		return x
	case map[string]any:
		if x == nil {
			return map[string]any{}
		}
		for k, e := range x {
			x[k] = convertNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = convertNumbers(e)
		}
		return x
	}
	return v
}

// Walk calls fn for every ref of every example, in document order.
func Walk(m *Model, fn func(*Ref)) {
	for fi := range m.Flows {
		for si := range m.Flows[fi].Slices {
			spec := &m.Flows[fi].Slices[si].Server.Specs
			for ri := range spec.Rules {
				for ei := range spec.Rules[ri].Examples {
					ex := &spec.Rules[ri].Examples[ei]
					for i := range ex.Given {
						fn(&ex.Given[i])
					}
					if ex.When != nil {
						for i := range ex.When.Refs {
							fn(&ex.When.Refs[i])
						}
					}
					for i := range ex.Then {
						if ex.Then[i].Error == nil {
							fn(&ex.Then[i].Ref)
						}
					}
				}
			}
		}
	}
}

func (w When) MarshalJSON() ([]byte, error) {
	if w.Multi {
		refs := w.Refs
		if refs == nil {
			refs = []Ref{}
		}
		return json.Marshal(refs)
	}
	if len(w.Refs) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(w.Refs[0])
}

func (w *When) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		w.Multi = true
		return json.Unmarshal(data, &w.Refs)
	}
	var r Ref
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	w.Refs = []Ref{r}
	return nil
}

func (w When) MarshalYAML() (any, error) {
	if w.Multi {
		return w.Refs, nil
	}
	if len(w.Refs) == 0 {
		return nil, nil
	}
	return w.Refs[0], nil
}

func (w *When) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		w.Multi = true
		return node.Decode(&w.Refs)
	}
	var r Ref
	if err := node.Decode(&r); err != nil {
		return err
	}
	w.Refs = []Ref{r}
	return nil
}

type errorOutcome struct {
	Error *ErrorOutcome `json:"error" yaml:"error"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Error != nil {
		return json.Marshal(errorOutcome{Error: o.Error})
	}
	return json.Marshal(o.Ref)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var e errorOutcome
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	if e.Error != nil {
		*o = Outcome{Error: e.Error}
		return nil
	}
	o.Error = nil
	return json.Unmarshal(data, &o.Ref)
}

func (o Outcome) MarshalYAML() (any, error) {
	if o.Error != nil {
		return errorOutcome{Error: o.Error}, nil
	}
	return o.Ref, nil
}

func (o *Outcome) UnmarshalYAML(node *yaml.Node) error {
	var e errorOutcome
	if err := node.Decode(&e); err != nil {
		return err
	}
	if e.Error != nil {
		*o = Outcome{Error: e.Error}
		return nil
	}
	o.Error = nil
	return node.Decode(&o.Ref)
}
