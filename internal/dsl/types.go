package dsl

import "martianoff/flowc/internal/model"

// Flow is a flow as captured while its file ran.
type Flow struct {
	Name   string
	ID     string
	File   string // module that called flow()
	Slices []*Slice
}

// Slice is a captured command, query or react slice.
type Slice struct {
	Kind    model.SliceType
	Name    string
	ID      string
	Stream  string
	Via     []string
	Client  *model.Client
	Request string
	Server  *Server
}

// Server is the captured server block of a slice.
type Server struct {
	Description string
	Data        []model.DataItem
	Specs       *Spec
}

// Spec groups rules.
type Spec struct {
	Name  string
	Rules []*Rule
}

// Rule groups examples.
type Rule struct {
	Description string
	Examples    []*Example
}

// Example is a captured Given/When/Then chain. Refs carry the name passed
// through a type argument, or model.Placeholder.
type Example struct {
	Description string
	Given       []Ref
	When        []Ref
	Then        []Ref
	Error       *model.ErrorOutcome
}

// Ref is one example payload.
type Ref struct {
	Name string
	Data map[string]any
}

// IsPlaceholder reports whether the ref still needs type resolution.
func (r Ref) IsPlaceholder() bool {
	return r.Name == "" || r.Name == model.Placeholder
}

// Integration is a captured integration() call.
type Integration struct {
	Name string
	Type string
	File string // module that declared it
}
