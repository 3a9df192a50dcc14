// Package model defines the serializable description of flows, messages and
// integrations exchanged with downstream tooling.
package model

// Variant is the only schema variant produced.
const Variant = "specs"

// Placeholder is the message name used for references whose type is not yet
// known.
const Placeholder = "InferredType"

// SliceType discriminates slices.
type SliceType string

const (
	SliceCommand SliceType = "command"
	SliceQuery   SliceType = "query"
	SliceReact   SliceType = "react"
)

// MessageType classifies messages.
type MessageType string

const (
	MessageCommand MessageType = "command"
	MessageEvent   MessageType = "event"
	MessageState   MessageType = "state"
)

// EventSource tells whether an event is produced inside the modeled system.
type EventSource string

const (
	SourceInternal EventSource = "internal"
	SourceExternal EventSource = "external"
)

// ErrorType names the error outcomes an example may expect.
type ErrorType string

const (
	IllegalStateError ErrorType = "IllegalStateError"
	ValidationError   ErrorType = "ValidationError"
	NotFoundError     ErrorType = "NotFoundError"
)

// ErrorTypes lists the valid error outcomes.
var ErrorTypes = []ErrorType{IllegalStateError, ValidationError, NotFoundError}

// Model is the aggregate root.
type Model struct {
	Variant      string        `json:"variant" yaml:"variant" validate:"required,eq=specs" jsonschema:"enum=specs"`
	Flows        []Flow        `json:"flows" yaml:"flows" validate:"dive"`
	Messages     []Message     `json:"messages" yaml:"messages" validate:"dive"`
	Integrations []Integration `json:"integrations" yaml:"integrations" validate:"dive"`
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		Variant:      Variant,
		Flows:        []Flow{},
		Messages:     []Message{},
		Integrations: []Integration{},
	}
}

// Message returns the message with the given name.
func (m *Model) Message(name string) (*Message, bool) {
	for i := range m.Messages {
		if m.Messages[i].Name == name {
			return &m.Messages[i], true
		}
	}
	return nil, false
}

// Integration returns the integration with the given name.
func (m *Model) Integration(name string) (*Integration, bool) {
	for i := range m.Integrations {
		if m.Integrations[i].Name == name {
			return &m.Integrations[i], true
		}
	}
	return nil, false
}

// Flow is a named, ordered collection of slices.
type Flow struct {
	Name   string  `json:"name" yaml:"name" validate:"required"`
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Slices []Slice `json:"slices" yaml:"slices" validate:"dive"`
}

// Slice is one command, query or reaction of a flow.
type Slice struct {
	Type    SliceType `json:"type" yaml:"type" validate:"required,oneof=command query react" jsonschema:"enum=command,enum=query,enum=react"`
	Name    string    `json:"name" yaml:"name" validate:"required"`
	ID      string    `json:"id,omitempty" yaml:"id,omitempty"`
	Stream  string    `json:"stream,omitempty" yaml:"stream,omitempty"`
	Via     []string  `json:"via,omitempty" yaml:"via,omitempty"`
	Client  *Client   `json:"client,omitempty" yaml:"client,omitempty"`
	Request string    `json:"request,omitempty" yaml:"request,omitempty"`
	Server  Server    `json:"server" yaml:"server"`
}

// Client holds the UI-facing statements of a command or query slice.
type Client struct {
	Description string       `json:"description" yaml:"description"`
	Specs       *ClientSpecs `json:"specs,omitempty" yaml:"specs,omitempty"`
}

// ClientSpecs is a named list of "should" statements.
type ClientSpecs struct {
	Name  string   `json:"name" yaml:"name"`
	Rules []string `json:"rules" yaml:"rules"`
}

// Server holds the data declarations and behaviour specs of a slice.
type Server struct {
	Description string     `json:"description" yaml:"description"`
	Data        []DataItem `json:"data,omitempty" yaml:"data,omitempty" validate:"dive"`
	Specs       Spec       `json:"specs" yaml:"specs"`
}

// Spec is a named list of rules.
type Spec struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules" validate:"dive"`
}

// Rule is a business rule illustrated by examples.
type Rule struct {
	Description string    `json:"description" yaml:"description" validate:"required"`
	Examples    []Example `json:"examples" yaml:"examples" validate:"dive"`
}

// Example is one Given/When/Then scenario.
type Example struct {
	Description string    `json:"description" yaml:"description" validate:"required"`
	Given       []Ref     `json:"given,omitempty" yaml:"given,omitempty" validate:"dive"`
	When        *When     `json:"when,omitempty" yaml:"when,omitempty"`
	Then        []Outcome `json:"then" yaml:"then" validate:"dive"`
}

// Ref points at a message by name. Exactly one of the three ref keys is set.
type Ref struct {
	CommandRef  string         `json:"commandRef,omitempty" yaml:"commandRef,omitempty"`
	EventRef    string         `json:"eventRef,omitempty" yaml:"eventRef,omitempty"`
	StateRef    string         `json:"stateRef,omitempty" yaml:"stateRef,omitempty"`
	ExampleData map[string]any `json:"exampleData" yaml:"exampleData"`
}

// NewRef creates a ref of the given kind.
func NewRef(kind MessageType, name string, data map[string]any) Ref {
	r := Ref{ExampleData: data}
	r.Set(kind, name)
	return r
}

// Set replaces the ref key, clearing the other two.
func (r *Ref) Set(kind MessageType, name string) {
	r.CommandRef, r.EventRef, r.StateRef = "", "", ""
	switch kind {
	case MessageCommand:
		r.CommandRef = name
	case MessageEvent:
		r.EventRef = name
	case MessageState:
		r.StateRef = name
	}
}

// Kind returns the classification implied by the ref key that is set.
func (r Ref) Kind() MessageType {
	switch {
	case r.CommandRef != "":
		return MessageCommand
	case r.EventRef != "":
		return MessageEvent
	case r.StateRef != "":
		return MessageState
	}
	return ""
}

// Name returns the referenced message name.
func (r Ref) Name() string {
	switch {
	case r.CommandRef != "":
		return r.CommandRef
	case r.EventRef != "":
		return r.EventRef
	}
	return r.StateRef
}

// keyCount returns how many ref keys are set.
func (r Ref) keyCount() int {
	n := 0
	for _, k := range []string{r.CommandRef, r.EventRef, r.StateRef} {
		if k != "" {
			n++
		}
	}
	return n
}

// When is the trigger of an example: one ref in command and query slices,
// an array in react slices.
type When struct {
	Refs  []Ref
	Multi bool
}

// SingleWhen wraps one ref.
func SingleWhen(r Ref) *When {
	return &When{Refs: []Ref{r}}
}

// MultiWhen wraps a list of refs.
func MultiWhen(refs ...Ref) *When {
	return &When{Refs: refs, Multi: true}
}

// Outcome is one element of an example's then: a ref or an expected error.
type Outcome struct {
	Ref   `yaml:",inline"`
	Error *ErrorOutcome `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorOutcome is an expected failure.
type ErrorOutcome struct {
	Type    ErrorType `json:"type" yaml:"type" validate:"required,oneof=IllegalStateError ValidationError NotFoundError" jsonschema:"enum=IllegalStateError,enum=ValidationError,enum=NotFoundError"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
}

// DataItem is a sink (Destination set) or a source (Origin set).
type DataItem struct {
	Target      Target       `json:"target" yaml:"target"`
	Destination *Destination `json:"destination,omitempty" yaml:"destination,omitempty"`
	Origin      *Origin      `json:"origin,omitempty" yaml:"origin,omitempty"`
	WithState   *DataItem    `json:"withState,omitempty" yaml:"withState,omitempty"`
}

// IsSink reports whether the item writes data.
func (d DataItem) IsSink() bool {
	return d.Destination != nil
}

// Target names the message a data item carries.
type Target struct {
	Type MessageType `json:"type" yaml:"type" validate:"required,oneof=command event state" jsonschema:"enum=command,enum=event,enum=state"`
	Name string      `json:"name" yaml:"name" validate:"required"`
}

// Destination is where a sink writes.
type Destination struct {
	Type        string `json:"type" yaml:"type" validate:"required,oneof=stream integration database topic" jsonschema:"enum=stream,enum=integration,enum=database,enum=topic"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Integration string `json:"integration,omitempty" yaml:"integration,omitempty"`
	Operation   string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Collection  string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Topic       string `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// Origin is where a source reads.
type Origin struct {
	Type        string `json:"type" yaml:"type" validate:"required,oneof=projection integration database api" jsonschema:"enum=projection,enum=integration,enum=database,enum=api"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	IDField     string `json:"idField,omitempty" yaml:"idField,omitempty"`
	Integration string `json:"integration,omitempty" yaml:"integration,omitempty"`
	Operation   string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Collection  string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method      string `json:"method,omitempty" yaml:"method,omitempty"`
}

// Message is a declared command, event or state type.
type Message struct {
	Type   MessageType `json:"type" yaml:"type" validate:"required,oneof=command event state" jsonschema:"enum=command,enum=event,enum=state"`
	Name   string      `json:"name" yaml:"name" validate:"required"`
	Fields []Field     `json:"fields" yaml:"fields" validate:"dive"`
	Source EventSource `json:"source,omitempty" yaml:"source,omitempty" validate:"omitempty,oneof=internal external" jsonschema:"enum=internal,enum=external"`
}

// Field is one data field of a message.
type Field struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Type     string `json:"type" yaml:"type" validate:"required"`
	Required bool   `json:"required" yaml:"required"`
}

// Integration is a named external system.
type Integration struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Source string `json:"source" yaml:"source" validate:"required"`
}
