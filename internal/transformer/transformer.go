// Package transformer turns the flows captured by a dsl.Registry into a
// type-resolved model.Model.
//
// Every example reference is resolved against the message types declared in
// the loaded modules. References written without a type argument carry the
// placeholder name and are matched by classification first, then by the
// shape of their example data.
package transformer

import (
	"context"
	"fmt"

	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/typeinfo"
)

// Input is everything one build captured.
type Input struct {
	Flows        []*dsl.Flow
	Integrations []*dsl.Integration
	Types        *typeinfo.Set
	// Graph is used to find the specifier an integration was imported
	// under. It may be nil.
	Graph *graph.Graph
	// DSLModule is the integration source used when no import is found.
	DSLModule string
}

// Severity grades a Diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic reports a non-fatal resolution outcome.
type Diagnostic struct {
	Severity Severity
	Flow     string
	Slice    string
	Example  string
	Position string // e.g. "then[0]"
	Message  string
}

func (d Diagnostic) String() string {
	at := d.Flow
	if d.Slice != "" {
		at += " > " + d.Slice
	}
	if d.Example != "" {
		at += " > " + d.Example
	}
	if d.Position != "" {
		at += " @ " + d.Position
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, at, d.Message)
}

// Result is the outcome of Transform.
type Result struct {
	Model       *model.Model
	Diagnostics []Diagnostic
}

// Warnings returns the diagnostics that need the author's attention:
// unresolved or ambiguous references and classification conflicts.
func (r *Result) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

type flowTransformer struct {
	ctx      context.Context
	in       Input
	types    *typeinfo.Set
	messages *messageTable
	diags    []Diagnostic
}

// Transform assembles the Model. It does not fail on unresolved references:
// they stay placeholders, are reported as warning diagnostics and make
// model.Validate fail.
func Transform(ctx context.Context, in Input) (*Result, error) {
	if in.Types == nil {
		in.Types = typeinfo.NewSet()
	}
	if in.DSLModule == "" {
		in.DSLModule = dsl.DefaultModule
	}
	t := &flowTransformer{
		ctx:      ctx,
		in:       in,
		types:    in.Types,
		messages: newMessageTable(),
	}

	m := model.New()
	for _, f := range in.Flows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.Flows = append(m.Flows, t.flow(f))
	}
	m.Messages = t.messages.build(t.types)
	m.Integrations = t.integrations(m)

	ctxlog.FromContext(ctx).Debug("model assembled",
		"flows", len(m.Flows), "messages", len(m.Messages),
		"integrations", len(m.Integrations), "diagnostics", len(t.diags))
	return &Result{Model: m, Diagnostics: t.diags}, nil
}

// position locates one reference inside the flows.
type position struct {
	flow, slice, example string
	part                 string
	index                int
	expected             model.MessageType
	kind                 model.SliceType
}

func (p position) String() string {
	return fmt.Sprintf("%s[%d]", p.part, p.index)
}

func (t *flowTransformer) report(sev Severity, p position, format string, args ...any) {
	d := Diagnostic{
		Severity: sev,
		Flow:     p.flow,
		Slice:    p.slice,
		Example:  p.example,
		Message:  fmt.Sprintf(format, args...),
	}
	if p.part != "" {
		d.Position = p.String()
	}
	t.diags = append(t.diags, d)

	logger := ctxlog.FromContext(t.ctx)
	if sev == SeverityWarning {
		logger.Warn(d.Message, "flow", d.Flow, "slice", d.Slice, "example", d.Example, "position", d.Position)
	} else {
		logger.Debug(d.Message, "flow", d.Flow, "slice", d.Slice, "example", d.Example, "position", d.Position)
	}
}

func (t *flowTransformer) flow(f *dsl.Flow) model.Flow {
	out := model.Flow{Name: f.Name, ID: f.ID, Slices: []model.Slice{}}
	for _, s := range f.Slices {
		out.Slices = append(out.Slices, t.slice(f, s))
	}
	return out
}

func (t *flowTransformer) slice(f *dsl.Flow, s *dsl.Slice) model.Slice {
	out := model.Slice{
		Type:   s.Kind,
		Name:   s.Name,
		ID:     s.ID,
		Stream: s.Stream,
		Server: model.Server{Specs: model.Spec{Rules: []model.Rule{}}},
	}
	if len(s.Via) > 0 {
		out.Via = append([]string(nil), s.Via...)
	}
	if s.Kind != model.SliceReact {
		out.Client = s.Client
		out.Request = s.Request
	}
	if s.Server == nil {
		return out
	}

	out.Server.Description = s.Server.Description
	base := position{flow: f.Name, slice: s.Name, kind: s.Kind}
	for i := range s.Server.Data {
		out.Server.Data = append(out.Server.Data, t.dataItem(base, s.Server.Data[i]))
	}
	if s.Server.Specs == nil {
		return out
	}
	out.Server.Specs.Name = s.Server.Specs.Name
	for _, r := range s.Server.Specs.Rules {
		rule := model.Rule{Description: r.Description, Examples: []model.Example{}}
		for _, ex := range r.Examples {
			p := base
			p.example = ex.Description
			rule.Examples = append(rule.Examples, t.example(p, ex))
		}
		out.Server.Specs.Rules = append(out.Server.Specs.Rules, rule)
	}
	return out
}

// expectations gives the classification each example part expects in a
// slice of the given kind.
func expectations(kind model.SliceType) (given, when, then model.MessageType) {
	switch kind {
	case model.SliceQuery:
		return model.MessageEvent, model.MessageEvent, model.MessageState
	case model.SliceReact:
		return model.MessageEvent, model.MessageEvent, model.MessageCommand
	}
	return model.MessageEvent, model.MessageCommand, model.MessageEvent
}

func (t *flowTransformer) example(p position, ex *dsl.Example) model.Example {
	given, when, then := expectations(p.kind)
	out := model.Example{Description: ex.Description, Then: []model.Outcome{}}

	for i, r := range ex.Given {
		out.Given = append(out.Given, t.ref(p.at("given", i, given), r))
	}

	var whens []model.Ref
	for i, r := range ex.When {
		whens = append(whens, t.ref(p.at("when", i, when), r))
	}
	switch {
	case p.kind == model.SliceReact:
		out.When = model.MultiWhen(whens...)
		if whens == nil {
			out.When.Refs = []model.Ref{}
		}
	case len(whens) > 0:
		out.When = model.SingleWhen(whens[0])
		if len(whens) > 1 {
			t.report(SeverityInfo, p.at("when", 1, when),
				"%s slices take a single when; %d extra references dropped", p.kind, len(whens)-1)
		}
	}

	if ex.Error != nil {
		errOutcome := *ex.Error
		out.Then = append(out.Then, model.Outcome{Error: &errOutcome})
		return out
	}
	for i, r := range ex.Then {
		ref := t.ref(p.at("then", i, then), r)
		if ref.Kind() == model.MessageEvent {
			t.messages.produced(ref.Name())
		}
		out.Then = append(out.Then, model.Outcome{Ref: ref})
	}
	if p.kind == model.SliceReact && out.When != nil {
		for _, r := range out.When.Refs {
			if r.Kind() == model.MessageEvent {
				t.messages.consumed(r.Name())
			}
		}
	}
	return out
}

func (p position) at(part string, index int, expected model.MessageType) position {
	p.part, p.index, p.expected = part, index, expected
	return p
}

// dataItem resolves the message named by a sink or source target.
func (t *flowTransformer) dataItem(p position, d model.DataItem) model.DataItem {
	out := d
	p = p.at("data", 0, d.Target.Type)
	out.Target.Type = t.kindFor(p, d.Target.Name, d.Target.Type)
	if ti, ok := t.lookup(d.Target.Name); ok {
		out.Target.Name = ti.Name
	}
	t.messages.declare(out.Target.Name, out.Target.Type, t.info(out.Target.Name))

	switch {
	case d.Destination != nil && out.Target.Type == model.MessageEvent:
		t.messages.produced(out.Target.Name)
	case d.Origin != nil && d.Origin.Type == "integration" && out.Target.Type == model.MessageEvent:
		t.messages.consumed(out.Target.Name)
	}
	if d.WithState != nil {
		ws := t.dataItem(p, *d.WithState)
		out.WithState = &ws
	}
	return out
}

func (t *flowTransformer) info(name string) *typeinfo.TypeInfo {
	ti, _ := t.lookup(name)
	return ti
}
