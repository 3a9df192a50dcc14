package dsl

import (
	"strings"

	"github.com/dop251/goja"

	"martianoff/flowc/internal/model"
)

// install builds the exports object of the DSL module.
func (r *Registry) install(rt *goja.Runtime) (goja.Value, error) {
	exports := rt.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = exports.Set(name, fn)
	}

	set("flow", r.flowFn)
	set("command", r.sliceFn(model.SliceCommand))
	set("query", r.sliceFn(model.SliceQuery))
	set("react", r.sliceFn(model.SliceReact))
	set("specs", r.specsFn)
	set("describe", r.specsFn)
	set("rule", r.ruleFn)
	set("example", r.exampleFn)
	set("should", r.shouldFn)
	set("it", r.shouldFn)
	set("data", r.dataFn)
	set("sink", r.sinkFn)
	set("source", r.sourceFn)
	set("integration", r.integrationFn)
	set("gql", r.gqlFn)
	_ = exports.Set(model.Placeholder, model.Placeholder)
	_ = exports.Set("__esModule", true)
	return exports, nil
}

// flow(name, fn) or flow(name, id, fn)
func (r *Registry) flowFn(call goja.FunctionCall) goja.Value {
	if r.cur.flow != nil {
		r.fail("flow() cannot be nested in flow %q", r.cur.flow.Name)
	}
	name := optString(call.Argument(0))
	if name == "" {
		r.fail("flow() needs a name")
	}
	f := &Flow{Name: name, File: r.e.Current()}
	body := call.Argument(1)
	if len(call.Arguments) > 2 {
		f.ID = optString(call.Argument(1))
		body = call.Argument(2)
	}
	r.flows = append(r.flows, f)
	r.within(cursor{flow: f}, body, "flow()")
	return goja.Undefined()
}

// command(name, id?), query(name, id?), react(name, id?)
func (r *Registry) sliceFn(kind model.SliceType) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if r.cur.flow == nil || r.cur.slice != nil {
			r.fail("%s() must be called directly inside flow()", kind)
		}
		s := &Slice{
			Kind: kind,
			Name: optString(call.Argument(0)),
			ID:   optString(call.Argument(1)),
		}
		if s.Name == "" {
			r.fail("%s() needs a name", kind)
		}
		r.cur.flow.Slices = append(r.cur.flow.Slices, s)
		return r.sliceObject(r.cur.flow, s)
	}
}

func (r *Registry) sliceObject(f *Flow, s *Slice) *goja.Object {
	obj := r.rt().NewObject()
	chain := func(name string, fn func(goja.FunctionCall)) {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			fn(call)
			return obj
		})
	}

	chain("stream", func(call goja.FunctionCall) {
		s.Stream = optString(call.Argument(0))
	})
	chain("id", func(call goja.FunctionCall) {
		s.ID = optString(call.Argument(0))
	})
	chain("via", func(call goja.FunctionCall) {
		for _, v := range flatten(call.Arguments) {
			name := r.integrationName(v)
			if name == "" {
				r.fail("via() expects integrations or names")
			}
			if !contains(s.Via, name) {
				s.Via = append(s.Via, name)
			}
		}
	})
	chain("request", func(call goja.FunctionCall) {
		if s.Kind == model.SliceReact {
			r.fail("react slice %q cannot have a request", s.Name)
		}
		text := optString(call.Argument(0))
		if err := ValidateRequest(r.e.Current(), text); err != nil {
			r.e.Throw(err)
		}
		s.Request = text
	})
	chain("client", func(call goja.FunctionCall) {
		if s.Kind == model.SliceReact {
			r.fail("react slice %q cannot have a client", s.Name)
		}
		desc, body := describedBody(call)
		if s.Client == nil {
			s.Client = &model.Client{}
		}
		if desc != "" {
			s.Client.Description = desc
		}
		r.within(cursor{flow: f, slice: s, scope: scopeClient}, body, "client()")
	})
	chain("server", func(call goja.FunctionCall) {
		desc, body := describedBody(call)
		if s.Server == nil {
			s.Server = &Server{}
		}
		if desc != "" {
			s.Server.Description = desc
		}
		r.within(cursor{flow: f, slice: s, scope: scopeServer}, body, "server()")
	})
	return obj
}

// describedBody splits (fn) and (description, fn) argument lists.
func describedBody(call goja.FunctionCall) (string, goja.Value) {
	if _, ok := goja.AssertFunction(call.Argument(0)); ok {
		return "", call.Argument(0)
	}
	return optString(call.Argument(0)), call.Argument(1)
}

// specs(name?, fn) / describe(name?, fn)
func (r *Registry) specsFn(call goja.FunctionCall) goja.Value {
	name, body := describedBody(call)
	c := r.cur
	switch c.scope {
	case scopeClient:
		if c.slice.Client.Specs == nil {
			c.slice.Client.Specs = &model.ClientSpecs{Name: name, Rules: []string{}}
		}
	case scopeServer:
		if c.slice.Server.Specs == nil {
			c.slice.Server.Specs = &Spec{Name: name}
		}
		c.spec = c.slice.Server.Specs
	default:
		r.fail("specs() must be called inside client() or server()")
	}
	r.within(c, body, "specs()")
	return goja.Undefined()
}

// should(text) / it(text)
func (r *Registry) shouldFn(call goja.FunctionCall) goja.Value {
	if r.cur.scope != scopeClient {
		r.fail("should() must be called inside client()")
	}
	client := r.cur.slice.Client
	if client.Specs == nil {
		client.Specs = &model.ClientSpecs{Rules: []string{}}
	}
	for _, v := range flatten(call.Arguments) {
		client.Specs.Rules = append(client.Specs.Rules, v.String())
	}
	return goja.Undefined()
}

// rule(description, fn)
func (r *Registry) ruleFn(call goja.FunctionCall) goja.Value {
	if r.cur.spec == nil {
		r.fail("rule() must be called inside server specs()")
	}
	if r.cur.rule != nil {
		r.fail("rule() cannot be nested")
	}
	rule := &Rule{Description: optString(call.Argument(0))}
	r.cur.spec.Rules = append(r.cur.spec.Rules, rule)
	c := r.cur
	c.rule = rule
	r.within(c, call.Argument(1), "rule()")
	return goja.Undefined()
}

// example(description) starts a Given/When/Then chain.
func (r *Registry) exampleFn(call goja.FunctionCall) goja.Value {
	if r.cur.rule == nil {
		r.fail("example() must be called inside rule()")
	}
	ex := &Example{Description: optString(call.Argument(0))}
	r.cur.rule.Examples = append(r.cur.rule.Examples, ex)
	return r.exampleObject(ex)
}

type section int

const (
	sectionGiven section = iota
	sectionWhen
	sectionThen
)

func (r *Registry) exampleObject(ex *Example) *goja.Object {
	obj := r.rt().NewObject()
	var (
		pending string
		last    = sectionGiven
	)
	refs := func(method string, v goja.Value) []Ref {
		name := pending
		pending = ""
		if name == "" {
			name = model.Placeholder
		}
		values := []goja.Value{v}
		if items, ok := elements(v); ok {
			values = items
		}
		out := make([]Ref, 0, len(values))
		for _, item := range values {
			data, ok := exportData(item)
			if !ok {
				r.fail("%s() expects an object in example %q", method, ex.Description)
			}
			out = append(out, Ref{Name: name, Data: data})
		}
		return out
	}
	add := func(s section, method string, v goja.Value) {
		items := refs(method, v)
		switch s {
		case sectionGiven:
			ex.Given = append(ex.Given, items...)
		case sectionWhen:
			ex.When = append(ex.When, items...)
		case sectionThen:
			ex.Then = append(ex.Then, items...)
		}
		last = s
	}
	chain := func(name string, fn func(goja.FunctionCall)) {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			fn(call)
			return obj
		})
	}

	chain("typed", func(call goja.FunctionCall) {
		pending = optString(call.Argument(0))
	})
	chain("given", func(call goja.FunctionCall) {
		add(sectionGiven, "given", call.Argument(0))
	})
	chain("and", func(call goja.FunctionCall) {
		add(last, "and", call.Argument(0))
	})
	chain("when", func(call goja.FunctionCall) {
		add(sectionWhen, "when", call.Argument(0))
	})
	chain("then", func(call goja.FunctionCall) {
		if ex.Error != nil {
			r.fail("example %q already expects an error", ex.Description)
		}
		add(sectionThen, "then", call.Argument(0))
	})
	chain("thenError", func(call goja.FunctionCall) {
		typ := model.ErrorType(optString(call.Argument(0)))
		valid := false
		for _, t := range model.ErrorTypes {
			valid = valid || t == typ
		}
		if !valid {
			r.fail("thenError() type must be one of IllegalStateError, ValidationError, NotFoundError; got %q", typ)
		}
		if len(ex.Then) > 0 {
			r.fail("example %q already expects outcomes", ex.Description)
		}
		ex.Error = &model.ErrorOutcome{Type: typ, Message: optString(call.Argument(1))}
		last = sectionThen
	})
	return obj
}

// integration(name, type?) declares an external system.
func (r *Registry) integrationFn(call goja.FunctionCall) goja.Value {
	name := optString(call.Argument(0))
	if name == "" {
		r.fail("integration() needs a name")
	}
	in := r.addIntegration(&Integration{
		Name: name,
		Type: optString(call.Argument(1)),
		File: r.e.Current(),
	})
	obj := r.rt().NewObject()
	_ = obj.Set("name", in.Name)
	_ = obj.Set("type", in.Type)
	_ = obj.Set("__brand", "Integration")
	r.integrationJ[obj] = in
	return obj
}

// integrationName accepts an integration object, any object with a name, or
// a string.
func (r *Registry) integrationName(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return optString(v)
	}
	if in, ok := r.integrationJ[obj]; ok {
		return in.Name
	}
	return optString(obj.Get("name"))
}

// gql is a template tag returning the request text.
func (r *Registry) gqlFn(call goja.FunctionCall) goja.Value {
	parts, ok := elements(call.Argument(0))
	if !ok {
		return r.rt().ToValue(optString(call.Argument(0)))
	}
	var sb strings.Builder
	for i, p := range parts {
		sb.WriteString(p.String())
		if i+1 < len(call.Arguments) {
			sb.WriteString(call.Arguments[i+1].String())
		}
	}
	return r.rt().ToValue(sb.String())
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
