package generator

import (
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/generator/tsast"
	"martianoff/flowc/internal/model"
)

// emitter builds the syntax tree of one file. With a nil usage every
// message, DSL function and integration is declared; otherwise only the
// used subset is.
type emitter struct {
	m     *model.Model
	pkg   dsl.PackageInfo
	usage *usage
}

func (e *emitter) file(flows []model.Flow) *tsast.File {
	f := &tsast.File{}
	for _, fl := range flows {
		f.Body = append(f.Body, &tsast.ExprStmt{X: e.flow(fl)})
	}

	var fns []string
	for _, name := range e.pkg.Functions {
		if e.usage == nil || e.usage.idents[name] {
			fns = append(fns, name)
		}
	}
	if len(fns) > 0 {
		f.Imports = append(f.Imports, &tsast.ImportDecl{Names: fns, From: e.pkg.Module})
	}

	kinds := make(map[model.MessageType]bool)
	for _, msg := range e.m.Messages {
		if e.usage != nil && !e.usage.types[msg.Name] {
			continue
		}
		kinds[msg.Type] = true
		f.Types = append(f.Types, messageAlias(msg))
	}
	var markerNames []string
	for _, kind := range []model.MessageType{model.MessageCommand, model.MessageEvent, model.MessageState} {
		if kinds[kind] {
			markerNames = append(markerNames, markers[kind])
		}
	}
	if len(markerNames) > 0 {
		f.Imports = append(f.Imports, &tsast.ImportDecl{Names: markerNames, From: e.pkg.Module, TypeOnly: true})
	}

	bySource := make(map[string]*tsast.ImportDecl)
	for _, in := range e.m.Integrations {
		if !e.imported(in) || (e.usage != nil && !e.usage.idents[in.Name]) {
			continue
		}
		decl, ok := bySource[in.Source]
		if !ok {
			decl = &tsast.ImportDecl{From: in.Source}
			bySource[in.Source] = decl
			f.Imports = append(f.Imports, decl)
		}
		decl.Names = append(decl.Names, in.Name)
	}
	return f
}

// imported reports whether an integration is referenced through an
// imported binding rather than by its name as a string. A source naming a
// DSL module means no flow file imported the integration.
func (e *emitter) imported(in model.Integration) bool {
	switch in.Source {
	case "", e.pkg.Module, dsl.DefaultModule:
		return false
	}
	return tsast.IsIdentifier(in.Name)
}

func (e *emitter) integration(name string) tsast.Expr {
	if in, ok := e.m.Integration(name); ok && e.imported(*in) {
		return tsast.Id(name)
	}
	return tsast.Str(name)
}

func (e *emitter) flow(f model.Flow) tsast.Expr {
	args := []tsast.Expr{tsast.Str(f.Name)}
	if f.ID != "" {
		args = append(args, tsast.Str(f.ID))
	}
	var body []tsast.Stmt
	for _, s := range f.Slices {
		body = append(body, &tsast.ExprStmt{X: e.slice(s)})
	}
	return tsast.CallFunc("flow", append(args, tsast.Arrow(body...))...)
}

// described returns (description, fn) or just (fn).
func described(desc string, body []tsast.Stmt) []tsast.Expr {
	if desc == "" {
		return []tsast.Expr{tsast.Arrow(body...)}
	}
	return []tsast.Expr{tsast.Str(desc), tsast.Arrow(body...)}
}

func (e *emitter) slice(s model.Slice) tsast.Expr {
	args := []tsast.Expr{tsast.Str(s.Name)}
	if s.ID != "" {
		args = append(args, tsast.Str(s.ID))
	}
	var x tsast.Expr = tsast.CallFunc(string(s.Type), args...)

	if s.Stream != "" {
		x = tsast.Method(x, "stream", tsast.Str(s.Stream))
	}
	if len(s.Via) > 0 {
		via := make([]tsast.Expr, len(s.Via))
		for i, name := range s.Via {
			via[i] = e.integration(name)
		}
		x = tsast.Method(x, "via", via...)
	}
	if s.Client != nil {
		var body []tsast.Stmt
		if cs := s.Client.Specs; cs != nil {
			body = tsast.Stmts(tsast.CallFunc("specs", described(cs.Name, e.shoulds(cs.Rules))...))
		}
		x = tsast.Method(x, "client", described(s.Client.Description, body)...)
	}
	if s.Request != "" {
		x = tsast.Method(x, "request", &tsast.TaggedTemplate{Tag: "gql", Text: s.Request})
	}
	if body := e.server(s.Server); len(body) > 0 || s.Server.Description != "" {
		x = tsast.Method(x, "server", described(s.Server.Description, body)...)
	}
	return x
}

func (e *emitter) shoulds(rules []string) []tsast.Stmt {
	var out []tsast.Stmt
	for _, r := range rules {
		out = append(out, &tsast.ExprStmt{X: tsast.CallFunc("should", tsast.Str(r))})
	}
	return out
}

func (e *emitter) server(s model.Server) []tsast.Stmt {
	var body []tsast.Stmt
	if len(s.Data) > 0 {
		items := &tsast.ArrayLit{}
		for _, d := range s.Data {
			items.Elems = append(items.Elems, e.dataItem(d))
		}
		body = append(body, &tsast.ExprStmt{X: tsast.CallFunc("data", items)})
	}
	if s.Specs.Name == "" && len(s.Specs.Rules) == 0 {
		return body
	}
	var rules []tsast.Stmt
	for _, r := range s.Specs.Rules {
		var examples []tsast.Stmt
		for _, ex := range r.Examples {
			examples = append(examples, &tsast.ExprStmt{X: e.example(ex)})
		}
		rules = append(rules, &tsast.ExprStmt{X: tsast.CallFunc("rule", tsast.Str(r.Description), tsast.Arrow(examples...))})
	}
	return append(body, &tsast.ExprStmt{X: tsast.CallFunc("specs", described(s.Specs.Name, rules)...)})
}

func (e *emitter) dataItem(d model.DataItem) tsast.Expr {
	base := "source"
	if d.IsSink() {
		base = "sink"
	}
	x := tsast.Method(tsast.CallFunc(base), string(d.Target.Type), tsast.Str(d.Target.Name))

	if dst := d.Destination; dst != nil {
		switch dst.Type {
		case "stream":
			x = tsast.Method(x, "toStream", tsast.Str(dst.Pattern))
		case "integration":
			x = tsast.Method(x, "toIntegration", optional(e.integration(dst.Integration), dst.Operation)...)
		case "database":
			x = tsast.Method(x, "toDatabase", tsast.Str(dst.Collection))
		case "topic":
			x = tsast.Method(x, "toTopic", tsast.Str(dst.Topic))
		}
	}
	if o := d.Origin; o != nil {
		switch o.Type {
		case "projection":
			x = tsast.Method(x, "fromProjection", optional(tsast.Str(o.Name), o.IDField)...)
		case "integration":
			x = tsast.Method(x, "fromIntegration", optional(e.integration(o.Integration), o.Operation)...)
		case "database":
			x = tsast.Method(x, "fromDatabase", tsast.Str(o.Collection))
		case "api":
			method := o.Method
			if method == "GET" {
				method = ""
			}
			x = tsast.Method(x, "fromApi", optional(tsast.Str(o.Endpoint), method)...)
		}
	}
	if d.WithState != nil {
		x = tsast.Method(x, "withState", e.dataItem(*d.WithState))
	}
	return x
}

// optional appends s as a string argument unless it is empty.
func optional(first tsast.Expr, s string) []tsast.Expr {
	if s == "" {
		return []tsast.Expr{first}
	}
	return []tsast.Expr{first, tsast.Str(s)}
}

func (e *emitter) example(ex model.Example) tsast.Expr {
	var x tsast.Expr = tsast.CallFunc("example", tsast.Str(ex.Description))
	for i, r := range ex.Given {
		method := "and"
		if i == 0 {
			method = "given"
		}
		x = e.typed(x, method, r.Name(), payload(r))
	}

	if w := ex.When; w != nil && len(w.Refs) > 0 {
		if w.Multi {
			method := "when"
			for _, group := range groupByName(w.Refs) {
				elems := &tsast.ArrayLit{}
				for _, r := range group {
					elems.Elems = append(elems.Elems, payload(r))
				}
				x = e.typed(x, method, group[0].Name(), elems)
				method = "and"
			}
		} else {
			x = e.typed(x, "when", w.Refs[0].Name(), payload(w.Refs[0]))
		}
	}

	for i, o := range ex.Then {
		if o.Error != nil {
			x = tsast.Method(x, "thenError", optional(tsast.Str(string(o.Error.Type)), o.Error.Message)...)
			break
		}
		method := "and"
		if i == 0 {
			method = "then"
		}
		x = e.typed(x, method, o.Ref.Name(), payload(o.Ref))
	}
	return x
}

// typed calls a builder method with the message name as type argument.
// Placeholders are written without one.
func (e *emitter) typed(x tsast.Expr, method, name string, arg tsast.Expr) tsast.Expr {
	if name == "" || name == model.Placeholder {
		return tsast.Method(x, method, arg)
	}
	return tsast.MethodT(x, method, []tsast.Type{tsast.Ref(name)}, arg)
}

func payload(r model.Ref) tsast.Expr {
	if r.ExampleData == nil {
		return &tsast.ObjectLit{}
	}
	return tsast.Value(r.ExampleData)
}

// groupByName splits refs into runs naming the same message.
func groupByName(refs []model.Ref) [][]model.Ref {
	var out [][]model.Ref
	for _, r := range refs {
		if n := len(out); n > 0 && out[n-1][0].Name() == r.Name() {
			out[n-1] = append(out[n-1], r)
			continue
		}
		out = append(out, []model.Ref{r})
	}
	return out
}
