package transformer

import (
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/model"
)

// integrations lists the integrations the slices use: registered ones in
// registration order, then names only seen in via() or data items.
func (t *flowTransformer) integrations(m *model.Model) []model.Integration {
	used := make(map[string]bool)
	var firstUse []string
	use := func(name string) {
		if name != "" && !used[name] {
			used[name] = true
			firstUse = append(firstUse, name)
		}
	}
	var visit func(d model.DataItem)
	visit = func(d model.DataItem) {
		if d.Destination != nil {
			use(d.Destination.Integration)
		}
		if d.Origin != nil {
			use(d.Origin.Integration)
		}
		if d.WithState != nil {
			visit(*d.WithState)
		}
	}
	for _, f := range m.Flows {
		for _, s := range f.Slices {
			for _, name := range s.Via {
				use(name)
			}
			for _, d := range s.Server.Data {
				visit(d)
			}
		}
	}

	out := []model.Integration{}
	added := make(map[string]bool)
	for _, in := range t.in.Integrations {
		if used[in.Name] && !added[in.Name] {
			added[in.Name] = true
			out = append(out, model.Integration{Name: in.Name, Source: t.source(in.Name, in)})
		}
	}
	for _, name := range firstUse {
		if !added[name] {
			added[name] = true
			out = append(out, model.Integration{Name: name, Source: t.source(name, nil)})
		}
	}
	return out
}

// source returns the specifier a flow file imported the integration from:
// the import whose target is the declaring module, then an import binding
// the integration's name, then the DSL module.
func (t *flowTransformer) source(name string, declared *dsl.Integration) string {
	modules := t.flowModules()
	if declared != nil {
		for _, mod := range modules {
			if mod.Path == declared.File {
				continue
			}
			for _, spec := range mod.Specifiers {
				if target := mod.Targets[spec]; target.Kind == graph.Virtual && target.Path == declared.File {
					return spec
				}
			}
		}
	}
	for _, mod := range modules {
		if mod.Imports == nil {
			continue
		}
		if spec, ok := mod.Imports.BindingSource(name); ok {
			return spec
		}
	}
	return t.in.DSLModule
}

func (t *flowTransformer) flowModules() []*graph.Module {
	if t.in.Graph == nil {
		return nil
	}
	var out []*graph.Module
	seen := make(map[string]bool)
	for _, f := range t.in.Flows {
		if seen[f.File] {
			continue
		}
		seen[f.File] = true
		if mod := t.in.Graph.Module(f.File); mod != nil {
			out = append(out, mod)
		}
	}
	return out
}
