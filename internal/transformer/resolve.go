package transformer

import (
	"sort"

	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/typeinfo"
)

// lookup finds a declared type by name, then by discriminator literal. The
// placeholder never resolves.
func (t *flowTransformer) lookup(name string) (*typeinfo.TypeInfo, bool) {
	if name == "" || name == model.Placeholder {
		return nil, false
	}
	if ti, ok := t.types.Get(name); ok {
		return ti, true
	}
	return t.types.ByLiteral(name)
}

// envelope splits {type: 'X', data: {...}} example data.
func envelope(data map[string]any) (string, map[string]any, bool) {
	if len(data) != 2 {
		return "", nil, false
	}
	lit, ok := data["type"].(string)
	if !ok {
		return "", nil, false
	}
	inner, ok := data["data"].(map[string]any)
	if !ok {
		return "", nil, false
	}
	return lit, inner, true
}

// ref resolves one example reference.
func (t *flowTransformer) ref(p position, r dsl.Ref) model.Ref {
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	lit, inner, isEnvelope := envelope(data)

	var ti *typeinfo.TypeInfo
	name := r.Name
	if r.IsPlaceholder() {
		ti = t.infer(p, data)
		if ti == nil {
			t.report(SeverityWarning, p, "cannot resolve the type of %s example data; reference left as %s",
				p.expected, model.Placeholder)
			return model.NewRef(p.expected, model.Placeholder, data)
		}
		name = ti.Name
	} else if found, ok := t.lookup(name); ok {
		ti = found
		name = ti.Name
	} else {
		t.report(SeverityInfo, p, "no declared type %s; fields inferred from example data", name)
	}

	if isEnvelope && (r.IsPlaceholder() || lit == name || (ti != nil && lit == ti.StringLiteral)) {
		data = inner
	}
	kind := t.kindFor(p, name, p.expected)
	t.messages.declare(name, kind, ti)
	t.messages.observe(name, data)
	return model.NewRef(kind, name, data)
}

// kindFor decides the classification of a reference to name at p. An
// explicit marker always wins; otherwise the first position a message is
// used in fixes its kind.
func (t *flowTransformer) kindFor(p position, name string, expected model.MessageType) model.MessageType {
	ti, _ := t.lookup(name)
	if ti != nil && ti.Explicit && ti.Classification != typeinfo.Unknown {
		kind := model.MessageType(ti.Classification)
		if kind != expected {
			t.report(SeverityInfo, p, "%s is declared as %s; %sRef rewritten to %sRef", name, kind, expected, kind)
		}
		return kind
	}
	if established, ok := t.messages.kind(name); ok {
		if established != expected {
			t.report(SeverityWarning, p, "%s is used as %s here but as %s earlier", name, expected, established)
		}
		return established
	}
	if ti != nil && ti.Classification != typeinfo.Unknown && model.MessageType(ti.Classification) != expected {
		t.report(SeverityWarning, p, "%s is named like a %s but used as %s; the position wins",
			name, ti.Classification, expected)
	}
	return expected
}

// infer finds the declared type a placeholder reference stands for.
func (t *flowTransformer) infer(p position, data map[string]any) *typeinfo.TypeInfo {
	lit, inner, isEnvelope := envelope(data)
	if isEnvelope && lit != model.Placeholder {
		if ti, ok := t.lookup(lit); ok {
			return ti
		}
	}

	var all, filtered []*typeinfo.TypeInfo
	for _, ti := range t.types.All() {
		if ti.Name == model.Placeholder || ti.StringLiteral == model.Placeholder {
			continue
		}
		all = append(all, ti)
		if model.MessageType(ti.Classification) == p.expected {
			filtered = append(filtered, ti)
		}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}

	keySets := [][]string{sortedKeys(data)}
	if isEnvelope {
		keySets = append(keySets, sortedKeys(inner))
	}
	if ti := t.match(p, filtered, keySets); ti != nil {
		return ti
	}
	if ti := t.match(p, all, keySets); ti != nil {
		t.report(SeverityInfo, p, "no %s type matches; resolved to %s %s by shape", p.expected, ti.Classification, ti.Name)
		return ti
	}
	return nil
}

type candidate struct {
	ti     *typeinfo.TypeInfo
	exact  bool
	extra  int
	declAt int
}

// match picks the candidate whose fields cover the example keys. Ties are
// broken by an exact key-set match, then the fewest extra fields, then
// declaration order.
func (t *flowTransformer) match(p position, types []*typeinfo.TypeInfo, keySets [][]string) *typeinfo.TypeInfo {
	var matches []candidate
	for i, ti := range types {
		fields := make(map[string]bool, len(ti.DataFields))
		for _, f := range ti.DataFields {
			fields[f.Name] = true
		}
		best, found := candidate{}, false
		for _, keys := range keySets {
			if len(keys) == 0 || !subset(keys, fields) {
				continue
			}
			c := candidate{ti: ti, exact: len(keys) == len(fields), extra: len(fields) - len(keys), declAt: i}
			if !found || better(c, best) {
				best, found = c, true
			}
		}
		if found {
			matches = append(matches, best)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool { return better(matches[i], matches[j]) })
	if len(matches) > 1 && matches[0].exact == matches[1].exact && matches[0].extra == matches[1].extra {
		t.report(SeverityWarning, p, "example data matches both %s and %s; picked %s",
			matches[0].ti.Name, matches[1].ti.Name, matches[0].ti.Name)
	}
	return matches[0].ti
}

func better(a, b candidate) bool {
	if a.exact != b.exact {
		return a.exact
	}
	if a.extra != b.extra {
		return a.extra < b.extra
	}
	return a.declAt < b.declAt
}

func subset(keys []string, fields map[string]bool) bool {
	for _, k := range keys {
		if !fields[k] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
