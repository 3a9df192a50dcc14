package transformer

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

type shapeKind int

const (
	shapeUnknown shapeKind = iota
	shapePrim
	shapeArray
	shapeObject
	shapeUnion
)

// shape is the structural type of an example value. Shapes of several
// values are combined with merge.
type shape struct {
	kind     shapeKind
	name     string // primitive name
	elem     *shape
	fields   map[string]*shape
	optional map[string]bool
	options  []*shape
}

var unknownShape = &shape{kind: shapeUnknown}

func prim(name string) *shape {
	return &shape{kind: shapePrim, name: name}
}

// shapeOf infers the shape of a cleaned example value.
func shapeOf(v any) *shape {
	switch v := v.(type) {
	case nil:
		return unknownShape
	case string:
		return prim("string")
	case bool:
		return prim("boolean")
	case int, int32, int64, float32, float64:
		return prim("number")
	case time.Time:
		return prim("Date")
	case []any:
		var elem *shape
		for _, e := range v {
			elem = merge(elem, shapeOf(e))
		}
		if elem == nil {
			elem = unknownShape
		}
		return &shape{kind: shapeArray, elem: elem}
	case map[string]any:
		s := &shape{kind: shapeObject, fields: make(map[string]*shape, len(v)), optional: map[string]bool{}}
		for k, fv := range v {
			s.fields[k] = shapeOf(fv)
		}
		return s
	}
	return unknownShape
}

// merge combines two shapes. Unknown yields to anything, objects merge
// their members and mark members missing on either side optional, and
// anything else that differs becomes a union.
func merge(a, b *shape) *shape {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.kind == shapeUnknown:
		return b
	case b.kind == shapeUnknown:
		return a
	}
	if a.kind == shapeObject && b.kind == shapeObject {
		out := &shape{kind: shapeObject, fields: map[string]*shape{}, optional: map[string]bool{}}
		for k, fa := range a.fields {
			fb, ok := b.fields[k]
			out.fields[k] = merge(fa, fb)
			out.optional[k] = a.optional[k] || !ok || b.optional[k]
		}
		for k, fb := range b.fields {
			if _, ok := a.fields[k]; !ok {
				out.fields[k] = fb
				out.optional[k] = true
			}
		}
		return out
	}
	if a.kind == shapeArray && b.kind == shapeArray {
		return &shape{kind: shapeArray, elem: merge(a.elem, b.elem)}
	}
	if a.String() == b.String() {
		return a
	}
	return union(a, b)
}

func union(a, b *shape) *shape {
	var opts []*shape
	seen := map[string]bool{}
	for _, s := range []*shape{a, b} {
		members := []*shape{s}
		if s.kind == shapeUnion {
			members = s.options
		}
		for _, m := range members {
			if key := m.String(); !seen[key] {
				seen[key] = true
				opts = append(opts, m)
			}
		}
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].String() < opts[j].String() })
	return &shape{kind: shapeUnion, options: opts}
}

// String renders the shape as a structural type string. Object members are
// sorted by name.
func (s *shape) String() string {
	switch s.kind {
	case shapePrim:
		return s.name
	case shapeArray:
		inner := s.elem.String()
		if s.elem.kind == shapeUnion {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	case shapeObject:
		if len(s.fields) == 0 {
			return "{}"
		}
		keys := make([]string, 0, len(s.fields))
		for k := range s.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			name := propertyName(k)
			if s.optional[k] {
				name += "?"
			}
			parts[i] = name + ": " + s.fields[k].String()
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	case shapeUnion:
		parts := make([]string, len(s.options))
		for i, o := range s.options {
			parts[i] = o.String()
		}
		return strings.Join(parts, " | ")
	}
	return "unknown"
}

// propertyName quotes keys that are not identifiers.
func propertyName(k string) string {
	for i, r := range k {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return "'" + strings.ReplaceAll(k, "'", "\\'") + "'"
	}
	if k == "" {
		return "''"
	}
	return k
}
