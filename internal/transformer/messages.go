package transformer

import (
	"sort"

	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/typeinfo"
)

// messageEntry accumulates what the flows say about one message.
type messageEntry struct {
	name     string
	kind     model.MessageType
	info     *typeinfo.TypeInfo // nil for messages known only from examples
	samples  int
	keys     []string // first-seen order
	counts   map[string]int
	shapes   map[string]*shape
	produced bool
	consumed bool
}

type messageTable struct {
	entries map[string]*messageEntry
	order   []string
}

func newMessageTable() *messageTable {
	return &messageTable{entries: make(map[string]*messageEntry)}
}

func (mt *messageTable) declare(name string, kind model.MessageType, info *typeinfo.TypeInfo) *messageEntry {
	if e, ok := mt.entries[name]; ok {
		return e
	}
	e := &messageEntry{
		name:   name,
		kind:   kind,
		info:   info,
		counts: make(map[string]int),
		shapes: make(map[string]*shape),
	}
	mt.entries[name] = e
	mt.order = append(mt.order, name)
	return e
}

func (mt *messageTable) kind(name string) (model.MessageType, bool) {
	if e, ok := mt.entries[name]; ok {
		return e.kind, true
	}
	return "", false
}

// observe records one example payload of the message.
func (mt *messageTable) observe(name string, data map[string]any) {
	e, ok := mt.entries[name]
	if !ok {
		return
	}
	e.samples++
	for _, k := range sortedKeys(data) {
		if _, seen := e.counts[k]; !seen {
			e.keys = append(e.keys, k)
		}
		e.counts[k]++
		e.shapes[k] = merge(e.shapes[k], shapeOf(data[k]))
	}
}

func (mt *messageTable) produced(name string) {
	if e, ok := mt.entries[name]; ok {
		e.produced = true
	}
}

func (mt *messageTable) consumed(name string) {
	if e, ok := mt.entries[name]; ok {
		e.consumed = true
	}
}

// build renders the messages: declared types in declaration order, then
// messages known only from examples in first-reference order.
func (mt *messageTable) build(types *typeinfo.Set) []model.Message {
	declOrder := make(map[string]int, types.Len())
	for i, ti := range types.All() {
		declOrder[ti.Name] = i
	}
	var declared, inferred []*messageEntry
	for _, name := range mt.order {
		e := mt.entries[name]
		if e.info != nil {
			declared = append(declared, e)
		} else {
			inferred = append(inferred, e)
		}
	}
	sort.SliceStable(declared, func(i, j int) bool {
		return declOrder[declared[i].name] < declOrder[declared[j].name]
	})

	out := make([]model.Message, 0, len(mt.order))
	for _, e := range append(declared, inferred...) {
		msg := model.Message{Type: e.kind, Name: e.name, Fields: e.fields()}
		if e.kind == model.MessageEvent {
			msg.Source = model.SourceInternal
			if e.consumed && !e.produced {
				msg.Source = model.SourceExternal
			}
		}
		out = append(out, msg)
	}
	return out
}

// fields returns the declared fields, upgraded by example shapes, or the
// fields seen in examples when nothing was declared. An inferred field is
// required when every example carries it.
func (e *messageEntry) fields() []model.Field {
	out := []model.Field{}
	if e.info != nil && len(e.info.DataFields) > 0 {
		for _, f := range e.info.DataFields {
			typ := f.Type
			if sh, ok := e.shapes[f.Name]; ok {
				if candidate := sh.String(); typeinfo.MoreStructural(candidate, typ) {
					typ = candidate
				}
			}
			out = append(out, model.Field{Name: f.Name, Type: typ, Required: f.Required})
		}
		return out
	}
	for _, k := range e.keys {
		out = append(out, model.Field{
			Name:     k,
			Type:     e.shapes[k].String(),
			Required: e.counts[k] == e.samples,
		})
	}
	return out
}
