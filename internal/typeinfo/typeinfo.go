// Package typeinfo extracts message metadata from the type declarations of
// one TypeScript file.
//
// Two declaration shapes are recognized:
//
//	type CreateItem = Command<'CreateItem', { itemId: string; note?: string }>;
//
//	interface ItemCreated {
//	  type: 'ItemCreated';
//	  data: { id: string };
//	}
//
// The first carries an explicit classification through its marker. The second
// is classified from its name (see Classify) and is only advisory.
package typeinfo

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"martianoff/flowc/internal/tsparse"
)

// Classification is the message kind a type declares.
type Classification string

const (
	Command Classification = "command"
	Event   Classification = "event"
	State   Classification = "state"
	Unknown Classification = ""
)

// markers maps the generic marker names to the classification they declare.
var markers = map[string]Classification{
	"Command": Command,
	"Event":   Event,
	"State":   State,
}

// Field is one flattened data field.
type Field struct {
	Name     string
	Type     string
	Required bool
}

// TypeInfo describes one declared message type.
type TypeInfo struct {
	Name           string
	StringLiteral  string
	Classification Classification
	// Explicit is true when Classification came from a marker rather than
	// from the naming heuristic.
	Explicit   bool
	DataFields []Field
	File       string
	Line       int
}

// FieldNames returns the data field names in declaration order.
func (ti *TypeInfo) FieldNames() []string {
	names := make([]string, len(ti.DataFields))
	for i, f := range ti.DataFields {
		names[i] = f.Name
	}
	return names
}

// Set is an ordered name -> TypeInfo map. Order is declaration order across
// the files it was built from.
type Set struct {
	order  []string
	byName map[string]*TypeInfo
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*TypeInfo)}
}

// Add inserts ti unless a type of the same name is already present; the
// first declaration wins. It reports whether ti was added.
func (s *Set) Add(ti *TypeInfo) bool {
	if _, ok := s.byName[ti.Name]; ok {
		return false
	}
	s.byName[ti.Name] = ti
	s.order = append(s.order, ti.Name)
	return true
}

// Merge adds every entry of other in its order.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, ti := range other.All() {
		s.Add(ti)
	}
}

// Get looks a type up by its declared name.
func (s *Set) Get(name string) (*TypeInfo, bool) {
	ti, ok := s.byName[name]
	return ti, ok
}

// ByLiteral looks a type up by its discriminator literal.
func (s *Set) ByLiteral(lit string) (*TypeInfo, bool) {
	for _, name := range s.order {
		if ti := s.byName[name]; ti.StringLiteral == lit {
			return ti, true
		}
	}
	return nil, false
}

// All returns the entries in declaration order.
func (s *Set) All() []*TypeInfo {
	out := make([]*TypeInfo, len(s.order))
	for i, name := range s.order {
		out[i] = s.byName[name]
	}
	return out
}

// Len returns the number of entries.
func (s *Set) Len() int {
	return len(s.order)
}

// ExtractSource parses src and extracts its declared message types.
func ExtractSource(ctx context.Context, path string, src []byte) (*Set, error) {
	f, err := tsparse.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Extract(f), nil
}

// Extract walks the top level of a parsed file, including exported
// declarations, and returns the recognized message types.
func Extract(f *tsparse.File) *Set {
	set := NewSet()
	for _, n := range tsparse.NamedChildren(f.Root()) {
		decl := n
		if n.Type() == "export_statement" {
			decl = n.ChildByFieldName("declaration")
			if decl == nil {
				continue
			}
		}
		var ti *TypeInfo
		switch decl.Type() {
		case "type_alias_declaration":
			ti = extractAlias(f, decl)
		case "interface_declaration":
			ti = extractInterface(f, decl)
		}
		if ti != nil {
			ti.File = f.Path
			ti.Line = tsparse.Line(decl)
			set.Add(ti)
		}
	}
	return set
}

func extractAlias(f *tsparse.File, decl *sitter.Node) *TypeInfo {
	name := f.Text(decl.ChildByFieldName("name"))
	value := decl.ChildByFieldName("value")
	if name == "" || value == nil {
		return nil
	}
	switch value.Type() {
	case "generic_type":
		return extractMarker(f, name, value)
	case "object_type":
		return extractEnvelope(f, name, value)
	}
	return nil
}

func extractInterface(f *tsparse.File, decl *sitter.Node) *TypeInfo {
	name := f.Text(decl.ChildByFieldName("name"))
	body := decl.ChildByFieldName("body")
	if name == "" || body == nil {
		return nil
	}
	return extractEnvelope(f, name, body)
}

// extractMarker handles Command<'X', {...}>, Event<...> and State<...>.
func extractMarker(f *tsparse.File, name string, generic *sitter.Node) *TypeInfo {
	base := f.Text(generic.ChildByFieldName("name"))
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	class, ok := markers[base]
	if !ok {
		return nil
	}
	args := tsparse.NamedChildren(generic.ChildByFieldName("type_arguments"))
	if len(args) == 0 {
		return nil
	}
	lit, ok := literalType(f, args[0])
	if !ok {
		return nil
	}
	ti := &TypeInfo{
		Name:           name,
		StringLiteral:  lit,
		Classification: class,
		Explicit:       true,
	}
	if len(args) > 1 {
		ti.DataFields = objectFields(f, args[1])
	}
	return ti
}

// extractEnvelope handles { type: 'X'; data: {...} } shapes.
func extractEnvelope(f *tsparse.File, name string, body *sitter.Node) *TypeInfo {
	var (
		lit    string
		hasLit bool
		fields []Field
	)
	for _, member := range members(body) {
		prop, typ, _ := propertySignature(f, member)
		switch prop {
		case "type":
			lit, hasLit = literalType(f, typ)
		case "data":
			fields = objectFields(f, typ)
		}
	}
	if !hasLit {
		return nil
	}
	return &TypeInfo{
		Name:           name,
		StringLiteral:  lit,
		Classification: Classify(name),
		DataFields:     fields,
	}
}

// objectFields flattens an object type into fields. Anything other than an
// object type literal yields no fields.
func objectFields(f *tsparse.File, n *sitter.Node) []Field {
	n = unwrapParens(n)
	if n == nil || n.Type() != "object_type" {
		return nil
	}
	var fields []Field
	for _, member := range members(n) {
		prop, typ, optional := propertySignature(f, member)
		if prop == "" {
			continue
		}
		typeText := "unknown"
		if typ != nil {
			typeText = TypeText(f, typ)
		}
		fields = append(fields, Field{Name: prop, Type: typeText, Required: !optional})
	}
	return fields
}

// members returns the property signatures of an object type or interface body.
func members(body *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range tsparse.NamedChildren(body) {
		if c.Type() == "property_signature" {
			out = append(out, c)
		}
	}
	return out
}

// propertySignature returns the property name, its type node and whether it
// is optional.
func propertySignature(f *tsparse.File, member *sitter.Node) (string, *sitter.Node, bool) {
	nameNode := member.ChildByFieldName("name")
	if nameNode == nil {
		return "", nil, false
	}
	name := f.Text(nameNode)
	if v, ok := f.StringValue(nameNode); ok {
		name = v
	}
	var typ *sitter.Node
	if ann := member.ChildByFieldName("type"); ann != nil {
		typ = ann
		if ann.Type() == "type_annotation" && ann.NamedChildCount() > 0 {
			typ = ann.NamedChild(0)
		}
	}
	return name, typ, tsparse.HasChildToken(member, "?")
}

// literalType returns the value of a string literal type.
func literalType(f *tsparse.File, n *sitter.Node) (string, bool) {
	n = unwrapParens(n)
	if n == nil {
		return "", false
	}
	if n.Type() == "literal_type" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	return f.StringValue(n)
}

func unwrapParens(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_type" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	return n
}

// TypeText renders a type node as the structural type string stored in the
// Model: whitespace collapsed, object members separated by "; ", and the
// trailing member separator dropped.
func TypeText(f *tsparse.File, n *sitter.Node) string {
	switch n.Type() {
	case "object_type":
		var parts []string
		for _, member := range members(n) {
			name, typ, optional := propertySignature(f, member)
			if name == "" {
				continue
			}
			t := "unknown"
			if typ != nil {
				t = TypeText(f, typ)
			}
			if optional {
				name += "?"
			}
			parts = append(parts, name+": "+t)
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	case "array_type":
		if n.NamedChildCount() > 0 {
			inner := n.NamedChild(0)
			text := TypeText(f, inner)
			if inner.Type() == "union_type" || inner.Type() == "function_type" {
				text = "(" + text + ")"
			}
			return text + "[]"
		}
	case "generic_type":
		base := f.Text(n.ChildByFieldName("name"))
		var args []string
		for _, a := range tsparse.NamedChildren(n.ChildByFieldName("type_arguments")) {
			args = append(args, TypeText(f, a))
		}
		return base + "<" + strings.Join(args, ", ") + ">"
	case "union_type":
		var parts []string
		for _, c := range tsparse.NamedChildren(n) {
			parts = append(parts, TypeText(f, c))
		}
		return strings.Join(parts, " | ")
	}
	return tsparse.NormalizeSpace(f.Text(n))
}
