package typeinfo

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"martianoff/flowc/internal/tsparse"
)

// ExprKind classifies a parsed type expression.
type ExprKind int

const (
	ExprOther   ExprKind = iota
	ExprKeyword          // string, number, unknown, ...
	ExprRef              // Date, Money
	ExprLiteral          // 'a', 42, true
	ExprArray            // T[] or Array<T>
	ExprObject           // { a: T; b?: U }
	ExprUnion            // A | B
	ExprGeneric          // Record<K, V>
)

// Member is one property of an object type expression.
type Member struct {
	Name     string
	Optional bool
	Type     *TypeExpr
}

// TypeExpr is the structure of a field type string.
type TypeExpr struct {
	Kind    ExprKind
	Name    string // keyword, reference or generic name; literal text
	Elem    *TypeExpr
	Members []Member
	Options []*TypeExpr // union members
	Args    []*TypeExpr // generic arguments
	Text    string      // normalized source text
}

// weakKeywords carry no structural information.
var weakKeywords = map[string]bool{
	"unknown": true, "any": true, "object": true, "never": true,
}

// ParseType parses a field type string such as "{ id: string }[]". Text the
// grammar cannot read is returned as an ExprOther carrying the text.
func ParseType(text string) *TypeExpr {
	text = strings.TrimSpace(text)
	if text == "" {
		return &TypeExpr{Kind: ExprKeyword, Name: "unknown", Text: "unknown"}
	}
	src := []byte("type __T = " + text + ";")
	f, err := tsparse.Parse(context.Background(), "type.ts", src)
	if err != nil {
		return &TypeExpr{Kind: ExprOther, Text: text}
	}
	defer f.Close()

	decl := tsparse.FirstNamedChildOfType(f.Root(), "type_alias_declaration")
	if decl == nil || decl.ChildByFieldName("value") == nil {
		return &TypeExpr{Kind: ExprOther, Text: text}
	}
	return convert(f, decl.ChildByFieldName("value"))
}

func convert(f *tsparse.File, n *sitter.Node) *TypeExpr {
	n = unwrapParens(n)
	e := &TypeExpr{Text: TypeText(f, n)}
	switch n.Type() {
	case "predefined_type":
		e.Kind, e.Name = ExprKeyword, f.Text(n)
	case "type_identifier", "nested_type_identifier":
		e.Kind, e.Name = ExprRef, f.Text(n)
	case "literal_type":
		e.Kind, e.Name = ExprLiteral, f.Text(n)
	case "array_type":
		e.Kind = ExprArray
		e.Elem = convert(f, n.NamedChild(0))
	case "object_type":
		e.Kind = ExprObject
		for _, member := range members(n) {
			name, typ, optional := propertySignature(f, member)
			if name == "" {
				continue
			}
			m := Member{Name: name, Optional: optional}
			if typ != nil {
				m.Type = convert(f, typ)
			} else {
				m.Type = &TypeExpr{Kind: ExprKeyword, Name: "unknown", Text: "unknown"}
			}
			e.Members = append(e.Members, m)
		}
	case "union_type":
		e.Kind = ExprUnion
		var collect func(n *sitter.Node)
		collect = func(n *sitter.Node) {
			for _, c := range tsparse.NamedChildren(n) {
				if c.Type() == "union_type" {
					collect(c)
					continue
				}
				e.Options = append(e.Options, convert(f, c))
			}
		}
		collect(n)
	case "generic_type":
		e.Name = f.Text(n.ChildByFieldName("name"))
		for _, a := range tsparse.NamedChildren(n.ChildByFieldName("type_arguments")) {
			e.Args = append(e.Args, convert(f, a))
		}
		if (e.Name == "Array" || e.Name == "ReadonlyArray") && len(e.Args) == 1 {
			e.Kind, e.Elem = ExprArray, e.Args[0]
		} else {
			e.Kind = ExprGeneric
		}
	default:
		e.Kind = ExprOther
	}
	return e
}

// IsUnion reports whether the top level of the type is a union.
func (e *TypeExpr) IsUnion() bool {
	return e.Kind == ExprUnion
}

// IsWeak reports whether the type carries no structural information.
func (e *TypeExpr) IsWeak() bool {
	return e.Kind == ExprKeyword && weakKeywords[e.Name]
}

// Score measures how much structure a type describes. Weak types score 0,
// scalars 1, and arrays and objects add to what they contain.
func (e *TypeExpr) Score() int {
	switch e.Kind {
	case ExprKeyword:
		if weakKeywords[e.Name] {
			return 0
		}
		return 1
	case ExprRef, ExprLiteral, ExprOther:
		return 1
	case ExprArray:
		return 2 + e.Elem.Score()
	case ExprObject:
		s := 3
		for _, m := range e.Members {
			s += m.Type.Score()
		}
		return s
	case ExprUnion:
		best := 0
		for _, o := range e.Options {
			best = max(best, o.Score())
		}
		return 1 + best
	case ExprGeneric:
		s := 2
		for _, a := range e.Args {
			s += a.Score()
		}
		return s
	}
	return 0
}

// MoreStructural reports whether candidate should replace existing under the
// field-upgrade rule. Only a weak type or an array of weak elements is
// replaced, a union never is, and the candidate must score strictly higher.
func MoreStructural(candidate, existing string) bool {
	old := ParseType(existing)
	if old.IsUnion() || !old.upgradable() {
		return false
	}
	return ParseType(candidate).Score() > old.Score()
}

func (e *TypeExpr) upgradable() bool {
	if e.Kind == ExprArray {
		return e.Elem != nil && e.Elem.upgradable()
	}
	return e.IsWeak()
}
