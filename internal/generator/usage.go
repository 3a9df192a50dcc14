package generator

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"martianoff/flowc/internal/tsparse"
)

// targetMethods name the message of a sink or source item.
var targetMethods = map[string]bool{"event": true, "command": true, "state": true}

// usage is what the statements of a generated file reference.
type usage struct {
	idents map[string]bool // value identifiers
	types  map[string]bool // type names, including data item targets
}

// analyze re-parses a draft and collects the names its statements use.
// Type aliases are kept when a statement or another kept alias names them.
func analyze(ctx context.Context, path, src string) (*usage, error) {
	f, err := tsparse.Parse(ctx, path, []byte(src))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	u := &usage{idents: make(map[string]bool), types: make(map[string]bool)}
	aliases := make(map[string]*sitter.Node)
	for _, n := range tsparse.NamedChildren(f.Root()) {
		decl := n
		if n.Type() == "export_statement" {
			if d := n.ChildByFieldName("declaration"); d != nil {
				decl = d
			}
		}
		switch decl.Type() {
		case "type_alias_declaration":
			if name := decl.ChildByFieldName("name"); name != nil {
				aliases[f.Text(name)] = decl.ChildByFieldName("value")
			}
		case "expression_statement":
			u.collect(f, decl)
		}
	}

	for changed := true; changed; {
		changed = false
		for name, value := range aliases {
			if !u.types[name] {
				continue
			}
			delete(aliases, name)
			if value != nil {
				u.collectTypes(f, value)
			}
			changed = true
		}
	}
	return u, nil
}

func (u *usage) collect(f *tsparse.File, n *sitter.Node) {
	tsparse.Walk(n, func(c *sitter.Node) bool {
		switch c.Type() {
		case "identifier":
			u.idents[f.Text(c)] = true
		case "type_identifier":
			u.types[f.Text(c)] = true
		case "call_expression":
			u.target(f, c)
		}
		return true
	})
}

func (u *usage) collectTypes(f *tsparse.File, n *sitter.Node) {
	tsparse.Walk(n, func(c *sitter.Node) bool {
		if c.Type() == "type_identifier" {
			u.types[f.Text(c)] = true
		}
		return true
	})
}

// target records the message named by `.event('X')` and its siblings.
func (u *usage) target(f *tsparse.File, call *sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return
	}
	prop := fn.ChildByFieldName("property")
	if prop == nil || !targetMethods[f.Text(prop)] {
		return
	}
	args := tsparse.NamedChildren(call.ChildByFieldName("arguments"))
	if len(args) == 0 {
		return
	}
	if name, ok := f.StringValue(args[0]); ok {
		u.types[name] = true
	}
}
