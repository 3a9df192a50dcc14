// Package scanner lists the module specifiers a TypeScript source file
// references: static imports, re-exports, dynamic import() calls and
// require() calls, together with the local names each import binds.
package scanner

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"martianoff/flowc/internal/tsparse"
)

// Kind classifies how a specifier is referenced.
type Kind string

const (
	KindImport  Kind = "import"
	KindExport  Kind = "export"
	KindDynamic Kind = "dynamic"
	KindRequire Kind = "require"
)

// Binding is one local name introduced by an import. Imported is "default"
// for default imports and "*" for namespace imports.
type Binding struct {
	Local    string
	Imported string
	TypeOnly bool
}

// Import is one reference to another module.
type Import struct {
	Specifier string
	Kind      Kind
	TypeOnly  bool
	Bindings  []Binding
	Line      int
}

// Result holds every reference found in one file, in source order.
type Result struct {
	Imports []Import
}

// Specifiers returns the distinct specifiers in first-seen order.
func (r *Result) Specifiers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, imp := range r.Imports {
		if !seen[imp.Specifier] {
			seen[imp.Specifier] = true
			out = append(out, imp.Specifier)
		}
	}
	return out
}

// BindingSource returns the specifier the local name was imported from.
func (r *Result) BindingSource(local string) (string, bool) {
	for _, imp := range r.Imports {
		for _, b := range imp.Bindings {
			if b.Local == local {
				return imp.Specifier, true
			}
		}
	}
	return "", false
}

// ScanSource parses src and scans it. Parse errors are returned unchanged.
func ScanSource(ctx context.Context, path string, src []byte) (*Result, error) {
	f, err := tsparse.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Scan(f), nil
}

// Scan walks an already parsed file.
func Scan(f *tsparse.File) *Result {
	s := &fileScanner{f: f, res: &Result{}}
	tsparse.Walk(f.Root(), s.visit)
	return s.res
}

type fileScanner struct {
	f   *tsparse.File
	res *Result
}

func (s *fileScanner) visit(n *sitter.Node) bool {
	switch n.Type() {
	case "import_statement":
		s.importStatement(n)
		return false
	case "export_statement":
		if src := n.ChildByFieldName("source"); src != nil {
			s.reExport(n, src)
			return false
		}
	case "call_expression":
		s.call(n)
	}
	return true
}

func (s *fileScanner) importStatement(n *sitter.Node) {
	typeOnly := tsparse.HasChildToken(n, "type")
	src := n.ChildByFieldName("source")
	if src == nil {
		// import x = require('y')
		if req := tsparse.FirstNamedChildOfType(n, "import_require_clause"); req != nil {
			src = req.ChildByFieldName("source")
			if src == nil {
				src = tsparse.FirstNamedChildOfType(req, "string")
			}
			spec, ok := s.f.StringValue(src)
			if !ok {
				return
			}
			imp := Import{Specifier: spec, Kind: KindImport, Line: tsparse.Line(n)}
			if id := tsparse.FirstNamedChildOfType(req, "identifier"); id != nil {
				imp.Bindings = append(imp.Bindings, Binding{Local: s.f.Text(id), Imported: "*"})
			}
			s.res.Imports = append(s.res.Imports, imp)
			return
		}
		src = tsparse.FirstNamedChildOfType(n, "string")
	}
	spec, ok := s.f.StringValue(src)
	if !ok {
		return
	}
	imp := Import{Specifier: spec, Kind: KindImport, TypeOnly: typeOnly, Line: tsparse.Line(n)}
	if clause := tsparse.FirstNamedChildOfType(n, "import_clause"); clause != nil {
		imp.Bindings = s.importClause(clause, typeOnly)
	}
	s.res.Imports = append(s.res.Imports, imp)
}

func (s *fileScanner) importClause(clause *sitter.Node, typeOnly bool) []Binding {
	var out []Binding
	for _, c := range tsparse.NamedChildren(clause) {
		switch c.Type() {
		case "identifier":
			out = append(out, Binding{Local: s.f.Text(c), Imported: "default", TypeOnly: typeOnly})
		case "namespace_import":
			if id := tsparse.FirstNamedChildOfType(c, "identifier"); id != nil {
				out = append(out, Binding{Local: s.f.Text(id), Imported: "*", TypeOnly: typeOnly})
			}
		case "named_imports":
			for _, spec := range tsparse.NamedChildren(c) {
				if spec.Type() != "import_specifier" {
					continue
				}
				name := s.f.Text(spec.ChildByFieldName("name"))
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = s.f.Text(alias)
				}
				out = append(out, Binding{
					Local:    local,
					Imported: name,
					TypeOnly: typeOnly || tsparse.HasChildToken(spec, "type"),
				})
			}
		}
	}
	return out
}

func (s *fileScanner) reExport(n, src *sitter.Node) {
	spec, ok := s.f.StringValue(src)
	if !ok {
		return
	}
	s.res.Imports = append(s.res.Imports, Import{
		Specifier: spec,
		Kind:      KindExport,
		TypeOnly:  tsparse.HasChildToken(n, "type"),
		Line:      tsparse.Line(n),
	})
}

func (s *fileScanner) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	var kind Kind
	switch {
	case fn.Type() == "import":
		kind = KindDynamic
	case fn.Type() == "identifier" && s.f.Text(fn) == "require":
		kind = KindRequire
	default:
		return
	}
	args := n.ChildByFieldName("arguments")
	named := tsparse.NamedChildren(args)
	if len(named) == 0 {
		return
	}
	spec, ok := s.f.StringValue(named[0])
	if !ok {
		// computed specifiers cannot be resolved statically
		return
	}
	s.res.Imports = append(s.res.Imports, Import{Specifier: spec, Kind: kind, Line: tsparse.Line(n)})
}
