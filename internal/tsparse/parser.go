// Package tsparse wraps the tree-sitter TypeScript grammar and offers the
// small set of node helpers the scanner, the type extractor and the
// generator's usage pass share.
package tsparse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"martianoff/flowc/flowerr"
)

// File is a parsed source file. Nodes stay valid until Close.
type File struct {
	Path   string
	Source []byte
	tree   *sitter.Tree
}

// Root returns the program node.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text covered by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// Close releases the underlying tree.
func (f *File) Close() {
	if f != nil && f.tree != nil {
		f.tree.Close()
	}
}

// Parse parses src as TypeScript (TSX for .tsx/.jsx paths). Syntax errors are
// returned as a *flowerr.MultiError of positioned *flowerr.SyntaxError.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	f, err := ParseTolerant(ctx, path, src)
	if err != nil {
		return nil, err
	}
	if errs := f.SyntaxErrors(); len(errs) > 0 {
		f.Close()
		return nil, &flowerr.MultiError{Errors: errs}
	}
	return f, nil
}

// ParseTolerant parses src and keeps error nodes in the tree.
func ParseTolerant(ctx context.Context, path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	if strings.HasSuffix(path, ".tsx") || strings.HasSuffix(path, ".jsx") {
		parser.SetLanguage(tsx.GetLanguage())
	} else {
		parser.SetLanguage(typescript.GetLanguage())
	}
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &File{Path: path, Source: src, tree: tree}, nil
}

// SyntaxErrors lists the ERROR and MISSING nodes of the tree.
func (f *File) SyntaxErrors() []error {
	root := f.Root()
	if !root.HasError() {
		return nil
	}
	var errs []error
	Walk(root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			p := n.StartPoint()
			errs = append(errs, flowerr.NewSyntaxErrorInFile(f.Path, int(p.Row)+1, int(p.Column)+1,
				fmt.Sprintf("missing %s", n.Type())))
			return false
		case n.Type() == "ERROR":
			p := n.StartPoint()
			errs = append(errs, flowerr.NewSyntaxErrorInFile(f.Path, int(p.Row)+1, int(p.Column)+1,
				fmt.Sprintf("unexpected %q", snippet(f.Text(n)))))
			return false
		}
		return n.HasError()
	})
	return errs
}

// Walk visits n and its descendants depth-first in source order. Children are
// skipped when fn returns false.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		Walk(n.Child(i), fn)
	}
}

// NamedChildren returns the named children of n.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// FirstNamedChildOfType returns the first named child of n with the given type.
func FirstNamedChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, c := range NamedChildren(n) {
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

// HasChildToken reports whether n has an anonymous child with the given text
// (for example the "?" of an optional property signature).
func HasChildToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

// Line returns the 1-based line n starts on.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// StringValue returns the unquoted value of a string or template literal
// node without substitutions. ok is false for any other node.
func (f *File) StringValue(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		return Unquote(f.Text(n)), true
	case "template_string":
		for _, c := range NamedChildren(n) {
			if c.Type() == "template_substitution" {
				return "", false
			}
		}
		raw := f.Text(n)
		return strings.TrimSuffix(strings.TrimPrefix(raw, "`"), "`"), true
	}
	return "", false
}

// Unquote strips the quotes of a JavaScript string literal and resolves
// its escapes.
func Unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	q := lit[0]
	if (q != '\'' && q != '"') || lit[len(lit)-1] != q {
		return lit
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			if i+2 < len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					sb.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			sb.WriteByte('x')
		case 'u':
			hex, width := "", 0
			if i+1 < len(body) && body[i+1] == '{' {
				if end := strings.IndexByte(body[i:], '}'); end > 0 {
					hex, width = body[i+2:i+end], end
				}
			} else if i+4 < len(body) {
				hex, width = body[i+1:i+5], 4
			}
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil && hex != "" {
				sb.WriteRune(rune(v))
				i += width
				continue
			}
			sb.WriteByte('u')
		case '\n':
			// line continuation
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func snippet(s string) string {
	s = NormalizeSpace(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
