package tsast

import (
	"fmt"
	"strings"
	"unicode"
)

// Printer renders syntax trees. The output uses single quotes, semicolons
// and two-space indentation; constructs that do not fit Width are broken
// across lines.
type Printer struct {
	Width  int
	Indent string
}

// DefaultPrinter is used by Print.
var DefaultPrinter = &Printer{Width: 80, Indent: "  "}

// Print renders f with the DefaultPrinter.
func Print(f *File) string {
	return DefaultPrinter.File(f)
}

// File renders a whole file: imports, type aliases, then statements, each
// group separated by a blank line.
func (p *Printer) File(f *File) string {
	var groups []string
	if len(f.Imports) > 0 {
		var lines []string
		for _, imp := range f.Imports {
			lines = append(lines, p.Import(imp))
		}
		groups = append(groups, strings.Join(lines, "\n"))
	}
	if len(f.Types) > 0 {
		var lines []string
		for _, ta := range f.Types {
			lines = append(lines, p.TypeAlias(ta))
		}
		groups = append(groups, strings.Join(lines, "\n"))
	}
	for _, s := range f.Body {
		groups = append(groups, p.Stmt(s, 0))
	}
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, "\n\n") + "\n"
}

// Import renders one import declaration.
func (p *Printer) Import(imp *ImportDecl) string {
	kw := "import "
	if imp.TypeOnly {
		kw = "import type "
	}
	from := " from " + quote(imp.From) + ";"
	line := kw + "{ " + strings.Join(imp.Names, ", ") + " }" + from
	if len(line) <= p.Width || len(imp.Names) < 2 {
		return line
	}
	var sb strings.Builder
	sb.WriteString(kw + "{\n")
	for _, n := range imp.Names {
		sb.WriteString(p.Indent + n + ",\n")
	}
	sb.WriteString("}" + from)
	return sb.String()
}

// TypeAlias renders `type Name = ...;`.
func (p *Printer) TypeAlias(ta *TypeAlias) string {
	prefix := "type " + ta.Name + " = "
	if ta.Export {
		prefix = "export " + prefix
	}
	flat := prefix + p.flatType(ta.Type) + ";"
	if len(flat) <= p.Width {
		return flat
	}
	return prefix + p.blockType(ta.Type, 0) + ";"
}

func (p *Printer) flatType(t Type) string {
	switch t := t.(type) {
	case *TypeRef:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = p.flatType(a)
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	case *KeywordType:
		return t.Name
	case *LiteralType:
		return t.Text
	case *StringType:
		return quote(t.Value)
	case *ArrayType:
		inner := p.flatType(t.Elem)
		if _, isUnion := t.Elem.(*UnionType); isUnion {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	case *UnionType:
		parts := make([]string, len(t.Types))
		for i, u := range t.Types {
			parts[i] = p.flatType(u)
		}
		return strings.Join(parts, " | ")
	case *TypeLiteral:
		if len(t.Members) == 0 {
			return "{}"
		}
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = p.member(m) + p.flatType(m.Type)
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	case *RawType:
		return t.Text
	}
	panic(fmt.Sprintf("tsast: unexpected type node %T", t))
}

// blockType breaks type literals one member per line. Other types are
// printed flat.
func (p *Printer) blockType(t Type, depth int) string {
	switch t := t.(type) {
	case *TypeRef:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			if i == len(t.Args)-1 {
				args[i] = p.blockType(a, depth)
			} else {
				args[i] = p.flatType(a)
			}
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	case *ArrayType:
		if lit, ok := t.Elem.(*TypeLiteral); ok {
			return p.blockType(lit, depth) + "[]"
		}
	case *TypeLiteral:
		if len(t.Members) == 0 {
			return "{}"
		}
		var sb strings.Builder
		sb.WriteString("{\n")
		for _, m := range t.Members {
			head := p.indent(depth+1) + p.member(m)
			typ := p.flatType(m.Type)
			if len(head)+len(typ)+1 > p.Width {
				typ = p.blockType(m.Type, depth+1)
			}
			sb.WriteString(head + typ + ";\n")
		}
		sb.WriteString(p.indent(depth) + "}")
		return sb.String()
	}
	return p.flatType(t)
}

func (p *Printer) member(m PropertySig) string {
	name := PropertyKey(m.Name)
	if m.Optional {
		name += "?"
	}
	return name + ": "
}

// Stmt renders a statement at the given depth, indentation included.
func (p *Printer) Stmt(s Stmt, depth int) string {
	switch s := s.(type) {
	case *ExprStmt:
		return p.indent(depth) + p.Expr(s.X, depth) + ";"
	}
	panic(fmt.Sprintf("tsast: unexpected statement node %T", s))
}

// Expr renders an expression whose first line starts at the current
// position and whose following lines are indented for depth.
func (p *Printer) Expr(e Expr, depth int) string {
	if s, ok := p.flat(e); ok && p.fits(s, depth) {
		return s
	}
	switch e := e.(type) {
	case *ObjectLit:
		if len(e.Props) == 0 {
			return "{}"
		}
		var sb strings.Builder
		sb.WriteString("{\n")
		for _, prop := range e.Props {
			sb.WriteString(p.indent(depth+1) + PropertyKey(prop.Key) + ": " + p.Expr(prop.Value, depth+1) + ",\n")
		}
		sb.WriteString(p.indent(depth) + "}")
		return sb.String()
	case *ArrayLit:
		if len(e.Elems) == 0 {
			return "[]"
		}
		var sb strings.Builder
		sb.WriteString("[\n")
		for _, el := range e.Elems {
			sb.WriteString(p.indent(depth+1) + p.Expr(el, depth+1) + ",\n")
		}
		sb.WriteString(p.indent(depth) + "]")
		return sb.String()
	case *ArrowFunc:
		head := "(" + strings.Join(e.Params, ", ") + ") => {"
		if len(e.Body) == 0 {
			return head + "}"
		}
		var sb strings.Builder
		sb.WriteString(head + "\n")
		for _, s := range e.Body {
			sb.WriteString(p.Stmt(s, depth+1) + "\n")
		}
		sb.WriteString(p.indent(depth) + "}")
		return sb.String()
	case *CallExpr:
		return p.call(e, depth)
	case *MemberExpr:
		return p.Expr(e.Object, depth) + "." + e.Name
	case *NewExpr:
		return "new " + p.Expr(e.Callee, depth) + p.args(e.Args, depth)
	}
	s, _ := p.flat(e)
	return s
}

type segment struct {
	name     string
	typeArgs []Type
	args     []Expr
}

// call prints method chains of two or more calls one call per line.
func (p *Printer) call(c *CallExpr, depth int) string {
	var segs []segment
	var base Expr = c
	for {
		call, ok := base.(*CallExpr)
		if !ok {
			break
		}
		m, ok := call.Callee.(*MemberExpr)
		if !ok {
			break
		}
		segs = append(segs, segment{name: m.Name, typeArgs: call.TypeArgs, args: call.Args})
		base = m.Object
	}
	if len(segs) < 2 {
		return p.Expr(c.Callee, depth) + p.typeArgs(c.TypeArgs) + p.args(c.Args, depth)
	}

	var sb strings.Builder
	sb.WriteString(p.Expr(base, depth))
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		sb.WriteString("\n" + p.indent(depth+1) + "." + s.name + p.typeArgs(s.typeArgs) + p.args(s.args, depth+1))
	}
	return sb.String()
}

func (p *Printer) typeArgs(types []Type) string {
	if len(types) == 0 {
		return ""
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = p.flatType(t)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// args prints an argument list. A trailing function, object or array
// argument hugs the parentheses when the others fit on the line.
func (p *Printer) args(args []Expr, depth int) string {
	flats := make([]string, len(args))
	allFlat := true
	for i, a := range args {
		s, ok := p.flat(a)
		flats[i], allFlat = s, allFlat && ok
	}
	if allFlat {
		if s := "(" + strings.Join(flats, ", ") + ")"; p.fits(s, depth) {
			return s
		}
	}
	if n := len(args); n > 0 && huggable(args[n-1]) {
		headFlat := true
		for _, a := range args[:n-1] {
			if _, ok := p.flat(a); !ok {
				headFlat = false
			}
		}
		if head := strings.Join(flats[:n-1], ", "); headFlat && p.fits(head, depth) {
			if head != "" {
				head += ", "
			}
			return "(" + head + p.Expr(args[n-1], depth) + ")"
		}
	}
	var sb strings.Builder
	sb.WriteString("(\n")
	for _, a := range args {
		sb.WriteString(p.indent(depth+1) + p.Expr(a, depth+1) + ",\n")
	}
	sb.WriteString(p.indent(depth) + ")")
	return sb.String()
}

func huggable(e Expr) bool {
	switch e.(type) {
	case *ArrowFunc, *ObjectLit, *ArrayLit:
		return true
	}
	return false
}

// flat renders e on one line. It fails for functions with a body.
func (p *Printer) flat(e Expr) (string, bool) {
	switch e := e.(type) {
	case *Ident:
		return e.Name, true
	case *StringLit:
		return quote(e.Value), true
	case *NumberLit:
		return e.Text, true
	case *BoolLit:
		if e.Value {
			return "true", true
		}
		return "false", true
	case *NullLit:
		return "null", true
	case *TaggedTemplate:
		return e.Tag + "`" + escapeTemplate(e.Text) + "`", !strings.Contains(e.Text, "\n")
	case *ObjectLit:
		if len(e.Props) == 0 {
			return "{}", true
		}
		parts := make([]string, len(e.Props))
		for i, prop := range e.Props {
			v, ok := p.flat(prop.Value)
			if !ok {
				return "", false
			}
			parts[i] = PropertyKey(prop.Key) + ": " + v
		}
		return "{ " + strings.Join(parts, ", ") + " }", true
	case *ArrayLit:
		parts := make([]string, len(e.Elems))
		for i, el := range e.Elems {
			v, ok := p.flat(el)
			if !ok {
				return "", false
			}
			parts[i] = v
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	case *CallExpr:
		callee, ok := p.flat(e.Callee)
		if !ok {
			return "", false
		}
		args, ok := p.flatList(e.Args)
		return callee + p.typeArgs(e.TypeArgs) + "(" + args + ")", ok
	case *MemberExpr:
		obj, ok := p.flat(e.Object)
		return obj + "." + e.Name, ok
	case *NewExpr:
		callee, ok := p.flat(e.Callee)
		if !ok {
			return "", false
		}
		args, ok := p.flatList(e.Args)
		return "new " + callee + "(" + args + ")", ok
	case *ArrowFunc:
		if len(e.Body) > 0 {
			return "", false
		}
		return "(" + strings.Join(e.Params, ", ") + ") => {}", true
	}
	return "", false
}

func (p *Printer) flatList(list []Expr) (string, bool) {
	parts := make([]string, len(list))
	for i, a := range list {
		v, ok := p.flat(a)
		if !ok {
			return "", false
		}
		parts[i] = v
	}
	return strings.Join(parts, ", "), true
}

func (p *Printer) fits(s string, depth int) bool {
	return !strings.Contains(s, "\n") && len(s)+len(p.indent(depth)) <= p.Width
}

func (p *Printer) indent(depth int) string {
	return strings.Repeat(p.Indent, depth)
}

// IsIdentifier reports whether s can be written as a bare identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// PropertyKey returns name as an object key, quoted when needed.
func PropertyKey(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return quote(name)
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\x%02x`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func escapeTemplate(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return strings.ReplaceAll(s, "${", "\\${")
}
