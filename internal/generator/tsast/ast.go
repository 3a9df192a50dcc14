// Package tsast is a small TypeScript syntax tree covering what generated
// flow files contain: imports, type aliases, call chains, arrow functions
// and literals. Print renders a File as source text.
package tsast

// Node is any syntax tree node.
type Node interface {
	node()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Type is a type expression node.
type Type interface {
	Node
	typeNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// File is one source file.
type File struct {
	Imports []*ImportDecl
	Types   []*TypeAlias
	Body    []Stmt
}

// ImportDecl is `import { a, b } from 'from';`, or `import type` when
// TypeOnly is set.
type ImportDecl struct {
	Names    []string
	From     string
	TypeOnly bool
}

// TypeAlias is `type Name = Type;`.
type TypeAlias struct {
	Name   string
	Type   Type
	Export bool
}

type (
	// Ident is an identifier.
	Ident struct {
		Name string
	}

	// StringLit is a string literal; Value is unquoted.
	StringLit struct {
		Value string
	}

	// NumberLit is a numeric literal; Text is its source form.
	NumberLit struct {
		Text string
	}

	// BoolLit is true or false.
	BoolLit struct {
		Value bool
	}

	// NullLit is null.
	NullLit struct{}

	// ObjectLit is an object literal.
	ObjectLit struct {
		Props []Prop
	}

	// ArrayLit is an array literal.
	ArrayLit struct {
		Elems []Expr
	}

	// CallExpr is Callee<TypeArgs>(Args).
	CallExpr struct {
		Callee   Expr
		TypeArgs []Type
		Args     []Expr
	}

	// MemberExpr is Object.Name.
	MemberExpr struct {
		Object Expr
		Name   string
	}

	// NewExpr is new Callee(Args).
	NewExpr struct {
		Callee Expr
		Args   []Expr
	}

	// ArrowFunc is (Params) => { Body }.
	ArrowFunc struct {
		Params []string
		Body   []Stmt
	}

	// TaggedTemplate is Tag`Text`.
	TaggedTemplate struct {
		Tag  string
		Text string
	}
)

// Prop is one key: value pair of an object literal.
type Prop struct {
	Key   string
	Value Expr
}

type (
	// TypeRef is a named type with optional type arguments.
	TypeRef struct {
		Name string
		Args []Type
	}

	// KeywordType is string, number, boolean, unknown and the like.
	KeywordType struct {
		Name string
	}

	// LiteralType is a literal used as a type; Text is its source form.
	LiteralType struct {
		Text string
	}

	// StringType is a string literal type such as 'CreateItem'.
	StringType struct {
		Value string
	}

	// ArrayType is Elem[].
	ArrayType struct {
		Elem Type
	}

	// UnionType is A | B.
	UnionType struct {
		Types []Type
	}

	// TypeLiteral is { a: T; b?: U }.
	TypeLiteral struct {
		Members []PropertySig
	}

	// RawType is type text printed as is.
	RawType struct {
		Text string
	}
)

// PropertySig is one member of a TypeLiteral.
type PropertySig struct {
	Name     string
	Optional bool
	Type     Type
}

// ExprStmt is an expression statement.
type ExprStmt struct {
	X Expr
}

func (*File) node()           {}
func (*ImportDecl) node()     {}
func (*TypeAlias) node()      {}
func (*Ident) node()          {}
func (*StringLit) node()      {}
func (*NumberLit) node()      {}
func (*BoolLit) node()        {}
func (*NullLit) node()        {}
func (*ObjectLit) node()      {}
func (*ArrayLit) node()       {}
func (*CallExpr) node()       {}
func (*MemberExpr) node()     {}
func (*NewExpr) node()        {}
func (*ArrowFunc) node()      {}
func (*TaggedTemplate) node() {}
func (*TypeRef) node()        {}
func (*KeywordType) node()    {}
func (*LiteralType) node()    {}
func (*StringType) node()     {}
func (*ArrayType) node()      {}
func (*UnionType) node()      {}
func (*TypeLiteral) node()    {}
func (*RawType) node()        {}
func (*ExprStmt) node()       {}

func (*Ident) exprNode()          {}
func (*StringLit) exprNode()      {}
func (*NumberLit) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NullLit) exprNode()        {}
func (*ObjectLit) exprNode()      {}
func (*ArrayLit) exprNode()       {}
func (*CallExpr) exprNode()       {}
func (*MemberExpr) exprNode()     {}
func (*NewExpr) exprNode()        {}
func (*ArrowFunc) exprNode()      {}
func (*TaggedTemplate) exprNode() {}

func (*TypeRef) typeNode()     {}
func (*KeywordType) typeNode() {}
func (*LiteralType) typeNode() {}
func (*StringType) typeNode()  {}
func (*ArrayType) typeNode()   {}
func (*UnionType) typeNode()   {}
func (*TypeLiteral) typeNode() {}
func (*RawType) typeNode()     {}

func (*ExprStmt) stmtNode() {}
