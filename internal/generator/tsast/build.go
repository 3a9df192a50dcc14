package tsast

import (
	"sort"
	"strconv"
	"time"
)

// Id returns an identifier.
func Id(name string) *Ident {
	return &Ident{Name: name}
}

// Str returns a string literal.
func Str(s string) *StringLit {
	return &StringLit{Value: s}
}

// Call returns callee(args...).
func Call(callee Expr, args ...Expr) *CallExpr {
	return &CallExpr{Callee: callee, Args: args}
}

// CallFunc returns name(args...).
func CallFunc(name string, args ...Expr) *CallExpr {
	return Call(Id(name), args...)
}

// Method returns x.name(args...).
func Method(x Expr, name string, args ...Expr) *CallExpr {
	return Call(&MemberExpr{Object: x, Name: name}, args...)
}

// MethodT returns x.name<typeArgs>(args...).
func MethodT(x Expr, name string, typeArgs []Type, args ...Expr) *CallExpr {
	c := Method(x, name, args...)
	c.TypeArgs = typeArgs
	return c
}

// Arrow returns () => { body }.
func Arrow(body ...Stmt) *ArrowFunc {
	return &ArrowFunc{Body: body}
}

// Stmts wraps expressions as statements.
func Stmts(exprs ...Expr) []Stmt {
	out := make([]Stmt, len(exprs))
	for i, e := range exprs {
		out[i] = &ExprStmt{X: e}
	}
	return out
}

// Ref returns a type reference.
func Ref(name string, args ...Type) *TypeRef {
	return &TypeRef{Name: name, Args: args}
}

// DateLayout is the ISO form Date.prototype.toISOString produces.
const DateLayout = "2006-01-02T15:04:05.000Z"

// Value converts example data into a literal expression. Object keys are
// sorted and times become new Date('...') in UTC.
func Value(v any) Expr {
	switch v := v.(type) {
	case nil:
		return &NullLit{}
	case string:
		return Str(v)
	case bool:
		return &BoolLit{Value: v}
	case int:
		return &NumberLit{Text: strconv.Itoa(v)}
	case int32:
		return &NumberLit{Text: strconv.FormatInt(int64(v), 10)}
	case int64:
		return &NumberLit{Text: strconv.FormatInt(v, 10)}
	case float32:
		return &NumberLit{Text: strconv.FormatFloat(float64(v), 'g', -1, 32)}
	case float64:
		return &NumberLit{Text: strconv.FormatFloat(v, 'g', -1, 64)}
	case time.Time:
		return &NewExpr{Callee: Id("Date"), Args: []Expr{Str(v.UTC().Format(DateLayout))}}
	case []any:
		arr := &ArrayLit{Elems: make([]Expr, len(v))}
		for i, e := range v {
			arr.Elems[i] = Value(e)
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := &ObjectLit{Props: make([]Prop, len(keys))}
		for i, k := range keys {
			obj.Props[i] = Prop{Key: k, Value: Value(v[k])}
		}
		return obj
	}
	return &NullLit{}
}
