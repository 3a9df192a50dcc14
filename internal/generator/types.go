package generator

import (
	"strings"

	"martianoff/flowc/internal/generator/tsast"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/tsparse"
	"martianoff/flowc/internal/typeinfo"
)

// markers maps message kinds to the generic type that declares them.
var markers = map[model.MessageType]string{
	model.MessageCommand: "Command",
	model.MessageEvent:   "Event",
	model.MessageState:   "State",
}

// messageAlias declares msg as `type Name = Kind<'Name', { ...fields }>`.
func messageAlias(msg model.Message) *tsast.TypeAlias {
	lit := &tsast.TypeLiteral{}
	for _, f := range msg.Fields {
		lit.Members = append(lit.Members, tsast.PropertySig{
			Name:     f.Name,
			Optional: !f.Required,
			Type:     fieldType(f.Type),
		})
	}
	return &tsast.TypeAlias{
		Name:   msg.Name,
		Export: true,
		Type:   tsast.Ref(markers[msg.Type], &tsast.StringType{Value: msg.Name}, lit),
	}
}

// fieldType re-derives the syntax of a structural type string.
func fieldType(text string) tsast.Type {
	return typeNode(typeinfo.ParseType(text))
}

func typeNode(e *typeinfo.TypeExpr) tsast.Type {
	switch e.Kind {
	case typeinfo.ExprKeyword:
		return &tsast.KeywordType{Name: e.Name}
	case typeinfo.ExprRef:
		return tsast.Ref(e.Name)
	case typeinfo.ExprLiteral:
		if strings.HasPrefix(e.Name, "'") || strings.HasPrefix(e.Name, `"`) {
			return &tsast.StringType{Value: tsparse.Unquote(e.Name)}
		}
		return &tsast.LiteralType{Text: e.Name}
	case typeinfo.ExprArray:
		return &tsast.ArrayType{Elem: typeNode(e.Elem)}
	case typeinfo.ExprObject:
		lit := &tsast.TypeLiteral{}
		for _, m := range e.Members {
			lit.Members = append(lit.Members, tsast.PropertySig{Name: m.Name, Optional: m.Optional, Type: typeNode(m.Type)})
		}
		return lit
	case typeinfo.ExprUnion:
		u := &tsast.UnionType{}
		for _, o := range e.Options {
			u.Types = append(u.Types, typeNode(o))
		}
		return u
	case typeinfo.ExprGeneric:
		args := make([]tsast.Type, len(e.Args))
		for i, a := range e.Args {
			args[i] = typeNode(a)
		}
		return tsast.Ref(e.Name, args...)
	}
	return &tsast.RawType{Text: e.Text}
}
