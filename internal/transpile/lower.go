package transpile

import (
	"context"
	"sort"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"martianoff/flowc/internal/tsparse"
)

// TypedMethods are the example builder methods whose type argument names the
// message the payload belongs to.
var TypedMethods = map[string]bool{
	"given": true,
	"and":   true,
	"when":  true,
	"then":  true,
}

// TypedCall is the builder method the lowering inserts.
const TypedCall = "typed"

type insertion struct {
	at   uint32
	text string
}

// LowerTypeArguments rewrites `.when<CreateItem>(...)` into
// `.typed("CreateItem").when<CreateItem>(...)` so the message name survives
// type erasure. The remaining type argument is removed by the transpiler.
func LowerTypeArguments(ctx context.Context, path string, src []byte) ([]byte, error) {
	f, err := tsparse.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ins []insertion
	tsparse.Walk(f.Root(), func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		targs := n.ChildByFieldName("type_arguments")
		fn := n.ChildByFieldName("function")
		if targs == nil || fn == nil || fn.Type() != "member_expression" {
			return true
		}
		prop := fn.ChildByFieldName("property")
		if prop == nil || !TypedMethods[f.Text(prop)] {
			return true
		}
		args := tsparse.NamedChildren(targs)
		if len(args) == 0 {
			return true
		}
		name := typeName(f, args[0])
		ins = append(ins, insertion{
			at:   prop.StartByte(),
			text: TypedCall + "(" + strconv.Quote(name) + ").",
		})
		return true
	})
	if len(ins) == 0 {
		return src, nil
	}
	return apply(src, ins), nil
}

// typeName is the referenced name of a type argument: the base of a generic
// or qualified reference, otherwise the normalized text.
func typeName(f *tsparse.File, n *sitter.Node) string {
	switch n.Type() {
	case "generic_type":
		return typeName(f, n.ChildByFieldName("name"))
	case "nested_type_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return f.Text(name)
		}
	}
	return tsparse.NormalizeSpace(f.Text(n))
}

// apply performs the insertions back to front so earlier offsets stay valid.
func apply(src []byte, ins []insertion) []byte {
	sort.SliceStable(ins, func(i, j int) bool { return ins[i].at > ins[j].at })
	out := append([]byte(nil), src...)
	for _, in := range ins {
		tail := append([]byte(in.text), out[in.at:]...)
		out = append(out[:in.at], tail...)
	}
	return out
}
