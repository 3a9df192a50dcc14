package typeinfo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/internal/typeinfo"
)

func TestParseType(t *testing.T) {
	e := typeinfo.ParseType("{ id: string; tags?: string[]; price: Array<number> }[]")
	require.Equal(t, typeinfo.ExprArray, e.Kind)
	obj := e.Elem
	require.Equal(t, typeinfo.ExprObject, obj.Kind)
	require.Len(t, obj.Members, 3)
	assert.Equal(t, "id", obj.Members[0].Name)
	assert.Equal(t, typeinfo.ExprKeyword, obj.Members[0].Type.Kind)
	assert.True(t, obj.Members[1].Optional)
	assert.Equal(t, typeinfo.ExprArray, obj.Members[1].Type.Kind)
	assert.Equal(t, typeinfo.ExprArray, obj.Members[2].Type.Kind)
	assert.Equal(t, "{ id: string; tags?: string[]; price: Array<number> }[]", e.Text)

	u := typeinfo.ParseType("'a' | 'b' | 'c'")
	require.True(t, u.IsUnion())
	assert.Len(t, u.Options, 3)
	assert.Equal(t, typeinfo.ExprLiteral, u.Options[0].Kind)

	g := typeinfo.ParseType("Record<string, number>")
	assert.Equal(t, typeinfo.ExprGeneric, g.Kind)
	assert.Len(t, g.Args, 2)

	assert.True(t, typeinfo.ParseType("unknown").IsWeak())
	assert.True(t, typeinfo.ParseType("").IsWeak())
	assert.Equal(t, typeinfo.ExprRef, typeinfo.ParseType("Date").Kind)
	assert.Equal(t, typeinfo.ExprOther, typeinfo.ParseType("{ broken").Kind)
}

func TestScoreOrdering(t *testing.T) {
	scores := []string{"unknown", "string", "string[]", "{ id: string }", "{ id: string }[]"}
	for i := 1; i < len(scores); i++ {
		assert.Greater(t,
			typeinfo.ParseType(scores[i]).Score(),
			typeinfo.ParseType(scores[i-1]).Score(),
			"%s should score above %s", scores[i], scores[i-1])
	}
}

func TestMoreStructural(t *testing.T) {
	tests := []struct {
		candidate, existing string
		want                bool
	}{
		{"{ id: string }[]", "unknown", true},
		{"{ id: string }[]", "unknown[]", true},
		{"string", "unknown", true},
		{"string", "string", false},
		{"unknown", "string", false},
		{"{ id: string }[]", "string | { id: string }[]", false},
		{"{ id: string }[]", "Array<unknown>", true},
		{"{ id: string }[][]", "unknown[][]", true},
		{"{ id: string; price: number }[]", "{ id: string }[]", false},
		{"string[]", "string", false},
		{"{ amount: number; currency: string }", "Money", false},
		{"{ id: string }[]", "Item[]", false},
		{"{ a: string }", "object", true},
	}
	for _, tt := range tests {
		t.Run(tt.candidate+" over "+tt.existing, func(t *testing.T) {
			assert.Equal(t, tt.want, typeinfo.MoreStructural(tt.candidate, tt.existing))
		})
	}
}
