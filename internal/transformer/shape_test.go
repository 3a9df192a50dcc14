package transformer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShapeOf(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "a", "string"},
		{"integer", int64(1), "number"},
		{"float", 1.5, "number"},
		{"bool", true, "boolean"},
		{"date", time.Now(), "Date"},
		{"null", nil, "unknown"},
		{"empty array", []any{}, "unknown[]"},
		{"mixed array", []any{"a", int64(1)}, "(number | string)[]"},
		{"object", map[string]any{"b": "x", "a": int64(1)}, "{ a: number; b: string }"},
		{"empty object", map[string]any{}, "{}"},
		{"quoted key", map[string]any{"first-name": "x"}, "{ 'first-name': string }"},
		{
			"objects merged",
			[]any{map[string]any{"id": "a", "price": 1.0}, map[string]any{"id": "b", "tags": []any{"x"}}},
			"{ id: string; price?: number; tags?: string[] }[]",
		},
		{"null element", []any{nil, "a"}, "string[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shapeOf(tt.value).String())
		})
	}
}

func TestMergeUnionIsOrderIndependent(t *testing.T) {
	a := merge(shapeOf("x"), shapeOf(true))
	b := merge(shapeOf(true), shapeOf("x"))
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "boolean | string", a.String())
}
