package dsl

import (
	"math"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

// exportData converts an example payload to Go values. Objects become
// map[string]any, arrays []any, dates time.Time (UTC), integral numbers
// int64 and other numbers float64. Functions and undefined are dropped.
func exportData(v goja.Value) (map[string]any, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return map[string]any{}, true
	}
	m, ok := clean(v.Export()).(map[string]any)
	return m, ok
}

func clean(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if isFunc(e) {
				continue
			}
			out[k] = clean(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if isFunc(e) {
				continue
			}
			out = append(out, clean(e))
		}
		return out
	case time.Time:
		return x.UTC()
	case int:
		return int64(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) <= 1<<53 {
			return int64(x)
		}
		return x
	}
	return v
}

func isFunc(v any) bool {
	_, ok := v.(func(goja.FunctionCall) goja.Value)
	return ok
}

// elements returns the items of a JavaScript array. ok is false for any
// other value.
func elements(v goja.Value) ([]goja.Value, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() != "Array" {
		return nil, false
	}
	n := int(obj.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := range n {
		out[i] = obj.Get(strconv.Itoa(i))
	}
	return out, true
}

// flatten expands array arguments one level and drops undefined and null.
func flatten(args []goja.Value) []goja.Value {
	var out []goja.Value
	for _, a := range args {
		if a == nil || goja.IsUndefined(a) || goja.IsNull(a) {
			continue
		}
		if items, ok := elements(a); ok {
			out = append(out, items...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// optString returns the string value of an optional argument.
func optString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
