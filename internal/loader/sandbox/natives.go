package sandbox

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dop251/goja"

	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/pathres"
)

// DefaultNatives returns the host modules available to every graph.
func DefaultNatives() map[string]Native {
	return map[string]Native{
		"path":        pathModule,
		"node:path":   pathModule,
		"assert":      assertModule,
		"node:assert": assertModule,
	}
}

func pathModule(e *Executor) (goja.Value, error) {
	rt := e.Runtime()
	obj := rt.NewObject()
	strs := func(call goja.FunctionCall) []string {
		out := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			out[i] = a.String()
		}
		return out
	}
	_ = obj.Set("sep", "/")
	_ = obj.Set("join", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(pathres.Join(strs(call)...))
	})
	_ = obj.Set("resolve", func(call goja.FunctionCall) goja.Value {
		p := "/"
		for _, s := range strs(call) {
			if pathres.IsAbsolute(s) {
				p = s
			} else {
				p = pathres.Join(p, s)
			}
		}
		return rt.ToValue(pathres.Normalize(p))
	})
	_ = obj.Set("normalize", func(p string) string { return pathres.Normalize(p) })
	_ = obj.Set("dirname", func(p string) string { return pathres.Dir(p) })
	_ = obj.Set("basename", func(p string, ext goja.Value) string {
		base := pathres.Base(p)
		if ext != nil && !goja.IsUndefined(ext) {
			base = strings.TrimSuffix(base, ext.String())
		}
		return base
	})
	_ = obj.Set("extname", func(p string) string { return pathres.Ext(p) })
	_ = obj.Set("isAbsolute", func(p string) bool { return pathres.IsAbsolute(p) })
	return obj, nil
}

func assertModule(e *Executor) (goja.Value, error) {
	rt := e.Runtime()
	fail := func(msg goja.Value, def string) {
		text := def
		if msg != nil && !goja.IsUndefined(msg) {
			text = msg.String()
		}
		panic(rt.NewTypeError("AssertionError: %s", text))
	}
	ok := func(call goja.FunctionCall) goja.Value {
		if !call.Argument(0).ToBoolean() {
			fail(call.Argument(1), "value is falsy")
		}
		return goja.Undefined()
	}
	equal := func(call goja.FunctionCall) goja.Value {
		a, b := call.Argument(0), call.Argument(1)
		if !a.StrictEquals(b) {
			fail(call.Argument(2), fmt.Sprintf("%s !== %s", a, b))
		}
		return goja.Undefined()
	}
	deepEqual := func(call goja.FunctionCall) goja.Value {
		a, b := call.Argument(0).Export(), call.Argument(1).Export()
		if !reflect.DeepEqual(a, b) {
			fail(call.Argument(2), "values are not deeply equal")
		}
		return goja.Undefined()
	}
	obj := rt.ToValue(ok).(*goja.Object)
	_ = obj.Set("ok", ok)
	_ = obj.Set("equal", equal)
	_ = obj.Set("strictEqual", equal)
	_ = obj.Set("deepEqual", deepEqual)
	_ = obj.Set("deepStrictEqual", deepEqual)
	return obj, nil
}

// installConsole routes console output to the context logger.
func (e *Executor) installConsole() {
	console := e.rt.NewObject()
	logAt := func(level string) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			log := ctxlog.FromContext(e.ctx).With("module", e.Current())
			msg := strings.Join(parts, " ")
			switch level {
			case "warn":
				log.Warn(msg)
			case "error":
				log.Error(msg)
			default:
				log.Debug(msg)
			}
			return goja.Undefined()
		}
	}
	for _, name := range []string{"log", "info", "debug"} {
		_ = console.Set(name, logAt("debug"))
	}
	_ = console.Set("warn", logAt("warn"))
	_ = console.Set("error", logAt("error"))
	_ = e.rt.Set("console", console)
}
