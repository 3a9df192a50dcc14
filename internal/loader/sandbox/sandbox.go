// Package sandbox runs the modules of a graph inside a goja runtime with an
// injected require. Each module body is compiled as the function
//
//	(function (require, module, exports, __filename, __dirname) { ... })
//
// and runs at most once per Executor.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/loader/graph"
	"martianoff/flowc/internal/pathres"
)

// Native builds the exports of a host module. It is called at most once per
// Executor and specifier.
type Native func(e *Executor) (goja.Value, error)

// Options configures an Executor.
type Options struct {
	// Natives are host modules offered to external specifiers. Nil means
	// DefaultNatives.
	Natives map[string]Native
}

// Executor runs one graph. It is not safe for concurrent use.
type Executor struct {
	rt        *goja.Runtime
	g         *graph.Graph
	natives   map[string]Native
	modules   map[string]*goja.Object
	overrides map[string]goja.Value
	stack     []string
	failure   error
	ctx       context.Context
}

// New creates an Executor for g on rt. A nil rt creates a fresh runtime.
func New(rt *goja.Runtime, g *graph.Graph, opts Options) *Executor {
	if rt == nil {
		rt = goja.New()
	}
	natives := opts.Natives
	if natives == nil {
		natives = DefaultNatives()
	}
	e := &Executor{
		rt:        rt,
		g:         g,
		natives:   natives,
		modules:   make(map[string]*goja.Object),
		overrides: make(map[string]goja.Value),
		ctx:       context.Background(),
	}
	e.installConsole()
	return e
}

// Runtime returns the goja runtime modules run in.
func (e *Executor) Runtime() *goja.Runtime {
	return e.rt
}

// Context returns the context of the running Run call.
func (e *Executor) Context() context.Context {
	return e.ctx
}

// Current returns the path of the module currently executing, or "".
func (e *Executor) Current() string {
	if len(e.stack) == 0 {
		return ""
	}
	return e.stack[len(e.stack)-1]
}

// Run executes the entries in order. Errors thrown by module code are
// returned unchanged as *goja.Exception. Errors raised by the host through
// require or Throw, such as a *flowerr.GraphError, are returned as the
// flowerr value that caused them.
func (e *Executor) Run(ctx context.Context, entries ...string) error {
	for _, entry := range entries {
		if _, err := e.Require(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Require executes the module at path if needed and returns its exports.
func (e *Executor) Require(ctx context.Context, path string) (goja.Value, error) {
	e.ctx = ctx
	e.failure = nil
	v, err := e.exec(pathres.Normalize(path))
	if err != nil && e.failure != nil {
		return nil, e.failure
	}
	return v, err
}

func (e *Executor) exec(path string) (goja.Value, error) {
	if mod, ok := e.modules[path]; ok {
		return mod.Get("exports"), nil
	}
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	m := e.g.Module(path)
	if m == nil {
		return nil, flowerr.NewMissingModuleError(path)
	}

	fn, err := e.compile(m)
	if err != nil {
		return nil, err
	}

	module := e.rt.NewObject()
	exports := e.rt.NewObject()
	_ = module.Set("exports", exports)
	_ = module.Set("id", path)
	_ = module.Set("filename", path)
	_ = module.Set("loaded", false)
	e.modules[path] = module

	ctxlog.FromContext(e.ctx).Debug("module executing", "path", path)
	e.stack = append(e.stack, path)
	_, err = fn(goja.Undefined(),
		e.rt.ToValue(e.requireFor(m)),
		module,
		exports,
		e.rt.ToValue(path),
		e.rt.ToValue(pathres.Dir(path)),
	)
	e.stack = e.stack[:len(e.stack)-1]
	if err != nil {
		delete(e.modules, path)
		return nil, err
	}
	_ = module.Set("loaded", true)
	return module.Get("exports"), nil
}

func (e *Executor) compile(m *graph.Module) (goja.Callable, error) {
	src := "(function (require, module, exports, __filename, __dirname) {\n" + m.Body + "\n})"
	prg, err := goja.Compile(m.Path, src, false)
	if err != nil {
		var cse *goja.CompilerSyntaxError
		if errors.As(err, &cse) {
			return nil, flowerr.NewSyntaxErrorInFile(m.Path, 0, 0, cse.Error())
		}
		return nil, fmt.Errorf("compiling %s: %w", m.Path, err)
	}
	v, err := e.rt.RunProgram(prg)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("compiling %s: module wrapper is not a function", m.Path)
	}
	return fn, nil
}

func (e *Executor) requireFor(m *graph.Module) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		v, err := e.resolve(m, spec)
		if err != nil {
			panic(e.throw(err))
		}
		return v
	}
}

// resolve maps spec through the module's resolution table.
func (e *Executor) resolve(m *graph.Module, spec string) (goja.Value, error) {
	target, ok := m.Targets[spec]
	if !ok {
		target = graph.Target{Kind: graph.External}
	}
	switch target.Kind {
	case graph.Virtual:
		return e.exec(target.Path)
	case graph.Override:
		return e.override(spec)
	}
	if native, ok := e.natives[spec]; ok {
		return e.native(spec, native)
	}
	return nil, flowerr.NewUnresolvedError(m.Path, spec)
}

func (e *Executor) override(spec string) (goja.Value, error) {
	if v, ok := e.overrides[spec]; ok {
		return v, nil
	}
	raw := e.g.Overrides[spec]
	var (
		v   goja.Value
		err error
	)
	switch x := raw.(type) {
	case Native:
		v, err = x(e)
	case func(e *Executor) (goja.Value, error):
		v, err = x(e)
	case goja.Value:
		v = x
	default:
		v = e.rt.ToValue(x)
	}
	if err != nil {
		return nil, fmt.Errorf("instantiating %q: %w", spec, err)
	}
	e.overrides[spec] = v
	return v, nil
}

func (e *Executor) native(spec string, n Native) (goja.Value, error) {
	key := "native:" + spec
	if v, ok := e.overrides[key]; ok {
		return v, nil
	}
	v, err := n(e)
	if err != nil {
		return nil, fmt.Errorf("instantiating %q: %w", spec, err)
	}
	e.overrides[key] = v
	return v, nil
}

// throw turns err into the value panicked from a Go callback. Exceptions
// raised by nested module code keep their identity.
func (e *Executor) throw(err error) any {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex
	}
	var fe flowerr.FlowError
	if errors.As(err, &fe) && e.failure == nil {
		e.failure = fe
	}
	return e.rt.NewGoError(err)
}

// Throw raises err inside the runtime from a Go callback. It never returns.
func (e *Executor) Throw(err error) {
	panic(e.throw(err))
}
