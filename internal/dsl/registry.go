// Package dsl implements the runtime of the flow DSL. Flow files import it,
// and calling its functions records flows and integrations into a Registry.
//
// A Registry is owned by the caller and serves one build; there is no
// process-wide state.
package dsl

import (
	"fmt"

	"github.com/dop251/goja"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/loader/sandbox"
)

type scope int

const (
	scopeNone scope = iota
	scopeClient
	scopeServer
)

// cursor is the position of the DSL call currently running.
type cursor struct {
	flow  *Flow
	slice *Slice
	scope scope
	spec  *Spec
	rule  *Rule
}

// Registry records what flow files declare.
type Registry struct {
	module       string
	flows        []*Flow
	integrations []*Integration

	e            *sandbox.Executor
	cur          cursor
	items        map[*goja.Object]*item
	integrationJ map[*goja.Object]*Integration
}

// NewRegistry creates an empty registry for the DSL served as module.
func NewRegistry(module string) *Registry {
	if module == "" {
		module = DefaultModule
	}
	return &Registry{
		module:       module,
		items:        make(map[*goja.Object]*item),
		integrationJ: make(map[*goja.Object]*Integration),
	}
}

// ModuleName returns the specifier the registry is served under.
func (r *Registry) ModuleName() string {
	return r.module
}

// Flows returns the registered flows in registration order.
func (r *Registry) Flows() []*Flow {
	return r.flows
}

// Integrations returns the registered integrations in registration order.
func (r *Registry) Integrations() []*Integration {
	return r.integrations
}

// Overrides returns the loader override map that serves the DSL module.
func (r *Registry) Overrides() map[string]any {
	return map[string]any{r.module: r.Module()}
}

// Module returns the native module factory installing the DSL functions.
func (r *Registry) Module() sandbox.Native {
	return func(e *sandbox.Executor) (goja.Value, error) {
		r.e = e
		return r.install(e.Runtime())
	}
}

func (r *Registry) rt() *goja.Runtime {
	return r.e.Runtime()
}

// fail raises a GenerationInputError in the running module.
func (r *Registry) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if cur := r.e.Current(); cur != "" {
		msg = cur + ": " + msg
	}
	r.e.Throw(flowerr.NewGenerationInputError(msg))
}

// within runs fn with the cursor set to c and restores it afterwards.
func (r *Registry) within(c cursor, fn goja.Value, what string) {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		r.fail("%s expects a function", what)
	}
	saved := r.cur
	r.cur = c
	defer func() { r.cur = saved }()
	if _, err := callable(goja.Undefined()); err != nil {
		r.e.Throw(err)
	}
}

func (r *Registry) addIntegration(in *Integration) *Integration {
	for _, existing := range r.integrations {
		if existing.Name == in.Name {
			return existing
		}
	}
	r.integrations = append(r.integrations, in)
	return in
}
