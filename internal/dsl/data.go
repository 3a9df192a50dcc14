package dsl

import (
	"github.com/dop251/goja"

	"martianoff/flowc/internal/model"
)

// item is a sink() or source() under construction.
type item struct {
	sink bool
	data model.DataItem
}

// data(items) or data(...items) sets the data declarations of a server block.
func (r *Registry) dataFn(call goja.FunctionCall) goja.Value {
	if r.cur.scope != scopeServer {
		r.fail("data() must be called inside server()")
	}
	server := r.cur.slice.Server
	for _, v := range flatten(call.Arguments) {
		it := r.lookupItem(v)
		if it == nil {
			r.fail("data() expects sink() or source() items")
		}
		if it.data.Target.Name == "" {
			r.fail("data item has no message; call .event(), .command() or .state()")
		}
		if it.sink && it.data.Destination == nil {
			r.fail("sink for %q has no destination", it.data.Target.Name)
		}
		if !it.sink && it.data.Origin == nil {
			r.fail("source for %q has no origin", it.data.Target.Name)
		}
		server.Data = append(server.Data, it.data)
	}
	return goja.Undefined()
}

func (r *Registry) lookupItem(v goja.Value) *item {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return r.items[obj]
}

func (r *Registry) itemObject(it *item) *goja.Object {
	obj := r.rt().NewObject()
	r.items[obj] = it
	return obj
}

func chainOn(obj *goja.Object, name string, fn func(goja.FunctionCall)) {
	_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
		fn(call)
		return obj
	})
}

func targetMethods(obj *goja.Object, it *item) {
	for _, kind := range []model.MessageType{model.MessageEvent, model.MessageCommand, model.MessageState} {
		chainOn(obj, string(kind), func(call goja.FunctionCall) {
			it.data.Target = model.Target{Type: kind, Name: optString(call.Argument(0))}
		})
	}
}

// sink() builds a data item that writes a message somewhere.
func (r *Registry) sinkFn(goja.FunctionCall) goja.Value {
	it := &item{sink: true}
	obj := r.itemObject(it)
	targetMethods(obj, it)

	dest := func(d model.Destination) {
		it.data.Destination = &d
	}
	chainOn(obj, "toStream", func(call goja.FunctionCall) {
		dest(model.Destination{Type: "stream", Pattern: optString(call.Argument(0))})
	})
	chainOn(obj, "toIntegration", func(call goja.FunctionCall) {
		dest(model.Destination{
			Type:        "integration",
			Integration: r.integrationName(call.Argument(0)),
			Operation:   optString(call.Argument(1)),
		})
	})
	chainOn(obj, "toDatabase", func(call goja.FunctionCall) {
		dest(model.Destination{Type: "database", Collection: optString(call.Argument(0))})
	})
	chainOn(obj, "toTopic", func(call goja.FunctionCall) {
		dest(model.Destination{Type: "topic", Topic: optString(call.Argument(0))})
	})
	chainOn(obj, "withState", func(call goja.FunctionCall) {
		src := r.lookupItem(call.Argument(0))
		if src == nil || src.sink {
			r.fail("withState() expects a source() item")
		}
		state := src.data
		it.data.WithState = &state
	})
	return obj
}

// source() builds a data item that reads a message from somewhere.
func (r *Registry) sourceFn(goja.FunctionCall) goja.Value {
	it := &item{}
	obj := r.itemObject(it)
	targetMethods(obj, it)

	origin := func(o model.Origin) {
		it.data.Origin = &o
	}
	chainOn(obj, "fromProjection", func(call goja.FunctionCall) {
		origin(model.Origin{Type: "projection", Name: optString(call.Argument(0)), IDField: optString(call.Argument(1))})
	})
	chainOn(obj, "fromIntegration", func(call goja.FunctionCall) {
		origin(model.Origin{
			Type:        "integration",
			Integration: r.integrationName(call.Argument(0)),
			Operation:   optString(call.Argument(1)),
		})
	})
	chainOn(obj, "fromDatabase", func(call goja.FunctionCall) {
		origin(model.Origin{Type: "database", Collection: optString(call.Argument(0))})
	})
	chainOn(obj, "fromApi", func(call goja.FunctionCall) {
		method := optString(call.Argument(1))
		if method == "" {
			method = "GET"
		}
		origin(model.Origin{Type: "api", Endpoint: optString(call.Argument(0)), Method: method})
	})
	return obj
}
