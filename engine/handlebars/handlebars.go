// Package handlebars implements engine.Engine with the raymond handlebars
// implementation. It is the default engine of a transform.
package handlebars

import (
	"fmt"
	"reflect"

	"github.com/aymerick/raymond"
	"github.com/hashicorp/tmplstream/engine"
	"github.com/pkg/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Engine keeps partials and helpers in its own registry and attaches them to
// every template it compiles, so nothing leaks into raymond's global tables.
type Engine struct {
	*engine.Registry
}

// check for interface compliance
var _ engine.Engine = (*Engine)(nil)

// New returns an Engine with an empty registry.
func New() *Engine {
	return &Engine{Registry: engine.NewRegistry()}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "handlebars" }

// RegisterPartial implements engine.Engine.
func (e *Engine) RegisterPartial(name, contents string) error {
	if name == "" {
		return errors.Wrap(engine.ErrInvalidName, "handlebars: partial")
	}
	e.SavePartial(name, contents)
	return nil
}

// RegisterHelper implements engine.Engine. Functions returning (value, error)
// are adapted so a non-nil error fails the evaluation.
func (e *Engine) RegisterHelper(name string, fn interface{}) error {
	if name == "" {
		return errors.Wrap(engine.ErrInvalidName, "handlebars: helper")
	}
	h, err := helperFunc(name, fn)
	if err != nil {
		return err
	}
	e.SaveHelper(name, h)
	return nil
}

// Compile implements engine.Engine.
func (e *Engine) Compile(contents string) (engine.Template, error) {
	tpl, err := raymond.Parse(contents)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	// registry entries were validated on the way in, so these cannot panic
	tpl.RegisterPartials(e.Partials())
	tpl.RegisterHelpers(e.Helpers())
	return &template{tpl: tpl}, nil
}

type template struct {
	tpl *raymond.Template
}

// Execute evaluates the template with data as the root context.
func (t *template) Execute(data interface{}) (out []byte, err error) {
	// raymond converts error panics itself, anything else lands here
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("execute: panic: %v", r)
		}
	}()

	s, err := t.tpl.Exec(data)
	if err != nil {
		return nil, errors.Wrap(err, "execute")
	}
	return []byte(s), nil
}

// helperFunc validates fn against what raymond can call.
func helperFunc(name string, fn interface{}) (interface{}, error) {
	if !engine.IsCallable(fn) {
		return placeholder(name, fn), nil
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	switch {
	case t.NumOut() == 1:
		return fn, nil
	case t.NumOut() == 2 && t.Out(1).Implements(errorType):
		return dropError(name, v).Interface(), nil
	}
	return nil, errors.Wrapf(engine.ErrBadHelper,
		"handlebars: helper %q must return a value or (value, error)", name)
}

// placeholder stands in for a helper value that is not a function.
func placeholder(name string, v interface{}) interface{} {
	err := engine.NotCallable(name, v)
	return func(options *raymond.Options) interface{} {
		panic(err)
	}
}

// dropError turns a func(...) (T, error) into a func(...) T which panics with
// the error. raymond recovers error panics and returns them from Exec.
func dropError(name string, v reflect.Value) reflect.Value {
	t := v.Type()
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}
	ft := reflect.FuncOf(in, []reflect.Type{t.Out(0)}, t.IsVariadic())

	return reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		var out []reflect.Value
		if t.IsVariadic() {
			out = v.CallSlice(args)
		} else {
			out = v.Call(args)
		}
		if err, ok := out[1].Interface().(error); ok && err != nil {
			panic(errors.Wrapf(err, "helper %s", name))
		}
		return out[:1]
	})
}
