// Package pongo implements engine.Engine with pongo2, a Django-syntax
// template language. Partials are served from the registry through an
// in-memory loader and included with {% include "name" %}. Helpers are
// placed into the execution context next to the data.
package pongo

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"regexp"

	"github.com/flosch/pongo2/v6"
	"github.com/hashicorp/tmplstream/engine"
	"github.com/pkg/errors"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	validName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// DataKey is the context key non-map data is stored under.
const DataKey = "data"

// Engine compiles pongo2 templates against its registry.
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
func (e *Engine) Name() string { return "pongo" }

// RegisterPartial implements engine.Engine.
func (e *Engine) RegisterPartial(name, contents string) error {
	if name == "" {
		return errors.Wrap(engine.ErrInvalidName, "pongo: partial")
	}
	e.SavePartial(name, contents)
	return nil
}

// RegisterHelper implements engine.Engine. Names must be valid pongo2
// context identifiers.
func (e *Engine) RegisterHelper(name string, fn interface{}) error {
	if !validName.MatchString(name) {
		return errors.Wrapf(engine.ErrInvalidName, "pongo: helper %q", name)
	}
	if !engine.IsCallable(fn) {
		e.SaveHelper(name, placeholder(name, fn))
		return nil
	}
	t := reflect.TypeOf(fn)
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return errors.Wrapf(engine.ErrBadHelper,
			"pongo: helper %q must return a value or (value, error)", name)
	}
	e.SaveHelper(name, fn)
	return nil
}

// Compile implements engine.Engine. Each compilation gets its own template
// set so includes resolve against the partials registered at that moment.
func (e *Engine) Compile(contents string) (engine.Template, error) {
	set := pongo2.NewSet("tmplstream", &partialLoader{partials: e.Partials()})
	tpl, err := set.FromString(contents)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	return &template{tpl: tpl, helpers: e.Helpers()}, nil
}

type template struct {
	tpl     *pongo2.Template
	helpers map[string]interface{}
}

// Execute evaluates the template. Map data is spread into the context,
// anything else is available as DataKey. Helpers shadow data keys.
func (t *template) Execute(data interface{}) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("execute: panic: %v", r)
		}
	}()

	ctx := toContext(data)
	for k, v := range t.helpers {
		ctx[k] = v
	}
	b, err := t.tpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "execute")
	}
	return b, nil
}

// toContext converts data into a pongo2.Context.
func toContext(data interface{}) pongo2.Context {
	ctx := make(pongo2.Context)
	switch d := data.(type) {
	case nil:
	case pongo2.Context:
		for k, v := range d {
			ctx[k] = v
		}
	case map[string]interface{}:
		for k, v := range d {
			ctx[k] = v
		}
	default:
		ctx[DataKey] = data
	}
	return ctx
}

// partialLoader implements pongo2.TemplateLoader over a registry snapshot.
type partialLoader struct {
	partials map[string]string
}

// Abs returns name unchanged, partials are flat.
func (l *partialLoader) Abs(base, name string) string {
	return name
}

// Get returns the partial text registered under path.
func (l *partialLoader) Get(path string) (io.Reader, error) {
	p, ok := l.partials[path]
	if !ok {
		return nil, fmt.Errorf("partial %q not registered", path)
	}
	return bytes.NewBufferString(p), nil
}

// placeholder stands in for a helper value that is not a function.
func placeholder(name string, v interface{}) interface{} {
	err := engine.NotCallable(name, v)
	return func(...interface{}) (interface{}, error) {
		return nil, err
	}
}
