// Package gotemplate implements engine.Engine with text/template. Partials
// are associated templates, called with {{ template "name" . }}, and helpers
// are merged over the tfunc builtins.
package gotemplate

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"reflect"
	"regexp"
	"text/template"

	"github.com/hashicorp/tmplstream/engine"
	"github.com/hashicorp/tmplstream/tfunc"
	"github.com/pkg/errors"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	validName = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)
)

// Input is used to configure the engine.
type Input struct {
	// LeftDelim and RightDelim are the template delimiters.
	LeftDelim  string
	RightDelim string

	// ErrMissingKey causes template execution to fail when a map is indexed
	// with a key that does not exist.
	ErrMissingKey bool

	// FuncMapMerge a map of functions that add-to or override the builtins.
	// Registered helpers take precedence over both.
	FuncMapMerge template.FuncMap

	// Deny lists builtin functions that always fail when called.
	Deny []string
}

// Engine compiles text/template templates against its registry.
type Engine struct {
	*engine.Registry

	leftDelim     string
	rightDelim    string
	errMissingKey bool
	funcMapMerge  template.FuncMap
	deny          []string
}

// check for interface compliance
var _ engine.Engine = (*Engine)(nil)

// New creates a new Engine from the given input.
func New(i Input) *Engine {
	return &Engine{
		Registry:      engine.NewRegistry(),
		leftDelim:     i.LeftDelim,
		rightDelim:    i.RightDelim,
		errMissingKey: i.ErrMissingKey,
		funcMapMerge:  i.FuncMapMerge,
		deny:          i.Deny,
	}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "gotemplate" }

// RegisterPartial implements engine.Engine.
func (e *Engine) RegisterPartial(name, contents string) error {
	if name == "" {
		return errors.Wrap(engine.ErrInvalidName, "gotemplate: partial")
	}
	e.SavePartial(name, contents)
	return nil
}

// RegisterHelper implements engine.Engine. The name must be a valid
// identifier and the function must return a single value or (value, error),
// otherwise text/template would panic at compile time.
func (e *Engine) RegisterHelper(name string, fn interface{}) error {
	if !validName.MatchString(name) {
		return errors.Wrapf(engine.ErrInvalidName, "gotemplate: helper %q", name)
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
			"gotemplate: helper %q must return a value or (value, error)", name)
	}
	e.SaveHelper(name, fn)
	return nil
}

// Compile implements engine.Engine. Every registered partial is parsed as a
// template associated with the compiled one.
func (e *Engine) Compile(contents string) (engine.Template, error) {
	tmpl := template.New(id(contents))
	tmpl.Delims(e.leftDelim, e.rightDelim)
	tmpl.Funcs(e.funcMap())

	if e.errMissingKey {
		tmpl.Option("missingkey=error")
	} else {
		tmpl.Option("missingkey=zero")
	}

	for name, text := range e.Partials() {
		if _, err := tmpl.New(name).Parse(text); err != nil {
			return nil, errors.Wrapf(err, "parse partial %q", name)
		}
	}

	tmpl, err := tmpl.Parse(contents)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	return &compiled{tmpl: tmpl}, nil
}

// funcMap layers the builtins, the merged functions and the registered
// helpers, in increasing precedence.
func (e *Engine) funcMap() template.FuncMap {
	r := tfunc.All()
	tfunc.Deny(r, e.deny...)
	for k, v := range e.funcMapMerge {
		r[k] = v
	}
	for k, v := range e.Helpers() {
		r[k] = v
	}
	return r
}

type compiled struct {
	tmpl *template.Template
}

// Execute evaluates the template with data as dot.
func (c *compiled) Execute(data interface{}) ([]byte, error) {
	var b bytes.Buffer
	if err := c.tmpl.Execute(&b, data); err != nil {
		return nil, errors.Wrap(err, "execute")
	}
	return b.Bytes(), nil
}

// placeholder stands in for a helper value that is not a function.
func placeholder(name string, v interface{}) interface{} {
	err := engine.NotCallable(name, v)
	return func(...interface{}) (interface{}, error) {
		return nil, err
	}
}

// id names the root template after the hex MD5 of its contents.
func id(contents string) string {
	hash := md5.Sum([]byte(contents))
	return hex.EncodeToString(hash[:])
}
