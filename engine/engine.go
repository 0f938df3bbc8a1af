/*
Public template engine types.

This sub-package holds the interfaces a template engine must implement to be
driven by a transform, and the registration table every engine owns. The
engines themselves live in the handlebars, gotemplate and pongo sub-packages.
*/
package engine

import (
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrNotCallable is returned (at invocation time) by the placeholder an
	// engine registers when a helper value is not a function.
	ErrNotCallable = errors.New("helper is not callable")

	// ErrInvalidName is returned when a partial or helper name is empty or
	// cannot be used by the engine's template syntax.
	ErrInvalidName = errors.New("invalid registration name")

	// ErrBadHelper is returned when a helper function has a signature the
	// engine cannot call.
	ErrBadHelper = errors.New("bad helper signature")
)

// Engine compiles template text against its own table of partials and
// helpers. Registration happens before compilation; Compile and the returned
// Template only read the table, so they may be used concurrently once
// registration is finished.
type Engine interface {
	// Name of the engine, used in logs.
	Name() string

	// RegisterPartial adds a named, reusable template fragment.
	RegisterPartial(name, contents string) error

	// RegisterHelper adds a named function callable from templates. Values
	// that are not functions are accepted and fail when invoked.
	RegisterHelper(name string, fn interface{}) error

	// Compile parses contents into an executable template.
	Compile(contents string) (Template, error)

	// Reset drops every registered partial and helper.
	Reset()
}

// Template is a compiled template ready to be evaluated.
type Template interface {
	Execute(data interface{}) ([]byte, error)
}

// IsCallable reports whether fn is a non-nil function value.
func IsCallable(fn interface{}) bool {
	if fn == nil {
		return false
	}
	v := reflect.ValueOf(fn)
	return v.Kind() == reflect.Func && !v.IsNil()
}

// NotCallable returns the error a placeholder helper reports when invoked.
func NotCallable(name string, v interface{}) error {
	return errors.Wrapf(ErrNotCallable, "helper %q has value of type %T", name, v)
}
