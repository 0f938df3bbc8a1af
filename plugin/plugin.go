// Package plugin loads helper modules: Go source files interpreted at run
// time that export template helpers.
//
// A module exports either a single function named Helper, registered under
// the module's own name, or a map named Helpers whose entries are each
// registered under their key. Both may be present.
//
//	package shout
//
//	import "strings"
//
//	func Helper(s string) string { return strings.ToUpper(s) }
package plugin

import (
	"bytes"
	"go/parser"
	"go/token"
	"reflect"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	// HelperSymbol is the name of a module's single exported helper.
	HelperSymbol = "Helper"

	// HelpersSymbol is the name of a module's exported helper map.
	HelpersSymbol = "Helpers"
)

// Module is the result of loading a helper module.
type Module struct {
	// Path the source was loaded from, for messages.
	Path string

	// Func is the value of the Helper export, nil if absent.
	Func interface{}

	// Funcs holds the entries of the Helpers export.
	Funcs map[string]interface{}
}

// Empty reports whether the module exports no helpers at all.
func (m *Module) Empty() bool {
	return m.Func == nil && len(m.Funcs) == 0
}

// Load interprets src, the contents of the file at path, with the standard
// library available, and extracts its helper exports. A module without
// either export is not an error; check Empty.
func Load(path string, src []byte) (*Module, error) {
	m := &Module{Path: path, Funcs: make(map[string]interface{})}
	if len(bytes.TrimSpace(src)) == 0 {
		return m, nil
	}

	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.PackageClauseOnly)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin: parse %s", path)
	}
	pkg := f.Name.Name

	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	if _, err := i.Eval(string(src)); err != nil {
		return nil, errors.Wrapf(err, "plugin: interpret %s", path)
	}

	if v, ok := lookup(i, pkg, HelperSymbol); ok {
		m.Func = v.Interface()
	}

	if v, ok := lookup(i, pkg, HelpersSymbol); ok {
		if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return nil, errors.Errorf("plugin: %s: %s must be a map keyed by name, got %s",
				path, HelpersSymbol, v.Type())
		}
		iter := v.MapRange()
		for iter.Next() {
			val := iter.Value()
			for val.Kind() == reflect.Interface && !val.IsNil() {
				val = val.Elem()
			}
			if !val.IsValid() || (val.Kind() == reflect.Interface && val.IsNil()) {
				m.Funcs[iter.Key().String()] = nil
				continue
			}
			m.Funcs[iter.Key().String()] = val.Interface()
		}
	}

	return m, nil
}

// lookup evaluates an exported symbol of the interpreted package.
func lookup(i *interp.Interpreter, pkg, name string) (reflect.Value, bool) {
	expr := name
	if pkg != "main" {
		expr = pkg + "." + name
	}
	v, err := i.Eval(expr)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, false
	}
	return v, true
}
