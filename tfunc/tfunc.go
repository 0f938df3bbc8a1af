// Package tfunc is the library of builtin functions available to templates
// compiled by the gotemplate engine. Registered helpers are merged over it.
package tfunc

import (
	"text/template"

	"github.com/pkg/errors"
)

// ErrDenied is returned by builtins disabled with Deny.
var ErrDenied = errors.New("function disabled")

// All returns every builtin in a fresh map.
func All() template.FuncMap {
	all := make(template.FuncMap)
	for _, group := range groups() {
		for k, v := range group() {
			all[k] = v
		}
	}
	return all
}

func groups() []func() template.FuncMap {
	return []func() template.FuncMap{
		Collections, Data, Math, Paths, System, Text,
	}
}

// Deny replaces the named functions in funcs with one that fails when a
// template calls it.
func Deny(funcs template.FuncMap, names ...string) {
	for _, name := range names {
		funcs[name] = denied(name)
	}
}

func denied(name string) func(...interface{}) (string, error) {
	return func(...interface{}) (string, error) {
		return "", errors.Wrap(ErrDenied, name)
	}
}

// Collections are lookups and reshaping of slices and maps.
func Collections() template.FuncMap {
	return template.FuncMap{
		"contains":             contains,
		"containsAll":          containsAll,
		"containsAny":          containsAny,
		"containsNone":         containsNone,
		"containsNotAll":       containsNotAll,
		"in":                   in,
		"loop":                 loop,
		"keys":                 keys,
		"explodeMap":           explodeMap,
		"mergeMap":             mergeMap,
		"mergeMapWithOverride": mergeMapWithOverride,
	}
}

// Data parses and encodes structured data.
func Data() template.FuncMap {
	return template.FuncMap{
		"parseBool":       parseBool,
		"parseFloat":      parseFloat,
		"parseInt":        parseInt,
		"parseUint":       parseUint,
		"parseJSON":       parseJSON,
		"parseYAML":       parseYAML,
		"parseTOML":       parseTOML,
		"toJSON":          toJSON,
		"toJSONPretty":    toJSONPretty,
		"toYAML":          toYAML,
		"toTOML":          toTOML,
		"base64Decode":    base64Decode,
		"base64Encode":    base64Encode,
		"base64URLDecode": base64URLDecode,
		"base64URLEncode": base64URLEncode,
		"sha256Hex":       sha256Hex,
	}
}

// Math is integer and float arithmetic.
func Math() template.FuncMap {
	return template.FuncMap{
		"add":      add,
		"subtract": subtract,
		"multiply": multiply,
		"divide":   divide,
		"modulo":   modulo,
		"minimum":  minimum,
		"maximum":  maximum,
	}
}

// Paths manipulate item paths, e.g. to link between rendered files.
func Paths() template.FuncMap {
	return template.FuncMap{
		"base":     base,
		"dir":      dir,
		"ext":      ext,
		"stem":     stem,
		"joinPath": joinPath,
		"relPath":  relPath,
	}
}

// System reads the process environment, the clock and network interfaces.
func System() template.FuncMap {
	return template.FuncMap{
		"env":          envFunc(nil),
		"envOrDefault": envOrDefaultFunc(nil),
		"timestamp":    timestamp,
		"sockaddr":     sockaddr,
	}
}

// Text functions take the string last so they can be piped.
func Text() template.FuncMap {
	return template.FuncMap{
		"toLower":         toLower,
		"toUpper":         toUpper,
		"toTitle":         toTitle,
		"join":            join,
		"split":           split,
		"trimSpace":       trimSpace,
		"indent":          indent,
		"replaceAll":      replaceAll,
		"regexReplaceAll": regexReplaceAll,
		"regexMatch":      regexMatch,
	}
}
