package tmplstream

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/tmplstream/engine"
)

// SourceKind tells how a Source produces its value.
type SourceKind int

const (
	// SourceImmediate holds a plain value.
	SourceImmediate SourceKind = iota
	// SourceDeferred holds a value that settles later.
	SourceDeferred
	// SourceCallable holds a function.
	SourceCallable
)

func (k SourceKind) String() string {
	switch k {
	case SourceImmediate:
		return "immediate"
	case SourceDeferred:
		return "deferred"
	case SourceCallable:
		return "callable"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// Source is a single registration or data source. Build it with Value,
// Defer or Func, or classify an arbitrary value once with SourceOf.
type Source struct {
	kind     SourceKind
	value    interface{}
	deferred Deferred
}

// Value is a source holding v as is.
func Value(v interface{}) Source {
	return Source{kind: SourceImmediate, value: v}
}

// Defer is a source whose value settles later.
func Defer(d Deferred) Source {
	return Source{kind: SourceDeferred, deferred: d}
}

// Func is a source holding a function.
func Func(fn interface{}) Source {
	return Source{kind: SourceCallable, value: fn}
}

// SourceOf classifies v: a Source is returned unchanged, a Deferred becomes a
// deferred source, a non-nil function a callable one, anything else an
// immediate value.
func SourceOf(v interface{}) Source {
	switch s := v.(type) {
	case Source:
		return s
	case Deferred:
		return Defer(s)
	}
	if engine.IsCallable(v) {
		return Func(v)
	}
	return Value(v)
}

// Kind returns the source kind.
func (s Source) Kind() SourceKind { return s.kind }

// Value returns the immediate value or the function of a callable source.
func (s Source) Value() interface{} { return s.value }

// Deferred returns the deferred of a deferred source.
func (s Source) Deferred() Deferred { return s.deferred }

// IsZero reports whether the source holds nothing at all.
func (s Source) IsZero() bool {
	return s.kind == SourceImmediate && s.value == nil
}

// CollectionKind tells the shape of a named-source collection.
type CollectionKind int

const (
	// CollectionMapping is a set of named sources.
	CollectionMapping CollectionKind = iota
	// CollectionSequence is a stream of items named by their paths.
	CollectionSequence
	// CollectionSingle is one item named by its path.
	CollectionSingle
	// CollectionUnnamed is a list of sources without names. It is always a
	// configuration error.
	CollectionUnnamed
	// CollectionLater is a collection that arrives later.
	CollectionLater
)

func (k CollectionKind) String() string {
	switch k {
	case CollectionMapping:
		return "mapping"
	case CollectionSequence:
		return "sequence"
	case CollectionSingle:
		return "single"
	case CollectionUnnamed:
		return "unnamed"
	case CollectionLater:
		return "later"
	}
	return fmt.Sprintf("CollectionKind(%d)", int(k))
}

// Collection is the partials or helpers input of a transform.
type Collection struct {
	kind    CollectionKind
	entries map[string]Source
	seq     ItemSource
	item    *Item
	unnamed []interface{}
	later   Deferred
}

// Map is a collection of named sources. Names are registered exactly as
// given, case included.
func Map(m map[string]Source) *Collection {
	entries := make(map[string]Source, len(m))
	for k, v := range m {
		entries[k] = v
	}
	return &Collection{kind: CollectionMapping, entries: entries}
}

// Values is a collection of named values, each classified with SourceOf.
// Names keep their case: "toUpper" is called as {{toUpper x}}.
func Values(m map[string]interface{}) *Collection {
	entries := make(map[string]Source, len(m))
	for k, v := range m {
		entries[k] = SourceOf(v)
	}
	return &Collection{kind: CollectionMapping, entries: entries}
}

// Sequence is a collection fed by an item stream. Every item registers under
// the name derived from its path.
func Sequence(s ItemSource) *Collection {
	return &Collection{kind: CollectionSequence, seq: s}
}

// File is a collection of one item.
func File(it *Item) *Collection {
	return &Collection{kind: CollectionSingle, item: it}
}

// List is a collection of unnamed sources. Resolving it always fails with a
// ConfigurationError; a name is required for every registration.
func List(vs ...interface{}) *Collection {
	return &Collection{kind: CollectionUnnamed, unnamed: vs}
}

// Later is a collection that arrives through d. The settled value is
// classified with CollectionOf.
func Later(d Deferred) *Collection {
	return &Collection{kind: CollectionLater, later: d}
}

// CollectionOf classifies v as a collection, nil when v is nil.
func CollectionOf(v interface{}) *Collection {
	switch c := v.(type) {
	case nil:
		return nil
	case *Collection:
		return c
	case map[string]Source:
		return Map(c)
	case map[string]interface{}:
		return Values(c)
	case map[string]string:
		m := make(map[string]interface{}, len(c))
		for k, v := range c {
			m[k] = v
		}
		return Values(m)
	case ItemSource:
		return Sequence(c)
	case *Item:
		return File(c)
	case Deferred:
		return Later(c)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		vs := make([]interface{}, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return List(vs...)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]interface{}, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return Values(m)
		}
	}
	return List(v)
}

// Kind returns the collection kind.
func (c *Collection) Kind() CollectionKind { return c.kind }

// Names returns the sorted entry names of a mapping collection.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.entries))
	for k := range c.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len is the number of entries of a mapping or unnamed collection.
func (c *Collection) Len() int {
	switch c.kind {
	case CollectionMapping:
		return len(c.entries)
	case CollectionUnnamed:
		return len(c.unnamed)
	}
	return 0
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callZero invokes a function taking no arguments that returns a value or
// (value, error).
func callZero(fn interface{}) (interface{}, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 0 && !(t.NumIn() == 1 && t.IsVariadic()) {
		return nil, fmt.Errorf("%T is not a zero-argument function", fn)
	}
	switch {
	case t.NumOut() == 1:
		return v.Call(nil)[0].Interface(), nil
	case t.NumOut() == 2 && t.Out(1).Implements(errorType):
		out := v.Call(nil)
		if err, ok := out[1].Interface().(error); ok && err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("%T must return a value or (value, error)", fn)
}
