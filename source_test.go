package tmplstream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceOf(t *testing.T) {
	t.Parallel()
	fn := func() string { return "" }
	var nilFunc func()
	cases := []struct {
		name string
		v    interface{}
		e    SourceKind
	}{
		{"string", "things", SourceImmediate},
		{"map", map[string]interface{}{}, SourceImmediate},
		{"nil", nil, SourceImmediate},
		{"nil_func", nilFunc, SourceImmediate},
		{"func", fn, SourceCallable},
		{"future", NewFuture(), SourceDeferred},
		{"deferred_func", DeferredFunc(nil), SourceDeferred},
		{"source", Func(fn), SourceCallable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.e, SourceOf(tc.v).Kind())
		})
	}
	assert.True(t, Value(nil).IsZero())
	assert.False(t, Value("x").IsZero())
}

func TestCollectionOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		v    interface{}
		e    CollectionKind
		len  int
	}{
		{"map_interface", map[string]interface{}{"a": "A", "b": "B"}, CollectionMapping, 2},
		{"map_string", map[string]string{"a": "A"}, CollectionMapping, 1},
		{"map_func", map[string]func() string{"a": nil}, CollectionMapping, 1},
		{"map_source", map[string]Source{"a": Value("A")}, CollectionMapping, 1},
		{"sequence", Items(), CollectionSequence, 0},
		{"item", &Item{Path: "a"}, CollectionSingle, 0},
		{"deferred", NewFuture(), CollectionLater, 0},
		{"slice", []string{"things"}, CollectionUnnamed, 1},
		{"scalar", "things", CollectionUnnamed, 1},
		{"map_int_keys", map[int]string{1: "a"}, CollectionUnnamed, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := CollectionOf(tc.v)
			assert.Equal(t, tc.e, c.Kind())
			assert.Equal(t, tc.len, c.Len())
		})
	}
	assert.Nil(t, CollectionOf(nil))

	c := List()
	assert.Equal(t, c, CollectionOf(c))
}

func TestCollection_Names(t *testing.T) {
	t.Parallel()
	c := Values(map[string]interface{}{"b": 1, "a": 2, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
}

func TestCallZero(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		fn   interface{}
		e    interface{}
		err  bool
	}{
		{"value", func() string { return "v" }, "v", false},
		{"value_error_nil", func() (string, error) { return "v", nil }, "v", false},
		{"value_error", func() (string, error) { return "", fmt.Errorf("boom") }, nil, true},
		{"variadic", func(args ...interface{}) string { return "v" }, "v", false},
		{"args", func(s string) string { return s }, nil, true},
		{"no_results", func() {}, nil, true},
		{"not_func", "x", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := callZero(tc.fn)
			if (err != nil) != tc.err {
				t.Fatalf("unexpected error: %v", err)
			}
			assert.Equal(t, tc.e, v)
		})
	}
}
