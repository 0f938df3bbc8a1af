package engine

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	if r.partials == nil {
		t.Errorf("expected partials to not be nil")
	}
	if r.helpers == nil {
		t.Errorf("expected helpers to not be nil")
	}
}

func TestRecall(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.SavePartial("header", "<h1>{{title}}</h1>")
	p, ok := r.Partial("header")
	if !ok {
		t.Fatal("expected partial from Registry")
	}
	if p != "<h1>{{title}}</h1>" {
		t.Errorf("bad partial: %q", p)
	}

	r.SaveHelper("upper", func(s string) string { return s })
	if _, ok := r.Helper("upper"); !ok {
		t.Fatal("expected helper from Registry")
	}
	if _, ok := r.Helper("lower"); ok {
		t.Fatal("expected no helper named lower")
	}
}

func TestSnapshots(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.SavePartial("b", "B")
	r.SavePartial("a", "A")
	r.SaveHelper("h", "not a func")

	parts := r.Partials()
	parts["c"] = "C" // must not leak back
	if _, ok := r.Partial("c"); ok {
		t.Fatal("snapshot should be a copy")
	}

	ps, hs := r.Names()
	if !reflect.DeepEqual(ps, []string{"a", "b"}) {
		t.Errorf("bad partial names: %v", ps)
	}
	if !reflect.DeepEqual(hs, []string{"h"}) {
		t.Errorf("bad helper names: %v", hs)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.SavePartial("a", "A")
	r.SaveHelper("h", func() string { return "" })

	r.Reset()

	ps, hs := r.Names()
	if len(ps) != 0 || len(hs) != 0 {
		t.Errorf("expected empty registry, got %v %v", ps, hs)
	}
}

func TestIsCallable(t *testing.T) {
	t.Parallel()
	var nilFunc func()
	cases := []struct {
		name string
		v    interface{}
		e    bool
	}{
		{"nil", nil, false},
		{"nil_func", nilFunc, false},
		{"string", "things", false},
		{"func", func() string { return "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if IsCallable(tc.v) != tc.e {
				t.Errorf("IsCallable(%#v) expected %v", tc.v, tc.e)
			}
		})
	}
}

func TestNotCallable(t *testing.T) {
	t.Parallel()
	err := NotCallable("shout", "things")
	if !errors.Is(err, ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}
}
