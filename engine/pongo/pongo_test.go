package pongo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/tmplstream/engine"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestEngine_Execute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
		partials map[string]string
		helpers  map[string]interface{}
		data     interface{}
		e        string
		err      bool
	}{
		{
			"plain",
			`<div>{{ contents }}</div>`,
			nil,
			nil,
			map[string]interface{}{"contents": "X"},
			"<div>X</div>",
			false,
		},
		{
			"non_map_data",
			`{{ data }}`,
			nil,
			nil,
			"X",
			"X",
			false,
		},
		{
			"partial",
			`<div>{% include "test" %}</div>`,
			map[string]string{"test": "<b>{{ v }}</b>"},
			nil,
			map[string]interface{}{"v": "P"},
			"<div><b>P</b></div>",
			false,
		},
		{
			"missing_partial",
			`{% include "nope" %}`,
			nil,
			nil,
			nil,
			"",
			true,
		},
		{
			"helper",
			`{{ shout(name) }}`,
			nil,
			map[string]interface{}{
				"shout": func(s string) string { return strings.ToUpper(s) },
			},
			map[string]interface{}{"name": "bob"},
			"BOB",
			false,
		},
		{
			"helper_returns_error",
			`{{ fail() }}`,
			nil,
			map[string]interface{}{
				"fail": func() (string, error) { return "", fmt.Errorf("boom") },
			},
			nil,
			"",
			true,
		},
		{
			"helper_not_callable",
			`{{ shout() }}`,
			nil,
			map[string]interface{}{"shout": "things"},
			nil,
			"",
			true,
		},
		{
			"bad_syntax",
			`{% if %}`,
			nil,
			nil,
			nil,
			"",
			true,
		},
	}

	for i, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("%d_%s", i, tc.name), func(t *testing.T) {
			e := New()
			for k, v := range tc.partials {
				assert.NoError(t, e.RegisterPartial(k, v))
			}
			for k, v := range tc.helpers {
				assert.NoError(t, e.RegisterHelper(k, v))
			}

			tpl, err := e.Compile(tc.contents)
			if err != nil {
				if !tc.err {
					t.Fatal(err)
				}
				return
			}
			a, err := tpl.Execute(tc.data)
			if (err != nil) != tc.err {
				t.Fatal(err)
			}
			if !tc.err {
				assert.Equal(t, tc.e, string(a))
			}
		})
	}
}

func TestEngine_RegisterHelper(t *testing.T) {
	t.Parallel()

	err := New().RegisterHelper("foo-bar", func() string { return "" })
	assert.True(t, errors.Is(err, engine.ErrInvalidName))

	err = New().RegisterHelper("bad", func() {})
	assert.True(t, errors.Is(err, engine.ErrBadHelper))

	assert.NoError(t, New().RegisterHelper("value", 42))
}

func TestPartialLoader(t *testing.T) {
	t.Parallel()
	l := &partialLoader{partials: map[string]string{"a": "A"}}
	assert.Equal(t, "a", l.Abs("whatever", "a"))

	_, err := l.Get("b")
	assert.Error(t, err)
	r, err := l.Get("a")
	assert.NoError(t, err)
	assert.NotNil(t, r)
}
