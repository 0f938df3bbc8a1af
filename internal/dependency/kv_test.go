package dependency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeKV map[string]string

// ServeHTTP answers /v1/kv/ reads the way Consul does, recursing when asked.
func (kv fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")
	_, recurse := r.URL.Query()["recurse"]

	var out []map[string]interface{}
	for k, v := range kv {
		if (recurse && strings.HasPrefix(k, key)) || k == key {
			out = append(out, map[string]interface{}{
				"Key":         k,
				"Value":       []byte(v),
				"CreateIndex": 1,
				"ModifyIndex": 2,
			})
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func testClientSet(t *testing.T, h http.Handler) *ClientSet {
	t.Helper()
	ts := httptest.NewServer(leaderHandler(h))
	t.Cleanup(ts.Close)

	cs := NewClientSet()
	err := cs.CreateConsulClient(&CreateClientInput{
		Address:    ts.URL,
		HttpClient: ts.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = cs.CreateVaultClient(&CreateClientInput{
		Address:    ts.URL,
		Token:      "root",
		HttpClient: ts.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cs.Stop)
	return cs
}

func TestNewKVListQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		i    string
		exp  *KVListQuery
		err  bool
	}{
		{"empty", "", nil, true},
		{"slash", "/", nil, true},
		{"dc_only", "@dc1", nil, true},
		{"prefix", "partials", &KVListQuery{prefix: "partials"}, false},
		{"leading_slash", "/partials", &KVListQuery{prefix: "partials"}, false},
		{"dc", "partials@dc1", &KVListQuery{prefix: "partials", dc: "dc1"}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			act, err := NewKVListQuery(tc.i)
			if (err != nil) != tc.err {
				t.Fatal(err)
			}
			assert.Equal(t, tc.exp, act)
		})
	}
}

func TestKVListQuery_Fetch(t *testing.T) {
	t.Parallel()

	cs := testClientSet(t, fakeKV{
		"partials/":            "",
		"partials/header.hbs":  "<h1>{{title}}</h1>",
		"partials/nested/a.js": "a",
		"other/thing":          "x",
	})

	q, err := NewKVListQuery("partials")
	if err != nil {
		t.Fatal(err)
	}
	pairs, err := q.Fetch(context.Background(), cs)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, p := range pairs {
		got[p.Key] = string(p.Value)
	}
	assert.Equal(t, map[string]string{
		"header.hbs":  "<h1>{{title}}</h1>",
		"nested/a.js": "a",
	}, got)
	assert.Equal(t, "kv.list(partials)", q.ID())
}

func TestKVListQuery_Missing(t *testing.T) {
	t.Parallel()

	cs := testClientSet(t, fakeKV{})
	q, err := NewKVListQuery("nope")
	if err != nil {
		t.Fatal(err)
	}
	pairs, err := q.Fetch(context.Background(), cs)
	assert.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestKVGetQuery_Fetch(t *testing.T) {
	t.Parallel()

	cs := testClientSet(t, fakeKV{"config/data": `{"a": 1}`})

	q, err := NewKVGetQuery("config/data")
	if err != nil {
		t.Fatal(err)
	}
	pair, err := q.Fetch(context.Background(), cs)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, `{"a": 1}`, string(pair.Value))

	q, err = NewKVGetQuery("config/missing@dc1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "kv.get(config/missing@dc1)", q.ID())
	_, err = q.Fetch(context.Background(), cs)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestKVQuery_NoClient(t *testing.T) {
	t.Parallel()

	q, err := NewKVGetQuery("key")
	if err != nil {
		t.Fatal(err)
	}
	_, err = q.Fetch(context.Background(), NewClientSet())
	assert.True(t, errors.Is(err, ErrNoConsul))
	assert.False(t, Temporary(err))
}
