package tfunc

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
)

// contains is in with its arguments swapped, for pipes:
//
//	{{ if .tags | contains "prod" }}
func contains(v, l interface{}) (bool, error) {
	return in(l, v)
}

// in reports whether v is an element of the slice l, or a substring of l
// when both are strings. Numbers compare by value across kinds.
func in(l, v interface{}) (bool, error) {
	lv := reflect.ValueOf(l)
	switch lv.Kind() {
	case reflect.String:
		s, ok := v.(string)
		return ok && strings.Contains(lv.String(), s), nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < lv.Len(); i++ {
			if equal(lv.Index(i).Interface(), v) {
				return true, nil
			}
		}
	}
	return false, nil
}

func equal(a, b interface{}) bool {
	if x, err := toNumber(a); err == nil {
		y, err := toNumber(b)
		if err != nil {
			return false
		}
		if x.float || y.float {
			return x.f == y.f
		}
		return x.i == y.i
	}
	if a == nil || b == nil {
		return a == b
	}
	t := reflect.TypeOf(a)
	return t == reflect.TypeOf(b) && t.Comparable() && a == b
}

// containsAll reports whether every element of vs is in l. True for an
// empty vs.
func containsAll(vs []interface{}, l interface{}) (bool, error) {
	for _, v := range vs {
		if ok, _ := in(l, v); !ok {
			return false, nil
		}
	}
	return true, nil
}

// containsAny reports whether some element of vs is in l.
func containsAny(vs []interface{}, l interface{}) (bool, error) {
	for _, v := range vs {
		if ok, _ := in(l, v); ok {
			return true, nil
		}
	}
	return false, nil
}

func containsNone(vs []interface{}, l interface{}) (bool, error) {
	ok, err := containsAny(vs, l)
	return !ok, err
}

func containsNotAll(vs []interface{}, l interface{}) (bool, error) {
	ok, err := containsAll(vs, l)
	return !ok, err
}

// loop returns [0, n) for "loop n" and [start, stop) for "loop start stop".
// Bounds may be integers or numeric strings.
func loop(args ...interface{}) ([]int64, error) {
	switch len(args) {
	case 1:
		args = []interface{}{0, args[0]}
	case 2:
	default:
		return nil, fmt.Errorf("loop: expected 1 or 2 arguments, got %d", len(args))
	}

	var bounds [2]int64
	for i, a := range args {
		n, err := toInt(a)
		if err != nil {
			return nil, errors.Wrap(err, "loop")
		}
		bounds[i] = n
	}

	out := []int64{}
	for i := bounds[0]; i < bounds[1]; i++ {
		out = append(out, i)
	}
	return out, nil
}

func toInt(v interface{}) (int64, error) {
	if s, ok := v.(string); ok {
		return parseInt(s)
	}
	n, err := toNumber(v)
	if err != nil {
		return 0, err
	}
	if n.float {
		return 0, fmt.Errorf("not an integer: %v", v)
	}
	return n.i, nil
}

// keys returns the keys of m, sorted, so ranging over data is stable.
func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// explodeMap nests a flat map whose keys are slash separated paths, such
// as a Consul prefix: {"a/b": 1} becomes {"a": {"b": 1}}.
func explodeMap(flat map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, key := range keys(flat) {
		parts := strings.Split(key, "/")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p]
			if !ok {
				next = make(map[string]interface{})
				m[p] = next
			}
			nested, ok := next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("explodeMap: %q: %q already has value %v", key, p, next)
			}
			m = nested
		}
		if leaf := parts[len(parts)-1]; leaf != "" {
			m[leaf] = flat[key]
		}
	}
	return out, nil
}

// mergeMap merges src into a copy of dst, keeping dst's values on conflict.
// Neither argument is modified: the data map is shared by every item.
func mergeMap(dst, src map[string]interface{}) (map[string]interface{}, error) {
	return merge("mergeMap", dst, src)
}

// mergeMapWithOverride is mergeMap with src winning conflicts.
func mergeMapWithOverride(dst, src map[string]interface{}) (map[string]interface{}, error) {
	return merge("mergeMapWithOverride", dst, src, mergo.WithOverride)
}

func merge(name string, dst, src map[string]interface{},
	opts ...func(*mergo.Config),
) (map[string]interface{}, error) {
	out := copyMap(dst)
	if err := mergo.Map(&out, copyMap(src), opts...); err != nil {
		return nil, errors.Wrap(err, name)
	}
	return out, nil
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	}
	return v
}
