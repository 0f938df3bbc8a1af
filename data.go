package tmplstream

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// DataFile is a deferred value that reads and decodes the file at path the
// first time it is awaited. The format follows the extension: .json, .toml,
// otherwise YAML.
func DataFile(path string) Deferred {
	return Lazy(func(ctx context.Context) (interface{}, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "data file")
		}
		return decodeData(path, b)
	})
}

// MergeData awaits every source in order and deep merges the resulting maps,
// later sources overriding earlier ones. Nil results are skipped.
func MergeData(sources ...Deferred) Deferred {
	return Lazy(func(ctx context.Context) (interface{}, error) {
		out := make(map[string]interface{})
		for i, d := range sources {
			v, err := d.Await(ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "merge data source %d", i)
			}
			v, err = normalizeData(ctx, v)
			if err != nil {
				return nil, errors.Wrapf(err, "merge data source %d", i)
			}
			if v == nil {
				continue
			}
			m, ok := v.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("merge data source %d: expected a map, got %T", i, v)
			}
			if err := mergo.Merge(&out, m, mergo.WithOverride); err != nil {
				return nil, errors.Wrapf(err, "merge data source %d", i)
			}
		}
		return out, nil
	})
}

// normalizeData turns a settled data value into what templates see: null
// items become nil, items are decoded by extension and nested deferred
// values are awaited.
func normalizeData(ctx context.Context, v interface{}) (interface{}, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case *Item:
		if d.IsNull() {
			return nil, nil
		}
		return decodeData(d.Path, d.Contents)
	case Deferred:
		r, err := d.Await(ctx)
		if err != nil {
			return nil, err
		}
		return normalizeData(ctx, r)
	}
	return v, nil
}

// decodeData decodes b according to the extension of path.
func decodeData(path string, b []byte) (interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var v interface{}
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, errors.Wrapf(err, "decode json %s", path)
		}
		return v, nil
	case ".toml":
		var v map[string]interface{}
		if err := toml.Unmarshal(b, &v); err != nil {
			return nil, errors.Wrapf(err, "decode toml %s", path)
		}
		return v, nil
	default:
		var v interface{}
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, errors.Wrapf(err, "decode yaml %s", path)
		}
		return stringKeys(v), nil
	}
}

// stringKeys converts the map[interface{}]interface{} values yaml.v2
// produces into map[string]interface{}, recursively.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case []interface{}:
		for i := range t {
			t[i] = stringKeys(t[i])
		}
		return t
	}
	return v
}
