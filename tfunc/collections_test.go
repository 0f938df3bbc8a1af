package tfunc

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
)

func TestCollectionsExecute(t *testing.T) {
	t.Parallel()

	pages := map[string]interface{}{
		"Pages": []map[string]interface{}{
			{"Path": "index.html", "Tags": []string{"home", "nav"}},
			{"Path": "draft.html", "Tags": []string{"draft", "v2"}},
		},
	}

	runCases(t, []testCase{
		{
			"contains",
			`{{ range .Pages }}{{ if .Tags | contains "nav" }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"index.html",
			false,
		},
		{
			"containsAll",
			`{{ $want := parseJSON "[\"home\",\"nav\"]" }}{{ range .Pages }}{{ if .Tags | containsAll $want }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"index.html",
			false,
		},
		{
			"containsAll_empty",
			`{{ $want := parseJSON "[]" }}{{ range .Pages }}{{ if .Tags | containsAll $want }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"index.htmldraft.html",
			false,
		},
		{
			"containsAny",
			`{{ $want := parseJSON "[\"v2\",\"v3\"]" }}{{ range .Pages }}{{ if .Tags | containsAny $want }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"draft.html",
			false,
		},
		{
			"containsAny_empty",
			`{{ $want := parseJSON "[]" }}{{ range .Pages }}{{ if .Tags | containsAny $want }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"",
			false,
		},
		{
			"containsNone",
			`{{ $skip := parseJSON "[\"draft\",\"hidden\"]" }}{{ range .Pages }}{{ if .Tags | containsNone $skip }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"index.html",
			false,
		},
		{
			"containsNotAll",
			`{{ $want := parseJSON "[\"home\",\"nav\"]" }}{{ range .Pages }}{{ if .Tags | containsNotAll $want }}{{ .Path }}{{ end }}{{ end }}`,
			pages,
			"draft.html",
			false,
		},
		{"in", `{{ if in .Tags "v2" }}yes{{ end }}`, map[string]interface{}{"Tags": []string{"v2"}}, "yes", false},
		{"in_string", `{{ if in "hello world" "world" }}yes{{ end }}`, nil, "yes", false},
		{"in_numbers", `{{ if in .n 2 }}yes{{ end }}`, map[string]interface{}{"n": []interface{}{1.0, 2.0}}, "yes", false},
		{"in_mismatch", `{{ if in .n "2" }}yes{{ end }}`, map[string]interface{}{"n": []int{2}}, "", false},
		{"loop", `{{ range loop 3 }}1{{ end }}`, nil, "111", false},
		{"loop_i", `{{ range $i := loop 3 }}{{ $i }}{{ end }}`, nil, "012", false},
		{"loop_start", `{{ range $i := loop 5 8 }}{{ $i }}{{ end }}`, nil, "567", false},
		{"loop_text", `{{ range loop 1 "3" }}1{{ end }}`, nil, "11", false},
		{"loop_parseInt", `{{ $n := "3" | parseInt }}{{ range loop 1 $n }}1{{ end }}`, nil, "11", false},
		{"loop_data", `{{ range $i := loop .Count }}{{ $i }}{{ end }}`, map[string]interface{}{"Count": 2}, "01", false},
		{"loop_empty", `{{ range loop 3 1 }}1{{ else }}none{{ end }}`, nil, "none", false},
		{"loop_bad_args", `{{ range loop 1 2 3 }}1{{ end }}`, nil, "", true},
		{"loop_float", `{{ range loop 1.5 }}1{{ end }}`, nil, "", true},
		{
			"keys",
			`{{ range keys . }}{{ . }};{{ end }}`,
			map[string]interface{}{"b": 1, "a": 2, "c": 3},
			"a;b;c;",
			false,
		},
	})
}

func TestMapsExecute(t *testing.T) {
	t.Parallel()

	flat := map[string]interface{}{
		"list": map[string]interface{}{
			"":        "",
			"foo/bar": "a",
			"zip/zap": "b",
		},
	}

	runCases(t, []testCase{
		{
			"explodeMap",
			`{{ range $k, $v := .list | explodeMap }}{{ $k }}{{ $v }}{{ end }}`,
			flat,
			"foomap[bar:a]zipmap[zap:b]",
			false,
		},
		{
			"mergeMap",
			`{{ $base := "{\"voo\":{\"bar\":\"v\"},\"zip\":{\"zap\":\"t\"}}" | parseJSON }}{{ range $k, $v := .list | explodeMap | mergeMap $base }}{{ $k }}{{ $v }}{{ end }}`,
			flat,
			"foomap[bar:a]voomap[bar:v]zipmap[zap:t]",
			false,
		},
		{
			"mergeMapWithOverride",
			`{{ $base := "{\"zip\":{\"zap\":\"t\"},\"voo\":{\"bar\":\"v\"}}" | parseJSON }}{{ range $k, $v := .list | explodeMap | mergeMapWithOverride $base }}{{ $k }}{{ $v }}{{ end }}`,
			flat,
			"foomap[bar:a]voomap[bar:v]zipmap[zap:b]",
			false,
		},
		{
			"explodeMap_conflict",
			`{{ .list | explodeMap }}`,
			map[string]interface{}{
				"list": map[string]interface{}{"a": "x", "a/b": "y"},
			},
			"",
			true,
		},
	})
}

func TestExplodeMap_Nested(t *testing.T) {
	t.Parallel()
	nested := func() map[string]interface{} {
		return map[string]interface{}{
			"foo": map[string]string{"bar": "a"},
			"qux": "c",
		}
	}
	a, err := execute(t, `{{ nested | explodeMap }}`, nil,
		template.FuncMap{"nested": nested})
	assert.NoError(t, err)
	assert.Equal(t, "map[foo:map[bar:a] qux:c]", string(a))
}

func TestMergeMap_LeavesInputs(t *testing.T) {
	t.Parallel()
	dst := map[string]interface{}{"a": map[string]interface{}{"x": 1}}
	src := map[string]interface{}{"a": map[string]interface{}{"x": 2, "y": 3}}

	out, err := mergeMapWithOverride(dst, src)
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"a": map[string]interface{}{"x": 2, "y": 3},
	}, out)
	assert.Equal(t, map[string]interface{}{"a": map[string]interface{}{"x": 1}}, dst)
}
