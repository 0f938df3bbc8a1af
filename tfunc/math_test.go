package tfunc

import "testing"

func TestMathExecute(t *testing.T) {
	t.Parallel()

	runCases(t, []testCase{
		{"helper_add", `{{ 2 | add 2 }}`, nil, "4", false},
		{"helper_subtract", `{{ 2 | subtract 2 }}`, nil, "0", false},
		{"helper_multiply", `{{ 2 | multiply 2 }}`, nil, "4", false},
		{"helper_divide", `{{ 2 | divide 2 }}`, nil, "1", false},
		{"helper_modulo", `{{ 3 | modulo 2 }}`, nil, "1", false},
		{"helper_minimum", `{{ 3 | minimum 2 }}`, nil, "2", false},
		{"helper_maximum", `{{ 3 | maximum 2 }}`, nil, "3", false},
		{"helper_add_float", `{{ 1.5 | add 1 }}`, nil, "2.5", false},
		{"helper_add_data", `{{ .n | add 1 }}`, map[string]interface{}{"n": uint(2)}, "3", false},
		{"helper_divide_zero", `{{ 2 | divide 0 }}`, nil, "", true},
		{"helper_modulo_float", `{{ 2.5 | modulo 2 }}`, nil, "", true},
		{"helper_add_string", `{{ "a" | add 2 }}`, nil, "", true},
	})
}
