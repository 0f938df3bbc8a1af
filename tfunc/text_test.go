package tfunc

import "testing"

func TestTextExecute(t *testing.T) {
	t.Parallel()

	runCases(t, []testCase{
		{
			"indent",
			`{{ "hello\nhello\r\nHELLO\r\nhello\nHELLO" | indent 4 }}`,
			nil,
			"    hello\n    hello\r\n    HELLO\r\n    hello\n    HELLO",
			false,
		},
		{"indent_blank_lines", `{{ "a\n\nb\n" | indent 2 }}`, nil, "  a\n\n  b\n", false},
		{"indent_zero", `{{ "a\nb" | indent 0 }}`, nil, "a\nb", false},
		{"indent_negative", `{{ "a" | indent -4 }}`, nil, "", true},
		{"join", `{{ "a,b,c" | split "," | join ";" }}`, nil, "a;b;c", false},
		{"split", `{{ "a,b,c" | split "," }}`, nil, "[a b c]", false},
		{"split_blank", `{{ " " | split "," | len }}`, nil, "0", false},
		{"trimSpace", `{{ "\t hi\n " | trimSpace }}`, nil, "hi", false},
		{"toLower", `{{ "HI" | toLower }}`, nil, "hi", false},
		{"toUpper", `{{ "hi" | toUpper }}`, nil, "HI", false},
		{"toTitle", `{{ "this is a sentence" | toTitle }}`, nil, "This Is A Sentence", false},
		{"replaceAll", `{{ "hello my hello" | replaceAll "hello" "bye" }}`, nil, "bye my bye", false},
		{"regexReplaceAll", `{{ "foo" | regexReplaceAll "\\w" "x" }}`, nil, "xxx", false},
		{"regexMatch", `{{ "foo" | regexMatch "[a-z]+" }}`, nil, "true", false},
		{"regexMatch_bad", `{{ "foo" | regexMatch "[a-z" }}`, nil, "", true},
	})
}
