package tfunc

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

func toLower(s string) (string, error) { return strings.ToLower(s), nil }

func toUpper(s string) (string, error) { return strings.ToUpper(s), nil }

// toTitle upper-cases the first letter of every space separated word.
func toTitle(s string) (string, error) {
	var b strings.Builder
	start := true
	for _, r := range s {
		if start {
			r = unicode.ToTitle(r)
		}
		b.WriteRune(r)
		start = unicode.IsSpace(r)
	}
	return b.String(), nil
}

func join(sep string, a []string) (string, error) {
	return strings.Join(a, sep), nil
}

// split trims s first and returns an empty list for blank input.
func split(sep, s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, sep), nil
}

func trimSpace(s string) (string, error) { return strings.TrimSpace(s), nil }

// indent prefixes every non-empty line of s with n spaces, typically to
// nest a partial's output inside YAML.
func indent(n int, s string) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("indent: width must not be negative, got %d", n)
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n"), nil
}

func replaceAll(from, to, s string) (string, error) {
	return strings.ReplaceAll(s, from, to), nil
}

func regexReplaceAll(re, repl, s string) (string, error) {
	r, err := regexp.Compile(re)
	if err != nil {
		return "", errors.Wrap(err, "regexReplaceAll")
	}
	return r.ReplaceAllString(s, repl), nil
}

func regexMatch(re, s string) (bool, error) {
	r, err := regexp.Compile(re)
	if err != nil {
		return false, errors.Wrap(err, "regexMatch")
	}
	return r.MatchString(s), nil
}
