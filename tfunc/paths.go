package tfunc

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Template paths are slash separated regardless of platform, as they end
// up in links and includes.

func base(p string) (string, error) { return path.Base(p), nil }

func dir(p string) (string, error) { return path.Dir(p), nil }

func ext(p string) (string, error) { return path.Ext(p), nil }

// stem is the base name up to its first dot, the same name a partial or
// helper read from that path is registered under.
func stem(p string) (string, error) {
	name := path.Base(p)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name, nil
}

func joinPath(elem ...string) (string, error) {
	return path.Join(elem...), nil
}

// relPath returns target relative to the directory from, so a page can link
// to another: {{ relPath "blog/post" "css/site.css" }} is "../../css/site.css".
func relPath(from, target string) (string, error) {
	if path.IsAbs(from) != path.IsAbs(target) {
		return "", errors.Errorf("relPath: cannot relate %q to %q", target, from)
	}
	f := splitPath(from)
	t := splitPath(target)
	i := 0
	for i < len(f) && i < len(t) && f[i] == t[i] {
		i++
	}
	parts := make([]string, 0, len(f)-i+len(t)-i)
	for range f[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, t[i:]...)
	if len(parts) == 0 {
		return ".", nil
	}
	return strings.Join(parts, "/"), nil
}

func splitPath(p string) []string {
	p = path.Clean(p)
	if p == "." || p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}
