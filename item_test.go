package tmplstream

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		e    string
	}{
		{"header.hbs", "header"},
		{"a/b/header.html.hbs", "header"},
		{"partials/nav", "nav"},
		{"/test/whatever", "whatever"},
		{"dir/.hidden", ""},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.e, DeriveName(tc.path))
		})
	}
}

func TestItem(t *testing.T) {
	t.Parallel()

	t.Run("null", func(t *testing.T) {
		var nilItem *Item
		assert.True(t, nilItem.IsNull())
		assert.True(t, (&Item{Path: "a"}).IsNull())
		assert.False(t, (&Item{Path: "a", Contents: []byte{}}).IsNull())
	})

	t.Run("clone", func(t *testing.T) {
		it := &Item{Path: "a", Contents: []byte("x")}
		c := it.Clone()
		c.Contents[0] = 'y'
		assert.Equal(t, "x", string(it.Contents))
		assert.Nil(t, (*Item)(nil).Clone())
	})

	t.Run("rel", func(t *testing.T) {
		it := &Item{Path: filepath.Join("src", "pages", "a.hbs"), Base: "src"}
		assert.Equal(t, filepath.Join("pages", "a.hbs"), it.Rel())
		assert.Equal(t, "a.hbs", (&Item{Path: "a.hbs"}).Rel())
	})
}

// drain reads src to the end.
func drain(t *testing.T, src ItemSource) []*Item {
	t.Helper()
	var out []*Item
	for {
		it, err := src.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, it)
	}
}

func TestItems(t *testing.T) {
	t.Parallel()
	a, b := &Item{Path: "a"}, &Item{Path: "b"}
	assert.Equal(t, []*Item{a, b}, drain(t, Items(a, b)))
	assert.Empty(t, drain(t, Items()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Items(a).Next(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestChanItems(t *testing.T) {
	t.Parallel()
	ch := make(chan *Item, 2)
	ch <- &Item{Path: "a"}
	ch <- &Item{Path: "b"}
	close(ch)
	assert.Len(t, drain(t, ChanItems(ch)), 2)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
}

func TestGlobItems(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.hbs":   "B",
		"a.hbs":   "A",
		"c.txt":   "C",
		".x.hbs":  "hidden",
		"d.hbs/e": "in a directory named like a template",
	})

	items := drain(t, GlobItems(filepath.Join(dir, "*.hbs")))
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(dir, "a.hbs"), items[0].Path)
	assert.Equal(t, "A", string(items[0].Contents))
	assert.Equal(t, "b", items[1].Name())
	assert.Equal(t, dir, items[0].Base)
	assert.Equal(t, "a.hbs", items[0].Rel())

	assert.Empty(t, drain(t, GlobItems(filepath.Join(dir, "*.none"))))

	_, err := GlobItems("[").Next(context.Background())
	assert.Error(t, err)

	dots := drain(t, GlobItems(filepath.Join(dir, ".*")))
	require.Len(t, dots, 1)
	assert.Equal(t, "hidden", string(dots[0].Contents))
}

func TestGlobBase(t *testing.T) {
	t.Parallel()
	cases := []struct {
		pattern string
		e       string
	}{
		{"*.hbs", "."},
		{filepath.Join("src", "*.hbs"), "src"},
		{filepath.Join("..", "src", "*.hbs"), filepath.Join("..", "src")},
		{filepath.Join("src", "pa*", "*.hbs"), "src"},
		{filepath.Join("src", "a.hbs"), "src"},
		{string(filepath.Separator) + filepath.Join("x", "src", "*.hbs"),
			string(filepath.Separator) + filepath.Join("x", "src")},
	}
	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			assert.Equal(t, tc.e, globBase(tc.pattern))
		})
	}
}

func TestDirItems(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"top.hbs":         "top",
		"pages/a.hbs":     "a",
		"pages/b.txt":     "b",
		"pages/sub/c.hbs": "c",
	})

	items := drain(t, DirItems(dir, "*.hbs"))
	require.Len(t, items, 3)
	rels := make([]string, len(items))
	for i, it := range items {
		assert.Equal(t, dir, it.Base)
		rels[i] = it.Rel()
	}
	assert.Equal(t, []string{
		filepath.Join("pages", "a.hbs"),
		filepath.Join("pages", "sub", "c.hbs"),
		"top.hbs",
	}, rels)

	assert.Len(t, drain(t, DirItems(dir, "")), 4)
	writeFiles(t, dir, map[string]string{
		".gitkeep":        "",
		"pages/.DS_Store": "x",
		".git/HEAD":       "ref",
	})
	assert.Len(t, drain(t, DirItems(dir, "")), 4)
	assert.Empty(t, drain(t, DirItems(filepath.Join(dir, "missing"), "")))
}

func TestConcat(t *testing.T) {
	t.Parallel()
	items := drain(t, Concat(
		Items(&Item{Path: "a"}),
		Items(),
		Items(&Item{Path: "b"}, &Item{Path: "c"}),
	))
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	assert.Equal(t, []string{"a", "b", "c"}, paths)
	assert.Empty(t, drain(t, Concat()))
}
