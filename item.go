package tmplstream

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Item is a unit flowing through a transform: a path and opaque contents.
type Item struct {
	// Path of the item, used to derive names and output locations.
	Path string

	// Base is the directory Path is relative to, if any.
	Base string

	// Contents is the payload. A nil Contents marks a null item.
	Contents []byte
}

// IsNull reports whether the item carries no contents. Null items are
// skipped everywhere without error.
func (i *Item) IsNull() bool {
	return i == nil || i.Contents == nil
}

// Name is the registration name derived from the item's path.
func (i *Item) Name() string {
	return DeriveName(i.Path)
}

// Rel returns Path relative to Base, or Path when that is not possible.
func (i *Item) Rel() string {
	if i.Base == "" {
		return i.Path
	}
	rel, err := filepath.Rel(i.Base, i.Path)
	if err != nil {
		return i.Path
	}
	return rel
}

// Clone returns a copy of the item sharing nothing with the original.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Contents != nil {
		c.Contents = append([]byte{}, i.Contents...)
	}
	return &c
}

// DeriveName strips the directory and everything from the first "." of the
// last path segment: "a/b/header.html.hbs" is "header".
func DeriveName(path string) string {
	segs := strings.Split(path, string(filepath.Separator))
	name := segs[len(segs)-1]
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// ItemSource is an asynchronous sequence of items. Next returns io.EOF once
// the sequence is drained.
type ItemSource interface {
	Next(ctx context.Context) (*Item, error)
}

// ItemSourceFunc adapts a function to ItemSource.
type ItemSourceFunc func(ctx context.Context) (*Item, error)

// Next implements ItemSource.
func (f ItemSourceFunc) Next(ctx context.Context) (*Item, error) {
	return f(ctx)
}

// Items returns an ItemSource over a fixed list.
func Items(items ...*Item) ItemSource {
	var mu sync.Mutex
	return ItemSourceFunc(func(ctx context.Context) (*Item, error) {
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, io.EOF
		}
		it := items[0]
		items = items[1:]
		return it, nil
	})
}

// ChanItems returns an ItemSource reading from ch until it is closed.
func ChanItems(ch <-chan *Item) ItemSource {
	return ItemSourceFunc(func(ctx context.Context) (*Item, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case it, ok := <-ch:
			if !ok {
				return nil, io.EOF
			}
			return it, nil
		}
	})
}

// GlobItems returns an ItemSource over the regular files matching pattern,
// sorted by path. Items carry the directory before the first wildcard as
// their Base, so "src/*.hbs" yields "a.hbs" relative to "src". Dotfiles are
// skipped unless the pattern's last element starts with a dot. Files are read
// lazily as the source is drained.
func GlobItems(pattern string) ItemSource {
	var (
		once  sync.Once
		paths []string
		err   error
	)
	dots := strings.HasPrefix(filepath.Base(pattern), ".")
	return lazyFiles(globBase(pattern), func() ([]string, error) {
		once.Do(func() {
			paths, err = glob(pattern, dots)
		})
		return paths, err
	})
}

func glob(pattern string, dots bool) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "glob %q", pattern)
	}
	var paths []string
	for _, m := range matches {
		if !dots && hidden(filepath.Base(m)) {
			continue
		}
		if fi, err := os.Stat(m); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		paths = append(paths, m)
	}
	return paths, nil
}

// globBase is the static directory prefix of pattern.
func globBase(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		pattern = pattern[:i]
		if !strings.HasSuffix(pattern, string(filepath.Separator)) {
			return filepath.Dir(pattern)
		}
		return filepath.Clean(pattern)
	}
	return filepath.Dir(pattern)
}

// hidden reports whether a file or directory name is a dotfile. They are
// left out of directory walks and globs: their derived name is empty.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// DirItems returns an ItemSource over the regular files below dir whose base
// name matches pattern (all files when pattern is empty), sorted by path.
// Dotfiles and dot directories such as .git are skipped. Items carry dir as
// their Base. A missing dir is an empty sequence.
func DirItems(dir, pattern string) ItemSource {
	var (
		once  sync.Once
		paths []string
		err   error
	)
	return lazyFiles(dir, func() ([]string, error) {
		once.Do(func() {
			paths, err = walk(dir, pattern)
			sort.Strings(paths)
		})
		return paths, err
	})
}

func walk(dir, pattern string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if path != dir && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if pattern != "" {
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %q", dir)
	}
	return paths, nil
}

// lazyFiles reads the listed files one per Next call.
func lazyFiles(base string, list func() ([]string, error)) ItemSource {
	var (
		mu   sync.Mutex
		next int
	)
	return ItemSourceFunc(func(ctx context.Context) (*Item, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paths, err := list()
		if err != nil {
			return nil, err
		}

		mu.Lock()
		defer mu.Unlock()
		if next >= len(paths) {
			return nil, io.EOF
		}
		path := paths[next]
		next++

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read")
		}
		return &Item{Path: path, Base: base, Contents: b}, nil
	})
}

// Concat drains each source in turn.
func Concat(srcs ...ItemSource) ItemSource {
	var mu sync.Mutex
	return ItemSourceFunc(func(ctx context.Context) (*Item, error) {
		mu.Lock()
		defer mu.Unlock()
		for len(srcs) > 0 {
			it, err := srcs[0].Next(ctx)
			if err == io.EOF {
				srcs = srcs[1:]
				continue
			}
			return it, err
		}
		return nil, io.EOF
	})
}
