package tmplstream

import (
	"path/filepath"

	"github.com/hashicorp/go-bexpr"
	"github.com/pkg/errors"
)

// itemMeta is what filter expressions select on.
//
//	Ext == ".hbs" and Dir matches "^pages"
type itemMeta struct {
	Path string `bexpr:"Path"`
	Name string `bexpr:"Name"`
	Ext  string `bexpr:"Ext"`
	Dir  string `bexpr:"Dir"`
	Size int    `bexpr:"Size"`
}

func metaOf(it *Item) itemMeta {
	return itemMeta{
		Path: it.Path,
		Name: it.Name(),
		Ext:  filepath.Ext(it.Path),
		Dir:  filepath.Dir(it.Rel()),
		Size: len(it.Contents),
	}
}

// filter decides which items get rendered. A nil filter matches everything.
type filter struct {
	eval *bexpr.Evaluator
}

// newFilter compiles expr. An empty expression yields a nil filter.
func newFilter(expr string) (*filter, error) {
	if expr == "" {
		return nil, nil
	}
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, errors.Wrap(err, "filter")
	}
	return &filter{eval: eval}, nil
}

// match reports whether it should be rendered.
func (f *filter) match(it *Item) (bool, error) {
	if f == nil {
		return true, nil
	}
	ok, err := f.eval.Evaluate(metaOf(it))
	if err != nil {
		return false, errors.Wrap(err, "filter")
	}
	return ok, nil
}
