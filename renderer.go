package tmplstream

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultFilePerms are the default file permissions for files rendered onto
	// disk when a specific file permission has not already been specified.
	defaultFilePerms = 0644
)

var (
	// ErrNoParentDir is the error returned with the parent directory is missing
	// and the user disabled it.
	errNoParentDir = errors.New("parent directory is missing")

	// ErrMissingDest is the error returned with the destination is empty.
	errMissingDest = errors.New("missing destination")
)

// FileRenderer writes rendered items under a destination directory.
type FileRenderer struct {
	createDestDirs bool
	dir            string
	ext            string
	perms          os.FileMode
	backup         BackupFunc
	dryRun         bool
}

// NewFileRenderer returns a new FileRenderer.
func NewFileRenderer(i FileRendererInput) *FileRenderer {
	backup := i.Backup
	if backup == nil {
		backup = func(string) {}
	}
	return &FileRenderer{
		createDestDirs: i.CreateDestDirs,
		dir:            i.Dir,
		ext:            i.Ext,
		perms:          i.Perms,
		backup:         backup,
		dryRun:         i.DryRun,
	}
}

// FileRendererInput is the input structure for NewFileRenderer.
type FileRendererInput struct {
	// CreateDestDirs causes missing directories on path to be created
	CreateDestDirs bool
	// Dir is the output root. Items are written at their path relative to
	// their base.
	Dir string
	// Ext, when set, replaces the extension of every written file.
	Ext string
	// Perms sets the mode of the file
	Perms os.FileMode
	// Backup causes a backup of the rendered file to be made
	Backup BackupFunc
	// DryRun reports what would render without writing.
	DryRun bool
}

// BackupFunc defines the function type passed in to make backups if previously
// rendered templates, if desired.
type BackupFunc func(path string)

// RenderResult is returned and stored. It contains the status of the render
// operation.
type RenderResult struct {
	// Path the item was, or would have been, written to.
	Path string

	// DidRender indicates if the template rendered to disk. This will be false
	// in the event of an error, but it will also be false in dry mode or when
	// the template on disk matches the new result.
	DidRender bool

	// WouldRender indicates if the template would have rendered to disk. This
	// will return false in the event of an error, but will return true in dry
	// mode or when the template on disk matches the new result.
	WouldRender bool
}

// Dest is the file path the item renders to. It always lies inside the
// output directory: a relative path climbing out with ".." or an absolute
// path is re-rooted there.
func (r *FileRenderer) Dest(it *Item) string {
	rel := contain(it.Rel())
	if r.ext != "" {
		rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + r.ext
	}
	return filepath.Join(r.dir, rel)
}

// contain cleans rel as if it were rooted, which resolves every ".." against
// the root, and returns it relative again.
func contain(rel string) string {
	sep := string(filepath.Separator)
	rel = strings.TrimPrefix(rel, filepath.VolumeName(rel))
	return strings.TrimPrefix(filepath.Clean(sep+rel), sep)
}

// Render writes the item's contents under the output directory. Unchanged
// files are left alone and null items are skipped.
func (r *FileRenderer) Render(it *Item) (RenderResult, error) {
	if it.IsNull() {
		return RenderResult{}, nil
	}
	res := RenderResult{Path: r.Dest(it), WouldRender: true}

	existing, err := os.ReadFile(res.Path)
	switch {
	case err == nil && bytes.Equal(existing, it.Contents):
		return res, nil
	case err != nil && !os.IsNotExist(err):
		return RenderResult{}, errors.Wrap(err, "read destination")
	case r.dryRun:
		return res, nil
	}

	r.backup(res.Path)
	if err := atomicWrite(res.Path, it.Contents, r.perms, r.createDestDirs); err != nil {
		return RenderResult{}, errors.Wrap(err, "write destination")
	}
	res.DidRender = true
	return res, nil
}

// Consume writes every item of a Stream until it closes. Stream errors and
// write errors are collected, writing continues past both.
func (r *FileRenderer) Consume(ch <-chan Result) ([]RenderResult, []error) {
	var (
		results []RenderResult
		errs    []error
	)
	for res := range ch {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		rr, err := r.Render(res.Item)
		if err != nil {
			errs = append(errs, &ItemError{Path: res.Item.Path, Err: err})
			continue
		}
		results = append(results, rr)
	}
	return results, errs
}

// Backup creates a [filename].bak copy, preserving the Mode
// Provided for convenience (to use as the BackupFunc) and an example.
func Backup(path string) {
	if path == "" {
		return
	}
	bak, old := path+".bak", path+".old.bak"
	os.Rename(bak, old) // ignore error
	if err := os.Link(path, bak); err == nil {
		os.Remove(old) // ignore error
	}
}

// atomicWrite replaces path with contents through a hidden temp file in
// the same directory, so readers never see a partial file and a later walk
// of the output skips leftovers. Missing parents are created 0755 when
// createDestDirs is set. A zero perms keeps the mode and owner of the file
// being replaced, or 0644 for a new one.
func atomicWrite(path string, contents []byte, perms os.FileMode, createDestDirs bool) error {
	if path == "" {
		return errMissingDest
	}
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if !createDestDirs {
			return errNoParentDir
		}
		if err := os.MkdirAll(parent, 0755); err != nil {
			return errors.Wrap(err, "create parent")
		}
	}

	f, err := os.CreateTemp(parent, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	_, err = f.Write(contents)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "write temp file")
	}

	if perms == 0 {
		prev, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			perms = defaultFilePerms
		case err != nil:
			return errors.Wrap(err, "stat destination")
		default:
			perms = prev.Mode()
			preserveOwner(tmp, prev)
		}
	}
	if err := os.Chmod(tmp, perms); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	return os.Rename(tmp, path)
}
