package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalFS implements FileReader and FileSearch over the local disk.
type LocalFS struct {
	searcher
}

// NewLocalFS creates a local file collaborator. extraExcludes are appended to
// DefaultExcludes for every search.
func NewLocalFS(extraExcludes ...string) *LocalFS {
	l := &LocalFS{}
	l.searcher = searcher{
		src:      diskSource{},
		excludes: append(append([]string(nil), DefaultExcludes...), extraExcludes...),
	}
	return l
}

// ReadFile reads the whole file.
func (l *LocalFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Exists reports whether a file or directory exists at path.
func (l *LocalFS) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Stat returns the resource kind and, for directories, its sorted entry names.
func (l *LocalFS) Stat(_ context.Context, path string) (*FileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	st := &FileStat{IsDirectory: info.IsDir(), Size: info.Size()}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			st.Children = append(st.Children, e.Name())
		}
		sort.Strings(st.Children)
	}
	return st, nil
}

// FindFiles runs a glob file search.
func (l *LocalFS) FindFiles(ctx context.Context, q FileQuery) (*FileSearchResult, error) {
	return l.findFiles(ctx, q)
}

// FindText runs a regular-expression search, reporting matches per file.
func (l *LocalFS) FindText(ctx context.Context, q TextQuery, onFile func(FileMatches)) (*TextSearchResult, error) {
	return l.findText(ctx, q, onFile)
}

type diskSource struct{}

func (diskSource) walk(ctx context.Context, folder string, skipDir func(string) bool, fn func(abs, rel string) error) error {
	return filepath.WalkDir(folder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, not fatal
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		rel, rerr := filepath.Rel(folder, p)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && skipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(p, rel)
	})
}

func (diskSource) read(ctx context.Context, abs string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}
