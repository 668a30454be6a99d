package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MemFS is an in-memory FileReader and FileSearch, used for virtual
// workspaces and tests.
type MemFS struct {
	searcher
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemFS creates an empty in-memory workspace.
func NewMemFS() *MemFS {
	m := &MemFS{files: make(map[string][]byte)}
	m.searcher = searcher{src: memSource{m}, excludes: DefaultExcludes}
	return m
}

// WriteFile adds or replaces a file.
func (m *MemFS) WriteFile(path string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = []byte(content)
}

// ReadFile returns the file content.
func (m *MemFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether path is a file or an implied directory.
func (m *MemFS) Exists(_ context.Context, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clean := filepath.Clean(path)
	if _, ok := m.files[clean]; ok {
		return true
	}
	return m.isDir(clean)
}

func (m *MemFS) isDir(clean string) bool {
	prefix := clean + string(filepath.Separator)
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Stat describes path.
func (m *MemFS) Stat(_ context.Context, path string) (*FileStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clean := filepath.Clean(path)
	if data, ok := m.files[clean]; ok {
		return &FileStat{Size: int64(len(data))}, nil
	}
	if !m.isDir(clean) {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	prefix := clean + string(filepath.Separator)
	seen := make(map[string]bool)
	st := &FileStat{IsDirectory: true}
	for p := range m.files {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			name := strings.SplitN(rest, string(filepath.Separator), 2)[0]
			if !seen[name] {
				seen[name] = true
				st.Children = append(st.Children, name)
			}
		}
	}
	sort.Strings(st.Children)
	return st, nil
}

// FindFiles runs a glob file search.
func (m *MemFS) FindFiles(ctx context.Context, q FileQuery) (*FileSearchResult, error) {
	return m.findFiles(ctx, q)
}

// FindText runs a regular-expression search, reporting matches per file.
func (m *MemFS) FindText(ctx context.Context, q TextQuery, onFile func(FileMatches)) (*TextSearchResult, error) {
	return m.findText(ctx, q, onFile)
}

type memSource struct{ m *MemFS }

func (s memSource) walk(ctx context.Context, folder string, skipDir func(string) bool, fn func(abs, rel string) error) error {
	s.m.mu.RLock()
	keys := make([]string, 0, len(s.m.files))
	for p := range s.m.files {
		keys = append(keys, p)
	}
	s.m.mu.RUnlock()
	sort.Strings(keys)

	folder = filepath.Clean(folder)
	for _, p := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(folder, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if skipped(rel, skipDir) {
			continue
		}
		if err := fn(p, rel); err != nil {
			return err
		}
	}
	return nil
}

// skipped applies skipDir to each ancestor directory of rel.
func skipped(rel string, skipDir func(string) bool) bool {
	segs := strings.Split(rel, "/")
	for i := 1; i < len(segs); i++ {
		if skipDir(strings.Join(segs[:i], "/")) {
			return true
		}
	}
	return false
}

func (s memSource) read(ctx context.Context, abs string) ([]byte, error) {
	return s.m.ReadFile(ctx, abs)
}

// String lists the stored paths; handy in test failure messages.
func (m *MemFS) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.files))
	for p := range m.files {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	return fmt.Sprintf("MemFS%v", keys)
}
