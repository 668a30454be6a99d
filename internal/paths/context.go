package paths

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Context is the workspace folder list the analyzers operate on.
type Context struct {
	folders []string
}

// NewContext creates a workspace context from folder paths or file:// URIs.
// Folders are made absolute; the order given is preserved since the first
// folder anchors "/"-prefixed import specifiers.
func NewContext(folders ...string) (*Context, error) {
	ctx := &Context{}
	seen := make(map[string]bool)
	for _, f := range folders {
		p, ok := FromURI(f)
		if !ok {
			return nil, fmt.Errorf("unsupported workspace folder %q: only local paths are supported", f)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid workspace folder %q: %w", f, err)
		}
		if key := ComparisonKey(abs); !seen[key] {
			seen[key] = true
			ctx.folders = append(ctx.folders, abs)
		}
	}
	return ctx, nil
}

// Folders returns the workspace folders in configuration order.
func (c *Context) Folders() []string {
	return append([]string(nil), c.folders...)
}

// First returns the first workspace folder, or "" when there is none.
func (c *Context) First() string {
	if len(c.folders) == 0 {
		return ""
	}
	return c.folders[0]
}

// FolderFor returns the innermost workspace folder containing path.
func (c *Context) FolderFor(path string) (string, bool) {
	candidates := make([]string, 0, 1)
	for _, f := range c.folders {
		if IsWithin(path, f) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	return candidates[0], true
}

// Contains reports whether path lies in any workspace folder.
func (c *Context) Contains(path string) bool {
	_, ok := c.FolderFor(path)
	return ok
}

// RelativePath returns path relative to its workspace folder, falling back to
// the cleaned path when it lies outside every folder.
func (c *Context) RelativePath(path string) string {
	if folder, ok := c.FolderFor(path); ok {
		if rel := Relative(folder, path); rel != "" {
			return rel
		}
		return filepath.Base(folder)
	}
	return NormalizePath(filepath.Clean(path))
}
