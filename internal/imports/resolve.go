package imports

import (
	"context"
	"path/filepath"
	"strings"

	"archlens/internal/paths"
	"archlens/internal/workspace"
)

// DefaultExtensions are the source extensions probed during resolution.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// IsRelativeSpecifier reports whether a specifier names a path rather than a package.
func IsRelativeSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}

// Resolver maps relative and absolute specifiers to workspace files.
type Resolver struct {
	reader     workspace.FileReader
	folders    *paths.Context
	extensions []string
	known      map[string]bool
}

// NewResolver creates a resolver probing the given extensions (DefaultExtensions when empty).
func NewResolver(reader workspace.FileReader, folders *paths.Context, extensions []string) *Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	known := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		known[strings.ToLower(e)] = true
	}
	return &Resolver{reader: reader, folders: folders, extensions: extensions, known: known}
}

// HasSourceExtension reports whether path ends in a recognized extension.
func (r *Resolver) HasSourceExtension(path string) bool {
	return r.known[paths.Ext(path)]
}

// Candidates returns the probe list for a base path in order.
func (r *Resolver) Candidates(base string) []string {
	if r.HasSourceExtension(base) {
		return []string{base}
	}
	out := make([]string, 0, len(r.extensions)*2)
	for _, ext := range r.extensions {
		out = append(out, base+ext)
	}
	if filepath.Base(base) != "index" {
		for _, ext := range r.extensions {
			out = append(out, filepath.Join(base, "index"+ext))
		}
	}
	return out
}

// Resolve returns the first existing candidate for specifier imported from
// fromFile. ok is false for package specifiers and unresolvable paths.
func (r *Resolver) Resolve(ctx context.Context, fromFile, specifier string) (string, bool) {
	var base string
	switch {
	case strings.HasPrefix(specifier, "/"):
		root := r.folders.First()
		if root == "" {
			return "", false
		}
		base = paths.Join(root, strings.TrimPrefix(specifier, "/"))
	case IsRelativeSpecifier(specifier):
		base = paths.Join(filepath.Dir(fromFile), specifier)
	default:
		return "", false
	}

	for _, candidate := range r.Candidates(base) {
		if ctx.Err() != nil {
			return "", false
		}
		if r.reader.Exists(ctx, candidate) {
			return candidate, true
		}
	}
	return "", false
}
