// Package paths provides the path and workspace-folder helpers shared by the
// import graph, architecture analyzer and heatmap builders.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// FileScheme is the only URI scheme the local collaborators understand.
const FileScheme = "file://"

// CanonicalizePath converts an absolute path to a root-relative canonical path
// with forward slashes. Symlinks are resolved when the path exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(root)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithin reports whether path lies inside root (or is root itself).
// Purely lexical: no symlink resolution.
func IsWithin(path string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// NormalizePath converts OS separators to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// Join joins a base path with slash-separated relative elements.
func Join(base string, elems ...string) string {
	parts := []string{base}
	for _, e := range elems {
		parts = append(parts, strings.Split(strings.ReplaceAll(e, "\\", "/"), "/")...)
	}
	return filepath.Join(parts...)
}

// Dir returns all but the last element of path.
func Dir(path string) string { return filepath.Dir(path) }

// Base returns the last element of path.
func Base(path string) string { return filepath.Base(path) }

// Ext returns the lower-cased file extension including the dot.
func Ext(path string) string { return strings.ToLower(filepath.Ext(path)) }

// Relative returns path relative to folder using forward slashes, or "" when
// path is not inside folder.
func Relative(folder string, path string) string {
	if !IsWithin(path, folder) {
		return ""
	}
	rel, err := filepath.Rel(filepath.Clean(folder), filepath.Clean(path))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// ComparisonKey returns a stable key for a resource: cleaned, slash separated,
// and case-folded on case-insensitive platforms.
func ComparisonKey(path string) string {
	key := filepath.ToSlash(filepath.Clean(path))
	if runtime.GOOS == "windows" {
		key = strings.ToLower(key)
	}
	return key
}

// FromURI turns a file:// URI or plain path into a local path. ok is false for
// any other scheme.
func FromURI(uri string) (path string, ok bool) {
	if strings.HasPrefix(uri, FileScheme) {
		return filepath.FromSlash(strings.TrimPrefix(uri, FileScheme)), true
	}
	if i := strings.Index(uri, "://"); i > 0 && !strings.ContainsAny(uri[:i], `/\`) {
		return "", false
	}
	return uri, true
}

// vendoredSegments are directories holding third-party code.
var vendoredSegments = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"jspm_packages":    true,
	"vendor":           true,
	"third_party":      true,
	"web_modules":      true,
	".pnpm":            true,
	".yarn":            true,
}

// excludedSegments are generated or tooling directories never worth opening.
var excludedSegments = map[string]bool{
	".git":        true,
	".hg":         true,
	".svn":        true,
	"dist":        true,
	"out":         true,
	"build":       true,
	"coverage":    true,
	".next":       true,
	".nuxt":       true,
	".turbo":      true,
	".cache":      true,
	"__pycache__": true,
	".venv":       true,
}

// IsVendored reports whether any path segment is a vendored-package directory.
func IsVendored(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if vendoredSegments[seg] {
			return true
		}
	}
	return false
}

// IsExcluded reports whether the path is vendored or inside a generated/tooling directory.
func IsExcluded(path string) bool {
	if IsVendored(path) {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if excludedSegments[seg] {
			return true
		}
	}
	return false
}
