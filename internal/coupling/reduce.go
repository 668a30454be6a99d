package coupling

import (
	"path"
	"strconv"
	"strings"
)

var lockfiles = map[string]bool{
	"package-lock.json":   true,
	"npm-shrinkwrap.json": true,
	"yarn.lock":           true,
	"pnpm-lock.yaml":      true,
	"bun.lockb":           true,
	"composer.lock":       true,
	"gemfile.lock":        true,
	"cargo.lock":          true,
	"poetry.lock":         true,
	"pipfile.lock":        true,
	"go.sum":              true,
	"mix.lock":            true,
	"podfile.lock":        true,
}

var noiseDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"third_party":  true,
	"dist":         true,
	"out":          true,
	"build":        true,
	".yarn":        true,
	".pnpm":        true,
}

// FiltersApplied describes the noise filters, for display next to the heatmap.
func FiltersApplied(l *Limits, ignoredCount int) []string {
	filters := []string{
		"Commits touching more than " + strconv.Itoa(l.MaxFilesPerCommit) + " files are skipped",
		"Dotfiles and dot-directories are skipped",
		"Lockfiles, Dockerfiles and compose files are skipped",
		"node_modules, vendor, third_party, dist, out, build, .yarn and .pnpm are skipped",
		"Minified assets are skipped",
	}
	if ignoredCount > 0 {
		filters = append(filters, strconv.Itoa(ignoredCount)+" gitignored paths were skipped")
	}
	return filters
}

// IsNoisePath reports whether a folder-relative path is excluded from
// co-change analysis regardless of .gitignore.
func IsNoisePath(p string) bool {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
	segments := strings.Split(p, "/")
	for _, seg := range segments[:len(segments)-1] {
		if strings.HasPrefix(seg, ".") || noiseDirs[seg] {
			return true
		}
	}

	name := strings.ToLower(segments[len(segments)-1])
	switch {
	case strings.HasPrefix(name, "."):
		// .gitignore, .gitattributes, .env and friends.
		return true
	case lockfiles[name]:
		return true
	case name == "dockerfile" || strings.HasPrefix(name, "dockerfile.") || strings.HasSuffix(name, ".dockerfile"):
		return true
	case isComposeFile(name):
		return true
	case strings.Contains(name, ".min."):
		return true
	}
	return false
}

func isComposeFile(name string) bool {
	for _, prefix := range []string{"docker-compose", "compose"} {
		if strings.HasPrefix(name, prefix) && (strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
			return true
		}
	}
	return false
}

// ModuleKey folds a folder-relative file path into a module key.
func ModuleKey(p string, g Granularity) string {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
	if g == FileLevel {
		return p
	}
	segments := strings.Split(p, "/")
	if len(segments) == 1 {
		// Files at the repository root group together.
		return "(root)"
	}
	if g == TwoLevel && len(segments) > 2 {
		return segments[0] + "/" + segments[1]
	}
	return segments[0]
}

// Reduce drops oversized commits and noise paths, then folds file churn into
// modules. Commits left with no modules are dropped.
func Reduce(commits []ParsedCommit, ignored map[string]bool, g Granularity, maxFiles int) []ReducedCommit {
	reduced := make([]ReducedCommit, 0, len(commits))
	for _, c := range commits {
		files := make([]FileChange, 0, len(c.Files))
		for _, f := range c.Files {
			if !ignored[f.Path] {
				files = append(files, f)
			}
		}
		if len(files) > maxFiles {
			continue
		}

		rc := ReducedCommit{
			Hash:      c.Hash,
			Timestamp: c.Timestamp,
			Author:    c.Author,
			Message:   c.Message,
			Modules:   make(map[string]int),
		}
		for _, f := range files {
			if IsNoisePath(f.Path) {
				continue
			}
			rc.Modules[ModuleKey(f.Path, g)] += f.Churn()
			rc.Files = append(rc.Files, f.Path)
		}
		if len(rc.Modules) > 0 {
			reduced = append(reduced, rc)
		}
	}
	return reduced
}
