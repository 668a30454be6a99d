// Package workspace defines the collaborators the analyzers consume (file
// reading, file/text search, git history, symbol lookup) and ships local-disk
// and in-memory implementations of the file collaborators.
package workspace

import "context"

// FileStat describes a resource returned by FileReader.Stat.
type FileStat struct {
	IsDirectory bool
	Size        int64
	// Children holds entry names for directories.
	Children []string
}

// FileReader reads workspace resources.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Stat(ctx context.Context, path string) (*FileStat, error)
}

// FileQuery is a glob-based file search.
type FileQuery struct {
	Folders []string
	// Include and Exclude are doublestar globs matched against folder-relative paths.
	Include []string
	Exclude []string
	// FilePattern is a glob matched against the file name only.
	FilePattern string
	MaxResults  int
}

// FileSearchResult lists matching files in walk order.
type FileSearchResult struct {
	Files    []string
	LimitHit bool
}

// TextQuery is a regular-expression full-text search.
type TextQuery struct {
	Folders       []string
	Pattern       string
	CaseSensitive bool
	Multiline     bool
	Include       []string
	Exclude       []string
	MaxResults    int
}

// MatchPreview is one match inside a file.
type MatchPreview struct {
	Line int
	Text string
}

// FileMatches groups the previews found in one file.
type FileMatches struct {
	Path    string
	Matches []MatchPreview
}

// TextSearchResult reports the outcome of a text search; matches are
// delivered through the progress callback.
type TextSearchResult struct {
	FilesSearched int
	MatchCount    int
	LimitHit      bool
}

// FileSearch performs file and text searches over workspace folders.
type FileSearch interface {
	FindFiles(ctx context.Context, q FileQuery) (*FileSearchResult, error)
	FindText(ctx context.Context, q TextQuery, onFile func(FileMatches)) (*TextSearchResult, error)
}

// GitLogReader exposes the git history needed by the co-change heatmap.
type GitLogReader interface {
	// ReadGitLog returns commits from the last windowDays in the
	// \x1e/\x1f-delimited header plus numstat format.
	ReadGitLog(ctx context.Context, root string, windowDays int) (string, error)
	// FilterIgnoredPaths returns the subset of paths that git ignores.
	FilterIgnoredPaths(ctx context.Context, root string, paths []string) ([]string, error)
}

// Symbol is a workspace symbol search hit.
type Symbol struct {
	Name          string `json:"name"`
	ContainerName string `json:"containerName,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Path          string `json:"path"`
	Line          int    `json:"line"`
}

// SymbolIndex answers workspace-wide symbol queries.
type SymbolIndex interface {
	QueryWorkspaceSymbols(ctx context.Context, name string) ([]Symbol, error)
}
