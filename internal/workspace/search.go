package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// maxSearchFileSize skips large files during text search.
	maxSearchFileSize = 1 << 20
	// maxPreviewLen caps the preview text of a single match.
	maxPreviewLen = 400
)

// DefaultExcludes are applied to every search in addition to the query's own.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/bower_components/**",
	"**/.git/**",
	"**/dist/**",
	"**/out/**",
	"**/build/**",
	"**/.next/**",
	"**/coverage/**",
}

// source abstracts the tree a searcher walks.
type source interface {
	// walk calls fn for every file under folder with its folder-relative
	// slash path; skipDir is consulted for directories.
	walk(ctx context.Context, folder string, skipDir func(rel string) bool, fn func(abs, rel string) error) error
	read(ctx context.Context, abs string) ([]byte, error)
}

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("stop walk")

type searcher struct {
	src      source
	excludes []string
}

func (s *searcher) excluded(patterns []string, rel string, dir bool) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if dir {
			if ok, _ := doublestar.Match(p, rel+"/_"); ok {
				return true
			}
		}
	}
	return false
}

func included(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (s *searcher) findFiles(ctx context.Context, q FileQuery) (*FileSearchResult, error) {
	excludes := append(append([]string(nil), s.excludes...), q.Exclude...)
	res := &FileSearchResult{}
	for _, folder := range q.Folders {
		err := s.src.walk(ctx, folder,
			func(rel string) bool { return s.excluded(excludes, rel, true) },
			func(abs, rel string) error {
				if s.excluded(excludes, rel, false) || !included(q.Include, rel) {
					return nil
				}
				if q.FilePattern != "" {
					if ok, _ := doublestar.Match(q.FilePattern, path.Base(rel)); !ok {
						return nil
					}
				}
				if q.MaxResults > 0 && len(res.Files) >= q.MaxResults {
					res.LimitHit = true
					return errStopWalk
				}
				res.Files = append(res.Files, abs)
				return nil
			})
		if err != nil && err != errStopWalk {
			return res, err
		}
		if res.LimitHit {
			break
		}
	}
	return res, nil
}

// compilePattern builds the Go regexp for a text query.
func compilePattern(q TextQuery) (*regexp.Regexp, error) {
	flags := ""
	if !q.CaseSensitive {
		flags += "i"
	}
	if q.Multiline {
		flags += "m"
	}
	expr := q.Pattern
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}
	return regexp.Compile(expr)
}

func (s *searcher) findText(ctx context.Context, q TextQuery, onFile func(FileMatches)) (*TextSearchResult, error) {
	re, err := compilePattern(q)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", q.Pattern, err)
	}
	excludes := append(append([]string(nil), s.excludes...), q.Exclude...)
	res := &TextSearchResult{}

	for _, folder := range q.Folders {
		err := s.src.walk(ctx, folder,
			func(rel string) bool { return s.excluded(excludes, rel, true) },
			func(abs, rel string) error {
				if s.excluded(excludes, rel, false) || !included(q.Include, rel) {
					return nil
				}
				data, err := s.src.read(ctx, abs)
				if err != nil || len(data) > maxSearchFileSize || bytes.IndexByte(data, 0) >= 0 {
					return nil
				}
				res.FilesSearched++

				locs := re.FindAllIndex(data, -1)
				if len(locs) == 0 {
					return nil
				}
				fm := FileMatches{Path: abs}
				for _, loc := range locs {
					if q.MaxResults > 0 && res.MatchCount >= q.MaxResults {
						res.LimitHit = true
						break
					}
					res.MatchCount++
					fm.Matches = append(fm.Matches, MatchPreview{
						Line: bytes.Count(data[:loc[0]], []byte{'\n'}) + 1,
						Text: preview(data[loc[0]:loc[1]]),
					})
				}
				if len(fm.Matches) > 0 && onFile != nil {
					onFile(fm)
				}
				if res.LimitHit {
					return errStopWalk
				}
				return nil
			})
		if err != nil && err != errStopWalk {
			return res, err
		}
		if res.LimitHit {
			break
		}
	}
	return res, nil
}

func preview(b []byte) string {
	text := string(b)
	if len(text) > maxPreviewLen {
		text = text[:maxPreviewLen]
	}
	return strings.ToValidUTF8(text, "")
}
