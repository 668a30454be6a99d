package coupling

import (
	"strconv"
	"strings"
	"time"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// ParseGitLog parses `git log --numstat --format=%x1e%H%x1f%at%x1f%an%x1f%s`
// output. Records with an unreadable header are skipped and counted.
func ParseGitLog(raw string) (commits []ParsedCommit, skipped int) {
	for _, record := range strings.Split(raw, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		commit, ok := parseRecord(record)
		if !ok {
			skipped++
			continue
		}
		commits = append(commits, commit)
	}
	return commits, skipped
}

func parseRecord(record string) (ParsedCommit, bool) {
	lines := strings.Split(strings.ReplaceAll(record, "\r\n", "\n"), "\n")
	header := strings.SplitN(lines[0], fieldSep, 4)
	if len(header) < 3 || header[0] == "" {
		return ParsedCommit{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(header[1]), 10, 64)
	if err != nil {
		return ParsedCommit{}, false
	}

	c := ParsedCommit{
		Hash:      strings.TrimSpace(header[0]),
		Timestamp: time.Unix(secs, 0).UTC(),
		Author:    header[2],
	}
	if len(header) == 4 {
		c.Message = strings.TrimSpace(header[3])
	}

	seen := make(map[string]int)
	for _, line := range lines[1:] {
		fc, ok := parseNumstat(line)
		if !ok {
			continue
		}
		// The same path can appear twice when a rename collapses onto it.
		if i, dup := seen[fc.Path]; dup {
			c.Files[i].Additions += fc.Additions
			c.Files[i].Deletions += fc.Deletions
			continue
		}
		seen[fc.Path] = len(c.Files)
		c.Files = append(c.Files, fc)
	}
	return c, true
}

// parseNumstat reads "<added>\t<removed>\t<path>". Binary files report "-"
// and count as zero churn.
func parseNumstat(line string) (FileChange, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return FileChange{}, false
	}
	path := renameTarget(strings.TrimSpace(parts[2]))
	if path == "" {
		return FileChange{}, false
	}
	add, ok := parseCount(parts[0])
	if !ok {
		return FileChange{}, false
	}
	del, ok := parseCount(parts[1])
	if !ok {
		return FileChange{}, false
	}
	return FileChange{Path: path, Additions: add, Deletions: del}, true
}

func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// renameTarget resolves numstat rename notation to the new path:
// "a => b" and "dir/{old => new}/file".
func renameTarget(path string) string {
	open := strings.Index(path, "{")
	if open >= 0 {
		if end := strings.Index(path[open:], "}"); end > 0 {
			inner := path[open+1 : open+end]
			if arrow := strings.Index(inner, " => "); arrow >= 0 {
				joined := path[:open] + inner[arrow+4:] + path[open+end+1:]
				return strings.TrimPrefix(strings.ReplaceAll(joined, "//", "/"), "/")
			}
		}
	}
	if arrow := strings.Index(path, " => "); arrow >= 0 {
		return path[arrow+4:]
	}
	return path
}
