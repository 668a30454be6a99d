// Package coupling builds the git co-change heatmap: which parts of the
// workspace historically change together, weighted toward recent commits.
package coupling

import (
	"fmt"
	"time"

	"archlens/internal/config"
)

// Granularity selects how file paths fold into heatmap modules.
type Granularity string

const (
	// TopLevel groups by the first path segment.
	TopLevel Granularity = "topLevel"
	// TwoLevel groups by the first two path segments.
	TwoLevel Granularity = "twoLevel"
	// FileLevel keeps every file as its own module.
	FileLevel Granularity = "file"
)

// ParseGranularity validates a granularity name. Empty means TopLevel.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", TopLevel:
		return TopLevel, nil
	case TwoLevel, FileLevel:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q (want topLevel, twoLevel or file)", s)
}

// FileChange is one numstat line.
type FileChange struct {
	Path      string
	Additions int
	Deletions int
}

// Churn is additions plus deletions.
func (f FileChange) Churn() int { return f.Additions + f.Deletions }

// ParsedCommit is a commit read from the git log.
type ParsedCommit struct {
	Hash      string
	Timestamp time.Time
	Author    string
	Message   string
	Files     []FileChange
}

// ReducedCommit is a commit after noise filtering, with churn folded per module.
type ReducedCommit struct {
	Hash      string
	Timestamp time.Time
	Author    string
	Message   string
	Modules   map[string]int
	Files     []string
}

// Options are the per-request heatmap parameters.
type Options struct {
	WindowDays  int
	Granularity Granularity
}

// Limits bound the heatmap computation.
type Limits struct {
	MaxFilesPerCommit int
	MaxModules        int
	MaxCells          int
	// DecayDays is the e-folding time of the commit age weight.
	DecayDays          float64
	MinWeight          float64
	AbsoluteFloor      float64
	NormalizedFloor    float64
	SamplesPerCell     int
	FilesPerSample     int
	DefaultWindow      int
	DefaultGranularity Granularity
}

// DefaultLimits returns the standard heatmap limits.
func DefaultLimits() *Limits {
	return &Limits{
		MaxFilesPerCommit:  40,
		MaxModules:         120,
		MaxCells:           2500,
		DecayDays:          90,
		MinWeight:          0.05,
		AbsoluteFloor:      0.45,
		NormalizedFloor:    0.05,
		SamplesPerCell:     5,
		FilesPerSample:     6,
		DefaultWindow:      90,
		DefaultGranularity: TopLevel,
	}
}

// LimitsFromConfig overlays the configured heatmap settings on the defaults.
func LimitsFromConfig(cfg config.HeatmapConfig) *Limits {
	l := DefaultLimits()
	if cfg.MaxFilesPerCommit > 0 {
		l.MaxFilesPerCommit = cfg.MaxFilesPerCommit
	}
	if cfg.MaxModules > 0 {
		l.MaxModules = cfg.MaxModules
	}
	if cfg.MaxCells > 0 {
		l.MaxCells = cfg.MaxCells
	}
	if cfg.HalfLifeDays > 0 {
		l.DecayDays = cfg.HalfLifeDays
	}
	if cfg.WindowDays > 0 {
		l.DefaultWindow = cfg.WindowDays
	}
	if g, err := ParseGranularity(cfg.Granularity); err == nil {
		l.DefaultGranularity = g
	}
	return l
}

// clampWindow keeps the log window within one year.
func clampWindow(days int) int {
	switch {
	case days < 1:
		return 1
	case days > 365:
		return 365
	}
	return days
}

// couplingLevel buckets a normalized weight for summaries.
func couplingLevel(normalized float64) string {
	switch {
	case normalized >= 0.8:
		return "high"
	case normalized >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
