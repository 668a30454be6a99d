package coupling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	archerrors "archlens/internal/errors"
	"archlens/internal/graph"
	"archlens/internal/paths"
	"archlens/internal/workspace"
)

// EdgeCoChange is the edge kind of heatmap graph edges.
const EdgeCoChange = "coChange"

// Builder produces heatmap payloads from the git history of the first
// workspace folder.
type Builder struct {
	git     workspace.GitLogReader
	folders *paths.Context
	limits  *Limits
	logger  *slog.Logger
	now     func() time.Time
}

// NewBuilder creates a heatmap builder. A nil limits uses DefaultLimits.
func NewBuilder(git workspace.GitLogReader, folders *paths.Context, limits *Limits, logger *slog.Logger) *Builder {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Builder{
		git:     git,
		folders: folders,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for commit age decay.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// Build reads the git log for the window and computes the co-change heatmap.
func (b *Builder) Build(ctx context.Context, opts Options) (*graph.Payload, error) {
	start := time.Now()

	if b.git == nil {
		return nil, archerrors.New(archerrors.BackendUnavailable,
			"The git heatmap requires git, which is not available", nil,
			archerrors.GetSuggestedFixes(archerrors.BackendUnavailable))
	}
	root := ""
	if b.folders != nil {
		root = b.folders.First()
	}
	if root == "" {
		return nil, archerrors.New(archerrors.WorkspaceUnavailable,
			"The git heatmap requires a local folder to be open", nil, nil)
	}

	window := opts.WindowDays
	if window == 0 {
		window = b.limits.DefaultWindow
	}
	window = clampWindow(window)
	granularity := opts.Granularity
	if granularity == "" {
		granularity = b.limits.DefaultGranularity
	}

	raw, err := b.git.ReadGitLog(ctx, root, window)
	if err != nil {
		return nil, fmt.Errorf("reading git log: %w", err)
	}
	commits, skipped := ParseGitLog(raw)

	var warnings []string
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d git log records could not be parsed and were skipped.", skipped))
	}

	ignored, err := b.ignoredPaths(ctx, root, commits)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.logger.Warn("git check-ignore failed", "error", err.Error())
		warnings = append(warnings, "Gitignored paths could not be determined; no .gitignore filtering was applied.")
	}

	reduced := Reduce(commits, ignored, granularity, b.limits.MaxFilesPerCommit)
	matrix := BuildMatrix(reduced, b.now(), b.limits)

	payload := b.toPayload(root, matrix, granularity)
	payload.Warnings = warnings
	payload.Heatmap = &graph.Heatmap{
		Modules:           matrix.Modules,
		Cells:             matrix.Cells,
		ColorScale:        matrix.ColorScale,
		Granularity:       string(granularity),
		WindowDays:        window,
		TotalCommits:      len(commits),
		ConsideredCommits: len(reduced),
		FiltersApplied:    FiltersApplied(b.limits, len(ignored)),
	}
	payload.Summary = summarize(matrix, window, len(commits), len(reduced))

	b.logger.Info("Git heatmap built",
		"root", root,
		"windowDays", window,
		"granularity", string(granularity),
		"commits", len(commits),
		"considered", len(reduced),
		"modules", len(matrix.Modules),
		"cells", len(matrix.Cells),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return payload, nil
}

func (b *Builder) ignoredPaths(ctx context.Context, root string, commits []ParsedCommit) (map[string]bool, error) {
	seen := make(map[string]bool)
	var all []string
	for _, c := range commits {
		for _, f := range c.Files {
			if !seen[f.Path] {
				seen[f.Path] = true
				all = append(all, f.Path)
			}
		}
	}
	ignored := make(map[string]bool)
	if len(all) == 0 {
		return ignored, nil
	}
	sort.Strings(all)
	hits, err := b.git.FilterIgnoredPaths(ctx, root, all)
	if err != nil {
		return ignored, err
	}
	for _, p := range hits {
		ignored[p] = true
	}
	return ignored, nil
}

// toPayload draws one node per module and one edge per off-diagonal cell.
func (b *Builder) toPayload(root string, m *Matrix, g Granularity) *graph.Payload {
	ids := make(map[string]string, len(m.Modules))
	nodes := make([]graph.Node, 0, len(m.Modules))
	index := make(map[string]int, len(m.Modules))
	for _, mod := range m.Modules {
		id := graph.NodeID("module:" + mod)
		ids[mod] = id
		index[mod] = len(nodes)
		p := root
		if mod != "(root)" {
			p = paths.Join(root, mod)
		}
		nodes = append(nodes, graph.Node{
			ID:       id,
			Label:    mod,
			Path:     p,
			Kind:     graph.NodeRelative,
			Weight:   float64(max(1, m.Churn[mod])),
			Openable: g == FileLevel,
		})
	}

	edges := make([]graph.Edge, 0, len(m.Cells))
	for _, c := range m.Cells {
		if c.Row == c.Column {
			continue
		}
		src, tgt := ids[c.Row], ids[c.Column]
		nodes[index[c.Row]].FanOut++
		nodes[index[c.Column]].FanIn++
		edges = append(edges, graph.Edge{
			ID:     graph.EdgeID(src, tgt),
			Source: src,
			Target: tgt,
			Label:  fmt.Sprintf("%.2f", c.NormalizedWeight),
			Kind:   EdgeCoChange,
		})
	}

	return &graph.Payload{
		Mode:        graph.ModeHeatmap,
		Nodes:       nodes,
		Edges:       edges,
		GeneratedAt: b.now().UnixMilli(),
	}
}

func summarize(m *Matrix, window, total, considered int) []string {
	lines := []string{
		fmt.Sprintf("%d of %d commits in the last %d days were considered.", considered, total, window),
	}
	if len(m.Modules) == 0 {
		return append(lines, "No module activity was found in this window.")
	}

	top := m.Modules
	if len(top) > 5 {
		top = top[:5]
	}
	churn := make([]string, 0, len(top))
	for _, mod := range top {
		churn = append(churn, fmt.Sprintf("%s (%d lines)", mod, m.Churn[mod]))
	}
	lines = append(lines, "Highest churn: "+strings.Join(churn, ", "))

	var strongest []string
	for _, c := range m.Cells {
		if c.Row == c.Column {
			continue
		}
		strongest = append(strongest, fmt.Sprintf("%s <-> %s (%.2f, %s, %d commits)",
			c.Row, c.Column, c.NormalizedWeight, couplingLevel(c.NormalizedWeight), c.CommitCount))
		if len(strongest) == 5 {
			break
		}
	}
	if len(strongest) > 0 {
		lines = append(lines, "Strongest couplings: "+strings.Join(strongest, "; "))
	}
	return lines
}
