package coupling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	archerrors "archlens/internal/errors"
	"archlens/internal/graph"
	"archlens/internal/paths"
	"archlens/internal/slogutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func logRecord(hash string, ts time.Time, author, subject string, numstat ...string) string {
	var sb strings.Builder
	sb.WriteString("\x1e" + hash + "\x1f" + fmt.Sprint(ts.Unix()) + "\x1f" + author + "\x1f" + subject + "\n\n")
	for _, line := range numstat {
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func TestParseGitLog(t *testing.T) {
	raw := logRecord("aaa", testNow, "Ada", "feat: login",
		"10\t2\tsrc/auth/login.ts",
		"-\t-\tassets/logo.png",
		"3\t1\tsrc/{old => new}/util.ts",
	) + logRecord("bbb", testNow.Add(-time.Hour), "Bob", "fix", "1\t1\tREADME.md") +
		"\x1enot-a-header\n"

	commits, skipped := ParseGitLog(raw)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}

	c := commits[0]
	if c.Hash != "aaa" || c.Author != "Ada" || c.Message != "feat: login" || !c.Timestamp.Equal(testNow) {
		t.Errorf("unexpected header: %+v", c)
	}
	want := []FileChange{
		{Path: "src/auth/login.ts", Additions: 10, Deletions: 2},
		{Path: "assets/logo.png"},
		{Path: "src/new/util.ts", Additions: 3, Deletions: 1},
	}
	if len(c.Files) != len(want) {
		t.Fatalf("files = %+v", c.Files)
	}
	for i, f := range want {
		if c.Files[i] != f {
			t.Errorf("file %d = %+v, want %+v", i, c.Files[i], f)
		}
	}
}

func TestRenameTarget(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"src/a.ts", "src/a.ts"},
		{"old.ts => new.ts", "new.ts"},
		{"src/{a => b}/x.ts", "src/b/x.ts"},
		{"src/{ => nested}/x.ts", "src/nested/x.ts"},
		{"src/{nested => }/x.ts", "src/x.ts"},
		{"{lib => pkg}/x.ts", "pkg/x.ts"},
	}
	for _, tt := range tests {
		if got := renameTarget(tt.in); got != tt.want {
			t.Errorf("renameTarget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsNoisePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/app.ts", false},
		{"README.md", false},
		{".gitignore", true},
		{".gitattributes", true},
		{".github/workflows/ci.yml", true},
		{"package-lock.json", true},
		{"web/yarn.lock", true},
		{"Dockerfile", true},
		{"deploy/api.Dockerfile", true},
		{"docker-compose.yml", true},
		{"compose.yaml", true},
		{"node_modules/react/index.js", true},
		{"vendor/github.com/x/y.go", true},
		{"third_party/lib.c", true},
		{"public/app.min.js", true},
		{"dist/bundle.js", true},
		{"packages/ui/build/out.js", true},
		{"builder/main.go", false},
	}
	for _, tt := range tests {
		if got := IsNoisePath(tt.path); got != tt.want {
			t.Errorf("IsNoisePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestModuleKey(t *testing.T) {
	tests := []struct {
		path string
		g    Granularity
		want string
	}{
		{"src/auth/login.ts", TopLevel, "src"},
		{"src/auth/login.ts", TwoLevel, "src/auth"},
		{"src/index.ts", TwoLevel, "src"},
		{"src/auth/login.ts", FileLevel, "src/auth/login.ts"},
		{"README.md", TopLevel, "(root)"},
		{"README.md", FileLevel, "README.md"},
	}
	for _, tt := range tests {
		if got := ModuleKey(tt.path, tt.g); got != tt.want {
			t.Errorf("ModuleKey(%q, %s) = %q, want %q", tt.path, tt.g, got, tt.want)
		}
	}
}

func commitWithFiles(hash string, n int) ParsedCommit {
	c := ParsedCommit{Hash: hash, Timestamp: testNow}
	for i := 0; i < n; i++ {
		c.Files = append(c.Files, FileChange{Path: fmt.Sprintf("m%d/f.ts", i), Additions: 1})
	}
	return c
}

func TestReduce_MaxFilesPerCommit(t *testing.T) {
	commits := []ParsedCommit{commitWithFiles("forty", 40), commitWithFiles("fortyone", 41)}

	reduced := Reduce(commits, nil, TopLevel, 40)
	if len(reduced) != 1 || reduced[0].Hash != "forty" {
		t.Fatalf("reduced = %+v, want only the 40-file commit", reduced)
	}
	if len(reduced[0].Modules) != 40 {
		t.Errorf("got %d modules, want 40", len(reduced[0].Modules))
	}
}

func TestReduce_FiltersIgnoredAndNoise(t *testing.T) {
	commits := []ParsedCommit{
		{Hash: "a", Timestamp: testNow, Files: []FileChange{
			{Path: "src/a.ts", Additions: 5, Deletions: 5},
			{Path: "src/b.ts", Additions: 1},
			{Path: "generated/schema.ts", Additions: 100},
			{Path: "package-lock.json", Additions: 900},
		}},
		{Hash: "b", Timestamp: testNow, Files: []FileChange{{Path: "yarn.lock", Additions: 3}}},
	}
	ignored := map[string]bool{"generated/schema.ts": true}

	reduced := Reduce(commits, ignored, TopLevel, 40)
	if len(reduced) != 1 {
		t.Fatalf("reduced = %+v, want the noise-only commit dropped", reduced)
	}
	if got := reduced[0].Modules; len(got) != 1 || got["src"] != 11 {
		t.Errorf("modules = %v, want src:11", got)
	}
	if len(reduced[0].Files) != 2 {
		t.Errorf("files = %v", reduced[0].Files)
	}
}

func reducedCommit(hash string, ts time.Time, modules ...string) ReducedCommit {
	rc := ReducedCommit{Hash: hash, Timestamp: ts, Modules: make(map[string]int)}
	for _, m := range modules {
		rc.Modules[m] = 10
		rc.Files = append(rc.Files, m+"/file.ts")
	}
	return rc
}

func findCell(cells []graph.HeatmapCell, a, b string) (graph.HeatmapCell, bool) {
	for _, c := range cells {
		if (c.Row == a && c.Column == b) || (c.Row == b && c.Column == a) {
			return c, true
		}
	}
	return graph.HeatmapCell{}, false
}

func TestBuildMatrix_NonCooccurringPairsAbsent(t *testing.T) {
	commits := []ReducedCommit{
		reducedCommit("1", testNow, "api", "web"),
		reducedCommit("2", testNow, "db"),
	}
	m := BuildMatrix(commits, testNow, DefaultLimits())

	if _, ok := findCell(m.Cells, "api", "db"); ok {
		t.Error("api and db never changed together but share a cell")
	}
	if _, ok := findCell(m.Cells, "web", "db"); ok {
		t.Error("web and db never changed together but share a cell")
	}
	cell, ok := findCell(m.Cells, "api", "web")
	if !ok {
		t.Fatal("expected an api/web cell")
	}
	if cell.CommitCount != 1 || cell.NormalizedWeight != 1 {
		t.Errorf("api/web cell = %+v", cell)
	}
	if self, ok := findCell(m.Cells, "db", "db"); !ok || self.NormalizedWeight != 1 {
		t.Errorf("db self cell = %+v, %v", self, ok)
	}
}

func TestBuildMatrix_SymmetricCanonicalCells(t *testing.T) {
	commits := []ReducedCommit{
		reducedCommit("1", testNow, "web", "api"),
		reducedCommit("2", testNow.AddDate(0, 0, -30), "api", "web", "db"),
		reducedCommit("3", testNow.AddDate(0, 0, -10), "db", "web"),
	}
	m := BuildMatrix(commits, testNow, DefaultLimits())

	seen := make(map[string]bool)
	for _, c := range m.Cells {
		if c.Row > c.Column {
			t.Errorf("cell %s/%s is not canonical", c.Row, c.Column)
		}
		key := c.Row + "|" + c.Column
		if seen[key] {
			t.Errorf("duplicate cell %s", key)
		}
		seen[key] = true
	}

	// Reversing module order inside the commits must not change the weights.
	reversed := []ReducedCommit{
		reducedCommit("1", testNow, "api", "web"),
		reducedCommit("2", testNow.AddDate(0, 0, -30), "db", "web", "api"),
		reducedCommit("3", testNow.AddDate(0, 0, -10), "web", "db"),
	}
	m2 := BuildMatrix(reversed, testNow, DefaultLimits())
	for _, c := range m.Cells {
		other, ok := findCell(m2.Cells, c.Column, c.Row)
		if !ok || other.NormalizedWeight != c.NormalizedWeight {
			t.Errorf("cell %s/%s = %v, reversed = %v", c.Row, c.Column, c.NormalizedWeight, other.NormalizedWeight)
		}
	}
}

func TestBuildMatrix_DecayAndFloors(t *testing.T) {
	if w := decay(testNow.AddDate(0, 0, -90), testNow, 90, 0.05); w < 0.367 || w > 0.368 {
		t.Errorf("decay at 90 days = %v, want about 1/e", w)
	}
	if w := decay(testNow.AddDate(-3, 0, 0), testNow, 90, 0.05); w != 0.05 {
		t.Errorf("decay of an old commit = %v, want floor 0.05", w)
	}

	commits := []ReducedCommit{reducedCommit("old", testNow.AddDate(-3, 0, 0), "busy", "quiet")}
	for i := 0; i < 100; i++ {
		commits = append(commits, reducedCommit(fmt.Sprint(i), testNow, "busy"))
	}
	m := BuildMatrix(commits, testNow, DefaultLimits())
	if _, ok := findCell(m.Cells, "busy", "quiet"); ok {
		t.Error("weak pair below both floors should be dropped")
	}
}

func TestBuildMatrix_ModuleAndCellCaps(t *testing.T) {
	var commits []ReducedCommit
	for i := 0; i < 10; i++ {
		rc := reducedCommit(fmt.Sprint(i), testNow)
		rc.Modules[fmt.Sprintf("m%02d", i)] = i + 1
		rc.Modules["shared"] = 2
		commits = append(commits, rc)
	}
	l := DefaultLimits()
	l.MaxModules = 3
	l.MaxCells = 4
	m := BuildMatrix(commits, testNow, l)

	if len(m.Modules) != 3 || m.Modules[0] != "shared" || m.Modules[1] != "m09" {
		t.Errorf("modules = %v, want highest churn first", m.Modules)
	}
	if len(m.Cells) != 4 {
		t.Errorf("got %d cells, want cap 4", len(m.Cells))
	}
	for i := 1; i < len(m.Cells); i++ {
		if m.Cells[i].NormalizedWeight > m.Cells[i-1].NormalizedWeight {
			t.Error("cells should be sorted by normalized weight descending")
		}
	}
}

func TestColorScale(t *testing.T) {
	cells := []graph.HeatmapCell{{NormalizedWeight: 0.2}, {NormalizedWeight: 0}, {NormalizedWeight: 0.8}, {NormalizedWeight: 0.4}, {NormalizedWeight: 0.6}}
	got := colorScale(cells)
	if got.Min != 0.2 || got.Max != 0.8 || got.Median != 0.5 {
		t.Errorf("colorScale = %+v", got)
	}
	if got := colorScale(nil); got != (graph.ColorScale{}) {
		t.Errorf("empty colorScale = %+v", got)
	}
}

type fakeGit struct {
	log        string
	ignored    []string
	ignoreErr  error
	gotWindow  int
	gotRoot    string
	checkPaths []string
}

func (f *fakeGit) ReadGitLog(_ context.Context, root string, windowDays int) (string, error) {
	f.gotRoot = root
	f.gotWindow = windowDays
	return f.log, nil
}

func (f *fakeGit) FilterIgnoredPaths(_ context.Context, _ string, p []string) ([]string, error) {
	f.checkPaths = p
	return f.ignored, f.ignoreErr
}

func newTestBuilder(t *testing.T, git *fakeGit) *Builder {
	t.Helper()
	folders, err := paths.NewContext("/repo")
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(git, folders, nil, slogutil.NewDiscardLogger())
	b.SetClock(func() time.Time { return testNow })
	return b
}

func TestBuilder_Build(t *testing.T) {
	git := &fakeGit{
		log: logRecord("c1", testNow, "Ada", "api and web",
			"4\t1\tapi/server.ts", "2\t2\tweb/app.tsx", "1\t0\tgen/out.ts") +
			logRecord("c2", testNow.AddDate(0, 0, -1), "Bob", "api only", "7\t0\tapi/routes.ts"),
		ignored: []string{"gen/out.ts"},
	}
	b := newTestBuilder(t, git)

	p, err := b.Build(context.Background(), Options{WindowDays: 900, Granularity: TopLevel})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if git.gotWindow != 365 {
		t.Errorf("window passed to git = %d, want clamp to 365", git.gotWindow)
	}
	if len(git.checkPaths) != 4 {
		t.Errorf("check-ignore paths = %v", git.checkPaths)
	}

	h := p.Heatmap
	if p.Mode != graph.ModeHeatmap || h == nil {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if h.TotalCommits != 2 || h.ConsideredCommits != 2 || h.WindowDays != 365 || h.Granularity != "topLevel" {
		t.Errorf("heatmap header = %+v", h)
	}
	if len(h.Modules) != 2 || h.Modules[0] != "api" {
		t.Errorf("modules = %v, want [api web]", h.Modules)
	}
	for _, m := range h.Modules {
		if m == "gen" {
			t.Error("gitignored module should be filtered")
		}
	}
	if len(p.Nodes) != 2 || len(p.Edges) != 1 {
		t.Fatalf("got %d nodes and %d edges", len(p.Nodes), len(p.Edges))
	}
	if e := p.Edges[0]; e.Kind != EdgeCoChange || e.Source != graph.NodeID("module:api") {
		t.Errorf("edge = %+v", e)
	}
	if p.GeneratedAt != testNow.UnixMilli() {
		t.Errorf("GeneratedAt = %d", p.GeneratedAt)
	}
	if len(p.Summary) < 2 || !strings.Contains(p.Summary[1], "api (12 lines)") {
		t.Errorf("summary = %v", p.Summary)
	}
	if len(h.FiltersApplied) == 0 {
		t.Error("expected filter descriptions")
	}
}

func TestBuilder_IgnoreFailureIsWarning(t *testing.T) {
	git := &fakeGit{
		log:       logRecord("c1", testNow, "Ada", "x", "1\t1\tsrc/a.ts"),
		ignoreErr: errors.New("check-ignore exploded"),
	}
	p, err := newTestBuilder(t, git).Build(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(p.Warnings) != 1 {
		t.Errorf("warnings = %v", p.Warnings)
	}
	if p.Heatmap.WindowDays != 90 {
		t.Errorf("default window = %d, want 90", p.Heatmap.WindowDays)
	}
}

func TestBuilder_HardRequirements(t *testing.T) {
	folders, _ := paths.NewContext("/repo")
	logger := slogutil.NewDiscardLogger()

	_, err := NewBuilder(nil, folders, nil, logger).Build(context.Background(), Options{})
	if archerrors.CodeOf(err) != archerrors.BackendUnavailable {
		t.Errorf("nil git: err = %v", err)
	}

	empty, _ := paths.NewContext()
	_, err = NewBuilder(&fakeGit{}, empty, nil, logger).Build(context.Background(), Options{})
	if archerrors.CodeOf(err) != archerrors.WorkspaceUnavailable {
		t.Errorf("no folders: err = %v", err)
	}
}

func TestParseGranularity(t *testing.T) {
	for _, s := range []string{"", "topLevel", "twoLevel", "file"} {
		if _, err := ParseGranularity(s); err != nil {
			t.Errorf("ParseGranularity(%q) error = %v", s, err)
		}
	}
	if _, err := ParseGranularity("module"); err == nil {
		t.Error("expected an error for an unknown granularity")
	}
}

func TestCouplingLevel(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.9, "high"}, {0.8, "high"}, {0.7, "medium"}, {0.5, "medium"}, {0.4, "low"}, {0, "low"},
	}
	for _, tt := range tests {
		if got := couplingLevel(tt.v); got != tt.want {
			t.Errorf("couplingLevel(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
