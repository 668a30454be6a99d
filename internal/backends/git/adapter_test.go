package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	archerrors "archlens/internal/errors"
	"archlens/internal/slogutil"
)

// setupTestRepo creates a throwaway repository with two commits.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	if !IsAvailable() {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Ada", "GIT_AUTHOR_EMAIL=ada@example.com",
			"GIT_COMMITTER_NAME=Ada", "GIT_COMMITTER_EMAIL=ada@example.com",
			"GIT_CONFIG_NOSYSTEM=1", "HOME="+dir,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	run("init", "-q")
	write(".gitignore", "*.log\ngenerated/\n")
	write("api/server.ts", "export const a = 1\n")
	write("web/app.tsx", "export const b = 2\n")
	run("add", ".")
	run("commit", "-q", "-m", "initial layout")
	write("api/server.ts", "export const a = 1\nexport const c = 3\n")
	run("add", ".")
	run("commit", "-q", "-m", "extend api")
	return dir
}

func newTestAdapter() *GitAdapter {
	return NewGitAdapter(0, slogutil.NewDiscardLogger())
}

func TestGitAdapter_ID(t *testing.T) {
	if id := newTestAdapter().ID(); id != BackendID {
		t.Errorf("ID() = %s, want %s", id, BackendID)
	}
}

func TestIsGitRepository(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if !IsGitRepository(ctx, repo) {
		t.Error("expected a git repository")
	}
	if !IsGitRepository(ctx, filepath.Join(repo, "api")) {
		t.Error("subdirectories of a work tree should count")
	}
	if IsGitRepository(ctx, t.TempDir()) {
		t.Error("an empty temp dir is not a repository")
	}
}

func TestGitAdapter_ReadGitLog(t *testing.T) {
	repo := setupTestRepo(t)

	out, err := newTestAdapter().ReadGitLog(context.Background(), repo, 30)
	if err != nil {
		t.Fatalf("ReadGitLog() error = %v", err)
	}
	if n := strings.Count(out, "\x1e"); n != 2 {
		t.Errorf("got %d commit records, want 2", n)
	}
	for _, want := range []string{"\x1fAda\x1fextend api", "1\t0\tapi/server.ts", "web/app.tsx"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%q", want, out)
		}
	}
}

func TestGitAdapter_NestedFolder(t *testing.T) {
	repo := setupTestRepo(t)
	a := newTestAdapter()
	ctx := context.Background()
	api := filepath.Join(repo, "api")

	out, err := a.ReadGitLog(ctx, api, 30)
	if err != nil {
		t.Fatalf("ReadGitLog() error = %v", err)
	}
	if !strings.Contains(out, "1\t0\tserver.ts") {
		t.Errorf("paths should be relative to the folder:\n%q", out)
	}
	if strings.Contains(out, "api/server.ts") || strings.Contains(out, "app.tsx") {
		t.Errorf("log should be limited to the folder:\n%q", out)
	}

	ignored, err := a.FilterIgnoredPaths(ctx, api, []string{"server.ts", "trace.log"})
	if err != nil {
		t.Fatalf("FilterIgnoredPaths() error = %v", err)
	}
	if len(ignored) != 1 || ignored[0] != "trace.log" {
		t.Errorf("ignored = %v, want [trace.log]", ignored)
	}
}

func TestGitAdapter_ReadGitLog_NotARepository(t *testing.T) {
	if !IsAvailable() {
		t.Skip("git not installed")
	}
	_, err := newTestAdapter().ReadGitLog(context.Background(), t.TempDir(), 30)
	if archerrors.CodeOf(err) != archerrors.NotAGitRepository {
		t.Errorf("err = %v, want %s", err, archerrors.NotAGitRepository)
	}
}

func TestGitAdapter_FilterIgnoredPaths(t *testing.T) {
	repo := setupTestRepo(t)
	a := newTestAdapter()
	ctx := context.Background()

	ignored, err := a.FilterIgnoredPaths(ctx, repo, []string{"api/server.ts", "debug.log", "generated/schema.ts"})
	if err != nil {
		t.Fatalf("FilterIgnoredPaths() error = %v", err)
	}
	if len(ignored) != 2 || ignored[0] != "debug.log" || ignored[1] != "generated/schema.ts" {
		t.Errorf("ignored = %v", ignored)
	}

	none, err := a.FilterIgnoredPaths(ctx, repo, []string{"api/server.ts"})
	if err != nil || len(none) != 0 {
		t.Errorf("FilterIgnoredPaths(clean) = %v, %v", none, err)
	}

	empty, err := a.FilterIgnoredPaths(ctx, repo, nil)
	if err != nil || empty != nil {
		t.Errorf("FilterIgnoredPaths(nil) = %v, %v", empty, err)
	}
}
