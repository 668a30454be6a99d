// Package git reads commit history and ignore rules from the git binary.
package git

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	archerrors "archlens/internal/errors"
)

const (
	// BackendID is the unique identifier for the Git backend
	BackendID = "git"

	// DefaultQueryTimeout is the default timeout for git operations
	DefaultQueryTimeout = 30 * time.Second

	// LogFormat yields one \x1e-prefixed record per commit with \x1f-separated
	// hash, author time, author name and subject, followed by numstat lines.
	LogFormat = "--format=%x1e%H%x1f%at%x1f%an%x1f%s"
)

// GitAdapter implements workspace.GitLogReader by shelling out to git.
type GitAdapter struct {
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewGitAdapter creates a new Git backend adapter. A zero timeout uses
// DefaultQueryTimeout.
func NewGitAdapter(timeout time.Duration, logger *slog.Logger) *GitAdapter {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &GitAdapter{
		queryTimeout: timeout,
		logger:       logger,
	}
}

// ID returns the backend identifier
func (g *GitAdapter) ID() string {
	return BackendID
}

// IsAvailable reports whether the git binary is on PATH.
func IsAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsGitRepository checks whether root lies inside a git work tree.
func IsGitRepository(ctx context.Context, root string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// ReadGitLog returns the numstat log of the last windowDays. Paths are
// relative to root and limited to it, so a root nested inside a larger
// repository sees only its own history.
func (g *GitAdapter) ReadGitLog(ctx context.Context, root string, windowDays int) (string, error) {
	if err := g.checkRepository(ctx, root); err != nil {
		return "", err
	}
	return g.executeGitCommand(ctx, root, nil,
		"log",
		"--since="+strconv.Itoa(windowDays)+".days",
		"--no-merges",
		"--numstat",
		"--relative",
		"--no-color",
		LogFormat,
		"--", ".",
	)
}

// FilterIgnoredPaths returns the root-relative paths git ignores.
func (g *GitAdapter) FilterIgnoredPaths(ctx context.Context, root string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	stdin := strings.Join(paths, "\n") + "\n"
	out, err := g.executeGitCommand(ctx, root, strings.NewReader(stdin), "check-ignore", "--stdin")
	if err != nil {
		// Exit status 1 means none of the paths are ignored.
		var ae *archerrors.ArchError
		if errors.As(err, &ae) && exitCode(ae) == 1 {
			return nil, nil
		}
		return nil, err
	}

	var ignored []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ignored = append(ignored, line)
		}
	}
	return ignored, nil
}

func (g *GitAdapter) checkRepository(ctx context.Context, root string) error {
	if !IsAvailable() {
		return archerrors.New(archerrors.BackendUnavailable,
			"git is not installed or not on PATH", nil,
			archerrors.GetSuggestedFixes(archerrors.BackendUnavailable))
	}
	if !IsGitRepository(ctx, root) {
		return archerrors.New(archerrors.NotAGitRepository,
			"The workspace folder is not inside a git repository", nil,
			archerrors.GetSuggestedFixes(archerrors.NotAGitRepository)).
			WithDetails(map[string]interface{}{"root": root})
	}
	return nil
}

// executeGitCommand runs a git command with timeout and returns the output
func (g *GitAdapter) executeGitCommand(ctx context.Context, root string, stdin *strings.Reader, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command",
		"args", args,
		"timeout", g.queryTimeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", archerrors.New(archerrors.Timeout, "Git command timed out", err, nil)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", archerrors.New(archerrors.InternalError, "Git command failed", err, nil).
				WithDetails(map[string]interface{}{
					"args":     args,
					"stderr":   strings.TrimSpace(stderr.String()),
					"exitCode": exitErr.ExitCode(),
				})
		}

		return "", archerrors.New(archerrors.InternalError, "Failed to execute git command", err, nil)
	}

	return string(output), nil
}

func exitCode(ae *archerrors.ArchError) int {
	details, ok := ae.Details.(map[string]interface{})
	if !ok {
		return -1
	}
	code, ok := details["exitCode"].(int)
	if !ok {
		return -1
	}
	return code
}
