package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() { Version, Commit = origVersion, origCommit }()

	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"unknown commit", "unknown", "0.9.0"},
		{"short commit ignored", "abc", "0.9.0"},
		{"exactly seven chars ignored", "1234567", "0.9.0"},
		{"full hash abbreviated", "abc1234567890", "0.9.0 (abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = "0.9.0"
			Commit = tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = origVersion, origCommit, origBuildDate }()

	Version, Commit, BuildDate = "1.2.3", "abcdef123456", "2026-01-15"

	got := Full()
	for _, part := range []string{"archlens version 1.2.3", "Commit: abcdef123456", "Built: 2026-01-15"} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
}
