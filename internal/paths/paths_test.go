package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	tempDir := t.TempDir()

	testFile := filepath.Join(tempDir, "src", "app.ts")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("export {}"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if canonical != "src/app.ts" {
		t.Errorf("Expected src/app.ts, got %s", canonical)
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/ws/src/a.ts", "/ws", true},
		{"/ws", "/ws", true},
		{"/wsx/a.ts", "/ws", false},
		{"/other/a.ts", "/ws", false},
		{"/ws/..foo/a.ts", "/ws", true},
	}
	for _, tt := range tests {
		if got := IsWithin(tt.path, tt.root); got != tt.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}

func TestJoinAndRelative(t *testing.T) {
	got := Join("/ws/src", "../lib/util.ts")
	if want := filepath.Join("/ws", "lib", "util.ts"); got != want {
		t.Errorf("Join = %s, want %s", got, want)
	}
	if rel := Relative("/ws", "/ws/lib/util.ts"); rel != "lib/util.ts" {
		t.Errorf("Relative = %q", rel)
	}
	if rel := Relative("/ws", "/elsewhere/util.ts"); rel != "" {
		t.Errorf("Relative outside = %q, want empty", rel)
	}
}

func TestExtAndBase(t *testing.T) {
	if Ext("/a/b/Index.TSX") != ".tsx" {
		t.Errorf("Ext should lower-case, got %q", Ext("/a/b/Index.TSX"))
	}
	if Base("/a/b/c.ts") != "c.ts" || Dir("/a/b/c.ts") != filepath.Clean("/a/b") {
		t.Error("Base/Dir mismatch")
	}
}

func TestComparisonKey(t *testing.T) {
	if ComparisonKey("/ws/src/../src/a.ts") != ComparisonKey("/ws/src/a.ts") {
		t.Error("equivalent paths should share a comparison key")
	}
}

func TestFromURI(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"file:///ws/app", filepath.FromSlash("/ws/app"), true},
		{"/ws/app", "/ws/app", true},
		{"vscode-vfs://github/org/repo", "", false},
	}
	for _, tt := range tests {
		got, ok := FromURI(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("FromURI(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsVendoredAndExcluded(t *testing.T) {
	tests := []struct {
		path     string
		vendored bool
		excluded bool
	}{
		{"/ws/node_modules/react/index.js", true, true},
		{"/ws/vendor/lib.go", true, true},
		{"/ws/dist/app.js", false, true},
		{"/ws/src/app.ts", false, false},
		{"/ws/src/builder.ts", false, false},
	}
	for _, tt := range tests {
		if got := IsVendored(tt.path); got != tt.vendored {
			t.Errorf("IsVendored(%q) = %v, want %v", tt.path, got, tt.vendored)
		}
		if got := IsExcluded(tt.path); got != tt.excluded {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.excluded)
		}
	}
}
