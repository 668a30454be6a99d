package imports

import (
	"context"
	"path/filepath"
	"testing"

	"archlens/internal/paths"
	"archlens/internal/workspace"
)

func newTestResolver(t *testing.T, files ...string) *Resolver {
	t.Helper()
	fs := workspace.NewMemFS()
	for _, f := range files {
		fs.WriteFile(f, "")
	}
	folders, err := paths.NewContext("/ws")
	if err != nil {
		t.Fatal(err)
	}
	return NewResolver(fs, folders, nil)
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		from   string
		spec   string
		want   string
		wantOK bool
	}{
		{"index fallback", []string{"/ws/src/util/index.ts"}, "/ws/src/app.ts", "./util", "/ws/src/util/index.ts", true},
		{"exact extension", []string{"/ws/src/util.ts", "/ws/src/util.ts/index.ts"}, "/ws/src/app.ts", "./util.ts", "/ws/src/util.ts", true},
		{"extension probe wins over index", []string{"/ws/src/util.ts", "/ws/src/util/index.ts"}, "/ws/src/app.ts", "./util", "/ws/src/util.ts", true},
		{"parent directory", []string{"/ws/lib/db.js"}, "/ws/src/app.ts", "../lib/db", "/ws/lib/db.js", true},
		{"absolute from first folder", []string{"/ws/shared/api.tsx"}, "/ws/src/deep/app.ts", "/shared/api", "/ws/shared/api.tsx", true},
		{"bare package", []string{"/ws/node_modules/lodash/index.js"}, "/ws/src/app.ts", "lodash", "", false},
		{"missing", nil, "/ws/src/app.ts", "./nope", "", false},
		{"index not doubled", []string{"/ws/src/index/index.ts"}, "/ws/src/app.ts", "./index", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.files...)
			got, ok := r.Resolve(context.Background(), filepath.FromSlash(tt.from), tt.spec)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_Candidates(t *testing.T) {
	r := NewResolver(workspace.NewMemFS(), &paths.Context{}, []string{".ts", ".js"})

	if got := r.Candidates("/a/b.ts"); len(got) != 1 {
		t.Errorf("exact extension should be the only candidate, got %v", got)
	}
	want := []string{"/a/b.ts", "/a/b.js", filepath.Join("/a/b", "index.ts"), filepath.Join("/a/b", "index.js")}
	got := r.Candidates("/a/b")
	if len(got) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := r.Candidates("/a/index"); len(got) != 2 {
		t.Errorf("index base should not probe index/index, got %v", got)
	}
}

func TestIsRelativeSpecifier(t *testing.T) {
	for spec, want := range map[string]bool{
		"./a": true, "../a": true, "/a": true, ".": true,
		"a": false, "@scope/a": false, ".hidden": false,
	} {
		if got := IsRelativeSpecifier(spec); got != want {
			t.Errorf("IsRelativeSpecifier(%q) = %v, want %v", spec, got, want)
		}
	}
}
