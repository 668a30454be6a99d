// Package scip answers workspace symbol queries from a SCIP index file.
package scip

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	archerrors "archlens/internal/errors"
	"archlens/internal/workspace"
)

// Index is a loaded SCIP index reduced to its symbol definitions.
type Index struct {
	root    string
	defs    []definition
	tool    string
	maxHits int
}

type definition struct {
	symbol workspace.Symbol
	lower  string
}

// DefaultMaxHits bounds a single QueryWorkspaceSymbols result.
const DefaultMaxHits = 500

// LoadIndex reads a SCIP index. Relative document paths resolve against root.
func LoadIndex(path, root string, logger *slog.Logger) (*Index, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archerrors.New(archerrors.IndexMissing,
				fmt.Sprintf("SCIP index not found at %s", path), err,
				archerrors.GetSuggestedFixes(archerrors.IndexMissing))
		}
		return nil, archerrors.New(archerrors.InternalError,
			fmt.Sprintf("Failed to read SCIP index from %s", path), err, nil)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, archerrors.New(archerrors.ParseFailed,
			fmt.Sprintf("Failed to parse SCIP index from %s", path), err,
			[]archerrors.FixAction{{
				Type:        archerrors.RunCommand,
				Command:     "scip print --index=" + path,
				Safe:        true,
				Description: "Verify SCIP index is valid",
			}})
	}

	idx := newIndex(&raw, root)
	logger.Info("SCIP index loaded",
		"path", path,
		"tool", idx.tool,
		"documents", len(raw.Documents),
		"definitions", len(idx.defs),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return idx, nil
}

func newIndex(raw *scippb.Index, root string) *Index {
	idx := &Index{root: root, maxHits: DefaultMaxHits}
	if raw.Metadata != nil && raw.Metadata.ToolInfo != nil {
		idx.tool = raw.Metadata.ToolInfo.Name
	}

	for _, doc := range raw.Documents {
		infos := make(map[string]*scippb.SymbolInformation, len(doc.Symbols))
		for _, info := range doc.Symbols {
			infos[info.Symbol] = info
		}
		file := filepath.Join(root, filepath.FromSlash(doc.RelativePath))

		seen := make(map[string]bool)
		for _, occ := range doc.Occurrences {
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) == 0 || seen[occ.Symbol] {
				continue
			}
			sym, ok := toSymbol(occ.Symbol, infos[occ.Symbol])
			if !ok {
				continue
			}
			seen[occ.Symbol] = true
			sym.Path = file
			if len(occ.Range) > 0 {
				sym.Line = int(occ.Range[0]) + 1
			}
			idx.defs = append(idx.defs, definition{symbol: sym, lower: strings.ToLower(sym.Name)})
		}
	}

	sort.SliceStable(idx.defs, func(i, j int) bool {
		a, b := idx.defs[i].symbol, idx.defs[j].symbol
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
	return idx
}

func toSymbol(symbol string, info *scippb.SymbolInformation) (workspace.Symbol, bool) {
	id, ok := parseIdentifier(symbol)
	if !ok {
		return workspace.Symbol{}, false
	}
	s := workspace.Symbol{
		Name:          id.simpleName(),
		ContainerName: id.containerName(),
		Kind:          id.kindFromDescriptor(),
	}
	if info != nil {
		if info.DisplayName != "" {
			s.Name = info.DisplayName
		}
		if info.Kind != scippb.SymbolInformation_UnspecifiedKind {
			s.Kind = info.Kind.String()
		}
	}
	return s, s.Name != ""
}

// Len returns the number of indexed definitions.
func (i *Index) Len() int { return len(i.defs) }

// QueryWorkspaceSymbols returns definitions whose name contains name,
// case-insensitively, in name order.
func (i *Index) QueryWorkspaceSymbols(ctx context.Context, name string) ([]workspace.Symbol, error) {
	needle := strings.ToLower(name)
	var out []workspace.Symbol
	for n, d := range i.defs {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if strings.Contains(d.lower, needle) {
			out = append(out, d.symbol)
			if len(out) >= i.maxHits {
				break
			}
		}
	}
	return out, nil
}

// IndexPath resolves the configured index path against the workspace root.
func IndexPath(root, configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(root, configured)
}
