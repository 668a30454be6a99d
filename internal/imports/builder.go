package imports

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"archlens/internal/graph"
	"archlens/internal/paths"
	"archlens/internal/workspace"
)

// DefaultIgnoredSpecifiers are packages too ubiquitous to be worth drawing.
var DefaultIgnoredSpecifiers = []string{
	"react",
	"react-dom",
	"react-native",
	"redux",
	"react-redux",
	"@reduxjs/toolkit",
	"react-router",
	"react-router-dom",
	"vue-router",
	"@angular/router",
	"@tanstack/react-router",
	"next/router",
	"next/navigation",
}

const defaultResolutionCacheSize = 4096

// Options configures a Builder.
type Options struct {
	Extensions        []string
	IgnoredSpecifiers []string
	// Exclude are extra globs applied when enumerating folder/workspace files.
	Exclude []string
	// MaxFiles bounds the initial file set of a scope build (0 = unlimited).
	MaxFiles int
	// ResolutionCacheSize bounds the per-build (file, specifier) memo.
	ResolutionCacheSize int
}

// Builder builds import graphs over a workspace.
type Builder struct {
	reader   workspace.FileReader
	search   workspace.FileSearch
	folders  *paths.Context
	resolver *Resolver
	ignored  map[string]bool
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewBuilder creates an import graph builder.
func NewBuilder(reader workspace.FileReader, search workspace.FileSearch, folders *paths.Context, opts Options, logger *slog.Logger) *Builder {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.ResolutionCacheSize <= 0 {
		opts.ResolutionCacheSize = defaultResolutionCacheSize
	}
	ignored := make(map[string]bool)
	for _, s := range DefaultIgnoredSpecifiers {
		ignored[s] = true
	}
	for _, s := range opts.IgnoredSpecifiers {
		ignored[s] = true
	}
	return &Builder{
		reader:   reader,
		search:   search,
		folders:  folders,
		resolver: NewResolver(reader, folders, opts.Extensions),
		ignored:  ignored,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// isIgnoredSpecifier checks the deny-list against the specifier and its package name.
func (b *Builder) isIgnoredSpecifier(spec string) bool {
	if b.ignored[spec] {
		return true
	}
	return b.ignored[packageName(spec)]
}

// packageName strips a subpath from a bare specifier ("@scope/pkg/x" -> "@scope/pkg").
func packageName(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// BuildGraphForFile builds the graph reachable from a single file.
func (b *Builder) BuildGraphForFile(ctx context.Context, file string) (*graph.Payload, error) {
	p, ok := paths.FromURI(file)
	if !ok {
		return nil, fmt.Errorf("unsupported resource %q", file)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	return b.build(ctx, graph.ModeFile, []string{abs}, nil)
}

// BuildGraphForScope builds the graph of every source file under folders.
// mode must be graph.ModeFolder or graph.ModeWorkspace.
func (b *Builder) BuildGraphForScope(ctx context.Context, folders []string, mode graph.Mode) (*graph.Payload, error) {
	if mode != graph.ModeFolder && mode != graph.ModeWorkspace {
		return nil, fmt.Errorf("unsupported scope mode %q", mode)
	}
	if len(folders) == 0 {
		folders = b.folders.Folders()
	}

	include := make([]string, 0, len(b.opts.Extensions))
	for _, ext := range b.opts.Extensions {
		include = append(include, "**/*"+ext)
	}
	res, err := b.search.FindFiles(ctx, workspace.FileQuery{
		Folders:    folders,
		Include:    include,
		Exclude:    b.opts.Exclude,
		MaxResults: b.opts.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate source files: %w", err)
	}

	var warnings []string
	if res.LimitHit {
		warnings = append(warnings, fmt.Sprintf("File limit of %d reached; the graph covers a subset of the sources.", b.opts.MaxFiles))
	}
	return b.build(ctx, mode, res.Files, warnings)
}

type nodeState struct {
	node graph.Node
}
type edgeState struct {
	edge    graph.Edge
	symbols map[string]bool
}

// run holds the state of one build; its caches are discarded afterwards.
// Each file is parsed once because processed gates processFile.
type run struct {
	b           *Builder
	resolutions *lru.Cache[string, resolution]
	nodes       map[string]*nodeState
	nodeOrder   []string
	edges       map[string]*edgeState
	edgeOrder   []string
	processed   map[string]bool
	queue       []string
}

type resolution struct {
	path string
	ok   bool
}

func (b *Builder) build(ctx context.Context, mode graph.Mode, initial []string, warnings []string) (*graph.Payload, error) {
	start := b.now()
	cache, err := lru.New[string, resolution](b.opts.ResolutionCacheSize)
	if err != nil {
		return nil, err
	}
	r := &run{
		b:           b,
		resolutions: cache,
		nodes:       make(map[string]*nodeState),
		edges:       make(map[string]*edgeState),
		processed:   make(map[string]bool),
	}

	roots := make(map[string]bool, len(initial))
	for _, f := range initial {
		roots[paths.ComparisonKey(f)] = true
		kind := graph.NodeRelative
		if mode != graph.ModeWorkspace {
			kind = graph.NodeRoot
		}
		r.observeFile(f, kind, true)
		r.queue = append(r.queue, f)
	}

	for len(r.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := r.queue[0]
		r.queue = r.queue[1:]
		key := paths.ComparisonKey(file)
		if r.processed[key] {
			continue
		}
		r.processed[key] = true
		r.processFile(ctx, file)
	}

	// Files in scope keep the root kind even when reached as import targets.
	if mode != graph.ModeWorkspace {
		for _, ns := range r.nodes {
			if roots[paths.ComparisonKey(ns.node.Path)] {
				ns.node.Kind = graph.NodeRoot
			}
		}
	}

	payload := r.payload(mode)
	payload.Warnings = warnings
	payload.GeneratedAt = b.now().UnixMilli()
	b.logger.Info("Import graph built",
		"mode", string(mode),
		"nodes", len(payload.Nodes),
		"edges", len(payload.Edges),
		"durationMs", b.now().Sub(start).Milliseconds(),
	)
	return payload, nil
}

func (r *run) descriptorsFor(ctx context.Context, file string) []Descriptor {
	data, err := r.b.reader.ReadFile(ctx, file)
	if err != nil {
		r.b.logger.Debug("Skipping unreadable file", "file", file, "error", err.Error())
		return nil
	}
	return ExtractImportDescriptors(string(data))
}

func (r *run) resolve(ctx context.Context, file, spec string) (string, bool) {
	key := paths.ComparisonKey(file) + "\x00" + spec
	if res, ok := r.resolutions.Get(key); ok {
		return res.path, res.ok
	}
	target, ok := r.b.resolver.Resolve(ctx, file, spec)
	if ctx.Err() == nil {
		r.resolutions.Add(key, resolution{target, ok})
	}
	return target, ok
}

func (r *run) processFile(ctx context.Context, file string) {
	sourceID := graph.NodeID(paths.ComparisonKey(file))
	for _, d := range r.descriptorsFor(ctx, file) {
		if r.b.isIgnoredSpecifier(d.Specifier) {
			continue
		}

		target, resolved := "", false
		if IsRelativeSpecifier(d.Specifier) {
			target, resolved = r.resolve(ctx, file, d.Specifier)
		}
		if resolved && paths.IsVendored(target) {
			continue
		}

		var targetID string
		inWorkspace := false
		if resolved {
			inWorkspace = r.b.folders.Contains(target) && !paths.IsExcluded(target)
			kind := graph.NodeExternal
			if inWorkspace {
				kind = graph.NodeRelative
			}
			targetID = r.observeFile(target, kind, inWorkspace)
		} else {
			targetID = r.observeExternal(d.Specifier)
		}

		kind := graph.EdgeExternal
		switch {
		case d.IsSideEffectOnly:
			kind = graph.EdgeSideEffect
		case inWorkspace:
			kind = graph.EdgeRelative
		}
		r.addEdge(sourceID, targetID, d, kind)

		if inWorkspace && !r.processed[paths.ComparisonKey(target)] {
			r.queue = append(r.queue, target)
		}
	}
}

// observeFile records a file node; openable is ANDed across observations.
func (r *run) observeFile(path string, kind graph.NodeKind, openable bool) string {
	id := graph.NodeID(paths.ComparisonKey(path))
	if ns, ok := r.nodes[id]; ok {
		ns.node.Openable = ns.node.Openable && openable
		return id
	}
	label := r.b.folders.RelativePath(path)
	r.nodes[id] = &nodeState{node: graph.Node{
		ID:       id,
		Label:    label,
		Path:     path,
		Kind:     kind,
		Weight:   1,
		Openable: openable,
	}}
	r.nodeOrder = append(r.nodeOrder, id)
	return id
}

func (r *run) observeExternal(spec string) string {
	id := graph.NodeID("pkg:" + spec)
	if ns, ok := r.nodes[id]; ok {
		ns.node.Openable = false
		return id
	}
	r.nodes[id] = &nodeState{node: graph.Node{
		ID:     id,
		Label:  spec,
		Path:   spec,
		Kind:   graph.NodeExternal,
		Weight: 1,
	}}
	r.nodeOrder = append(r.nodeOrder, id)
	return id
}

func (r *run) addEdge(source, target string, d Descriptor, kind string) {
	key := graph.EdgeKey(source, target)
	es, ok := r.edges[key]
	if !ok {
		es = &edgeState{
			edge: graph.Edge{
				ID:        graph.EdgeID(source, target),
				Source:    source,
				Target:    target,
				Specifier: d.Specifier,
				Kind:      kind,
			},
			symbols: make(map[string]bool),
		}
		r.edges[key] = es
		r.edgeOrder = append(r.edgeOrder, key)
		r.bump(source, target)
	} else if kind == graph.EdgeSideEffect {
		// Sticky: once any contributing import has no bindings.
		es.edge.Kind = kind
	}
	for _, s := range d.Symbols() {
		es.symbols[s] = true
	}
}

func (r *run) bump(source, target string) {
	if ns, ok := r.nodes[source]; ok {
		ns.node.FanOut++
		ns.node.Weight = weightOf(ns.node)
	}
	if ns, ok := r.nodes[target]; ok {
		ns.node.FanIn++
		ns.node.Weight = weightOf(ns.node)
	}
}

func weightOf(n graph.Node) float64 {
	if w := n.FanIn + n.FanOut; w > 1 {
		return float64(w)
	}
	return 1
}

func (r *run) payload(mode graph.Mode) *graph.Payload {
	p := &graph.Payload{
		Mode:  mode,
		Nodes: make([]graph.Node, 0, len(r.nodeOrder)),
		Edges: make([]graph.Edge, 0, len(r.edgeOrder)),
	}
	for _, id := range r.nodeOrder {
		p.Nodes = append(p.Nodes, r.nodes[id].node)
	}
	for _, key := range r.edgeOrder {
		es := r.edges[key]
		e := es.edge
		e.Symbols = make([]string, 0, len(es.symbols))
		for s := range es.symbols {
			e.Symbols = append(e.Symbols, s)
		}
		sort.Strings(e.Symbols)
		if e.Kind == graph.EdgeSideEffect {
			e.Label = "[side-effect]"
		} else {
			e.Label = strings.Join(e.Symbols, ", ")
		}
		p.Edges = append(p.Edges, e)
	}

	roots, externals := 0, 0
	for _, n := range p.Nodes {
		switch n.Kind {
		case graph.NodeRoot:
			roots++
		case graph.NodeExternal:
			externals++
		}
	}
	p.Summary = []string{
		fmt.Sprintf("%d files and packages, %d import edges", len(p.Nodes), len(p.Edges)),
		fmt.Sprintf("%d root, %d external", roots, externals),
	}
	return p
}
