// Package architecture infers an application-level architecture graph from
// manifests, schemas, source text patterns and workspace symbols.
package architecture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	archerrors "archlens/internal/errors"
	"archlens/internal/paths"
	"archlens/internal/workspace"
)

// Deps are the collaborators an Analyzer reads from. Symbols is optional.
type Deps struct {
	Reader  workspace.FileReader
	Search  workspace.FileSearch
	Symbols workspace.SymbolIndex
	Folders *paths.Context
}

// Analyzer runs the detection passes and caches the result.
type Analyzer struct {
	deps     Deps
	limits   *Limits
	logger   *slog.Logger
	cache    *ResultCache
	group    singleflight.Group
	progress ProgressFunc
	now      func() time.Time
}

// NewAnalyzer creates an analyzer. A nil limits uses DefaultLimits.
func NewAnalyzer(deps Deps, limits *Limits, logger *slog.Logger) *Analyzer {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Analyzer{
		deps:   deps,
		limits: limits,
		logger: logger,
		cache:  NewResultCache(limits.CacheTTL, time.Now),
		now:    time.Now,
	}
}

// SetClock replaces the clock used for cache expiry and timestamps.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
	a.cache = NewResultCache(a.limits.CacheTTL, now)
}

// SetProgress registers a callback receiving per-pass progress text.
func (a *Analyzer) SetProgress(fn ProgressFunc) {
	a.progress = fn
}

// Invalidate drops the cached result so the next Analyze recomputes.
func (a *Analyzer) Invalidate() {
	a.cache.Invalidate()
}

// Analyze returns the architecture of the workspace, served from cache while
// fresh unless opts.Force is set. Concurrent calls share one computation.
func (a *Analyzer) Analyze(ctx context.Context, opts *Options) (*AnalysisResult, error) {
	if opts == nil {
		opts = &Options{}
	}
	if !opts.Force {
		if cached, ok := a.cache.Get(); ok {
			a.logger.Debug("Using cached architecture", "runId", cached.RunID)
			return cached, nil
		}
	}

	v, err, _ := a.group.Do("analyze", func() (interface{}, error) {
		result, err := a.analyze(ctx, opts)
		if err != nil {
			return nil, err
		}
		a.cache.Set(result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AnalysisResult), nil
}

type pass struct {
	name string
	run  func(ctx context.Context, r *run) error
}

var passes = []pass{
	{"applications", detectApplications},
	{"node", detectNodeEcosystem},
	{"python", detectPythonEcosystem},
	{"go", detectGoEcosystem},
	{"rust", detectRustEcosystem},
	{"docker compose", detectCompose},
	{"database schemas", detectSchemas},
	{"graphql", detectGraphQL},
	{"workspace symbols", detectSymbols},
	{"http clients", detectHTTPClients},
	{"sql queries", detectSQLQueries},
}

func (a *Analyzer) analyze(ctx context.Context, opts *Options) (*AnalysisResult, error) {
	if len(a.deps.Folders.Folders()) == 0 {
		return nil, errNoFolders
	}
	start := a.now()
	runID := uuid.New().String()
	a.logger.Info("Analyzing architecture", "runId", runID, "folders", len(a.deps.Folders.Folders()))

	maxSymbols := a.limits.MaxWorkspaceSymbols
	if opts.MaxWorkspaceSymbols > 0 {
		maxSymbols = opts.MaxWorkspaceSymbols
	}
	r := &run{
		deps:       a.deps,
		limits:     a.limits,
		maxSymbols: maxSymbols,
		model:      newModel(),
		registry:   newRegistry(a.limits.MaxDatasetsPerApp),
		logger:     a.logger,
		warnSeen:   make(map[string]bool),
	}

	for i, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Architecture pass %d/%d: %s", i+1, len(passes), p.name)
		a.logger.Debug(msg, "runId", runID)
		if a.progress != nil {
			a.progress(msg)
		}
		if err := p.run(ctx, r); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			r.warn(fmt.Sprintf("The %s pass failed: %v", p.name, err))
		}
	}

	components, relationships := r.model.finalize()
	result := &AnalysisResult{
		RunID:         runID,
		Components:    components,
		Relationships: relationships,
		Warnings:      append([]string{}, r.warnings...),
		Summary:       summarize(components, relationships),
		GeneratedAt:   a.now().UnixMilli(),
	}
	a.logger.Info("Architecture analyzed",
		"runId", runID,
		"components", len(components),
		"relationships", len(relationships),
		"warnings", len(result.Warnings),
		"durationMs", a.now().Sub(start).Milliseconds(),
	)
	return result, nil
}

var errNoFolders = archerrors.New(archerrors.WorkspaceUnavailable, "no workspace folders to analyze", nil, nil)

// run is the mutable state of one analysis.
type run struct {
	deps       Deps
	limits     *Limits
	maxSymbols int
	model      *model
	registry   *registry
	logger     *slog.Logger
	warnings   []string
	warnSeen   map[string]bool
}

// warn records a warning once.
func (r *run) warn(msg string) {
	if r.warnSeen[msg] {
		return
	}
	r.warnSeen[msg] = true
	r.warnings = append(r.warnings, msg)
}

func appKey(folder string) string {
	return "application:" + paths.ComparisonKey(folder)
}

func appLabel(folder string) string {
	return filepath.Base(folder)
}

// appFor returns the application folder owning path, falling back to the
// first workspace folder.
func (r *run) appFor(path string) string {
	if folder, ok := r.deps.Folders.FolderFor(path); ok {
		return folder
	}
	return r.deps.Folders.First()
}

func techKey(kind ComponentKind, id, folder string) string {
	return kind.String() + ":" + id + ":" + paths.ComparisonKey(folder)
}

// registerTech creates or merges the component for a technology match in
// folder and links it to its application with a hosts relationship.
func (r *run) registerTech(folder string, e techEntry, ev Evidence, tags ...string) string {
	key := techKey(e.Kind, e.ID, folder)
	r.model.addComponent(Component{
		Key:        key,
		Kind:       e.Kind,
		Label:      e.Label,
		Confidence: e.Confidence,
		Technology: e.Label,
		Tags:       append([]string{e.Kind.String()}, tags...),
		Location:   folder,
		Evidence:   []Evidence{ev},
	})

	app := appKey(folder)
	switch e.Kind {
	case KindBackend:
		r.registry.registerBackend(app, key)
	case KindFrontend:
		r.registry.registerFrontend(app, key)
	}
	r.model.addRelationship(Relationship{
		Source:      app,
		Target:      key,
		Kind:        RelHosts,
		Confidence:  e.Confidence,
		Description: appLabel(folder) + " hosts " + e.Label,
	})
	return key
}

// linkBackends connects every backend of folder's application to the
// datastores registered by the same pass.
func (r *run) linkBackends(folder string, stores []string) {
	for _, backend := range r.registry.backendsOf(appKey(folder)) {
		b, _ := r.model.component(backend)
		for _, storeKey := range stores {
			s, ok := r.model.component(storeKey)
			if !ok {
				continue
			}
			conf := (b.Confidence + s.Confidence) / 2
			for _, kind := range storeRelationKinds(s.Kind) {
				r.model.addRelationship(Relationship{
					Source:      backend,
					Target:      storeKey,
					Kind:        kind,
					Confidence:  conf,
					Description: fmt.Sprintf("%s %s %s", b.Label, kind, s.Label),
				})
			}
		}
	}
}

func storeRelationKinds(kind ComponentKind) []RelationshipKind {
	switch kind {
	case KindQueue:
		return []RelationshipKind{RelPublishes}
	case KindMessageBus:
		return []RelationshipKind{RelPublishes, RelConsumes}
	default:
		return []RelationshipKind{RelConnectsTo}
	}
}

// Path fragments used to guess whether a source file is server or client code.
var (
	backendPathHints  = []string{"/server/", "/api/", "/backend/", "/routes/", "/controllers/", "/resolvers/", "/services/", "/handlers/", "/db/", "/models/"}
	frontendPathHints = []string{"/client/", "/frontend/", "/components/", "/pages/", "/views/", "/app/", "/ui/", "/hooks/", "/web/"}
)

type role int

const (
	roleUnknown role = iota
	roleBackend
	roleFrontend
)

func guessRole(path string) role {
	p := "/" + strings.ToLower(paths.NormalizePath(path))
	for _, h := range backendPathHints {
		if strings.Contains(p, h) {
			return roleBackend
		}
	}
	switch paths.Ext(p) {
	case ".tsx", ".jsx", ".vue", ".svelte":
		return roleFrontend
	case ".py", ".go", ".rs", ".java", ".kt", ".rb", ".php", ".cs":
		return roleBackend
	}
	for _, h := range frontendPathHints {
		if strings.Contains(p, h) {
			return roleFrontend
		}
	}
	return roleUnknown
}

// ownerOf picks the component a source-level finding belongs to: the first
// registered backend or frontend matching the guessed role, else the other
// kind when only one exists, else the application itself.
func (r *run) ownerOf(file string, hint role) string {
	app := appKey(r.appFor(file))
	backends := r.registry.backendsOf(app)
	frontends := r.registry.frontendsOf(app)
	if hint == roleUnknown {
		hint = guessRole(file)
	}
	switch {
	case hint == roleBackend && len(backends) > 0:
		return backends[0]
	case hint == roleFrontend && len(frontends) > 0:
		return frontends[0]
	case len(backends) > 0 && len(frontends) == 0:
		return backends[0]
	case len(frontends) > 0 && len(backends) == 0:
		return frontends[0]
	}
	return app
}

// registerDataset creates or merges a dataset component under the
// per-application cap and links it to the application and its backends.
func (r *run) registerDataset(folder, name, source string, ev Evidence, metadata map[string]interface{}) (string, bool) {
	app := appKey(folder)
	key := "dataset:" + strings.ToLower(name) + ":" + paths.ComparisonKey(folder)
	ok, warning := r.registry.admitDataset(app, appLabel(folder), key)
	if warning != "" {
		r.warn(warning)
	}
	if !ok {
		return "", false
	}
	r.model.addComponent(Component{
		Key:        key,
		Kind:       KindDataset,
		Label:      name,
		Confidence: ev.Confidence,
		Technology: source,
		Tags:       []string{"dataset", source},
		Location:   ev.Resource,
		Metadata:   metadata,
		Evidence:   []Evidence{ev},
	})
	r.model.addRelationship(Relationship{
		Source:      app,
		Target:      key,
		Kind:        RelStores,
		Confidence:  ev.Confidence,
		Description: appLabel(folder) + " stores " + name,
	})
	for _, backend := range r.registry.backendsOf(app) {
		b, _ := r.model.component(backend)
		r.model.addRelationship(Relationship{
			Source:      backend,
			Target:      key,
			Kind:        RelStores,
			Confidence:  (b.Confidence + ev.Confidence) / 2,
			Description: b.Label + " stores " + name,
		})
	}
	return key, true
}

// readManifest reads folder/name, returning nil when it does not exist.
func (r *run) readManifest(ctx context.Context, folder, name string) ([]byte, string, error) {
	path := filepath.Join(folder, name)
	if !r.deps.Reader.Exists(ctx, path) {
		return nil, path, nil
	}
	data, err := r.deps.Reader.ReadFile(ctx, path)
	if err != nil {
		return nil, path, err
	}
	return data, path, nil
}

// sortedKeys returns the keys of m in order so table matching is deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func summarize(components []Component, relationships []Relationship) []string {
	counts := make(map[string]int)
	apps := 0
	for _, c := range components {
		counts[c.Kind.String()]++
		if c.Kind == KindApplication {
			apps++
		}
	}
	parts := make([]string, 0, len(counts))
	for _, kind := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s %d", kind, counts[kind]))
	}
	out := []string{
		fmt.Sprintf("%d components across %d applications", len(components), apps),
		fmt.Sprintf("%d relationships", len(relationships)),
	}
	if len(parts) > 0 {
		out = append(out, "Categories: "+strings.Join(parts, ", "))
	}
	return out
}
