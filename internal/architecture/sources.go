package architecture

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"archlens/internal/workspace"
)

const (
	maxGraphQLOpsPerFile = 5
	maxMetadataSamples   = 25
	symbolConfidence     = 0.2
)

var (
	scriptGlobs = []string{"**/*.{ts,tsx,js,jsx,mjs,cjs,mts,cts,vue,svelte}"}
	sqlGlobs    = []string{"**/*.{ts,tsx,js,jsx,mjs,cjs,mts,cts,py,go,rs,java,kt,rb,php,cs,sql}"}
)

var (
	gqlLiteralPattern = "gql\\s*`[^`]*`"
	gqlOperationRe    = regexp.MustCompile(`\b(query|mutation|subscription)\b\s*([A-Za-z_]\w*)?`)

	httpCallPattern = "(?:\\b(?:axios|httpClient)\\.(?:get|post|put|patch|delete|head|options)\\s*(?:<[^>\\n]*>)?\\s*\\(\\s*['\"`][^'\"`\\n]*['\"`])" +
		"|(?:\\bfetch\\s*\\(\\s*['\"`][^'\"`\\n]*['\"`](?:\\s*,\\s*\\{[^}]{0,200}\\})?)"
	httpVerbRe   = regexp.MustCompile(`^(?:axios|httpClient)\.(\w+)`)
	httpURLRe    = regexp.MustCompile("['\"`]([^'\"`\\n]*)['\"`]")
	httpMethodRe = regexp.MustCompile(`method\s*:\s*['"](\w+)['"]`)

	sqlSelectPattern = "\\bSELECT\\b[\\s\\S]{1,200}?\\bFROM\\s+[`\"\\[]?[A-Za-z_][\\w.]*"
	sqlFromRe        = regexp.MustCompile("(?i)\\bFROM\\s+[`\"\\[]?([A-Za-z_][\\w.]*)")
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// sqlNonTables are words that follow FROM in prose or subqueries.
var sqlNonTables = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true, "your": true,
	"our": true, "list": true, "menu": true, "dropdown": true, "select": true,
	"where": true, "dual": true, "unnest": true, "json_each": true,
}

func (r *run) searchText(ctx context.Context, pattern string, caseSensitive bool, globs []string, onFile func(workspace.FileMatches)) (*workspace.TextSearchResult, error) {
	return r.deps.Search.FindText(ctx, workspace.TextQuery{
		Folders:       r.deps.Folders.Folders(),
		Pattern:       pattern,
		CaseSensitive: caseSensitive,
		Multiline:     true,
		Include:       globs,
		MaxResults:    r.limits.SearchMaxResults,
	}, onFile)
}

// appendSample appends a metadata sample unless the list is full.
func (r *run) appendSample(key, field string, sample map[string]interface{}) {
	c, ok := r.model.component(key)
	if !ok {
		return
	}
	if list, _ := c.Metadata[field].([]interface{}); len(list) >= maxMetadataSamples {
		return
	}
	r.model.appendMetadata(key, field, sample)
}

func snippet(text string, max int) string {
	s := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// detectGraphQL attaches gql operations to the component owning each file.
func detectGraphQL(ctx context.Context, r *run) error {
	res, err := r.searchText(ctx, gqlLiteralPattern, true, scriptGlobs, func(fm workspace.FileMatches) {
		owner := r.ownerOf(fm.Path, roleUnknown)
		ops := 0
		for _, m := range fm.Matches {
			for _, op := range gqlOperationRe.FindAllStringSubmatch(m.Text, -1) {
				if ops >= maxGraphQLOpsPerFile {
					return
				}
				ops++
				desc := "GraphQL " + op[1]
				if op[2] != "" {
					desc += " " + op[2]
				}
				r.model.addEvidence(owner, Evidence{
					Description: desc,
					Resource:    fmt.Sprintf("%s:%d", fm.Path, m.Line),
					Snippet:     snippet(m.Text, 160),
					Confidence:  0.3,
				})
				r.appendSample(owner, "graphqlOperations", map[string]interface{}{
					"type": op[1],
					"name": op[2],
					"file": fm.Path,
				})
			}
		}
	})
	if err != nil {
		return err
	}
	if res.LimitHit {
		r.warn("GraphQL search reached its result limit; some operations may be missing.")
	}
	return nil
}

func symbolRole(name, path string) role {
	switch {
	case strings.Contains(name, "Component"):
		return roleFrontend
	case strings.Contains(name, "Controller"), strings.Contains(name, "Resolver"), strings.Contains(name, "Repository"):
		return roleBackend
	}
	return guessRole(path)
}

// detectSymbols adds low-confidence evidence from workspace symbol names.
func detectSymbols(ctx context.Context, r *run) error {
	if r.deps.Symbols == nil {
		r.warn("No workspace symbol provider is available; symbol heuristics were skipped.")
		return nil
	}

	total, capped := 0, false
	for _, fragment := range symbolFragments {
		if capped {
			break
		}
		symbols, err := r.deps.Symbols.QueryWorkspaceSymbols(ctx, fragment)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.warn(fmt.Sprintf("Workspace symbol query %q failed: %v", fragment, err))
			continue
		}
		for _, sym := range symbols {
			if total >= r.maxSymbols {
				capped = true
				break
			}
			if sym.Path == "" {
				continue
			}
			total++
			r.attachSymbol(sym)
		}
	}
	if capped {
		r.warn(fmt.Sprintf("Workspace symbol results were capped at %d.", r.maxSymbols))
	}
	r.logger.Debug("Workspace symbols considered", "count", total)
	return nil
}

func (r *run) attachSymbol(sym workspace.Symbol) {
	folder := r.appFor(sym.Path)
	app := appKey(folder)
	ev := Evidence{
		Description: fmt.Sprintf("Workspace symbol %s", sym.Name),
		Resource:    sym.Path,
		Confidence:  symbolConfidence,
	}
	if sym.Kind != "" {
		ev.Description += " (" + sym.Kind + ")"
	}

	target := Component{Key: app, Kind: KindApplication, Label: appLabel(folder), Confidence: symbolConfidence}
	switch symbolRole(sym.Name, sym.Path) {
	case roleBackend:
		if backends := r.registry.backendsOf(app); len(backends) > 0 {
			target.Key = backends[0]
		} else {
			target = Component{Key: techKey(KindBackend, "inferred", folder), Kind: KindBackend, Label: appLabel(folder) + " backend"}
			r.registry.registerBackend(app, target.Key)
		}
	case roleFrontend:
		if frontends := r.registry.frontendsOf(app); len(frontends) > 0 {
			target.Key = frontends[0]
		} else {
			target = Component{Key: techKey(KindFrontend, "inferred", folder), Kind: KindFrontend, Label: appLabel(folder) + " frontend"}
			r.registry.registerFrontend(app, target.Key)
		}
	}
	_, existed := r.model.component(target.Key)
	target.Confidence = symbolConfidence
	target.Location = folder
	target.Evidence = []Evidence{ev}
	if !existed {
		target.Tags = []string{target.Kind.String(), "inferred"}
	}
	r.model.addComponent(target)
	if !existed && target.Key != app {
		r.model.addRelationship(Relationship{
			Source:      app,
			Target:      target.Key,
			Kind:        RelHosts,
			Confidence:  symbolConfidence,
			Description: appLabel(folder) + " hosts " + target.Label,
		})
	}
}

// httpCall is a parsed HTTP client call site.
type httpCall struct {
	Method string
	URL    string
}

func parseHTTPCall(text string) (httpCall, bool) {
	u := httpURLRe.FindStringSubmatch(text)
	if u == nil {
		return httpCall{}, false
	}
	call := httpCall{Method: "GET", URL: u[1]}
	if m := httpVerbRe.FindStringSubmatch(text); m != nil {
		call.Method = strings.ToUpper(m[1])
	} else if m := httpMethodRe.FindStringSubmatch(text); m != nil {
		call.Method = strings.ToUpper(m[1])
	}
	return call, true
}

var localHosts = map[string]bool{"localhost": true, "127.0.0.1": true, "0.0.0.0": true, "::1": true}

// externalHost returns the host of an absolute URL that does not point at the
// local machine, or "" for relative and local URLs.
func externalHost(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "//") {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" || localHosts[host] || strings.Contains(host, "${") {
		return ""
	}
	return host
}

// detectHTTPClients links internal calls to the application's first backend
// and registers external services by hostname.
func detectHTTPClients(ctx context.Context, r *run) error {
	endpoints := make(map[string]map[string]map[string]bool) // service key -> url -> methods

	res, err := r.searchText(ctx, httpCallPattern, true, scriptGlobs, func(fm workspace.FileMatches) {
		owner := r.ownerOf(fm.Path, roleUnknown)
		ownerComp, _ := r.model.component(owner)
		for _, m := range fm.Matches {
			call, ok := parseHTTPCall(m.Text)
			if !ok || call.URL == "" {
				continue
			}
			ev := Evidence{
				Description: call.Method + " " + call.URL,
				Resource:    fmt.Sprintf("%s:%d", fm.Path, m.Line),
				Snippet:     snippet(m.Text, 160),
				Confidence:  0.5,
			}
			r.appendSample(owner, "httpCalls", map[string]interface{}{
				"method": call.Method,
				"url":    call.URL,
				"file":   fm.Path,
			})

			host := externalHost(call.URL)
			if host == "" {
				backends := r.registry.backendsOf(appKey(r.appFor(fm.Path)))
				if len(backends) == 0 || backends[0] == owner {
					continue
				}
				backend, _ := r.model.component(backends[0])
				r.model.addRelationship(Relationship{
					Source:      owner,
					Target:      backends[0],
					Kind:        RelCalls,
					Confidence:  0.5,
					Description: ownerComp.Label + " calls " + backend.Label,
					Evidence:    []Evidence{ev},
				})
				continue
			}

			key := "externalService:" + host
			r.model.addComponent(Component{
				Key:        key,
				Kind:       KindExternalService,
				Label:      host,
				Confidence: 0.6,
				Technology: "HTTP",
				Tags:       []string{"externalService", "http"},
				Location:   host,
				Evidence:   []Evidence{ev},
			})
			r.model.addRelationship(Relationship{
				Source:      owner,
				Target:      key,
				Kind:        RelCalls,
				Confidence:  0.6,
				Description: ownerComp.Label + " calls " + host,
				Evidence:    []Evidence{ev},
			})
			if endpoints[key] == nil {
				endpoints[key] = make(map[string]map[string]bool)
			}
			if endpoints[key][call.URL] == nil {
				endpoints[key][call.URL] = make(map[string]bool)
			}
			endpoints[key][call.URL][call.Method] = true
		}
	})
	if err != nil {
		return err
	}

	for _, key := range sortedKeys(endpoints) {
		list := make([]interface{}, 0, len(endpoints[key]))
		for _, u := range sortedKeys(endpoints[key]) {
			methods := sortedKeys(endpoints[key][u])
			list = append(list, map[string]interface{}{"url": u, "methods": methods})
		}
		r.model.setMetadata(key, "endpoints", list)
	}
	if res.LimitHit {
		r.warn("HTTP client search reached its result limit; some call sites may be missing.")
	}
	return nil
}

// detectSQLQueries registers tables read by SELECT literals as datasets.
func detectSQLQueries(ctx context.Context, r *run) error {
	type found struct {
		file, owner, table, sample string
		line                       int
	}
	var hits []found

	res, err := r.searchText(ctx, sqlSelectPattern, false, sqlGlobs, func(fm workspace.FileMatches) {
		owner := r.ownerOf(fm.Path, roleBackend)
		for _, m := range fm.Matches {
			t := sqlFromRe.FindStringSubmatch(m.Text)
			if t == nil || sqlNonTables[strings.ToLower(t[1])] {
				continue
			}
			hits = append(hits, found{fm.Path, owner, t[1], snippet(m.Text, 200), m.Line})
		}
	})
	if err != nil {
		return err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].file < hits[j].file })
	for _, h := range hits {
		resource := fmt.Sprintf("%s:%d", h.file, h.line)
		r.model.addEvidence(h.owner, Evidence{
			Description: "SQL query on " + h.table,
			Resource:    resource,
			Snippet:     h.sample,
			Confidence:  0.3,
		})
		r.appendSample(h.owner, "sqlQueries", map[string]interface{}{
			"table":  h.table,
			"file":   h.file,
			"sample": h.sample,
		})

		ev := Evidence{
			Description: "Queried in " + h.file,
			Resource:    resource,
			Snippet:     h.sample,
			Confidence:  0.4,
		}
		dataset, ok := r.registerDataset(r.appFor(h.file), h.table, "sql", ev, nil)
		if !ok {
			continue
		}
		owner, _ := r.model.component(h.owner)
		r.model.addRelationship(Relationship{
			Source:      h.owner,
			Target:      dataset,
			Kind:        RelQueries,
			Confidence:  0.4,
			Description: owner.Label + " queries " + h.table,
			Evidence:    []Evidence{ev},
		})
	}
	if res.LimitHit {
		r.warn("SQL query search reached its result limit; some queries may be missing.")
	}
	return nil
}
