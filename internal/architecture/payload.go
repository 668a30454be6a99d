package architecture

import (
	"math"
	"path/filepath"

	"archlens/internal/graph"
)

// ToPayload converts an analysis result into the renderer payload. Multiple
// relationships between the same ordered pair become one edge.
func ToPayload(res *AnalysisResult) *graph.Payload {
	p := &graph.Payload{
		Mode:        graph.ModeArchitecture,
		Nodes:       make([]graph.Node, 0, len(res.Components)),
		Edges:       make([]graph.Edge, 0, len(res.Relationships)),
		Summary:     res.Summary,
		Warnings:    res.Warnings,
		GeneratedAt: res.GeneratedAt,
	}

	index := make(map[string]int, len(res.Components))
	categories := make(map[string]int)
	var datasets []string
	for _, c := range res.Components {
		index[c.Key] = len(p.Nodes)
		categories[c.Kind.String()]++
		if c.Kind == KindDataset {
			datasets = append(datasets, c.Label)
		}
		p.Nodes = append(p.Nodes, graph.Node{
			ID:          c.ID,
			Label:       c.Label,
			Path:        c.Location,
			Kind:        nodeKind(c.Kind),
			Weight:      math.Max(1, math.Round(c.Confidence*10)),
			Openable:    c.Location != "" && filepath.IsAbs(c.Location),
			Category:    c.Kind.String(),
			Confidence:  c.Confidence,
			Tags:        c.Tags,
			Metadata:    c.Metadata,
			Description: c.Description,
			Evidence:    evidenceStrings(c.Evidence),
		})
	}

	edgeIndex := make(map[string]int)
	relCounts := make(map[string]int)
	for _, r := range res.Relationships {
		si, ok1 := index[r.Source]
		ti, ok2 := index[r.Target]
		if !ok1 || !ok2 {
			continue
		}
		relCounts[r.Kind.String()]++
		source, target := p.Nodes[si].ID, p.Nodes[ti].ID
		key := graph.EdgeKey(source, target)
		if i, ok := edgeIndex[key]; ok {
			e := &p.Edges[i]
			e.Symbols = appendUnique(e.Symbols, r.Kind.String())
			for _, ev := range r.Evidence {
				e.Symbols = appendUnique(e.Symbols, ev.Description)
			}
			continue
		}
		symbols := []string{r.Kind.String()}
		for _, ev := range r.Evidence {
			symbols = appendUnique(symbols, ev.Description)
		}
		edgeIndex[key] = len(p.Edges)
		p.Edges = append(p.Edges, graph.Edge{
			ID:        graph.EdgeID(source, target),
			Source:    source,
			Target:    target,
			Label:     r.Description,
			Specifier: r.Key,
			Kind:      r.Kind.String(),
			Symbols:   symbols,
		})
		p.Nodes[si].FanOut++
		p.Nodes[ti].FanIn++
	}

	p.Metadata = map[string]interface{}{
		"runId":         res.RunID,
		"categories":    categories,
		"relationships": relCounts,
		"datasets":      datasets,
	}
	return p
}

func nodeKind(k ComponentKind) graph.NodeKind {
	switch k {
	case KindApplication:
		return graph.NodeRoot
	case KindExternalService:
		return graph.NodeExternal
	}
	return graph.NodeRelative
}

func evidenceStrings(ev []Evidence) []string {
	out := make([]string, 0, len(ev))
	for _, e := range ev {
		s := e.Description
		if e.Resource != "" {
			s += " (" + e.Resource + ")"
		}
		out = append(out, s)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
