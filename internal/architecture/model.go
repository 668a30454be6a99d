package architecture

import (
	"sort"

	"archlens/internal/graph"
)

// model accumulates components and relationships keyed by their dedup key.
// All merges go through it so a repeated detection never creates a duplicate.
type model struct {
	components    map[string]*Component
	compOrder     []string
	relationships map[string]*Relationship
	relOrder      []string
}

func newModel() *model {
	return &model{
		components:    make(map[string]*Component),
		relationships: make(map[string]*Relationship),
	}
}

// addComponent creates or merges a component: confidence is the max of old
// and new, the first non-empty description and technology stick, metadata is
// deep-merged and evidence appended.
func (m *model) addComponent(c Component) *Component {
	if existing, ok := m.components[c.Key]; ok {
		if c.Confidence > existing.Confidence {
			existing.Confidence = c.Confidence
		}
		if existing.Description == "" {
			existing.Description = c.Description
		}
		if existing.Language == "" {
			existing.Language = c.Language
		}
		if existing.Technology == "" {
			existing.Technology = c.Technology
		}
		if existing.Location == "" {
			existing.Location = c.Location
		}
		existing.Tags = mergeTags(existing.Tags, c.Tags)
		existing.Metadata = mergeMetadata(existing.Metadata, c.Metadata)
		existing.Evidence = appendEvidence(existing.Evidence, c.Evidence...)
		return existing
	}

	created := c
	created.ID = graph.NodeID(c.Key)
	created.Confidence = clamp01(c.Confidence)
	created.Tags = mergeTags(nil, c.Tags)
	created.Metadata = mergeMetadata(nil, c.Metadata)
	created.Evidence = appendEvidence(nil, c.Evidence...)
	m.components[c.Key] = &created
	m.compOrder = append(m.compOrder, c.Key)
	return &created
}

// addRelationship creates or merges a relationship with the same rules as
// addComponent. Its key is derived from kind, source and target.
func (m *model) addRelationship(r Relationship) *Relationship {
	if r.Key == "" {
		r.Key = relationshipKey(r.Kind, r.Source, r.Target)
	}
	if existing, ok := m.relationships[r.Key]; ok {
		if r.Confidence > existing.Confidence {
			existing.Confidence = r.Confidence
		}
		if existing.Description == "" {
			existing.Description = r.Description
		}
		existing.Metadata = mergeMetadata(existing.Metadata, r.Metadata)
		existing.Evidence = appendEvidence(existing.Evidence, r.Evidence...)
		return existing
	}

	created := r
	created.ID = graph.EdgeID(graph.NodeID(r.Source), graph.NodeID(r.Target)) + "-" + r.Kind.String()
	created.Confidence = clamp01(r.Confidence)
	created.Metadata = mergeMetadata(nil, r.Metadata)
	created.Evidence = appendEvidence(nil, r.Evidence...)
	m.relationships[r.Key] = &created
	m.relOrder = append(m.relOrder, r.Key)
	return &created
}

func relationshipKey(kind RelationshipKind, source, target string) string {
	return kind.String() + ":" + source + "->" + target
}

// addEvidence appends evidence to a component and nudges its confidence up by
// a tenth of the evidence confidence. Duplicate (description, resource) pairs
// are ignored.
func (m *model) addEvidence(key string, ev Evidence) bool {
	c, ok := m.components[key]
	if !ok || hasEvidence(c.Evidence, ev) {
		return false
	}
	c.Evidence = append(c.Evidence, ev)
	c.Confidence = clamp01(c.Confidence + ev.Confidence*0.1)
	return true
}

// appendMetadata accumulates values under a list-valued metadata key.
func (m *model) appendMetadata(key, field string, values ...interface{}) {
	c, ok := m.components[key]
	if !ok {
		return
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]interface{})
	}
	list, _ := c.Metadata[field].([]interface{})
	c.Metadata[field] = append(list, values...)
}

// setMetadata overwrites a single metadata key.
func (m *model) setMetadata(key, field string, value interface{}) {
	c, ok := m.components[key]
	if !ok {
		return
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]interface{})
	}
	c.Metadata[field] = value
}

func (m *model) component(key string) (*Component, bool) {
	c, ok := m.components[key]
	return c, ok
}

// finalize returns the components and relationships in creation order with
// evidence sorted by confidence, highest first.
func (m *model) finalize() ([]Component, []Relationship) {
	comps := make([]Component, 0, len(m.compOrder))
	for _, key := range m.compOrder {
		c := *m.components[key]
		sortEvidence(c.Evidence)
		comps = append(comps, c)
	}
	rels := make([]Relationship, 0, len(m.relOrder))
	for _, key := range m.relOrder {
		r := *m.relationships[key]
		sortEvidence(r.Evidence)
		rels = append(rels, r)
	}
	return comps, rels
}

func sortEvidence(ev []Evidence) {
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].Confidence > ev[j].Confidence })
}

func hasEvidence(list []Evidence, ev Evidence) bool {
	for _, e := range list {
		if e.Description == ev.Description && e.Resource == ev.Resource {
			return true
		}
	}
	return false
}

func appendEvidence(list []Evidence, items ...Evidence) []Evidence {
	for _, ev := range items {
		if !hasEvidence(list, ev) {
			list = append(list, ev)
		}
	}
	return list
}

func mergeTags(existing, add []string) []string {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, t := range append(append([]string(nil), existing...), add...) {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// mergeMetadata deep-merges src into dst. Nested maps merge recursively,
// lists accumulate and any other value from src wins.
func mergeMetadata(dst, src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		switch nv := v.(type) {
		case map[string]interface{}:
			if old, ok := dst[k].(map[string]interface{}); ok {
				dst[k] = mergeMetadata(old, nv)
				continue
			}
			dst[k] = mergeMetadata(nil, nv)
		case []interface{}:
			old, _ := dst[k].([]interface{})
			dst[k] = append(old, nv...)
		default:
			dst[k] = v
		}
	}
	return dst
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
