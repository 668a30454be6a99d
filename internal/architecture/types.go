package architecture

import (
	"fmt"
)

// ComponentKind is the closed set of inferred component categories.
type ComponentKind uint8

const (
	KindApplication ComponentKind = iota
	KindFrontend
	KindBackend
	KindDatabase
	KindCache
	KindQueue
	KindMessageBus
	KindExternalService
	KindInfrastructure
	KindConfiguration
	KindSupportingService
	KindDataset
	KindUnknown
)

var componentKindNames = [...]string{
	KindApplication:       "application",
	KindFrontend:          "frontend",
	KindBackend:           "backend",
	KindDatabase:          "database",
	KindCache:             "cache",
	KindQueue:             "queue",
	KindMessageBus:        "messageBus",
	KindExternalService:   "externalService",
	KindInfrastructure:    "infrastructure",
	KindConfiguration:     "configuration",
	KindSupportingService: "supportingService",
	KindDataset:           "dataset",
	KindUnknown:           "unknown",
}

func (k ComponentKind) String() string {
	if int(k) < len(componentKindNames) {
		return componentKindNames[k]
	}
	return fmt.Sprintf("ComponentKind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k ComponentKind) MarshalText() ([]byte, error) {
	if int(k) >= len(componentKindNames) {
		return nil, fmt.Errorf("invalid component kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ComponentKind) UnmarshalText(b []byte) error {
	for i, name := range componentKindNames {
		if name == string(b) {
			*k = ComponentKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown component kind %q", b)
}

// RelationshipKind is the closed set of inferred relationship categories.
type RelationshipKind uint8

const (
	RelHosts RelationshipKind = iota
	RelDependsOn
	RelConnectsTo
	RelCalls
	RelPublishes
	RelConsumes
	RelStores
	RelQueries
)

var relationshipKindNames = [...]string{
	RelHosts:      "hosts",
	RelDependsOn:  "dependsOn",
	RelConnectsTo: "connectsTo",
	RelCalls:      "calls",
	RelPublishes:  "publishes",
	RelConsumes:   "consumes",
	RelStores:     "stores",
	RelQueries:    "queries",
}

func (k RelationshipKind) String() string {
	if int(k) < len(relationshipKindNames) {
		return relationshipKindNames[k]
	}
	return fmt.Sprintf("RelationshipKind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k RelationshipKind) MarshalText() ([]byte, error) {
	if int(k) >= len(relationshipKindNames) {
		return nil, fmt.Errorf("invalid relationship kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RelationshipKind) UnmarshalText(b []byte) error {
	for i, name := range relationshipKindNames {
		if name == string(b) {
			*k = RelationshipKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown relationship kind %q", b)
}

// Evidence is a human-readable justification for a detection.
type Evidence struct {
	Description string  `json:"description"`
	Resource    string  `json:"resource,omitempty"`
	Snippet     string  `json:"snippet,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Component is an inferred architectural unit.
type Component struct {
	ID          string                 `json:"id"`
	Key         string                 `json:"key"`
	Kind        ComponentKind          `json:"kind"`
	Label       string                 `json:"label"`
	Confidence  float64                `json:"confidence"`
	Language    string                 `json:"language,omitempty"`
	Technology  string                 `json:"technology,omitempty"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Location    string                 `json:"location,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Evidence    []Evidence             `json:"evidence,omitempty"`
}

// Relationship is an inferred edge between two components, by key.
type Relationship struct {
	ID          string                 `json:"id"`
	Key         string                 `json:"key"`
	Source      string                 `json:"source"`
	Target      string                 `json:"target"`
	Kind        RelationshipKind       `json:"kind"`
	Confidence  float64                `json:"confidence"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Evidence    []Evidence             `json:"evidence,omitempty"`
}

// AnalysisResult is the outcome of one Analyze run.
type AnalysisResult struct {
	RunID         string         `json:"runId"`
	Components    []Component    `json:"components"`
	Relationships []Relationship `json:"relationships"`
	Warnings      []string       `json:"warnings"`
	Summary       []string       `json:"summary"`
	GeneratedAt   int64          `json:"generatedAt"`
}

// Options controls a single Analyze call.
type Options struct {
	// Force bypasses the cached result.
	Force bool
	// MaxWorkspaceSymbols overrides the configured symbol query limit when > 0.
	MaxWorkspaceSymbols int
}

// ProgressFunc receives pass progress text.
type ProgressFunc func(message string)
