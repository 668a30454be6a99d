// Package graph holds the JSON payload handed to the renderer: nodes, edges
// and, for the git heatmap, the co-change matrix.
package graph

// Mode identifies what a payload visualizes.
type Mode string

const (
	ModeFile         Mode = "file"
	ModeFolder       Mode = "folder"
	ModeWorkspace    Mode = "workspace"
	ModeArchitecture Mode = "architecture"
	ModeHeatmap      Mode = "heatmap"
)

// NodeKind classifies an import graph node.
type NodeKind string

const (
	// NodeRoot marks files inside the requested scope.
	NodeRoot NodeKind = "root"
	// NodeRelative marks workspace files reached by traversal.
	NodeRelative NodeKind = "relative"
	// NodeExternal marks unresolved or third-party specifiers.
	NodeExternal NodeKind = "external"
)

// Import edge kinds. Architecture edges use their relationship kind instead.
const (
	EdgeRelative   = "relative"
	EdgeExternal   = "external"
	EdgeSideEffect = "sideEffect"
)

// Node is a drawable vertex.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Path     string   `json:"path"`
	Kind     NodeKind `json:"kind"`
	Weight   float64  `json:"weight"`
	FanIn    int      `json:"fanIn"`
	FanOut   int      `json:"fanOut"`
	Openable bool     `json:"openable"`

	// Architecture mode only.
	Category    string                 `json:"category,omitempty"`
	Confidence  float64                `json:"confidence,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Description string                 `json:"description,omitempty"`
	Evidence    []string               `json:"evidence,omitempty"`
}

// Edge is a drawable relationship.
type Edge struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Label     string   `json:"label"`
	Specifier string   `json:"specifier"`
	Kind      string   `json:"kind"`
	Symbols   []string `json:"symbols,omitempty"`
}

// Payload is the renderer input for every mode.
type Payload struct {
	Mode        Mode                   `json:"mode"`
	Nodes       []Node                 `json:"nodes"`
	Edges       []Edge                 `json:"edges"`
	Summary     []string               `json:"summary,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	GeneratedAt int64                  `json:"generatedAt,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Heatmap     *Heatmap               `json:"heatmap,omitempty"`
}

// Heatmap is the co-change matrix of a heatmap payload.
type Heatmap struct {
	Modules           []string      `json:"modules"`
	Cells             []HeatmapCell `json:"cells"`
	ColorScale        ColorScale    `json:"colorScale"`
	Granularity       string        `json:"granularity"`
	WindowDays        int           `json:"windowDays"`
	TotalCommits      int           `json:"totalCommits"`
	ConsideredCommits int           `json:"consideredCommits"`
	FiltersApplied    []string      `json:"filtersApplied"`
}

// HeatmapCell is one module pair. Row <= Column.
type HeatmapCell struct {
	Row              string         `json:"row"`
	Column           string         `json:"column"`
	Weight           float64        `json:"weight"`
	NormalizedWeight float64        `json:"normalizedWeight"`
	CommitCount      int            `json:"commitCount"`
	Commits          []CommitSample `json:"commits"`
}

// CommitSample summarizes one commit that touched a cell's modules.
type CommitSample struct {
	Hash      string   `json:"hash"`
	Author    string   `json:"author"`
	Message   string   `json:"message"`
	Timestamp int64    `json:"timestamp"`
	Files     []string `json:"files"`
}

// ColorScale holds min/median/max of the nonzero normalized weights.
type ColorScale struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}
