package coupling

import (
	"math"
	"sort"
	"time"

	"archlens/internal/graph"
)

// Matrix is the computed co-change matrix.
type Matrix struct {
	Modules    []string
	Churn      map[string]int
	Cells      []graph.HeatmapCell
	ColorScale graph.ColorScale
}

type pairKey struct{ row, column string }

type pairAcc struct {
	weight  float64
	commits int
	samples []graph.CommitSample
}

// selectModules returns up to max modules ordered by total churn, highest first.
func selectModules(commits []ReducedCommit, max int) ([]string, map[string]int) {
	churn := make(map[string]int)
	for _, c := range commits {
		for m, n := range c.Modules {
			churn[m] += n
		}
	}
	modules := make([]string, 0, len(churn))
	for m := range churn {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		if churn[modules[i]] != churn[modules[j]] {
			return churn[modules[i]] > churn[modules[j]]
		}
		return modules[i] < modules[j]
	})
	if max > 0 && len(modules) > max {
		modules = modules[:max]
	}
	return modules, churn
}

// decay weights a commit by age: exp(-age/decayDays), floored at minWeight.
func decay(ts, now time.Time, decayDays, minWeight float64) float64 {
	age := now.Sub(ts).Hours() / 24
	if age < 0 {
		age = 0
	}
	return math.Max(math.Exp(-age/decayDays), minWeight)
}

// BuildMatrix accumulates decayed pair weights over the selected modules and
// normalizes each pair by the geometric mean of the two modules' activity.
func BuildMatrix(commits []ReducedCommit, now time.Time, l *Limits) *Matrix {
	modules, churn := selectModules(commits, l.MaxModules)
	selected := make(map[string]bool, len(modules))
	for _, m := range modules {
		selected[m] = true
	}

	pairs := make(map[pairKey]*pairAcc)
	activity := make(map[string]float64)
	for _, c := range commits {
		touched := make([]string, 0, len(c.Modules))
		for m := range c.Modules {
			if selected[m] {
				touched = append(touched, m)
			}
		}
		if len(touched) == 0 {
			continue
		}
		sort.Strings(touched)

		w := decay(c.Timestamp, now, l.DecayDays, l.MinWeight)
		for _, m := range touched {
			activity[m] += w
		}
		for i := range touched {
			for j := i; j < len(touched); j++ {
				key := pairKey{touched[i], touched[j]}
				acc := pairs[key]
				if acc == nil {
					acc = &pairAcc{}
					pairs[key] = acc
				}
				acc.weight += w
				acc.commits++
				if len(acc.samples) < l.SamplesPerCell {
					acc.samples = append(acc.samples, sampleOf(c, l.FilesPerSample))
				}
			}
		}
	}

	cells := make([]graph.HeatmapCell, 0, len(pairs))
	for key, acc := range pairs {
		denom := math.Sqrt(activity[key.row] * activity[key.column])
		normalized := 0.0
		if denom > 0 {
			normalized = acc.weight / denom
		}
		if acc.weight < l.AbsoluteFloor && normalized < l.NormalizedFloor {
			continue
		}
		cells = append(cells, graph.HeatmapCell{
			Row:              key.row,
			Column:           key.column,
			Weight:           round(acc.weight, 4),
			NormalizedWeight: round(normalized, 4),
			CommitCount:      acc.commits,
			Commits:          acc.samples,
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.NormalizedWeight != b.NormalizedWeight {
			return a.NormalizedWeight > b.NormalizedWeight
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
	if l.MaxCells > 0 && len(cells) > l.MaxCells {
		cells = cells[:l.MaxCells]
	}

	selectedChurn := make(map[string]int, len(modules))
	for _, m := range modules {
		selectedChurn[m] = churn[m]
	}
	return &Matrix{
		Modules:    modules,
		Churn:      selectedChurn,
		Cells:      cells,
		ColorScale: colorScale(cells),
	}
}

func sampleOf(c ReducedCommit, maxFiles int) graph.CommitSample {
	files := c.Files
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}
	return graph.CommitSample{
		Hash:      c.Hash,
		Author:    c.Author,
		Message:   c.Message,
		Timestamp: c.Timestamp.UnixMilli(),
		Files:     append([]string(nil), files...),
	}
}

// colorScale is min/median/max over the nonzero normalized weights.
func colorScale(cells []graph.HeatmapCell) graph.ColorScale {
	values := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.NormalizedWeight > 0 {
			values = append(values, c.NormalizedWeight)
		}
	}
	if len(values) == 0 {
		return graph.ColorScale{}
	}
	sort.Float64s(values)
	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = (values[mid-1] + values[mid]) / 2
	}
	return graph.ColorScale{Min: values[0], Median: round(median, 4), Max: values[len(values)-1]}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
