package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"archlens/internal/graph"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *graph.Payload:
		if v.Heatmap != nil {
			return formatHeatmapHuman(v), nil
		}
		return formatPayloadHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatPayloadHuman(p *graph.Payload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s graph: %d nodes, %d edges\n", p.Mode, len(p.Nodes), len(p.Edges))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	writeLines(&b, "Summary", p.Summary)
	writeLines(&b, "Warnings", p.Warnings)

	byID := make(map[string]graph.Node, len(p.Nodes))
	for _, n := range p.Nodes {
		byID[n.ID] = n
	}

	if len(p.Nodes) > 0 {
		b.WriteString("\nNodes:\n")
		nodes := append([]graph.Node(nil), p.Nodes...)
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Weight > nodes[j].Weight })
		for _, n := range nodes {
			tag := string(n.Kind)
			if n.Category != "" {
				tag = n.Category
			}
			fmt.Fprintf(&b, "  %-12s %s", tag, n.Label)
			if n.Confidence > 0 {
				fmt.Fprintf(&b, " (%.0f%%)", n.Confidence*100)
			}
			fmt.Fprintf(&b, "  in:%d out:%d\n", n.FanIn, n.FanOut)
		}
	}

	if len(p.Edges) > 0 {
		b.WriteString("\nEdges:\n")
		for _, e := range p.Edges {
			fmt.Fprintf(&b, "  %s -[%s]-> %s", byID[e.Source].Label, e.Kind, byID[e.Target].Label)
			if e.Label != "" && e.Label != e.Kind {
				fmt.Fprintf(&b, "  %s", e.Label)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatHeatmapHuman(p *graph.Payload) string {
	h := p.Heatmap
	var b strings.Builder

	fmt.Fprintf(&b, "Co-change heatmap (%s, last %d days): %d modules, %d cells\n",
		h.Granularity, h.WindowDays, len(h.Modules), len(h.Cells))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	writeLines(&b, "Summary", p.Summary)
	writeLines(&b, "Warnings", p.Warnings)
	writeLines(&b, "Filters", h.FiltersApplied)

	b.WriteString("\nTop pairs:\n")
	shown := 0
	for _, c := range h.Cells {
		if c.Row == c.Column {
			continue
		}
		fmt.Fprintf(&b, "  %.2f  %-30s %-30s %d commits\n", c.NormalizedWeight, c.Row, c.Column, c.CommitCount)
		if shown++; shown == 20 {
			break
		}
	}
	if shown == 0 {
		b.WriteString("  (none)\n")
	}
	fmt.Fprintf(&b, "\nColor scale: min %.2f, median %.2f, max %.2f\n", h.ColorScale.Min, h.ColorScale.Median, h.ColorScale.Max)
	return b.String()
}

func writeLines(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "  - %s\n", l)
	}
}

// writeOutput prints the formatted response or writes it to --output,
// zstd-compressed with --compress.
func writeOutput(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		return err
	}
	if outputPath == "" {
		if compressOut {
			return fmt.Errorf("--compress requires --output")
		}
		fmt.Println(out)
		return nil
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	n, err := writeTo(f, []byte(out+"\n"), compressOut)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", outputPath, formatBytes(n))
	return nil
}

// writeTo writes data, optionally zstd-compressed, and returns the bytes written.
func writeTo(w io.Writer, data []byte, compress bool) (int64, error) {
	if !compress {
		n, err := w.Write(data)
		return int64(n), err
	}
	cw := &countingWriter{w: w}
	enc, err := zstd.NewWriter(cw)
	if err != nil {
		return 0, err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return cw.n, err
	}
	err = enc.Close()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// formatBytes formats a byte count with binary units
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
