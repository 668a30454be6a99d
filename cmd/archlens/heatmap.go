package main

import (
	"time"

	"github.com/spf13/cobra"

	"archlens/internal/backends/git"
	"archlens/internal/coupling"
)

var (
	heatmapWindow      int
	heatmapGranularity string
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Build the git co-change heatmap",
	Long: `Find which parts of the workspace historically change together.

Commits in the window are folded into modules (top-level folders, two-level
folders or files); each pair of modules touched by the same commit gains a
weight that decays with commit age, normalized by how active both are.

Examples:
  archlens heatmap
  archlens heatmap --window=30 --granularity=twoLevel
  archlens heatmap --granularity=file --format=json -o heatmap.json`,
	Args: cobra.NoArgs,
	RunE: runHeatmap,
}

func init() {
	heatmapCmd.Flags().IntVar(&heatmapWindow, "window", 0, "Window in days, 1-365 (default from config)")
	heatmapCmd.Flags().StringVar(&heatmapGranularity, "granularity", "", "topLevel, twoLevel or file (default from config)")
	rootCmd.AddCommand(heatmapCmd)
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	start := time.Now()
	e, err := loadEnv()
	if err != nil {
		return err
	}
	granularity := coupling.Granularity("")
	if heatmapGranularity != "" {
		if granularity, err = coupling.ParseGranularity(heatmapGranularity); err != nil {
			return err
		}
	}
	ctx, cancel := signalContext()
	defer cancel()

	adapter := git.NewGitAdapter(time.Duration(e.cfg.Heatmap.GitTimeoutMs)*time.Millisecond, e.logger)
	builder := coupling.NewBuilder(adapter, e.folders, coupling.LimitsFromConfig(e.cfg.Heatmap), e.logger)

	payload, err := builder.Build(ctx, coupling.Options{WindowDays: heatmapWindow, Granularity: granularity})
	if err != nil {
		return err
	}
	e.logger.Debug("Heatmap command completed", "durationMs", durationMs(start))
	return writeOutput(payload)
}
