package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archlens/internal/architecture"
)

var (
	archForce      bool
	archMaxSymbols int
)

var archCmd = &cobra.Command{
	Use:   "arch",
	Short: "Infer the workspace architecture",
	Long: `Infer applications, frontends, backends, datastores, queues and external
services from manifests, schemas, source patterns and workspace symbols.

Examples:
  archlens arch
  archlens arch --format=json -o arch.json --compress
  archlens arch --max-symbols=40`,
	Args: cobra.NoArgs,
	RunE: runArch,
}

func init() {
	archCmd.Flags().BoolVar(&archForce, "force", false, "Bypass the result cache")
	archCmd.Flags().IntVar(&archMaxSymbols, "max-symbols", 0, "Workspace symbol limit (default from config)")
	rootCmd.AddCommand(archCmd)
}

func runArch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	analyzer := e.analyzer()
	analyzer.SetProgress(func(msg string) { e.logger.Debug(msg) })

	res, err := analyzer.Analyze(ctx, &architecture.Options{
		Force:               archForce,
		MaxWorkspaceSymbols: archMaxSymbols,
	})
	if err != nil {
		return fmt.Errorf("analyzing architecture: %w", err)
	}

	e.logger.Debug("Architecture command completed",
		"components", len(res.Components),
		"relationships", len(res.Relationships),
		"durationMs", durationMs(start),
	)
	return writeOutput(architecture.ToPayload(res))
}
