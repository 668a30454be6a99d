package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archlens/internal/graph"
)

var (
	importsScope   string
	importsFolders []string
)

var importsCmd = &cobra.Command{
	Use:   "imports [file]",
	Short: "Build an import graph",
	Long: `Build the import graph of a file, a folder or the whole workspace.

With a file argument the graph holds everything reachable from that file.
Without one, --scope selects folder (the --folder paths) or workspace.

Examples:
  archlens imports src/index.ts
  archlens imports --scope=folder --folder=src/components
  archlens imports --scope=workspace --format=json -o graph.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImports,
}

func init() {
	importsCmd.Flags().StringVar(&importsScope, "scope", "workspace", "Scope when no file is given (folder, workspace)")
	importsCmd.Flags().StringSliceVar(&importsFolders, "folder", nil, "Folders for --scope=folder")
	rootCmd.AddCommand(importsCmd)
}

func runImports(cmd *cobra.Command, args []string) error {
	start := time.Now()
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	builder := e.importBuilder()
	var payload *graph.Payload
	switch {
	case len(args) == 1:
		payload, err = builder.BuildGraphForFile(ctx, args[0])
	case importsScope == string(graph.ModeFolder):
		if len(importsFolders) == 0 {
			return fmt.Errorf("--scope=folder needs at least one --folder")
		}
		payload, err = builder.BuildGraphForScope(ctx, importsFolders, graph.ModeFolder)
	default:
		payload, err = builder.BuildGraphForScope(ctx, nil, graph.Mode(importsScope))
	}
	if err != nil {
		return fmt.Errorf("building import graph: %w", err)
	}

	e.logger.Debug("Import command completed", "durationMs", durationMs(start))
	return writeOutput(payload)
}
