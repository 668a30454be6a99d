package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archlens/internal/architecture"
	"archlens/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run architecture analysis when manifests or schemas change",
	Long: `Analyze the workspace, then watch it. Whenever a dependency manifest,
compose file, Prisma schema or SQL file changes, the cached result is
dropped and the analysis re-runs. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	analyzer := e.analyzer()
	render := func() {
		res, err := analyzer.Analyze(ctx, nil)
		if err != nil {
			if ctx.Err() == nil {
				e.logger.Error("Architecture analysis failed", "error", err.Error())
			}
			return
		}
		if err := writeOutput(architecture.ToPayload(res)); err != nil {
			e.logger.Error("Writing output failed", "error", err.Error())
		}
	}
	render()

	changes := make(chan []watcher.Event, 1)
	cfg := watcher.ConfigFrom(e.cfg.Watcher, e.cfg.Workspace.Exclude)
	cfg.Enabled = true
	w := watcher.New(cfg, e.logger, func(events []watcher.Event) {
		select {
		case changes <- events:
		default:
			// A re-run is already queued.
		}
	})
	if err := w.Start(e.folders.Folders()); err != nil {
		return err
	}
	defer w.Stop()
	fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl-C to stop.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-changes:
			start := time.Now()
			analyzer.Invalidate()
			e.logger.Info("Re-analyzing after changes", "events", len(events), "first", events[0].Path)
			render()
			e.logger.Debug("Re-analysis finished", "durationMs", durationMs(start))
		}
	}
}
