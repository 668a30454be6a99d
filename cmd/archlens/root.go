package main

import (
	"github.com/spf13/cobra"

	"archlens/internal/version"
)

var (
	rootFolders  []string
	outputFormat string
	outputPath   string
	compressOut  bool
	verbosity    int
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "archlens",
	Short: "archlens - workspace architecture and dependency graphs",
	Long: `archlens scans a source tree and its git history to produce graphs for a renderer:

  - import graphs of a file, a folder or the whole workspace
  - an inferred architecture of applications, services, datastores and their links
  - a git co-change heatmap of which parts of the tree change together`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("archlens version {{.Version}}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&rootFolders, "root", nil, "Workspace folders (default: config workspace.folders, else the current directory)")
	pf.StringVar(&outputFormat, "format", "human", "Output format (json, human)")
	pf.StringVarP(&outputPath, "output", "o", "", "Write output to a file instead of stdout")
	pf.BoolVar(&compressOut, "compress", false, "zstd-compress the output (requires --output)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v, -vv)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}
