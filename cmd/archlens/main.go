package main

import (
	"fmt"
	"os"

	archerrors "archlens/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, fix := range suggestedFixes(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", fix)
		}
		os.Exit(1)
	}
}

func suggestedFixes(err error) []string {
	var out []string
	for _, fix := range archerrors.GetSuggestedFixes(archerrors.CodeOf(err)) {
		switch {
		case fix.Command != "":
			out = append(out, fix.Description+": "+fix.Command)
		default:
			out = append(out, fix.Description)
		}
	}
	return out
}
