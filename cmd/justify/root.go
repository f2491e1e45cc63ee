package main

import (
	"justify/internal/version"

	"github.com/spf13/cobra"
)

var (
	// orgFlag and repoFlag override the config's origin coordinates.
	orgFlag  string
	repoFlag string
)

var rootCmd = &cobra.Command{
	Use:   "justify",
	Short: "justify - incremental code justification pipeline",
	Long: `justify computes and maintains structured justifications (taxonomy,
business purpose, domain concepts) for every entity in a code graph. It
processes entities in dependency order, recomputes only what a change
actually invalidated, and exports a compact snapshot an embedded local
store can serve fully offline.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("justify version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&orgFlag, "org", "", "Organization (default: config)")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository (default: config)")
}
