package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"justify/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize justify in the current repository",
	Long: `Create .justify/config.json with default settings.

Examples:
  justify init --org=acme --repo=billing
  justify init --force    # Overwrite an existing config`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	configPath := filepath.Join(repoRoot, ".justify", "config.json")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(os.Stderr, "Config already exists at %s (use --force to overwrite)\n", configPath)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.Org = orgFlag
	cfg.Repo = repoFlag

	if err := cfg.Save(repoRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Initialized justify config at %s\n", configPath)
	if cfg.Org == "" || cfg.Repo == "" {
		fmt.Println("Note: set org and repo in the config or pass --org/--repo on each command")
	}
}
