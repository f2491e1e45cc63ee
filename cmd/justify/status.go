package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph store contents",
	Long: `Print entity, edge, and justification counts for the configured
origin, plus the latest stored snapshot's digest.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)
	org, repo := mustResolveOrigin(cfg)
	db := mustGetDB(repoRoot, logger)
	ctx := newContext()

	count, err := db.CountEntities(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting entities: %v\n", err)
		os.Exit(1)
	}
	edges, err := db.FetchEdges(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching edges: %v\n", err)
		os.Exit(1)
	}
	justs, err := db.GetJustifications(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching justifications: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s/%s\n", org, repo)
	fmt.Printf("  Entities:       %d\n", count)
	fmt.Printf("  Edges:          %d\n", len(edges))
	fmt.Printf("  Justifications: %d\n", len(justs))

	data, digest, err := db.GetSnapshot(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching snapshot: %v\n", err)
		os.Exit(1)
	}
	if data == nil {
		fmt.Println("  Snapshot:       none")
	} else {
		fmt.Printf("  Snapshot:       %d bytes, digest %s\n", len(data), digest)
	}
}
