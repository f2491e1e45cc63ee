package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justify/internal/level"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the dependency-ordered processing plan",
	Long: `Compute the level ordering over the stored call graph without
classifying anything. Each level lists entities whose callees were all
placed in earlier levels; entities placed by cycle breaking are marked.

Examples:
  justify plan
  justify plan --format=json`,
	Run: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)
	org, repo := mustResolveOrigin(cfg)
	db := mustGetDB(repoRoot, logger)
	ctx := newContext()

	entities, err := db.FetchEntities(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching entities: %v\n", err)
		os.Exit(1)
	}
	edges, err := db.FetchEdges(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching edges: %v\n", err)
		os.Exit(1)
	}

	result := level.Compute(entities, edges)

	if planFormat == "json" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%d entities in %d levels\n", len(entities), len(result.Batches))
	for i, batch := range result.Batches {
		marker := ""
		if batch.Forced {
			marker = " (cycle-forced)"
		}
		fmt.Printf("level %d%s: %d entities\n", i, marker, len(batch.Entities))
		for _, e := range batch.Entities {
			fmt.Printf("  %s  %s:%d  %s\n", e.ID, e.FilePath, e.StartLine, e.Name)
		}
	}
	if len(result.ForcedIDs) > 0 {
		fmt.Printf("\n%d entities placed by cycle breaking\n", len(result.ForcedIDs))
	}
}
