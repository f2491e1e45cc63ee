package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justify/internal/model"
)

var loadPrune bool

// graphFile is the shape of the JSON document `load` ingests.
type graphFile struct {
	Entities []model.Entity `json:"entities"`
	Edges    []model.Edge   `json:"edges"`
}

var loadCmd = &cobra.Command{
	Use:   "load <graph-file>",
	Short: "Load a graph extract into the store",
	Long: `Upsert entities and edges from a JSON graph file produced by an
extractor. With --prune, entities present in the store but absent from the
file are deleted along with their edges and justifications.

Examples:
  justify load graph.json
  justify load graph.json --prune`,
	Args: cobra.ExactArgs(1),
	Run:  runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadPrune, "prune", false, "Delete stored entities missing from the file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)
	org, repo := mustResolveOrigin(cfg)
	db := mustGetDB(repoRoot, logger)
	ctx := newContext()

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading graph file: %v\n", err)
		os.Exit(1)
	}
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing graph file: %v\n", err)
		os.Exit(1)
	}

	if err := db.UpsertEntities(ctx, org, repo, gf.Entities); err != nil {
		fmt.Fprintf(os.Stderr, "Error upserting entities: %v\n", err)
		os.Exit(1)
	}
	if err := db.UpsertEdges(ctx, org, repo, gf.Edges); err != nil {
		fmt.Fprintf(os.Stderr, "Error upserting edges: %v\n", err)
		os.Exit(1)
	}

	pruned := 0
	if loadPrune {
		stored, err := db.FetchEntities(ctx, org, repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching entities: %v\n", err)
			os.Exit(1)
		}
		keep := make(map[string]bool, len(gf.Entities))
		for _, e := range gf.Entities {
			keep[e.ID] = true
		}
		var stale []string
		for _, e := range stored {
			if !keep[e.ID] {
				stale = append(stale, e.ID)
			}
		}
		if len(stale) > 0 {
			if err := db.DeleteEntities(ctx, org, repo, stale); err != nil {
				fmt.Fprintf(os.Stderr, "Error pruning entities: %v\n", err)
				os.Exit(1)
			}
		}
		pruned = len(stale)
	}

	fmt.Printf("Loaded %d entities, %d edges into %s/%s", len(gf.Entities), len(gf.Edges), org, repo)
	if loadPrune {
		fmt.Printf(" (%d pruned)", pruned)
	}
	fmt.Println()
}
