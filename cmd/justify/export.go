package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"justify/internal/rules"
	"justify/internal/snapshot"
)

var (
	exportOut   string
	exportRules string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a snapshot of the graph",
	Long: `Compact the stored graph and encode it as a versioned snapshot file.

The snapshot carries the minimal projection an embedded local store needs:
entity identity, location, short signatures, call edges, and the latest
justification context. Bodies never leave the graph store.

Examples:
  justify export --out=snapshot.jsnp
  justify export --out=snapshot.jsnp --rules=.justify/rules.yaml`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "snapshot.jsnp", "Output file path")
	exportCmd.Flags().StringVar(&exportRules, "rules", "", "Rule set YAML to embed in the snapshot")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
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
	justs, err := db.GetJustifications(ctx, org, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching justifications: %v\n", err)
		os.Exit(1)
	}

	ids := make(map[string]bool, len(entities))
	compacted := make([]snapshot.CompactEntity, 0, len(entities))
	for _, e := range entities {
		ids[e.ID] = true
		compacted = append(compacted, snapshot.Compact(e, justs[e.ID], cfg.Snapshot.MaxSignatureLen))
	}

	env := &snapshot.Envelope{
		Version:     snapshot.Version,
		Org:         org,
		Repo:        repo,
		GeneratedAt: time.Now().UTC(),
		Entities:    compacted,
		Edges:       snapshot.CompactEdges(edges, ids),
	}

	if exportRules != "" {
		ruleSet, err := rules.LoadFile(exportRules)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
			os.Exit(1)
		}
		env.Rules = ruleSet
	}

	codec, err := snapshot.NewCodec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	encoded, err := codec.EncodeChunked(env, cfg.Snapshot.ChunkSize, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(exportOut, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d entities, %d edges to %s (%d bytes)\n",
		len(env.Entities), len(env.Edges), exportOut, len(encoded))
	fmt.Printf("Digest: %s\n", snapshot.Digest(encoded))
}
