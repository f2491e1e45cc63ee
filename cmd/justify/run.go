package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"justify/internal/classify"
	"justify/internal/lock"
	"justify/internal/logging"
	"justify/internal/orchestrator"
)

var (
	runBranch string
	runNoLock bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the justification pipeline",
	Long: `Compute justifications for every stale entity in the graph, in
dependency order, then export a fresh snapshot.

Entities whose prior justification is still valid are reused. A change to
an entity cascades to its callers only when the recomputed meaning actually
moved, so a comment-only edit touches one entity, not its whole ancestry.

Examples:
  justify run
  justify run --org=acme --repo=billing
  justify run --no-lock    # Skip the shared-overlay lease (single writer)`,
	Run: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBranch, "branch", "main", "Branch for the overlay lease key")
	runCmd.Flags().BoolVar(&runNoLock, "no-lock", false, "Skip lease acquisition")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)
	org, repo := mustResolveOrigin(cfg)
	db := mustGetDB(repoRoot, logger)
	ctx := newContext()

	heartbeat := func(phase orchestrator.Phase, processed, total int) {
		logger.Info("Progress", logging.Fields{
			"phase":     string(phase),
			"processed": processed,
			"total":     total,
		})
	}

	pipeline := func(ctx context.Context) error {
		orch := orchestrator.New(db, classify.NewHeuristic(), cfg, logger, heartbeat)
		stats, err := orch.Run(ctx, org, repo)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s complete\n", stats.RunID)
		fmt.Printf("  Entities:   %d across %d levels (%d cycle-forced)\n",
			stats.Entities, stats.Levels, stats.Forced)
		fmt.Printf("  Recomputed: %d\n", stats.Recomputed)
		fmt.Printf("  Reused:     %d\n", stats.Reused)
		fmt.Printf("  Snapshot:   %d bytes, digest %s\n", stats.SnapshotBytes, stats.Digest)
		fmt.Printf("  Duration:   %s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond))
		return nil
	}

	var err error
	if runNoLock {
		err = pipeline(ctx)
	} else {
		opts := lock.Options{
			TTL:        time.Duration(cfg.Lock.TTLSeconds) * time.Second,
			MaxRetries: cfg.Lock.MaxRetries,
			Backoff:    time.Duration(cfg.Lock.RetryBackoffMs) * time.Millisecond,
		}
		err = lock.With(ctx, db, lock.OverlayKey(org, repo, runBranch), opts, pipeline)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}
}
