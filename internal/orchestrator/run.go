// Package orchestrator drives one justification run end to end: fetch
// counts, load ontology, compute levels, diff-and-recompute per level,
// propagate context, export the snapshot. Levels execute strictly
// sequentially because level n+1's staleness decisions depend on level n's
// semantic-change outcome; within a level, oversized batches are split into
// chunks processed concurrently with no shared mutable state.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"justify/internal/config"
	"justify/internal/level"
	"justify/internal/logging"
	"justify/internal/model"
	"justify/internal/propagate"
	"justify/internal/snapshot"
	"justify/internal/staleness"
)

// Orchestrator runs the pipeline against a graph store and a classifier.
type Orchestrator struct {
	store      GraphStore
	classifier Classifier
	cfg        *config.Config
	logger     *logging.Logger
	heartbeat  Heartbeat
}

// New creates an orchestrator. heartbeat may be nil.
func New(store GraphStore, classifier Classifier, cfg *config.Config, logger *logging.Logger, heartbeat Heartbeat) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if heartbeat == nil {
		heartbeat = func(Phase, int, int) {}
	}
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		heartbeat:  heartbeat,
	}
}

// RunStats summarizes one run.
type RunStats struct {
	RunID         string    `json:"runId"`
	Org           string    `json:"org"`
	Repo          string    `json:"repo"`
	Entities      int       `json:"entities"`
	Levels        int       `json:"levels"`
	Forced        int       `json:"forced"`
	Recomputed    int       `json:"recomputed"`
	Reused        int       `json:"reused"`
	SnapshotBytes int       `json:"snapshotBytes"`
	Digest        string    `json:"digest"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// chunkResult is one chunk's output, merged by concatenation: chunks share
// no mutable state, so a level needs no locking.
type chunkResult struct {
	justs []*model.Justification
}

// Run executes one full run for a repository. A run aborted between levels
// leaves already-finalized levels' justifications valid: the store is
// updated per level, never rolled back.
func (o *Orchestrator) Run(ctx context.Context, org, repo string) (*RunStats, error) {
	stats := &RunStats{
		RunID:     uuid.New().String(),
		Org:       org,
		Repo:      repo,
		StartedAt: time.Now().UTC(),
	}

	count, err := o.store.CountEntities(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	stats.Entities = count
	o.logger.Info("run started", logging.Fields{
		"runId": stats.RunID, "org": org, "repo": repo, "entities": count,
	})

	ontology, err := o.store.GetOntology(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("load ontology: %w", err)
	}
	if ontology == nil {
		ontology = model.DefaultOntology()
		if err := o.store.PutOntology(ctx, org, repo, ontology); err != nil {
			return nil, fmt.Errorf("store default ontology: %w", err)
		}
	}

	entities, err := o.store.FetchEntities(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}
	edges, err := o.store.FetchEdges(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch edges: %w", err)
	}
	o.heartbeat(PhaseFetch, len(entities), len(entities))

	levels := level.Compute(entities, edges)
	stats.Levels = len(levels.Batches)
	stats.Forced = len(levels.ForcedIDs)
	o.heartbeat(PhaseLevel, stats.Levels, stats.Levels)

	prior, err := o.store.GetJustifications(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch justifications: %w", err)
	}

	checker := staleness.NewChecker(staleness.Config{
		QualityFloor:        o.cfg.Thresholds.QualityFloor,
		SimilarityThreshold: o.cfg.Thresholds.Similarity,
	})
	calleeIdx := buildCalleeIndex(edges)

	// Only the previous level's changed set is carried forward: the cascade
	// rule cares about a caller's direct callees, which the leveling places
	// one level below.
	changedPrev := map[string]bool{}
	beforePrev := map[string]*model.Justification{}

	for i, batch := range levels.Batches {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("run aborted before level %d: %w", i, err)
		}

		res := checker.Check(batch.Entities, prior, changedPrev, edges, beforePrev)
		stats.Reused += len(res.Fresh)

		changedNext := make(map[string]bool, len(res.Stale))
		beforeNext := make(map[string]*model.Justification, len(res.Stale))
		for _, e := range res.Stale {
			beforeNext[e.ID] = prior[e.ID].Clone()
		}

		recomputed, err := o.classifyLevel(ctx, res.Stale, prior, calleeIdx, ontology)
		if err != nil {
			return stats, fmt.Errorf("level %d: %w", i, err)
		}

		updated := make(map[string]*model.Justification, len(recomputed))
		for _, j := range recomputed {
			prior[j.EntityID] = j
			updated[j.EntityID] = j
			changedNext[j.EntityID] = true
		}
		stats.Recomputed += len(recomputed)

		if len(updated) > 0 {
			if err := o.store.PutJustifications(ctx, org, repo, updated); err != nil {
				return stats, fmt.Errorf("store level %d results: %w", i, err)
			}
		}

		o.heartbeat(PhaseClassify, i+1, stats.Levels)
		o.logger.Debug("level finalized", logging.Fields{
			"level": i, "stale": len(res.Stale), "fresh": len(res.Fresh),
		})

		changedPrev = changedNext
		beforePrev = beforeNext
	}

	prop := propagate.New(propagate.Config{
		MaxConcepts: o.cfg.Propagation.MaxConcepts,
		Ontology:    ontology,
	})
	prop.Propagate(entities, edges, prior)
	if len(prior) > 0 {
		if err := o.store.PutJustifications(ctx, org, repo, prior); err != nil {
			return stats, fmt.Errorf("store propagated justifications: %w", err)
		}
	}
	o.heartbeat(PhasePropagate, 1, 1)

	encoded, digest, err := o.export(entities, edges, prior, org, repo)
	if err != nil {
		return stats, err
	}
	if err := o.store.SaveSnapshot(ctx, org, repo, snapshot.Version, digest, encoded); err != nil {
		return stats, fmt.Errorf("save snapshot: %w", err)
	}
	stats.SnapshotBytes = len(encoded)
	stats.Digest = digest
	stats.FinishedAt = time.Now().UTC()

	o.logger.Info("run finished", logging.Fields{
		"runId":      stats.RunID,
		"levels":     stats.Levels,
		"recomputed": stats.Recomputed,
		"reused":     stats.Reused,
		"snapshot":   stats.SnapshotBytes,
	})
	return stats, nil
}

// classifyLevel recomputes the stale entities of one level. Batches above
// the configured chunk size are split and classified concurrently; chunk
// results are merged by concatenation.
func (o *Orchestrator) classifyLevel(
	ctx context.Context,
	stale []model.Entity,
	prior map[string]*model.Justification,
	calleeIdx map[string][]string,
	ontology *model.Ontology,
) ([]*model.Justification, error) {
	if len(stale) == 0 {
		return nil, nil
	}

	chunkSize := o.cfg.Concurrency.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	if len(stale) <= chunkSize {
		res, err := o.classifyChunk(ctx, stale, prior, calleeIdx, ontology)
		if err != nil {
			return nil, err
		}
		return res.justs, nil
	}

	var chunks [][]model.Entity
	for start := 0; start < len(stale); start += chunkSize {
		end := start + chunkSize
		if end > len(stale) {
			end = len(stale)
		}
		chunks = append(chunks, stale[start:end])
	}

	results := make([]chunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	if o.cfg.Concurrency.MaxParallel > 0 {
		g.SetLimit(o.cfg.Concurrency.MaxParallel)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := o.classifyChunk(gctx, chunk, prior, calleeIdx, ontology)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*model.Justification
	for _, res := range results {
		merged = append(merged, res.justs...)
	}
	return merged, nil
}

// classifyChunk runs the inference call for each entity of one chunk. Chunk
// members are mutually non-dependent by construction of the levels, so order
// within the chunk is irrelevant. The prior map is only read here; callee
// records belong to already-finalized levels.
func (o *Orchestrator) classifyChunk(
	ctx context.Context,
	entities []model.Entity,
	prior map[string]*model.Justification,
	calleeIdx map[string][]string,
	ontology *model.Ontology,
) (chunkResult, error) {
	var res chunkResult
	for _, e := range entities {
		var callees []*model.Justification
		for _, id := range calleeIdx[e.ID] {
			if j := prior[id]; j != nil {
				callees = append(callees, j)
			}
		}

		j, err := o.classifier.Classify(ctx, e, ClassifyContext{
			Ontology: ontology,
			Callees:  callees,
		})
		if err != nil {
			return res, fmt.Errorf("classify %s: %w", e.ID, err)
		}
		j.EntityID = e.ID
		res.justs = append(res.justs, j)
	}
	return res, nil
}

// export compacts the graph and encodes the snapshot envelope in bounded
// chunks.
func (o *Orchestrator) export(
	entities []model.Entity,
	edges []model.Edge,
	justs map[string]*model.Justification,
	org, repo string,
) ([]byte, string, error) {
	ids := make(map[string]bool, len(entities))
	compacted := make([]snapshot.CompactEntity, 0, len(entities))
	for _, e := range entities {
		ids[e.ID] = true
		compacted = append(compacted, snapshot.Compact(e, justs[e.ID], o.cfg.Snapshot.MaxSignatureLen))
	}

	env := &snapshot.Envelope{
		Version:     snapshot.Version,
		Org:         org,
		Repo:        repo,
		GeneratedAt: time.Now().UTC(),
		Entities:    compacted,
		Edges:       snapshot.CompactEdges(edges, ids),
	}

	codec, err := snapshot.NewCodec()
	if err != nil {
		return nil, "", fmt.Errorf("create codec: %w", err)
	}
	encoded, err := codec.EncodeChunked(env, o.cfg.Snapshot.ChunkSize, func(processed, total int) {
		o.heartbeat(PhaseExport, processed, total)
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode snapshot: %w", err)
	}
	return encoded, snapshot.Digest(encoded), nil
}

func buildCalleeIndex(edges []model.Edge) map[string][]string {
	idx := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == model.EdgeCalls && e.From != e.To {
			idx[e.From] = append(idx[e.From], e.To)
		}
	}
	return idx
}
