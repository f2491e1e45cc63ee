package orchestrator

import (
	"context"

	"justify/internal/model"
)

// GraphStore is the narrow contract the run driver needs from the graph
// database. No query-language specifics leak past it.
type GraphStore interface {
	CountEntities(ctx context.Context, org, repo string) (int, error)
	FetchEntities(ctx context.Context, org, repo string) ([]model.Entity, error)
	FetchEdges(ctx context.Context, org, repo string) ([]model.Edge, error)
	GetJustifications(ctx context.Context, org, repo string) (map[string]*model.Justification, error)
	PutJustifications(ctx context.Context, org, repo string, justs map[string]*model.Justification) error
	GetOntology(ctx context.Context, org, repo string) (*model.Ontology, error)
	PutOntology(ctx context.Context, org, repo string, o *model.Ontology) error
	SaveSnapshot(ctx context.Context, org, repo string, version uint32, digest string, data []byte) error
}

// ClassifyContext carries the context one inference call sees.
type ClassifyContext struct {
	Ontology *model.Ontology
	// Callees holds the already-final justifications of the entity's direct
	// callees, always resolved one level below the entity.
	Callees []*model.Justification
}

// Classifier is the opaque inference boundary: entity in, classification
// out. Failures are retryable by the surrounding orchestration engine; the
// run driver itself never retries.
type Classifier interface {
	Classify(ctx context.Context, entity model.Entity, cc ClassifyContext) (*model.Justification, error)
}

// Phase identifies a run step for heartbeat reporting.
type Phase string

const (
	PhaseFetch     Phase = "fetch"
	PhaseLevel     Phase = "level"
	PhaseClassify  Phase = "classify"
	PhasePropagate Phase = "propagate"
	PhaseExport    Phase = "export"
)

// Heartbeat is the liveness signal for long steps: fired per completed level
// and per snapshot chunk with (processed, total) progress.
type Heartbeat func(phase Phase, processed, total int)
