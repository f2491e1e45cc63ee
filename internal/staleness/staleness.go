// Package staleness decides, per entity, whether a previously computed
// justification is still valid or must be recomputed. The checker is pure:
// given the same entities, prior records, and changed-ID set it always
// returns the same partition, which keeps it trivially unit-testable and
// safe to run from any worker process.
package staleness

import (
	"justify/internal/identity"
	"justify/internal/model"
)

// Reason explains why an entity was marked stale. Checks are evaluated in
// declaration order and the first match wins.
type Reason string

const (
	// ReasonMissing: no prior justification exists.
	ReasonMissing Reason = "missing"
	// ReasonFingerprint: the entity's signature/body changed since the prior
	// record was computed.
	ReasonFingerprint Reason = "fingerprint"
	// ReasonQuality: the prior record is below the quality floor or carries
	// a fallback/low-confidence flag; poor results are always retried.
	ReasonQuality Reason = "quality"
	// ReasonCascade: a direct callee was recomputed this run and its meaning
	// semantically changed.
	ReasonCascade Reason = "cascade"
)

// Config holds the tunable thresholds. The defaults are empirical, not
// load-bearing; see config.Thresholds.
type Config struct {
	// QualityFloor is the minimum prior quality score that survives reuse.
	QualityFloor float64
	// SimilarityThreshold is the Jaccard similarity at or above which a
	// callee's recomputation counts as cosmetic and does not cascade.
	SimilarityThreshold float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		QualityFloor:        0.4,
		SimilarityThreshold: 0.75,
	}
}

// Result partitions the checked entities.
type Result struct {
	// Stale entities need recomputation, in input order.
	Stale []model.Entity
	// Fresh entities keep their prior justification verbatim.
	Fresh []model.Entity
	// Reasons maps stale entity IDs to the first matching check.
	Reasons map[string]Reason
}

// Checker applies the staleness rules.
type Checker struct {
	cfg Config
}

// NewChecker creates a checker with the given config, falling back to
// defaults for zero thresholds.
func NewChecker(cfg Config) *Checker {
	def := DefaultConfig()
	if cfg.QualityFloor == 0 {
		cfg.QualityFloor = def.QualityFloor
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	return &Checker{cfg: cfg}
}

// Check partitions entities into stale and fresh.
//
// prior holds the current justification per entity ID. changedIDs is the set
// of entities recomputed in the immediately preceding level of this run.
// before holds, for changed entities, their justification as it was before
// this run; a changed callee with no before record cascades conservatively.
// edges supplies the calls relation for the cascade check.
func (c *Checker) Check(
	entities []model.Entity,
	prior map[string]*model.Justification,
	changedIDs map[string]bool,
	edges []model.Edge,
	before map[string]*model.Justification,
) *Result {
	res := &Result{Reasons: make(map[string]Reason)}

	callees := make(map[string][]string)
	if len(changedIDs) > 0 {
		for _, e := range edges {
			if e.Kind == model.EdgeCalls {
				callees[e.From] = append(callees[e.From], e.To)
			}
		}
	}

	for _, e := range entities {
		if reason, stale := c.check(e, prior[e.ID], changedIDs, callees[e.ID], prior, before); stale {
			res.Stale = append(res.Stale, e)
			res.Reasons[e.ID] = reason
		} else {
			res.Fresh = append(res.Fresh, e)
		}
	}
	return res
}

func (c *Checker) check(
	e model.Entity,
	prior *model.Justification,
	changedIDs map[string]bool,
	callees []string,
	current map[string]*model.Justification,
	before map[string]*model.Justification,
) (Reason, bool) {
	if prior == nil {
		return ReasonMissing, true
	}

	if identity.FingerprintEntity(e) != prior.Fingerprint {
		return ReasonFingerprint, true
	}

	if prior.QualityScore < c.cfg.QualityFloor ||
		prior.HasFlag(model.FlagFallback) || prior.HasFlag(model.FlagLowConfidence) {
		return ReasonQuality, true
	}

	for _, callee := range callees {
		if !changedIDs[callee] {
			continue
		}
		if SemanticallyChanged(before[callee], current[callee], c.cfg.SimilarityThreshold) {
			return ReasonCascade, true
		}
	}

	return "", false
}
