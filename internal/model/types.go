// Package model defines the core data types shared across the justification
// pipeline: entities and edges from the index, justification records, and the
// ontology that constrains classification output.
package model

import "time"

// EntityKind identifies the kind of code construct an entity represents.
type EntityKind string

const (
	KindFunction EntityKind = "function"
	KindMethod   EntityKind = "method"
	KindClass    EntityKind = "class"
	KindFile     EntityKind = "file"
	KindModule   EntityKind = "module"
	KindRoute    EntityKind = "route"
)

// Entity is an indexed code construct. Entities are owned by the indexing
// subsystem and read-only to the pipeline.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	Signature string     `json:"signature,omitempty"`
	Body      string     `json:"body,omitempty"`
	// Parent is the name of the containing entity (class for a method,
	// file for a function), resolved against sibling entities during
	// propagation. Empty for forest roots.
	Parent string `json:"parent,omitempty"`
	// Complexity is the cyclomatic complexity when the indexer provides it.
	Complexity int `json:"complexity,omitempty"`
}

// EdgeKind identifies the relationship an edge encodes.
type EdgeKind string

const (
	EdgeCalls    EdgeKind = "calls"
	EdgeImports  EdgeKind = "imports"
	EdgeContains EdgeKind = "contains"
	EdgeUses     EdgeKind = "uses"
)

// Edge is a directed relationship between two entity IDs.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Taxonomy is the closed set of business-role categories a justification
// may carry.
type Taxonomy string

const (
	TaxonomyCoreLogic      Taxonomy = "core_logic"
	TaxonomyDataAccess     Taxonomy = "data_access"
	TaxonomyAPI            Taxonomy = "api"
	TaxonomyIntegration    Taxonomy = "integration"
	TaxonomyInfrastructure Taxonomy = "infrastructure"
	TaxonomyPresentation   Taxonomy = "presentation"
	TaxonomyUtility        Taxonomy = "utility"
	TaxonomyTest           Taxonomy = "test"
	TaxonomyUnclassified   Taxonomy = "unclassified"
)

// Taxonomies lists every valid taxonomy value.
func Taxonomies() []Taxonomy {
	return []Taxonomy{
		TaxonomyCoreLogic, TaxonomyDataAccess, TaxonomyAPI,
		TaxonomyIntegration, TaxonomyInfrastructure, TaxonomyPresentation,
		TaxonomyUtility, TaxonomyTest, TaxonomyUnclassified,
	}
}

// QualityFlag marks a known shortcoming of a justification record.
type QualityFlag string

const (
	// FlagFallback marks results produced by a degraded classifier; they are
	// always retried on the next run even if the code did not change.
	FlagFallback QualityFlag = "fallback"
	// FlagLowConfidence marks results the model itself scored poorly.
	FlagLowConfidence QualityFlag = "low_confidence"
	// FlagTruncatedContext marks results computed from truncated input.
	FlagTruncatedContext QualityFlag = "truncated_context"
)

// Triple is a (subject, predicate, object) semantic statement extracted from
// a classification.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Justification is the computed business-meaning classification for one
// entity. Propagated* fields are written only by the context propagator and
// never participate in the staleness fingerprint.
type Justification struct {
	EntityID        string        `json:"entityId"`
	Taxonomy        Taxonomy      `json:"taxonomy"`
	Confidence      float64       `json:"confidence"`
	BusinessPurpose string        `json:"businessPurpose,omitempty"`
	DomainConcepts  []string      `json:"domainConcepts,omitempty"`
	FeatureTag      string        `json:"featureTag,omitempty"`
	ArchPattern     string        `json:"archPattern,omitempty"`
	SemanticTriples []Triple      `json:"semanticTriples,omitempty"`
	QualityScore    float64       `json:"qualityScore"`
	QualityFlags    []QualityFlag `json:"qualityFlags,omitempty"`
	// Fingerprint is the content hash of the entity's signature+body at
	// computation time. It only changes when the entity's code changes.
	Fingerprint string `json:"fingerprint"`

	PropagatedFeatureTag     string   `json:"propagatedFeatureTag,omitempty"`
	PropagatedDomainConcepts []string `json:"propagatedDomainConcepts,omitempty"`
	PropagatedConfidence     float64  `json:"propagatedConfidence,omitempty"`

	ComputedAt time.Time `json:"computedAt"`
}

// HasFlag reports whether the justification carries the given quality flag.
func (j *Justification) HasFlag(flag QualityFlag) bool {
	for _, f := range j.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the justification.
func (j *Justification) Clone() *Justification {
	if j == nil {
		return nil
	}
	out := *j
	out.DomainConcepts = append([]string(nil), j.DomainConcepts...)
	out.SemanticTriples = append([]Triple(nil), j.SemanticTriples...)
	out.QualityFlags = append([]QualityFlag(nil), j.QualityFlags...)
	out.PropagatedDomainConcepts = append([]string(nil), j.PropagatedDomainConcepts...)
	return &out
}

// Ontology constrains classification output for a repository: the taxonomy
// values in use and the feature tags considered generic placeholders.
type Ontology struct {
	Taxonomies  []Taxonomy `json:"taxonomies"`
	GenericTags []string   `json:"genericTags"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

// DefaultOntology returns the ontology used when a repository has none stored.
func DefaultOntology() *Ontology {
	return &Ontology{
		Taxonomies:  Taxonomies(),
		GenericTags: []string{"", "unclassified", "utility", "misc", "helper", "unknown"},
	}
}

// IsGenericTag reports whether tag is one of the generic placeholders that
// top-down propagation is allowed to overwrite.
func (o *Ontology) IsGenericTag(tag string) bool {
	for _, g := range o.GenericTags {
		if tag == g {
			return true
		}
	}
	return false
}
