package snapshot

import (
	"justify/internal/model"
)

// MaxSignatureLen is the default length above which signatures are dropped
// from the compact projection. Short signatures are useful for local search
// display; long ones are dead weight in the snapshot.
const MaxSignatureLen = 300

// CompactEntity is the minimal entity projection the local store needs for
// read-only queries. Field tags are short on purpose: entity counts dominate
// snapshot size.
type CompactEntity struct {
	ID        string `json:"id"`
	Kind      string `json:"k"`
	Name      string `json:"n"`
	FilePath  string `json:"f"`
	StartLine int    `json:"l"`
	EndLine   int    `json:"el,omitempty"`
	Signature string `json:"s,omitempty"`

	Taxonomy       string   `json:"tx,omitempty"`
	FeatureTag     string   `json:"ft,omitempty"`
	Confidence     float64  `json:"c,omitempty"`
	DomainConcepts []string `json:"dc,omitempty"`
}

// CompactEdge is the minimal edge projection.
type CompactEdge struct {
	From string `json:"f"`
	To   string `json:"t"`
	Kind string `json:"k"`
}

// Compact reduces an entity and its optional justification to the snapshot
// projection. The body is always dropped; the signature is kept only when it
// fits maxSigLen (pass 0 for the default).
func Compact(e model.Entity, j *model.Justification, maxSigLen int) CompactEntity {
	if maxSigLen <= 0 {
		maxSigLen = MaxSignatureLen
	}

	ce := CompactEntity{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Name:      e.Name,
		FilePath:  e.FilePath,
		StartLine: e.StartLine,
		EndLine:   e.EndLine,
	}
	if len(e.Signature) <= maxSigLen {
		ce.Signature = e.Signature
	}

	if j != nil {
		ce.Taxonomy = string(j.Taxonomy)
		ce.Confidence = j.Confidence
		ce.DomainConcepts = append([]string(nil), j.PropagatedDomainConcepts...)
		if len(ce.DomainConcepts) == 0 {
			ce.DomainConcepts = append([]string(nil), j.DomainConcepts...)
		}
		ce.FeatureTag = j.PropagatedFeatureTag
		if ce.FeatureTag == "" {
			ce.FeatureTag = j.FeatureTag
		}
	}
	return ce
}

// CompactEdges projects edges, keeping only those whose endpoints are both
// in the entity set.
func CompactEdges(edges []model.Edge, entityIDs map[string]bool) []CompactEdge {
	out := make([]CompactEdge, 0, len(edges))
	for _, e := range edges {
		if !entityIDs[e.From] || !entityIDs[e.To] {
			continue
		}
		out = append(out, CompactEdge{From: e.From, To: e.To, Kind: string(e.Kind)})
	}
	return out
}
