package model

import (
	"reflect"
	"testing"
)

func TestHasFlag(t *testing.T) {
	j := &Justification{QualityFlags: []QualityFlag{FlagFallback}}
	if !j.HasFlag(FlagFallback) {
		t.Error("HasFlag missed a present flag")
	}
	if j.HasFlag(FlagLowConfidence) {
		t.Error("HasFlag reported an absent flag")
	}
	if (&Justification{}).HasFlag(FlagFallback) {
		t.Error("HasFlag on empty flags reported true")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Justification{
		EntityID:                 "e1",
		Taxonomy:                 TaxonomyCoreLogic,
		DomainConcepts:           []string{"refund"},
		QualityFlags:             []QualityFlag{FlagFallback},
		PropagatedDomainConcepts: []string{"billing"},
	}

	c := orig.Clone()
	if !reflect.DeepEqual(c, orig) {
		t.Fatalf("Clone() = %+v, want %+v", c, orig)
	}

	c.DomainConcepts[0] = "mutated"
	c.QualityFlags[0] = FlagTruncatedContext
	c.PropagatedDomainConcepts[0] = "mutated"
	if orig.DomainConcepts[0] != "refund" ||
		orig.QualityFlags[0] != FlagFallback ||
		orig.PropagatedDomainConcepts[0] != "billing" {
		t.Error("Clone shares slices with the original")
	}

	var nilJust *Justification
	if nilJust.Clone() != nil {
		t.Error("Clone of nil is not nil")
	}
}

func TestIsGenericTag(t *testing.T) {
	o := DefaultOntology()

	for _, tag := range []string{"", "unclassified", "utility", "misc", "helper", "unknown"} {
		if !o.IsGenericTag(tag) {
			t.Errorf("IsGenericTag(%q) = false, want true", tag)
		}
	}
	for _, tag := range []string{"billing", "payments", "auth"} {
		if o.IsGenericTag(tag) {
			t.Errorf("IsGenericTag(%q) = true, want false", tag)
		}
	}
}

func TestDefaultOntologyCoversTaxonomies(t *testing.T) {
	o := DefaultOntology()
	if len(o.Taxonomies) != len(Taxonomies()) {
		t.Errorf("ontology lists %d taxonomies, want %d", len(o.Taxonomies), len(Taxonomies()))
	}
}
