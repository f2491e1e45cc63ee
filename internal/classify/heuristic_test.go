package classify

import (
	"context"
	"testing"

	"justify/internal/model"
	"justify/internal/orchestrator"
)

func classifyOne(t *testing.T, e model.Entity) *model.Justification {
	t.Helper()
	j, err := NewHeuristic().Classify(context.Background(), e, orchestrator.ClassifyContext{
		Ontology: model.DefaultOntology(),
	})
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	return j
}

func TestHeuristicTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		e    model.Entity
		want model.Taxonomy
	}{
		{
			"handler from name",
			model.Entity{ID: "1", Name: "paymentHandler", FilePath: "srv/payment.go"},
			model.TaxonomyAPI,
		},
		{
			"repository from path",
			model.Entity{ID: "2", Name: "save", FilePath: "internal/repo/accounts.go"},
			model.TaxonomyDataAccess,
		},
		{
			"test file",
			model.Entity{ID: "3", Name: "TestSave", FilePath: "internal/repo/accounts_test.go"},
			model.TaxonomyTest,
		},
		{
			"no hint",
			model.Entity{ID: "4", Name: "frobnicate", FilePath: "x/y.go"},
			model.TaxonomyUnclassified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyOne(t, tt.e).Taxonomy; got != tt.want {
				t.Errorf("taxonomy = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeuristicAlwaysDegraded(t *testing.T) {
	j := classifyOne(t, model.Entity{ID: "1", Name: "processRefund", FilePath: "pay/refund.go"})

	if !j.HasFlag(model.FlagFallback) {
		t.Error("heuristic result missing fallback flag")
	}
	// Below any sensible quality floor, so the next real classifier retries.
	if j.QualityScore >= 0.4 {
		t.Errorf("quality score = %v, want below 0.4", j.QualityScore)
	}
	if j.Fingerprint == "" {
		t.Error("fingerprint not set")
	}
}

func TestHeuristicConceptsFromName(t *testing.T) {
	j := classifyOne(t, model.Entity{ID: "1", Name: "processRefundLedger", FilePath: "pay/refund.go"})

	want := map[string]bool{"process": true, "refund": true, "ledger": true}
	for _, c := range j.DomainConcepts {
		if !want[c] {
			t.Errorf("unexpected concept %q", c)
		}
		delete(want, c)
	}
	if len(want) != 0 {
		t.Errorf("missing concepts: %v", want)
	}
}

func TestHeuristicFeatureTag(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"internal/billing/refund.go", "billing"},
		{"cmd/server/main.go", "server"},
		{"main.go", ""},
	}
	for _, tt := range tests {
		j := classifyOne(t, model.Entity{ID: "1", Name: "fn", FilePath: tt.path})
		if j.FeatureTag != tt.want {
			t.Errorf("featureTag(%q) = %q, want %q", tt.path, j.FeatureTag, tt.want)
		}
	}
}

func TestHeuristicCalleeConcepts(t *testing.T) {
	j, err := NewHeuristic().Classify(context.Background(),
		model.Entity{ID: "1", Name: "orchestrate", FilePath: "x/y.go"},
		orchestrator.ClassifyContext{
			Callees: []*model.Justification{
				{DomainConcepts: []string{"ledger", "posting"}},
			},
		})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, c := range j.DomainConcepts {
		if c == "ledger" {
			found = true
		}
	}
	if !found {
		t.Errorf("callee concept not borrowed: %v", j.DomainConcepts)
	}
}
