package staleness

import (
	"testing"

	"justify/internal/identity"
	"justify/internal/model"
)

func freshEntity(id string) model.Entity {
	return model.Entity{
		ID:        id,
		Kind:      model.KindFunction,
		Name:      id,
		Signature: "func " + id + "(ctx context.Context) error",
		Body:      "return process(ctx)",
	}
}

// goodJust returns a justification that is current for the given entity:
// matching fingerprint, healthy score, no flags.
func goodJust(e model.Entity) *model.Justification {
	return &model.Justification{
		EntityID:        e.ID,
		Taxonomy:        model.TaxonomyCoreLogic,
		BusinessPurpose: "Processes incoming requests",
		QualityScore:    0.9,
		Fingerprint:     identity.FingerprintEntity(e),
	}
}

func TestCheckReasons(t *testing.T) {
	e := freshEntity("ent-1")

	tests := []struct {
		name       string
		prior      *model.Justification
		wantStale  bool
		wantReason Reason
	}{
		{
			name:       "no prior record",
			prior:      nil,
			wantStale:  true,
			wantReason: ReasonMissing,
		},
		{
			name: "fingerprint moved",
			prior: func() *model.Justification {
				j := goodJust(e)
				j.Fingerprint = "stale-fingerprint"
				return j
			}(),
			wantStale:  true,
			wantReason: ReasonFingerprint,
		},
		{
			name: "score below floor",
			prior: func() *model.Justification {
				j := goodJust(e)
				j.QualityScore = 0.2
				return j
			}(),
			wantStale:  true,
			wantReason: ReasonQuality,
		},
		{
			name: "fallback flag always retried",
			prior: func() *model.Justification {
				j := goodJust(e)
				j.QualityFlags = []model.QualityFlag{model.FlagFallback}
				return j
			}(),
			wantStale:  true,
			wantReason: ReasonQuality,
		},
		{
			name: "low confidence flag always retried",
			prior: func() *model.Justification {
				j := goodJust(e)
				j.QualityFlags = []model.QualityFlag{model.FlagLowConfidence}
				return j
			}(),
			wantStale:  true,
			wantReason: ReasonQuality,
		},
		{
			name: "score exactly at floor survives",
			prior: func() *model.Justification {
				j := goodJust(e)
				j.QualityScore = 0.4
				return j
			}(),
			wantStale: false,
		},
		{
			name:      "healthy record reused",
			prior:     goodJust(e),
			wantStale: false,
		},
	}

	checker := NewChecker(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := map[string]*model.Justification{}
			if tt.prior != nil {
				prior[e.ID] = tt.prior
			}
			res := checker.Check([]model.Entity{e}, prior, nil, nil, nil)

			if tt.wantStale {
				if len(res.Stale) != 1 {
					t.Fatalf("stale = %d entities, want 1", len(res.Stale))
				}
				if res.Reasons[e.ID] != tt.wantReason {
					t.Errorf("reason = %q, want %q", res.Reasons[e.ID], tt.wantReason)
				}
			} else {
				if len(res.Fresh) != 1 {
					t.Fatalf("fresh = %d entities, want 1", len(res.Fresh))
				}
			}
		})
	}
}

func TestCheckFingerprintIgnoresWhitespace(t *testing.T) {
	e := freshEntity("ent-ws")
	prior := map[string]*model.Justification{e.ID: goodJust(e)}

	// Reformat the body without changing content.
	e.Body = "return  process( ctx )\n"
	e.Signature = "func ent-ws(ctx context.Context) error "

	res := NewChecker(DefaultConfig()).Check([]model.Entity{e}, prior, nil, nil, nil)
	if len(res.Fresh) != 1 {
		t.Errorf("whitespace-only edit marked stale: reasons=%v", res.Reasons)
	}
}

func TestCheckCascade(t *testing.T) {
	caller := freshEntity("caller")
	edges := []model.Edge{{From: "caller", To: "callee", Kind: model.EdgeCalls}}

	calleeBefore := &model.Justification{
		Taxonomy:       model.TaxonomyCoreLogic,
		DomainConcepts: []string{"payment", "refund", "ledger"},
	}
	calleeRephrased := &model.Justification{
		Taxonomy:       model.TaxonomyCoreLogic,
		DomainConcepts: []string{"refund", "payment", "ledger"},
	}
	calleeRepurposed := &model.Justification{
		Taxonomy:       model.TaxonomyDataAccess,
		DomainConcepts: []string{"audit", "retention"},
	}

	tests := []struct {
		name       string
		changed    map[string]bool
		before     map[string]*model.Justification
		calleeNow  *model.Justification
		wantStale  bool
		wantReason Reason
	}{
		{
			name:      "callee unchanged this run",
			changed:   nil,
			calleeNow: calleeBefore,
			wantStale: false,
		},
		{
			name:      "callee rephrased only",
			changed:   map[string]bool{"callee": true},
			before:    map[string]*model.Justification{"callee": calleeBefore},
			calleeNow: calleeRephrased,
			wantStale: false,
		},
		{
			name:       "callee meaning moved",
			changed:    map[string]bool{"callee": true},
			before:     map[string]*model.Justification{"callee": calleeBefore},
			calleeNow:  calleeRepurposed,
			wantStale:  true,
			wantReason: ReasonCascade,
		},
		{
			name:       "no before record cascades conservatively",
			changed:    map[string]bool{"callee": true},
			before:     nil,
			calleeNow:  calleeRephrased,
			wantStale:  true,
			wantReason: ReasonCascade,
		},
	}

	checker := NewChecker(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := map[string]*model.Justification{
				"caller": goodJust(caller),
				"callee": tt.calleeNow,
			}
			res := checker.Check([]model.Entity{caller}, prior, tt.changed, edges, tt.before)

			if tt.wantStale {
				if len(res.Stale) != 1 {
					t.Fatalf("stale = %d entities, want 1", len(res.Stale))
				}
				if res.Reasons["caller"] != tt.wantReason {
					t.Errorf("reason = %q, want %q", res.Reasons["caller"], tt.wantReason)
				}
			} else if len(res.Fresh) != 1 {
				t.Errorf("caller marked stale: reasons=%v", res.Reasons)
			}
		})
	}
}

func TestCheckIdempotent(t *testing.T) {
	a := freshEntity("a")
	b := freshEntity("b")
	prior := map[string]*model.Justification{"a": goodJust(a)}
	checker := NewChecker(DefaultConfig())

	first := checker.Check([]model.Entity{a, b}, prior, nil, nil, nil)
	second := checker.Check([]model.Entity{a, b}, prior, nil, nil, nil)

	if len(first.Stale) != len(second.Stale) || len(first.Fresh) != len(second.Fresh) {
		t.Fatalf("partition differs across runs: %d/%d vs %d/%d",
			len(first.Stale), len(first.Fresh), len(second.Stale), len(second.Fresh))
	}
	for id, reason := range first.Reasons {
		if second.Reasons[id] != reason {
			t.Errorf("reason for %s differs: %q vs %q", id, reason, second.Reasons[id])
		}
	}
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]bool {
		m := make(map[string]bool)
		for _, w := range words {
			m[w] = true
		}
		return m
	}

	tests := []struct {
		name string
		a, b map[string]bool
		want float64
	}{
		{"both empty", set(), set(), 1.0},
		{"identical", set("x", "y"), set("y", "x"), 1.0},
		{"disjoint", set("x"), set("y"), 0.0},
		{"one empty", set("x"), set(), 0.0},
		{"partial overlap", set("a", "b", "c"), set("b", "c", "d"), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSemanticallyChangedAtThreshold(t *testing.T) {
	// Overlap is exactly 3/4 = 0.75; similarity at the threshold counts as
	// cosmetic, so the pair is not considered changed.
	before := &model.Justification{
		Taxonomy:       model.TaxonomyCoreLogic,
		DomainConcepts: []string{"alpha", "beta", "gamma"},
	}
	after := &model.Justification{
		Taxonomy:       model.TaxonomyCoreLogic,
		DomainConcepts: []string{"alpha", "beta"},
	}

	if SemanticallyChanged(before, after, 0.75) {
		t.Error("similarity exactly at threshold should not count as changed")
	}
	if !SemanticallyChanged(before, after, 0.76) {
		t.Error("similarity below threshold should count as changed")
	}
	if !SemanticallyChanged(nil, after, 0.75) {
		t.Error("missing before record should count as changed")
	}
}

func TestKeywordSet(t *testing.T) {
	j := &model.Justification{
		Taxonomy:        model.TaxonomyDataAccess,
		FeatureTag:      "billing",
		BusinessPurpose: "Persists the refund ledger to a database",
		DomainConcepts:  []string{"Refund", "ledger"},
	}

	set := KeywordSet(j)

	for _, want := range []string{"data_access", "billing", "persists", "refund", "ledger", "database"} {
		if !set[want] {
			t.Errorf("keyword set missing %q: %v", want, set)
		}
	}
	for _, absent := range []string{"the", "to", "a"} {
		if set[absent] {
			t.Errorf("stop word %q leaked into keyword set", absent)
		}
	}

	if got := KeywordSet(nil); len(got) != 0 {
		t.Errorf("KeywordSet(nil) = %v, want empty", got)
	}
}
