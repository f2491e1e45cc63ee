package staleness

import (
	"strings"

	"justify/internal/model"
)

// stopWords are filtered out of business-purpose text before keyword
// comparison. The list is intentionally small: it only needs to strip glue
// words that survive rephrasing.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "for": true, "in": true, "on": true, "by": true, "with": true,
	"is": true, "are": true, "was": true, "be": true, "it": true, "its": true,
	"this": true, "that": true, "as": true, "at": true, "from": true,
	"which": true, "when": true, "then": true, "into": true, "used": true,
	"uses": true, "using": true, "via": true, "all": true, "each": true,
}

// KeywordSet extracts the normalized keyword set of a justification. Two
// justifications with the same keyword set are considered semantically
// equivalent even if the purpose text was reworded.
func KeywordSet(j *model.Justification) map[string]bool {
	set := make(map[string]bool)
	if j == nil {
		return set
	}

	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}

	add(string(j.Taxonomy))
	add(j.FeatureTag)
	add(j.ArchPattern)
	for _, c := range j.DomainConcepts {
		add(c)
	}
	for _, tok := range tokenizePurpose(j.BusinessPurpose) {
		add(tok)
	}
	return set
}

// tokenizePurpose splits purpose text on non-alphanumerics, lowercases, and
// drops stop words and single-character fragments.
func tokenizePurpose(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Jaccard computes |a ∩ b| / |a ∪ b|. Two empty sets are identical (1.0).
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// SemanticallyChanged reports whether the before/after pair of justifications
// differs in meaning rather than wording. A missing before record counts as
// changed (conservative cascade). Similarity at or above the threshold is
// treated as cosmetic rephrasing.
func SemanticallyChanged(before, after *model.Justification, threshold float64) bool {
	if before == nil || after == nil {
		return true
	}
	return Jaccard(KeywordSet(before), KeywordSet(after)) < threshold
}
