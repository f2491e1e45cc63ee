// Package classify provides the degraded, name-based fallback classifier
// used when no inference endpoint is configured. Its results carry the
// fallback quality flag and a score below the quality floor, so the next
// run with a real classifier retries every entity it touched.
package classify

import (
	"context"
	"path"
	"strings"
	"time"

	"justify/internal/identity"
	"justify/internal/localstore"
	"justify/internal/model"
	"justify/internal/orchestrator"
)

// Heuristic classifies entities from names and paths alone.
type Heuristic struct{}

// NewHeuristic creates the fallback classifier.
func NewHeuristic() *Heuristic { return &Heuristic{} }

var taxonomyHints = []struct {
	keywords []string
	taxonomy model.Taxonomy
}{
	{[]string{"test", "spec", "fixture", "mock"}, model.TaxonomyTest},
	{[]string{"handler", "route", "endpoint", "controller", "api"}, model.TaxonomyAPI},
	{[]string{"repo", "repository", "store", "storage", "db", "dao", "query"}, model.TaxonomyDataAccess},
	{[]string{"client", "webhook", "publish", "consume", "sync"}, model.TaxonomyIntegration},
	{[]string{"config", "logger", "logging", "metric", "middleware", "migrate"}, model.TaxonomyInfrastructure},
	{[]string{"render", "view", "template", "format", "display"}, model.TaxonomyPresentation},
	{[]string{"util", "helper", "common", "shared"}, model.TaxonomyUtility},
}

// Classify derives a low-confidence justification from the entity's name,
// path, and its callees' concepts.
func (h *Heuristic) Classify(ctx context.Context, e model.Entity, cc orchestrator.ClassifyContext) (*model.Justification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := localstore.Tokenize(e.Name + " " + e.FilePath)
	taxonomy := pickTaxonomy(tokens)

	concepts := make([]string, 0, 4)
	for _, tok := range localstore.Tokenize(e.Name) {
		if len(tok) > 2 {
			concepts = append(concepts, tok)
		}
		if len(concepts) == 4 {
			break
		}
	}
	for _, callee := range cc.Callees {
		if len(concepts) >= 6 {
			break
		}
		if len(callee.DomainConcepts) > 0 {
			concepts = appendUnique(concepts, callee.DomainConcepts[0])
		}
	}

	return &model.Justification{
		EntityID:        e.ID,
		Taxonomy:        taxonomy,
		Confidence:      0.35,
		BusinessPurpose: "Heuristic classification of " + e.Name + " from naming alone",
		DomainConcepts:  concepts,
		FeatureTag:      featureTag(e.FilePath),
		QualityScore:    0.3,
		QualityFlags:    []model.QualityFlag{model.FlagFallback},
		Fingerprint:     identity.FingerprintEntity(e),
		ComputedAt:      time.Now().UTC(),
	}, nil
}

func pickTaxonomy(tokens []string) model.Taxonomy {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, hint := range taxonomyHints {
		for _, kw := range hint.keywords {
			if set[kw] {
				return hint.taxonomy
			}
		}
	}
	return model.TaxonomyUnclassified
}

// featureTag uses the entity's top-level directory as a rough feature area.
func featureTag(filePath string) string {
	p := path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	parts := strings.Split(p, "/")
	for _, part := range parts {
		switch part {
		case "", ".", "internal", "pkg", "src", "lib", "cmd":
			continue
		}
		if strings.Contains(part, ".") {
			return ""
		}
		return strings.ToLower(part)
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
