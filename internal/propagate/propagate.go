// Package propagate reconciles parent/child justifications after a
// computation pass. It runs a fixed three-pass algorithm over the containment
// forest: bottom-up aggregation, top-down enrichment, then exactly one more
// bottom-up pass so top-down changes ripple back up. The pass count is a
// deliberate bound on propagation cost; it never iterates to a fixpoint.
package propagate

import (
	"sort"

	"justify/internal/model"
)

// Config holds propagation settings.
type Config struct {
	// MaxConcepts caps propagated domain-concept lists.
	MaxConcepts int
	// Ontology decides which feature tags count as generic placeholders.
	Ontology *model.Ontology
}

// DefaultConfig returns the default propagation settings.
func DefaultConfig() Config {
	return Config{
		MaxConcepts: 10,
		Ontology:    model.DefaultOntology(),
	}
}

// Propagator runs the three-pass reconciliation.
type Propagator struct {
	cfg Config
}

// New creates a propagator, filling zero config fields with defaults.
func New(cfg Config) *Propagator {
	def := DefaultConfig()
	if cfg.MaxConcepts <= 0 {
		cfg.MaxConcepts = def.MaxConcepts
	}
	if cfg.Ontology == nil {
		cfg.Ontology = def.Ontology
	}
	return &Propagator{cfg: cfg}
}

// forest is the containment hierarchy. children lists are ID-sorted so every
// pass is deterministic.
type forest struct {
	children map[string][]string
	parent   map[string]string
	roots    []string
}

// Propagate mutates the justification map in place and returns it. The
// entity→record cardinality is unchanged: propagation only rewrites the
// propagated fields of existing records.
func (p *Propagator) Propagate(
	entities []model.Entity,
	edges []model.Edge,
	justs map[string]*model.Justification,
) map[string]*model.Justification {
	if len(entities) == 0 || len(justs) == 0 {
		return justs
	}

	f := buildForest(entities, edges)

	// Propagated fields are derived; recompute from scratch each pass.
	for _, j := range justs {
		j.PropagatedFeatureTag = ""
		j.PropagatedDomainConcepts = nil
		j.PropagatedConfidence = 0
	}

	p.aggregateUp(f, justs)
	p.enrichDown(f, justs)
	p.aggregateUp(f, justs)

	return justs
}

// buildForest resolves the hierarchy from contains edges, falling back to
// Parent name references. Links that would introduce a cycle are dropped and
// the child becomes a root.
func buildForest(entities []model.Entity, edges []model.Edge) *forest {
	f := &forest{
		children: make(map[string][]string),
		parent:   make(map[string]string),
	}

	inSet := make(map[string]bool, len(entities))
	byName := make(map[string][]model.Entity)
	for _, e := range entities {
		inSet[e.ID] = true
		byName[e.Name] = append(byName[e.Name], e)
	}

	for _, e := range edges {
		if e.Kind != model.EdgeContains || !inSet[e.From] || !inSet[e.To] {
			continue
		}
		if _, ok := f.parent[e.To]; ok || e.From == e.To {
			continue
		}
		f.parent[e.To] = e.From
	}

	for _, e := range entities {
		if _, ok := f.parent[e.ID]; ok || e.Parent == "" {
			continue
		}
		if pid := resolveParent(e, byName[e.Parent]); pid != "" {
			f.parent[e.ID] = pid
		}
	}

	// Break any cycle the parent links formed: the smallest-ID member of the
	// cycle becomes a root.
	for _, e := range entities {
		seen := map[string]bool{e.ID: true}
		cur := e.ID
		for {
			next, ok := f.parent[cur]
			if !ok {
				break
			}
			if seen[next] {
				delete(f.parent, cur)
				break
			}
			seen[next] = true
			cur = next
		}
	}

	for _, e := range entities {
		if pid, ok := f.parent[e.ID]; ok {
			f.children[pid] = append(f.children[pid], e.ID)
		} else {
			f.roots = append(f.roots, e.ID)
		}
	}
	sort.Strings(f.roots)
	for _, kids := range f.children {
		sort.Strings(kids)
	}
	return f
}

// resolveParent picks the entity a parent-name reference points at: same
// file first, then smallest ID.
func resolveParent(child model.Entity, candidates []model.Entity) string {
	best := ""
	for _, c := range candidates {
		if c.ID == child.ID {
			continue
		}
		if c.FilePath == child.FilePath {
			if best == "" || c.ID < best {
				best = c.ID
			}
		}
	}
	if best != "" {
		return best
	}
	for _, c := range candidates {
		if c.ID == child.ID {
			continue
		}
		if best == "" || c.ID < best {
			best = c.ID
		}
	}
	return best
}

// effectiveTag is the tag a node contributes upward: the propagated tag when
// set, else the node's own.
func effectiveTag(j *model.Justification) string {
	if j.PropagatedFeatureTag != "" {
		return j.PropagatedFeatureTag
	}
	return j.FeatureTag
}

func effectiveConcepts(j *model.Justification) []string {
	if len(j.PropagatedDomainConcepts) > 0 {
		return j.PropagatedDomainConcepts
	}
	return j.DomainConcepts
}

func effectiveConfidence(j *model.Justification) float64 {
	if j.PropagatedConfidence > 0 {
		return j.PropagatedConfidence
	}
	return j.Confidence
}

// aggregateUp runs one bottom-up pass: children before parents, aggregating
// each non-leaf's children into its propagated fields.
func (p *Propagator) aggregateUp(f *forest, justs map[string]*model.Justification) {
	var visit func(id string)
	visit = func(id string) {
		kids := f.children[id]
		for _, kid := range kids {
			visit(kid)
		}

		j := justs[id]
		if j == nil || len(kids) == 0 {
			return
		}

		tagCount := make(map[string]int)
		conceptCount := make(map[string]int)
		confSum := 0.0
		contributors := 0
		for _, kid := range kids {
			kj := justs[kid]
			if kj == nil {
				continue
			}
			contributors++
			// Generic placeholder tags carry no signal upward.
			if t := effectiveTag(kj); !p.cfg.Ontology.IsGenericTag(t) {
				tagCount[t]++
			}
			for _, c := range effectiveConcepts(kj) {
				conceptCount[c]++
			}
			confSum += effectiveConfidence(kj)
		}
		if contributors == 0 {
			return
		}

		j.PropagatedFeatureTag = dominantTag(tagCount, effectiveTag(j))
		j.PropagatedDomainConcepts = topConcepts(conceptCount, p.cfg.MaxConcepts)
		j.PropagatedConfidence = confSum / float64(contributors)
	}

	for _, root := range f.roots {
		visit(root)
	}
}

// dominantTag picks the most frequent tag. Exact ties prefer the node's
// already-set tag, then the lexicographically smallest, so repeated passes
// are stable.
func dominantTag(counts map[string]int, ownTag string) string {
	best, bestCount := "", 0
	for tag, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount = tag, n
		case n == bestCount:
			if tag == ownTag || (best != ownTag && tag < best) {
				best = tag
			}
		}
	}
	if best == "" {
		return ownTag
	}
	return best
}

// topConcepts orders concepts by frequency (ties lexicographic) and caps the
// list at max.
func topConcepts(counts map[string]int, max int) []string {
	concepts := make([]string, 0, len(counts))
	for c := range counts {
		concepts = append(concepts, c)
	}
	sort.Slice(concepts, func(i, j int) bool {
		if counts[concepts[i]] != counts[concepts[j]] {
			return counts[concepts[i]] > counts[concepts[j]]
		}
		return concepts[i] < concepts[j]
	})
	if len(concepts) > max {
		concepts = concepts[:max]
	}
	return concepts
}

// enrichDown runs the top-down pass: parents overwrite generic child tags
// and union their propagated concepts into children.
func (p *Propagator) enrichDown(f *forest, justs map[string]*model.Justification) {
	var visit func(id string)
	visit = func(id string) {
		pj := justs[id]
		for _, kid := range f.children[id] {
			kj := justs[kid]
			if kj != nil && pj != nil {
				parentTag := effectiveTag(pj)
				if p.cfg.Ontology.IsGenericTag(kj.FeatureTag) && parentTag != "" {
					kj.PropagatedFeatureTag = parentTag
				} else if kj.PropagatedFeatureTag == "" {
					kj.PropagatedFeatureTag = kj.FeatureTag
				}
				kj.PropagatedDomainConcepts = unionCapped(
					kj.PropagatedDomainConcepts, kj.DomainConcepts,
					pj.PropagatedDomainConcepts, p.cfg.MaxConcepts)
			}
			visit(kid)
		}
	}
	for _, root := range f.roots {
		visit(root)
	}
}

// unionCapped unions the child's propagated and own concepts with the
// parent's propagated concepts, preserving first-seen order, capped at max.
func unionCapped(childProp, childOwn, parentProp []string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{childProp, childOwn, parentProp} {
		for _, c := range list {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}
