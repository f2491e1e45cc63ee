// Package level computes the dependency-ordered partition of entities into
// batches. Batch 0 holds entities with no outgoing calls edge into the input
// set; each later batch holds entities whose every callee is already placed.
// Entities in one batch are mutually non-dependent and safe to process in
// parallel.
package level

import (
	"sort"

	"justify/internal/model"
)

// Batch is one level of the ordering.
type Batch struct {
	Entities []model.Entity `json:"entities"`
	// Forced marks the batch as the product of cycle breaking: its single
	// entity still had unresolved callees when it was placed.
	Forced bool `json:"forced,omitempty"`
}

// Result is the full leveling output.
type Result struct {
	Batches []Batch `json:"batches"`
	// ForcedIDs lists entities placed by cycle breaking, in placement order.
	ForcedIDs []string `json:"forcedIds,omitempty"`
}

// IDs returns the ordering as ID-only batches, for crossing size-constrained
// transport boundaries. Same ordering as Batches.
func (r *Result) IDs() [][]string {
	out := make([][]string, len(r.Batches))
	for i, b := range r.Batches {
		ids := make([]string, len(b.Entities))
		for j, e := range b.Entities {
			ids[j] = e.ID
		}
		out[i] = ids
	}
	return out
}

// arena indexes the input entities so the Kahn pass works on ints, not IDs.
type arena struct {
	entities []model.Entity
	index    map[string]int
	// out[i] holds callee indexes of entity i, deduplicated, self-loops
	// removed. in[i] is the reverse.
	out [][]int
	in  [][]int
}

func buildArena(entities []model.Entity, edges []model.Edge) *arena {
	sorted := append([]model.Entity(nil), entities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	a := &arena{
		entities: sorted,
		index:    make(map[string]int, len(sorted)),
		out:      make([][]int, len(sorted)),
		in:       make([][]int, len(sorted)),
	}
	for i, e := range sorted {
		a.index[e.ID] = i
	}

	seen := make(map[[2]int]bool)
	for _, e := range edges {
		if e.Kind != model.EdgeCalls {
			continue
		}
		from, ok := a.index[e.From]
		if !ok {
			continue
		}
		to, ok := a.index[e.To]
		if !ok || from == to {
			continue
		}
		key := [2]int{from, to}
		if seen[key] {
			continue
		}
		seen[key] = true
		a.out[from] = append(a.out[from], to)
		a.in[to] = append(a.in[to], from)
	}
	return a
}

// Compute partitions entities into dependency-ordered batches using Kahn's
// algorithm restricted to calls edges within the input set. When a cycle
// blocks progress, the remaining entity with the fewest unresolved outgoing
// edges (ties broken by ascending ID) is forced into its own batch.
// Output is deterministic for identical input. Empty input yields an empty
// result; Compute never fails.
func Compute(entities []model.Entity, edges []model.Edge) *Result {
	res := &Result{}
	if len(entities) == 0 {
		return res
	}

	a := buildArena(entities, edges)
	n := len(a.entities)

	remaining := make([]int, n) // unresolved outgoing calls per entity
	for i := range a.out {
		remaining[i] = len(a.out[i])
	}
	placed := make([]bool, n)
	left := n

	for left > 0 {
		// Entities are sorted by ID, so scanning in index order keeps
		// within-batch order and tie-breaking deterministic.
		var ready []int
		for i := 0; i < n; i++ {
			if !placed[i] && remaining[i] == 0 {
				ready = append(ready, i)
			}
		}

		if len(ready) == 0 {
			// Cycle: force the entity with the fewest unresolved callees.
			best := -1
			for i := 0; i < n; i++ {
				if placed[i] {
					continue
				}
				if best == -1 || remaining[i] < remaining[best] {
					best = i
				}
			}
			batch := Batch{Entities: []model.Entity{a.entities[best]}, Forced: true}
			res.Batches = append(res.Batches, batch)
			res.ForcedIDs = append(res.ForcedIDs, a.entities[best].ID)
			placed[best] = true
			left--
			for _, caller := range a.in[best] {
				if !placed[caller] {
					remaining[caller]--
				}
			}
			continue
		}

		batch := Batch{Entities: make([]model.Entity, 0, len(ready))}
		for _, i := range ready {
			batch.Entities = append(batch.Entities, a.entities[i])
			placed[i] = true
			left--
		}
		for _, i := range ready {
			for _, caller := range a.in[i] {
				if !placed[caller] {
					remaining[caller]--
				}
			}
		}
		res.Batches = append(res.Batches, batch)
	}

	return res
}

// ComputeIDs is Compute reduced to ID-only batches. Both shapes come from the
// same ordering pass.
func ComputeIDs(entities []model.Entity, edges []model.Edge) [][]string {
	return Compute(entities, edges).IDs()
}
