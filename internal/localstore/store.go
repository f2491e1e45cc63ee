// Package localstore is the in-process, read-only graph store a separate
// process loads from a decoded snapshot. It answers entity, call-graph, file,
// and token-search queries without any network access, and never errors on
// unknown keys: the store runs disconnected and a miss is an empty result.
package localstore

import (
	"sort"

	"justify/internal/snapshot"
)

// Store holds the four derived indexes over a loaded snapshot.
type Store struct {
	byID    map[string]snapshot.CompactEntity
	byFile  map[string][]string // file path -> entity IDs, line order
	out     map[string][]snapshot.CompactEdge
	in      map[string][]snapshot.CompactEdge
	tokens  map[string][]string // token -> entity IDs
	org     string
	repo    string
	version uint32
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:   make(map[string]snapshot.CompactEntity),
		byFile: make(map[string][]string),
		out:    make(map[string][]snapshot.CompactEdge),
		in:     make(map[string][]snapshot.CompactEdge),
		tokens: make(map[string][]string),
	}
}

// Load populates the indexes from a decoded envelope, replacing any previous
// content. It is idempotent: loading the same envelope twice leaves the store
// in the same state.
func (s *Store) Load(env *snapshot.Envelope) {
	fresh := New()
	if env != nil {
		fresh.org = env.Org
		fresh.repo = env.Repo
		fresh.version = env.Version

		for _, e := range env.Entities {
			fresh.byID[e.ID] = e
			fresh.byFile[e.FilePath] = append(fresh.byFile[e.FilePath], e.ID)
			for _, tok := range Tokenize(e.Name) {
				fresh.tokens[tok] = append(fresh.tokens[tok], e.ID)
			}
		}
		for path, ids := range fresh.byFile {
			sort.Slice(ids, func(i, j int) bool {
				a, b := fresh.byID[ids[i]], fresh.byID[ids[j]]
				if a.StartLine != b.StartLine {
					return a.StartLine < b.StartLine
				}
				return a.ID < b.ID
			})
			fresh.byFile[path] = ids
		}

		for _, e := range env.Edges {
			fresh.out[e.From] = append(fresh.out[e.From], e)
			fresh.in[e.To] = append(fresh.in[e.To], e)
		}
	}
	*s = *fresh
}

// Get returns the entity for a key, if present.
func (s *Store) Get(key string) (snapshot.CompactEntity, bool) {
	e, ok := s.byID[key]
	return e, ok
}

// Len returns the number of loaded entities.
func (s *Store) Len() int { return len(s.byID) }

// Origin returns the snapshot provenance (org, repo, version).
func (s *Store) Origin() (string, string, uint32) { return s.org, s.repo, s.version }

// CallersOf returns entities with a calls edge into key. Unknown keys yield
// an empty slice.
func (s *Store) CallersOf(key string) []snapshot.CompactEntity {
	return s.neighbors(s.in[key], func(e snapshot.CompactEdge) string { return e.From })
}

// CalleesOf returns entities key has a calls edge to.
func (s *Store) CalleesOf(key string) []snapshot.CompactEntity {
	return s.neighbors(s.out[key], func(e snapshot.CompactEdge) string { return e.To })
}

func (s *Store) neighbors(edges []snapshot.CompactEdge, pick func(snapshot.CompactEdge) string) []snapshot.CompactEntity {
	var out []snapshot.CompactEntity
	seen := make(map[string]bool)
	for _, e := range edges {
		if e.Kind != "calls" {
			continue
		}
		id := pick(e)
		if seen[id] {
			continue
		}
		seen[id] = true
		if ent, ok := s.byID[id]; ok {
			out = append(out, ent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EntitiesByFile returns the entities declared in a file, in line order.
func (s *Store) EntitiesByFile(path string) []snapshot.CompactEntity {
	ids := s.byFile[path]
	out := make([]snapshot.CompactEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Search returns up to limit entities whose name tokens match the query
// tokens. Every query token must hit; results are ordered by ID for
// determinism. Unknown queries yield an empty slice.
func (s *Store) Search(query string, limit int) []snapshot.CompactEntity {
	qtoks := Tokenize(query)
	if len(qtoks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 20
	}

	matches := make(map[string]int)
	for _, tok := range qtoks {
		for _, id := range s.tokens[tok] {
			matches[id]++
		}
	}

	var ids []string
	for id, hits := range matches {
		if hits == len(qtoks) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]snapshot.CompactEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}
