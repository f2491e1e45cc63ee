package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"justify/internal/model"
)

// CountEntities returns the entity count for a repository.
func (db *DB) CountEntities(ctx context.Context, org, repo string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE org = ? AND repo = ?`, org, repo).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// FetchEntities returns all entities for a repository.
func (db *DB) FetchEntities(ctx context.Context, org, repo string) ([]model.Entity, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, name, file_path, start_line, end_line, signature, body, parent, complexity
		FROM entities WHERE org = ? AND repo = ? ORDER BY id`, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Name, &e.FilePath, &e.StartLine, &e.EndLine,
			&e.Signature, &e.Body, &e.Parent, &e.Complexity); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Kind = model.EntityKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// FetchEdges returns all edges for a repository.
func (db *DB) FetchEdges(ctx context.Context, org, repo string) ([]model.Edge, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT from_id, to_id, kind FROM edges
		WHERE org = ? AND repo = ? ORDER BY from_id, to_id, kind`, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch edges: %w", err)
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var e model.Edge
		var kind string
		if err := rows.Scan(&e.From, &e.To, &kind); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = model.EdgeKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntitiesByFile returns the entities declared in one file.
func (db *DB) EntitiesByFile(ctx context.Context, org, repo, filePath string) ([]model.Entity, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, name, file_path, start_line, end_line, signature, body, parent, complexity
		FROM entities WHERE org = ? AND repo = ? AND file_path = ?
		ORDER BY start_line, id`, org, repo, filePath)
	if err != nil {
		return nil, fmt.Errorf("entities by file: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Name, &e.FilePath, &e.StartLine, &e.EndLine,
			&e.Signature, &e.Body, &e.Parent, &e.Complexity); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Kind = model.EntityKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEntities bulk-writes entities in one transaction.
func (db *DB) UpsertEntities(ctx context.Context, org, repo string, entities []model.Entity) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO entities
			(org, repo, id, kind, name, file_path, start_line, end_line, signature, body, parent, complexity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entities {
			if _, err := stmt.ExecContext(ctx, org, repo, e.ID, string(e.Kind), e.Name,
				e.FilePath, e.StartLine, e.EndLine, e.Signature, e.Body, e.Parent, e.Complexity); err != nil {
				return fmt.Errorf("upsert entity %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// UpsertEdges bulk-writes edges in one transaction.
func (db *DB) UpsertEdges(ctx context.Context, org, repo string, edges []model.Edge) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO edges (org, repo, from_id, to_id, kind)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range edges {
			if _, err := stmt.ExecContext(ctx, org, repo, e.From, e.To, string(e.Kind)); err != nil {
				return fmt.Errorf("upsert edge %s->%s: %w", e.From, e.To, err)
			}
		}
		return nil
	})
}

// DeleteEntities removes entities and their edges, for re-index deletions.
func (db *DB) DeleteEntities(ctx context.Context, org, repo string, ids []string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM entities WHERE org = ? AND repo = ? AND id = ?`, org, repo, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM edges WHERE org = ? AND repo = ? AND (from_id = ? OR to_id = ?)`,
				org, repo, id, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM justifications WHERE org = ? AND repo = ? AND entity_id = ?`, org, repo, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetJustifications returns the stored justification per entity ID.
func (db *DB) GetJustifications(ctx context.Context, org, repo string) (map[string]*model.Justification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT entity_id, payload FROM justifications WHERE org = ? AND repo = ?`, org, repo)
	if err != nil {
		return nil, fmt.Errorf("fetch justifications: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.Justification)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan justification: %w", err)
		}
		var j model.Justification
		if err := json.Unmarshal([]byte(payload), &j); err != nil {
			return nil, fmt.Errorf("decode justification %s: %w", id, err)
		}
		out[id] = &j
	}
	return out, rows.Err()
}

// PutJustifications bulk-writes justification records, overwriting in place.
func (db *DB) PutJustifications(ctx context.Context, org, repo string, justs map[string]*model.Justification) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO justifications (org, repo, entity_id, payload, fingerprint, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC().Format(time.RFC3339)
		for id, j := range justs {
			payload, err := json.Marshal(j)
			if err != nil {
				return fmt.Errorf("encode justification %s: %w", id, err)
			}
			if _, err := stmt.ExecContext(ctx, org, repo, id, string(payload), j.Fingerprint, now); err != nil {
				return fmt.Errorf("put justification %s: %w", id, err)
			}
		}
		return nil
	})
}

// GetOntology returns the stored ontology, or nil when none exists.
func (db *DB) GetOntology(ctx context.Context, org, repo string) (*model.Ontology, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload FROM ontology WHERE org = ? AND repo = ?`, org, repo).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ontology: %w", err)
	}

	var o model.Ontology
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, fmt.Errorf("decode ontology: %w", err)
	}
	return &o, nil
}

// PutOntology stores the ontology.
func (db *DB) PutOntology(ctx context.Context, org, repo string, o *model.Ontology) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode ontology: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO ontology (org, repo, payload, updated_at)
		VALUES (?, ?, ?, ?)`,
		org, repo, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put ontology: %w", err)
	}
	return nil
}

// SaveSnapshot stores an encoded snapshot blob with its digest.
func (db *DB) SaveSnapshot(ctx context.Context, org, repo string, version uint32, digest string, data []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (org, repo, version, digest, data, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		org, repo, version, digest, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads the stored snapshot blob and digest for a repository.
func (db *DB) GetSnapshot(ctx context.Context, org, repo string) ([]byte, string, error) {
	var data []byte
	var digest string
	err := db.conn.QueryRowContext(ctx,
		`SELECT data, digest FROM snapshots WHERE org = ? AND repo = ?`, org, repo).Scan(&data, &digest)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetch snapshot: %w", err)
	}
	return data, digest, nil
}

func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
