package graphstore

import (
	"context"
	"fmt"
	"time"
)

// TryAcquireLease takes the lease for key if it is free or expired.
// It reports whether the caller now owns the lease.
// Expiry is stored as unix nanoseconds so the comparison is numeric; a
// formatted timestamp column would compare lexicographically and misorder
// whole-second instants against fractional ones.
func (db *DB) TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl).UnixNano()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO leases (key, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE leases.owner = excluded.owner OR leases.expires_at < ?`,
		key, owner, expires, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return n > 0, nil
}

// ReleaseLease frees the lease if the caller still owns it.
func (db *DB) ReleaseLease(ctx context.Context, key, owner string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM leases WHERE key = ? AND owner = ?`, key, owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
