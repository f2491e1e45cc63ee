// Package identity derives stable entity identifiers and content
// fingerprints. IDs are deterministic over (repo, file path, kind, name,
// signature) so identical code re-indexed elsewhere yields the same ID;
// fingerprints change exactly when an entity's signature or body changes.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"justify/internal/model"
)

// EntityKey contains the components used to generate a stable entity ID.
type EntityKey struct {
	Repo      string
	FilePath  string
	Kind      model.EntityKind
	Name      string
	Signature string
}

// StableID creates the full stable ID for an entity key.
// Format: jfy:<repo>:ent:<hash>
func StableID(key EntityKey) string {
	parts := []string{
		"repo:" + sanitizeRepoName(key.Repo),
		"path:" + key.FilePath,
		"kind:" + string(key.Kind),
		"name:" + key.Name,
	}
	if key.Signature != "" {
		parts = append(parts, "sig:"+Normalize(key.Signature))
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "jfy:" + sanitizeRepoName(key.Repo) + ":ent:" + hex.EncodeToString(sum[:])
}

// Fingerprint hashes an entity's signature and body into the content
// fingerprint stored on its justification. Both inputs are normalized, so
// whitespace-only edits do not change the fingerprint.
func Fingerprint(signature, body string) string {
	canonical := "sig:" + Normalize(signature) + "|body:" + Normalize(body)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// FingerprintEntity is a convenience wrapper over Fingerprint.
func FingerprintEntity(e model.Entity) string {
	return Fingerprint(e.Signature, e.Body)
}

// Normalize strips all whitespace from a signature or body so comparison is
// insensitive to formatting.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

// sanitizeRepoName converts a repo name to a safe, deterministic format.
func sanitizeRepoName(repo string) string {
	s := strings.ReplaceAll(repo, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ToLower(strings.Trim(s, "-"))
	if s == "" {
		return "unknown"
	}
	return s
}
