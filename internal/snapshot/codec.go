// Package snapshot defines the versioned binary envelope that carries a
// repository's compacted entities, edges, and rules from the central graph
// store to the embedded local store.
//
// Wire layout: a fixed header (magic "JSNP", big-endian uint32 version)
// followed by one or more length-prefixed zstd-compressed JSON chunks.
// Entities may be split across chunks; provenance rides in the first chunk
// and edges/rules/patterns only in the final one, so a bounded-memory
// producer never materializes more than one chunk at a time.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"justify/internal/model"
)

const (
	// Version is the current envelope version. It increases whenever the
	// schema gains optional top-level sections.
	Version uint32 = 3
	// MinVersion is the oldest envelope version this decoder understands
	// (v2 predates the rules/patterns sections).
	MinVersion uint32 = 2

	headerLen = 8
)

var magic = [4]byte{'J', 'S', 'N', 'P'}

// ErrUnsupportedVersion is returned when a snapshot's version is outside
// [MinVersion, Version]. Decoding never guesses at unknown formats.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Envelope is the decoded snapshot content.
type Envelope struct {
	Version     uint32          `json:"version"`
	Org         string          `json:"org,omitempty"`
	Repo        string          `json:"repo,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Entities    []CompactEntity `json:"entities"`
	Edges       []CompactEdge   `json:"edges"`
	Rules       []model.Rule    `json:"rules,omitempty"`
	Patterns    []model.Pattern `json:"patterns,omitempty"`
}

// chunk is the JSON payload of one encoded chunk.
type chunk struct {
	Meta     *chunkMeta      `json:"m,omitempty"`
	Entities []CompactEntity `json:"e,omitempty"`
	Edges    []CompactEdge   `json:"g,omitempty"`
	Rules    []model.Rule    `json:"r,omitempty"`
	Patterns []model.Pattern `json:"p,omitempty"`
}

type chunkMeta struct {
	Org         string    `json:"o,omitempty"`
	Repo        string    `json:"r,omitempty"`
	GeneratedAt time.Time `json:"t"`
}

// Progress reports chunked encoding progress after each chunk.
type Progress func(processed, total int)

// Codec encodes and decodes snapshot envelopes.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec. The underlying zstd coders are reused across
// calls and safe for sequential use.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode serializes the envelope as a single chunk.
func (c *Codec) Encode(env *Envelope) ([]byte, error) {
	return c.EncodeChunked(env, 0, nil)
}

// EncodeChunked serializes the envelope in entity batches of chunkSize
// (0 means everything in one chunk), bounding peak memory to one chunk.
// Edges, rules, and patterns travel only in the final chunk. The progress
// callback, when set, fires after each chunk with (processed, total)
// entity counts.
func (c *Codec) EncodeChunked(env *Envelope, chunkSize int, progress Progress) ([]byte, error) {
	total := len(env.Entities)
	if chunkSize <= 0 || chunkSize > total {
		chunkSize = total
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	var verBytes [4]byte
	binary.BigEndian.PutUint32(verBytes[:], Version)
	buf.Write(verBytes[:])

	write := func(ch chunk) error {
		payload, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("marshal chunk: %w", err)
		}
		compressed := c.enc.EncodeAll(payload, nil)
		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(compressed)))
		buf.Write(lenBytes[:])
		buf.Write(compressed)
		return nil
	}

	meta := &chunkMeta{Org: env.Org, Repo: env.Repo, GeneratedAt: env.GeneratedAt}
	processed := 0
	for first := true; first || processed < total; first = false {
		end := processed + chunkSize
		if end > total || chunkSize == 0 {
			end = total
		}

		ch := chunk{Entities: env.Entities[processed:end]}
		if first {
			ch.Meta = meta
		}
		if end == total {
			ch.Edges = env.Edges
			ch.Rules = env.Rules
			ch.Patterns = env.Patterns
		}
		if err := write(ch); err != nil {
			return nil, err
		}

		processed = end
		if progress != nil {
			progress(processed, total)
		}
	}

	return buf.Bytes(), nil
}

// Decode parses an encoded snapshot. It fails loudly on an unknown version
// or a truncated stream; silently accepting an incompatible format risks
// corrupting the local store.
func (c *Codec) Decode(data []byte) (*Envelope, error) {
	if len(data) < headerLen {
		return nil, errors.New("snapshot too short for header")
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, errors.New("snapshot magic mismatch")
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version < MinVersion || version > Version {
		return nil, fmt.Errorf("%w: got %d, supported %d-%d",
			ErrUnsupportedVersion, version, MinVersion, Version)
	}

	env := &Envelope{Version: version}
	rest := data[headerLen:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, errors.New("truncated chunk length")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return nil, errors.New("truncated chunk payload")
		}

		payload, err := c.dec.DecodeAll(rest[:n], nil)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w", err)
		}
		rest = rest[n:]

		var ch chunk
		if err := json.Unmarshal(payload, &ch); err != nil {
			return nil, fmt.Errorf("unmarshal chunk: %w", err)
		}

		if ch.Meta != nil {
			env.Org = ch.Meta.Org
			env.Repo = ch.Meta.Repo
			env.GeneratedAt = ch.Meta.GeneratedAt
		}
		env.Entities = append(env.Entities, ch.Entities...)
		if len(ch.Edges) > 0 {
			env.Edges = ch.Edges
		}
		if len(ch.Rules) > 0 {
			env.Rules = ch.Rules
		}
		if len(ch.Patterns) > 0 {
			env.Patterns = ch.Patterns
		}
	}
	return env, nil
}

// Digest returns the sha256 hex digest of an encoded snapshot, for transport
// integrity verification before loading.
func Digest(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
