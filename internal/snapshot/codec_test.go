package snapshot

import (
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"justify/internal/model"
)

func testEnvelope(n int) *Envelope {
	env := &Envelope{
		Version:     Version,
		Org:         "acme",
		Repo:        "billing",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < n; i++ {
		id := string(rune('a' + i%26))
		env.Entities = append(env.Entities, CompactEntity{
			ID:        id + "-ent",
			Kind:      "function",
			Name:      "fn" + id,
			FilePath:  "pkg/" + id + ".go",
			StartLine: i + 1,
		})
	}
	if n > 1 {
		env.Edges = []CompactEdge{{From: env.Entities[1].ID, To: env.Entities[0].ID, Kind: "calls"}}
	}
	env.Rules = []model.Rule{{ID: "naming-1", Engine: model.EngineNaming, Query: "^[a-z]", Enabled: true}}
	return env
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec()
	if err != nil {
		t.Fatalf("NewCodec() error: %v", err)
	}

	env := testEnvelope(5)
	encoded, err := codec.Encode(env)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if decoded.Org != env.Org || decoded.Repo != env.Repo {
		t.Errorf("origin = %s/%s, want %s/%s", decoded.Org, decoded.Repo, env.Org, env.Repo)
	}
	if !decoded.GeneratedAt.Equal(env.GeneratedAt) {
		t.Errorf("generatedAt = %v, want %v", decoded.GeneratedAt, env.GeneratedAt)
	}
	if !reflect.DeepEqual(decoded.Entities, env.Entities) {
		t.Errorf("entities differ after round trip")
	}
	if !reflect.DeepEqual(decoded.Edges, env.Edges) {
		t.Errorf("edges differ after round trip")
	}
	if !reflect.DeepEqual(decoded.Rules, env.Rules) {
		t.Errorf("rules differ after round trip")
	}
}

func TestCodecChunkedEquivalence(t *testing.T) {
	codec, err := NewCodec()
	if err != nil {
		t.Fatalf("NewCodec() error: %v", err)
	}
	env := testEnvelope(10)

	for _, chunkSize := range []int{1, 3, 10, 100, 0} {
		var calls []int
		encoded, err := codec.EncodeChunked(env, chunkSize, func(processed, total int) {
			calls = append(calls, processed)
			if total != 10 {
				t.Errorf("chunkSize %d: progress total = %d, want 10", chunkSize, total)
			}
		})
		if err != nil {
			t.Fatalf("EncodeChunked(%d) error: %v", chunkSize, err)
		}
		if len(calls) == 0 || calls[len(calls)-1] != 10 {
			t.Errorf("chunkSize %d: progress calls = %v, want final 10", chunkSize, calls)
		}

		decoded, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(chunkSize=%d) error: %v", chunkSize, err)
		}
		if !reflect.DeepEqual(decoded.Entities, env.Entities) {
			t.Errorf("chunkSize %d: entities differ", chunkSize)
		}
		if !reflect.DeepEqual(decoded.Edges, env.Edges) {
			t.Errorf("chunkSize %d: edges differ", chunkSize)
		}
		if decoded.Org != env.Org {
			t.Errorf("chunkSize %d: meta lost", chunkSize)
		}
	}
}

func TestCodecEmptyEnvelope(t *testing.T) {
	codec, _ := NewCodec()
	env := &Envelope{Version: Version, Org: "acme", Repo: "empty", GeneratedAt: time.Now().UTC()}

	encoded, err := codec.EncodeChunked(env, 100, nil)
	if err != nil {
		t.Fatalf("EncodeChunked() error: %v", err)
	}
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(decoded.Entities) != 0 || decoded.Org != "acme" {
		t.Errorf("empty envelope round trip: %+v", decoded)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	codec, _ := NewCodec()
	encoded, err := codec.Encode(testEnvelope(2))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for _, version := range []uint32{0, 1, Version + 1, 999} {
		bad := append([]byte(nil), encoded...)
		binary.BigEndian.PutUint32(bad[4:8], version)

		_, err := codec.Decode(bad)
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("version %d: error = %v, want ErrUnsupportedVersion", version, err)
		}
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	codec, _ := NewCodec()
	encoded, err := codec.Encode(testEnvelope(3))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", encoded[:4]},
		{"bad magic", append([]byte("XXXX"), encoded[4:]...)},
		{"truncated payload", encoded[:len(encoded)-5]},
		{"truncated length prefix", encoded[:headerLen+2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decode(tt.data); err == nil {
				t.Error("Decode() accepted corrupt input")
			}
		})
	}
}

func TestDigestDetectsFlips(t *testing.T) {
	codec, _ := NewCodec()
	encoded, err := codec.Encode(testEnvelope(3))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	d1 := Digest(encoded)
	if len(d1) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(d1))
	}
	if d2 := Digest(encoded); d2 != d1 {
		t.Errorf("digest not deterministic: %s vs %s", d1, d2)
	}

	flipped := append([]byte(nil), encoded...)
	flipped[len(flipped)/2] ^= 0x01
	if Digest(flipped) == d1 {
		t.Error("digest unchanged after byte flip")
	}
}

func TestCompactProjection(t *testing.T) {
	longSig := "func process(" + strings.Repeat("x int, ", 100) + ") error"
	e := model.Entity{
		ID:        "ent-1",
		Kind:      model.KindFunction,
		Name:      "process",
		FilePath:  "pkg/process.go",
		StartLine: 10,
		EndLine:   42,
		Signature: "func process(ctx context.Context) error",
		Body:      "secret body text",
	}

	j := &model.Justification{
		Taxonomy:                 model.TaxonomyCoreLogic,
		FeatureTag:               "own-tag",
		DomainConcepts:           []string{"own"},
		PropagatedFeatureTag:     "propagated-tag",
		PropagatedDomainConcepts: []string{"merged"},
		Confidence:               0.8,
	}

	ce := Compact(e, j, 0)
	if ce.Signature != e.Signature {
		t.Errorf("short signature dropped: %q", ce.Signature)
	}
	if ce.FeatureTag != "propagated-tag" {
		t.Errorf("feature tag = %q, want propagated", ce.FeatureTag)
	}
	if !reflect.DeepEqual(ce.DomainConcepts, []string{"merged"}) {
		t.Errorf("concepts = %v, want propagated", ce.DomainConcepts)
	}

	e.Signature = longSig
	if got := Compact(e, j, 0).Signature; got != "" {
		t.Errorf("oversized signature kept: %d chars", len(got))
	}

	// No justification: identity fields only.
	bare := Compact(e, nil, 0)
	if bare.Taxonomy != "" || bare.FeatureTag != "" {
		t.Errorf("bare compact carries justification fields: %+v", bare)
	}
}

func TestCompactEdgesFiltersUnknownEndpoints(t *testing.T) {
	edges := []model.Edge{
		{From: "a", To: "b", Kind: model.EdgeCalls},
		{From: "a", To: "missing", Kind: model.EdgeCalls},
		{From: "missing", To: "b", Kind: model.EdgeCalls},
	}
	got := CompactEdges(edges, map[string]bool{"a": true, "b": true})
	want := []CompactEdge{{From: "a", To: "b", Kind: "calls"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompactEdges() = %v, want %v", got, want)
	}
}
