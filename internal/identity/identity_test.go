package identity

import (
	"strings"
	"testing"

	"justify/internal/model"
)

func TestStableIDDeterministic(t *testing.T) {
	key := EntityKey{
		Repo:      "acme/billing",
		FilePath:  "pay/refund.go",
		Kind:      model.KindFunction,
		Name:      "processRefund",
		Signature: "func processRefund(id string) error",
	}

	first := StableID(key)
	if !strings.HasPrefix(first, "jfy:acme-billing:ent:") {
		t.Errorf("StableID() = %q, want jfy:acme-billing:ent: prefix", first)
	}
	if got := StableID(key); got != first {
		t.Errorf("StableID() not deterministic: %q vs %q", got, first)
	}
}

func TestStableIDSensitivity(t *testing.T) {
	base := EntityKey{
		Repo:     "acme/billing",
		FilePath: "pay/refund.go",
		Kind:     model.KindFunction,
		Name:     "processRefund",
	}

	tests := []struct {
		name   string
		mutate func(k EntityKey) EntityKey
		same   bool
	}{
		{"different name", func(k EntityKey) EntityKey { k.Name = "other"; return k }, false},
		{"different path", func(k EntityKey) EntityKey { k.FilePath = "other.go"; return k }, false},
		{"different kind", func(k EntityKey) EntityKey { k.Kind = model.KindMethod; return k }, false},
		{"different repo", func(k EntityKey) EntityKey { k.Repo = "acme/other"; return k }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := StableID(base), StableID(tt.mutate(base))
			if (a == b) != tt.same {
				t.Errorf("StableID equality = %v, want %v", a == b, tt.same)
			}
		})
	}

	t.Run("signature whitespace", func(t *testing.T) {
		spaced := base
		spaced.Signature = " func  processRefund( ) "
		tight := base
		tight.Signature = "func processRefund()"
		if StableID(spaced) != StableID(tight) {
			t.Error("whitespace-only signature difference changed the ID")
		}
	})
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("func a() error", "return nil")
	if len(fp) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(fp))
	}

	// Whitespace-only edits keep the fingerprint.
	if got := Fingerprint("func  a()  error", "return\n\tnil"); got != fp {
		t.Errorf("whitespace edit changed fingerprint")
	}

	// Content edits move it.
	if got := Fingerprint("func a() error", "return err"); got == fp {
		t.Errorf("body edit kept fingerprint")
	}
	if got := Fingerprint("func a(x int) error", "return nil"); got == fp {
		t.Errorf("signature edit kept fingerprint")
	}

	// Content must not shift between signature and body.
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Errorf("signature/body boundary not preserved")
	}
}

func TestFingerprintEntity(t *testing.T) {
	e := model.Entity{Signature: "func a() error", Body: "return nil"}
	if FingerprintEntity(e) != Fingerprint(e.Signature, e.Body) {
		t.Error("FingerprintEntity disagrees with Fingerprint")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a b\tc\nd\re", "abcde"},
		{"", ""},
		{"nochange", "nochange"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeRepoName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"acme/billing", "acme-billing"},
		{"ACME\\Billing", "acme-billing"},
		{"host:repo", "host-repo"},
		{"", "unknown"},
		{"---", "unknown"},
	}
	for _, tt := range tests {
		if got := sanitizeRepoName(tt.in); got != tt.want {
			t.Errorf("sanitizeRepoName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
