package localstore

import (
	"strings"
	"unicode"
)

// Tokenize splits an entity name into lowercase search tokens: first on
// non-alphanumerics, then on case boundaries, deduplicated.
// "processPaymentRefund" -> ["process", "payment", "refund"].
func Tokenize(name string) []string {
	var out []string
	seen := make(map[string]bool)

	emit := func(tok string) {
		tok = strings.ToLower(tok)
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, part := range splitCase(word) {
			emit(part)
		}
	}
	return out
}

// splitCase splits camelCase and PascalCase words, keeping acronym runs
// together: "HTTPServer" -> ["HTTP", "Server"].
func splitCase(word string) []string {
	var parts []string
	runes := []rune(word)
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		if unicode.IsUpper(cur) && unicode.IsLower(prev) {
			boundary = true
		}
		if i+1 < len(runes) && unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if unicode.IsDigit(cur) != unicode.IsDigit(prev) {
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
