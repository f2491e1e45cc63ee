//go:build !cgo

package rules

import "context"

// Parsers is the grammar cache stub for cgo-less builds: no grammars are
// available and structural rules degrade to zero violations.
type Parsers struct{}

// NewParsers creates the stub cache.
func NewParsers() *Parsers { return &Parsers{} }

// HasGrammar always reports false without cgo.
func (p *Parsers) HasGrammar(lang Language) bool { return false }

func (p *Parsers) structuralMatches(ctx context.Context, source []byte, lang Language, types map[string]bool, maxSnippet int) []nodeMatch {
	return nil
}
