//go:build cgo

package rules

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parsers is the process-wide grammar cache for structural rule evaluation.
// It is created once and passed in explicitly, never a hidden singleton, so
// concurrent loads in one process stay testable.
type Parsers struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParsers creates the grammar cache.
func NewParsers() *Parsers {
	return &Parsers{parser: sitter.NewParser()}
}

// HasGrammar reports whether a grammar is available for the language.
// Callers use this to distinguish "ran, found nothing" from "couldn't run".
func (p *Parsers) HasGrammar(lang Language) bool {
	g, _ := grammar(lang)
	return g != nil
}

// Parse parses source and returns the syntax-tree root.
func (p *Parsers) Parse(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	g, err := grammar(lang)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser.SetLanguage(g)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	return tree.RootNode(), nil
}

func grammar(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("no grammar for language %q", lang)
	}
}

// collectNodes walks the tree and returns nodes whose type is in types,
// as (line, source snippet) pairs.
func (p *Parsers) collectNodes(root *sitter.Node, source []byte, types map[string]bool, maxSnippet int) []nodeMatch {
	var out []nodeMatch

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if types[n.Type()] {
			snippet := string(source[n.StartByte():n.EndByte()])
			if len(snippet) > maxSnippet {
				snippet = snippet[:maxSnippet] + "..."
			}
			out = append(out, nodeMatch{line: int(n.StartPoint().Row) + 1, snippet: snippet})
		}
		for i := uint32(0); i < n.ChildCount(); i++ {
			walk(n.Child(int(i)))
		}
	}
	walk(root)
	return out
}

// structuralMatches parses content and collects the rule's node types.
// A parse failure degrades to zero matches; one broken file must not block
// evaluation of the remaining rules.
func (p *Parsers) structuralMatches(ctx context.Context, source []byte, lang Language, types map[string]bool, maxSnippet int) []nodeMatch {
	root, err := p.Parse(ctx, source, lang)
	if err != nil {
		return nil
	}
	return p.collectNodes(root, source, types, maxSnippet)
}
