// Package rules evaluates naming and structural rules against a file using
// the embedded local store, fully offline. Rules whose engine needs
// network-side evaluation are partitioned out and counted, never silently
// dropped; a malformed rule degrades to zero violations for that rule
// instead of failing the batch.
package rules

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"justify/internal/localstore"
	"justify/internal/model"
)

// maxSnippetLen bounds the supporting source text attached to structural
// violations.
const maxSnippetLen = 200

// Violation is one rule match.
type Violation struct {
	RuleID   string         `json:"ruleId"`
	Severity model.Severity `json:"severity"`
	Message  string         `json:"message"`
	FilePath string         `json:"filePath"`
	Line     int            `json:"line"`
	EntityID string         `json:"entityId,omitempty"`
	Snippet  string         `json:"snippet,omitempty"`
}

// EngineCounts breaks evaluation down per engine.
type EngineCounts struct {
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
}

// Meta reports how the rule set was partitioned. Tests and metrics rely on
// these counts being exact.
type Meta struct {
	EvaluatedRules int                              `json:"evaluatedRules"`
	SkippedRules   int                              `json:"skippedRules"`
	ByEngine       map[model.RuleEngine]EngineCounts `json:"byEngine"`
	// DegradedRules counts structural rules that ran without a grammar for
	// the file's language and therefore reported zero violations.
	DegradedRules int      `json:"degradedRules,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Result is the outcome of evaluating a rule set against one file.
type Result struct {
	Violations []Violation `json:"violations"`
	Meta       Meta        `json:"meta"`
}

// Evaluator evaluates rules against files using a loaded local store.
type Evaluator struct {
	store   *localstore.Store
	parsers *Parsers
}

// NewEvaluator creates an evaluator over the given store and grammar cache.
func NewEvaluator(store *localstore.Store, parsers *Parsers) *Evaluator {
	if parsers == nil {
		parsers = NewParsers()
	}
	return &Evaluator{store: store, parsers: parsers}
}

// Evaluate partitions the rules by engine and evaluates the locally
// supported ones against the file. It never returns an error: malformed
// input degrades to empty results plus an accurate count.
func (ev *Evaluator) Evaluate(ctx context.Context, ruleSet []model.Rule, filePath string, content []byte) *Result {
	res := &Result{Meta: Meta{ByEngine: make(map[model.RuleEngine]EngineCounts)}}

	skip := func(r model.Rule, warning string) {
		res.Meta.SkippedRules++
		c := res.Meta.ByEngine[r.Engine]
		c.Skipped++
		res.Meta.ByEngine[r.Engine] = c
		if warning != "" {
			res.Meta.Warnings = append(res.Meta.Warnings, warning)
		}
	}
	evaluated := func(r model.Rule) {
		res.Meta.EvaluatedRules++
		c := res.Meta.ByEngine[r.Engine]
		c.Evaluated++
		res.Meta.ByEngine[r.Engine] = c
	}

	for _, r := range ruleSet {
		if !r.Enabled {
			skip(r, "")
			continue
		}
		if r.FileGlob != "" {
			if ok, _ := filepath.Match(r.FileGlob, filepath.ToSlash(filePath)); !ok {
				skip(r, "")
				continue
			}
		}

		switch r.Engine {
		case model.EngineNaming:
			re, err := regexp.Compile(r.Query)
			if err != nil {
				skip(r, "rule "+r.ID+": invalid regex: "+err.Error())
				continue
			}
			res.Violations = append(res.Violations, ev.naming(r, re, filePath)...)
			evaluated(r)

		case model.EngineStructural:
			violations, degraded := ev.structural(ctx, r, filePath, content)
			res.Violations = append(res.Violations, violations...)
			evaluated(r)
			if degraded {
				res.Meta.DegradedRules++
			}

		default:
			// Requires network-side pattern matching or model inference.
			skip(r, "")
		}
	}

	return res
}

// naming tests the compiled regex against every entity name declared in the
// file; a match is a violation at that entity's line.
func (ev *Evaluator) naming(r model.Rule, re *regexp.Regexp, filePath string) []Violation {
	var out []Violation
	for _, e := range ev.store.EntitiesByFile(filePath) {
		if !re.MatchString(e.Name) {
			continue
		}
		out = append(out, Violation{
			RuleID:   r.ID,
			Severity: r.Severity,
			Message:  r.Message,
			FilePath: filePath,
			Line:     e.StartLine,
			EntityID: e.ID,
		})
	}
	return out
}

// structural parses the file content and collects nodes whose type appears
// in the rule's comma-separated type list. Unsupported extensions and
// missing grammars degrade to zero violations; the degraded flag lets the
// caller tell that apart from a clean pass.
func (ev *Evaluator) structural(ctx context.Context, r model.Rule, filePath string, content []byte) ([]Violation, bool) {
	lang, ok := LanguageFromExtension(strings.ToLower(filepath.Ext(filePath)))
	if !ok || !ev.parsers.HasGrammar(lang) {
		return nil, true
	}

	types := make(map[string]bool)
	for _, t := range strings.Split(r.Query, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types[t] = true
		}
	}
	if len(types) == 0 {
		return nil, false
	}

	var out []Violation
	for _, m := range ev.parsers.structuralMatches(ctx, content, lang, types, maxSnippetLen) {
		out = append(out, Violation{
			RuleID:   r.ID,
			Severity: r.Severity,
			Message:  r.Message,
			FilePath: filePath,
			Line:     m.line,
			Snippet:  m.snippet,
		})
	}
	return out, false
}
