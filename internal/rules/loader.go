package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"justify/internal/model"
)

// nodeMatch is one structural hit: a line and its supporting source text.
type nodeMatch struct {
	line    int
	snippet string
}

// ruleFile is the YAML shape of a rule-set file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID       string            `yaml:"id"`
	Scope    string            `yaml:"scope"`
	Severity string            `yaml:"severity"`
	Engine   string            `yaml:"engine"`
	Query    string            `yaml:"query"`
	Message  string            `yaml:"message"`
	FileGlob string            `yaml:"fileGlob"`
	Enabled  *bool             `yaml:"enabled"`
	Metadata map[string]string `yaml:"metadata"`
}

// LoadFile reads a YAML rule-set file. Rules default to enabled and warning
// severity when unspecified.
func LoadFile(path string) ([]model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML rule-set content.
func Parse(data []byte) ([]model.Rule, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	out := make([]model.Rule, 0, len(rf.Rules))
	for i, spec := range rf.Rules {
		if spec.ID == "" {
			return nil, fmt.Errorf("rule %d: missing id", i)
		}
		r := model.Rule{
			ID:       spec.ID,
			Scope:    spec.Scope,
			Severity: model.Severity(spec.Severity),
			Engine:   model.RuleEngine(spec.Engine),
			Query:    spec.Query,
			Message:  spec.Message,
			FileGlob: spec.FileGlob,
			Enabled:  spec.Enabled == nil || *spec.Enabled,
			Metadata: spec.Metadata,
		}
		if r.Severity == "" {
			r.Severity = model.SeverityWarning
		}
		out = append(out, r)
	}
	return out, nil
}
