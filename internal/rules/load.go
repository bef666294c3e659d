package rules

import (
	"bytes"
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

//go:embed defaults.yaml
var defaultRulesYAML []byte

// ruleFile is the on-disk rule document shape.
type ruleFile struct {
	Rules []model.Rule `yaml:"rules"`
}

// Load resolves the configured rule source into a validated rule set.
// Source "default" (or empty) uses the embedded Legal-Metrology set;
// "file" reads rules.path.
func Load(cfg config.RulesConfig) ([]model.Rule, error) {
	switch cfg.Source {
	case "", "default":
		return Parse(defaultRulesYAML)
	case "file":
		if cfg.Path == "" {
			return nil, eris.New("rules.source is \"file\" but rules.path is empty")
		}
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "read rule file %s", cfg.Path)
		}
		return Parse(data)
	default:
		return nil, eris.Errorf("unknown rules source %q", cfg.Source)
	}
}

// Parse decodes and validates a YAML rule document. Unknown YAML keys are
// rejected so a typoed rule fails loudly instead of silently not applying.
func Parse(data []byte) ([]model.Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc ruleFile
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "decode rule document")
	}
	if len(doc.Rules) == 0 {
		return nil, eris.New("rule document contains no rules")
	}
	if err := Validate(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// Validate checks structural soundness of a rule set: unique ids, known
// severities and field types, compilable checks.
func Validate(ruleSet []model.Rule) error {
	knownFields := make(map[model.FieldType]bool)
	for _, ft := range model.FieldTypes() {
		knownFields[ft] = true
	}

	seen := make(map[string]bool, len(ruleSet))
	for _, r := range ruleSet {
		if r.ID == "" {
			return eris.New("rule with empty id")
		}
		if seen[r.ID] {
			return eris.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		switch r.Severity {
		case model.SeverityBlocking, model.SeverityWarning, model.SeverityInfo:
		default:
			return eris.Errorf("rule %q: unknown severity %q", r.ID, r.Severity)
		}
		if r.Message == "" {
			return eris.Errorf("rule %q: empty message template", r.ID)
		}
		for _, ft := range r.RequiredFields {
			if !knownFields[ft] {
				return eris.Errorf("rule %q: unknown field type %q", r.ID, ft)
			}
		}
		if _, err := compileCheck(r.Check); err != nil {
			return eris.Wrapf(err, "rule %q", r.ID)
		}
	}
	return nil
}
