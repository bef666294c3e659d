package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

func TestLoad_DefaultRuleSet(t *testing.T) {
	ruleSet, err := Load(config.RulesConfig{Source: "default"})
	require.NoError(t, err)
	require.NotEmpty(t, ruleSet)

	ids := make(map[string]model.Rule, len(ruleSet))
	for _, r := range ruleSet {
		ids[r.ID] = r
	}
	for _, id := range []string{
		"lm-001-mrp-declared",
		"lm-002-net-quantity-declared",
		"lm-004-country-of-origin-declared",
		"lm-005-manufacturer-declared",
	} {
		r, ok := ids[id]
		require.True(t, ok, id)
		assert.Equal(t, model.SeverityBlocking, r.Severity, id)
	}

	_, err = NewEngine(ruleSet, 0.3)
	assert.NoError(t, err, "default rule set must compile")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - id: custom-1
    required_fields: [price]
    severity: BLOCKING
    message: "missing {field}"
`), 0o644))

	ruleSet, err := Load(config.RulesConfig{Source: "file", Path: path})
	require.NoError(t, err)
	require.Len(t, ruleSet, 1)
	assert.Equal(t, "custom-1", ruleSet[0].ID)
}

func TestLoad_FileSourceRequiresPath(t *testing.T) {
	_, err := Load(config.RulesConfig{Source: "file"})
	assert.Error(t, err)
}

func TestLoad_UnknownSource(t *testing.T) {
	_, err := Load(config.RulesConfig{Source: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - id: r1
    severity: BLOCKING
    message: m
    sevrity_typo: BLOCKING
`))
	assert.Error(t, err)
}

func TestParse_RejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("rules: []\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := model.Rule{ID: "r1", Severity: model.SeverityInfo, Message: "m"}

	t.Run("duplicate id", func(t *testing.T) {
		err := Validate([]model.Rule{base, base})
		assert.ErrorContains(t, err, "duplicate")
	})
	t.Run("unknown severity", func(t *testing.T) {
		r := base
		r.Severity = "FATAL"
		assert.ErrorContains(t, Validate([]model.Rule{r}), "severity")
	})
	t.Run("unknown field type", func(t *testing.T) {
		r := base
		r.RequiredFields = []model.FieldType{"shoe_size"}
		assert.ErrorContains(t, Validate([]model.Rule{r}), "shoe_size")
	})
	t.Run("bad regex", func(t *testing.T) {
		r := base
		r.Check = &model.CheckSpec{Name: "regex", Args: map[string]any{"field": "manufacturer", "pattern": "("}}
		assert.Error(t, Validate([]model.Rule{r}))
	})
	t.Run("empty message", func(t *testing.T) {
		r := base
		r.Message = ""
		assert.ErrorContains(t, Validate([]model.Rule{r}), "message")
	})
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate([]model.Rule{base}))
	})
}
