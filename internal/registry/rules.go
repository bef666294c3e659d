// Package registry loads rule sets and gazetteers from Notion databases, as
// an alternative to the embedded/file-based sources. Registries are read once
// at startup; a malformed page is skipped with a warning rather than failing
// the whole load.
package registry

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/rules"
	"github.com/labelguard/compliance-cli/pkg/notion"
)

// LoadRuleRegistry queries the Notion rule database for all active rules and
// returns them as a validated rule set.
func LoadRuleRegistry(ctx context.Context, client notion.Client, dbID string) ([]model.Rule, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Active",
			},
		},
	}

	pages, err := notion.QueryAll(ctx, client, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "registry: load rule registry")
	}

	var ruleSet []model.Rule
	for _, p := range pages {
		r, err := parseRulePage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed rule page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		ruleSet = append(ruleSet, r)
	}
	if len(ruleSet) == 0 {
		return nil, eris.Errorf("registry: rule database %s has no active rules", dbID)
	}
	if err := rules.Validate(ruleSet); err != nil {
		return nil, eris.Wrap(err, "registry: rule registry")
	}
	return ruleSet, nil
}

func parseRulePage(p notionapi.Page) (model.Rule, error) {
	var r model.Rule

	// RuleID (title)
	if prop, ok := p.Properties["RuleID"]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			r.ID = plainText(tp.Title)
		}
	}

	// Description (rich_text)
	if prop, ok := p.Properties["Description"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			r.Description = plainText(rtp.RichText)
		}
	}

	// AppliesTo (multi_select of category globs)
	if prop, ok := p.Properties["AppliesTo"]; ok {
		if msp, ok := prop.(*notionapi.MultiSelectProperty); ok {
			for _, opt := range msp.MultiSelect {
				r.AppliesTo = append(r.AppliesTo, opt.Name)
			}
		}
	}

	// RequiredFields (multi_select of field types)
	if prop, ok := p.Properties["RequiredFields"]; ok {
		if msp, ok := prop.(*notionapi.MultiSelectProperty); ok {
			for _, opt := range msp.MultiSelect {
				r.RequiredFields = append(r.RequiredFields, model.FieldType(opt.Name))
			}
		}
	}

	// Check (rich_text holding a YAML check spec: name + args)
	if prop, ok := p.Properties["Check"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			raw := strings.TrimSpace(plainText(rtp.RichText))
			if raw != "" {
				var spec model.CheckSpec
				if err := yaml.Unmarshal([]byte(raw), &spec); err != nil {
					return r, eris.Wrap(err, "parse Check property")
				}
				r.Check = &spec
			}
		}
	}

	// Severity (select)
	if prop, ok := p.Properties["Severity"]; ok {
		if sp, ok := prop.(*notionapi.SelectProperty); ok {
			r.Severity = model.Severity(sp.Select.Name)
		}
	}

	// Message (rich_text)
	if prop, ok := p.Properties["Message"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			r.Message = plainText(rtp.RichText)
		}
	}

	if r.ID == "" {
		return r, eris.New("missing RuleID property")
	}
	return r, nil
}

// plainText concatenates the plain_text values from a slice of RichText.
func plainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
