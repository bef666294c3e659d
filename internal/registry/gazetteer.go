package registry

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/pkg/notion"
)

// LoadCountryRegistry queries the Notion gazetteer database and returns
// canonical country name -> aliases, in the shape the parser's gazetteer
// constructor takes.
func LoadCountryRegistry(ctx context.Context, client notion.Client, dbID string) (map[string][]string, error) {
	pages, err := notion.QueryAll(ctx, client, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: load country registry")
	}

	entries := make(map[string][]string, len(pages))
	for _, p := range pages {
		name, aliases, err := parseCountryPage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed country page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		entries[name] = aliases
	}
	if len(entries) == 0 {
		return nil, eris.Errorf("registry: gazetteer database %s is empty", dbID)
	}
	return entries, nil
}

func parseCountryPage(p notionapi.Page) (string, []string, error) {
	var name string
	var aliases []string

	// Country (title)
	if prop, ok := p.Properties["Country"]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			name = strings.TrimSpace(plainText(tp.Title))
		}
	}

	// Aliases (multi_select of adjectival forms and abbreviations)
	if prop, ok := p.Properties["Aliases"]; ok {
		if msp, ok := prop.(*notionapi.MultiSelectProperty); ok {
			for _, opt := range msp.MultiSelect {
				if a := strings.TrimSpace(opt.Name); a != "" {
					aliases = append(aliases, a)
				}
			}
		}
	}

	if name == "" {
		return "", nil, eris.New("missing Country property")
	}
	return name, aliases, nil
}
