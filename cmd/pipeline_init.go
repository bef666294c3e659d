package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/normalize"
	"github.com/labelguard/compliance-cli/internal/ocr"
	"github.com/labelguard/compliance-cli/internal/parser"
	"github.com/labelguard/compliance-cli/internal/pipeline"
	"github.com/labelguard/compliance-cli/internal/registry"
	"github.com/labelguard/compliance-cli/internal/resolve"
	"github.com/labelguard/compliance-cli/internal/rules"
	"github.com/labelguard/compliance-cli/internal/store"
	"github.com/labelguard/compliance-cli/internal/vision"
	anthropicpkg "github.com/labelguard/compliance-cli/pkg/anthropic"
	"github.com/labelguard/compliance-cli/pkg/marketplace"
	"github.com/labelguard/compliance-cli/pkg/notion"
)

// pipelineEnv holds the initialized store, detectors, and the pipeline
// needed by the check/batch/serve commands.
type pipelineEnv struct {
	Store       store.Store
	Pipeline    *pipeline.Pipeline
	Marketplace *marketplace.Client
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.New(ctx, cfg.Store)
}

// warmupLocalizer runs one throwaway inference on backends that support it so
// the first listing does not pay the model-load cost. A failed warmup is only
// logged; the first real Locate will surface the problem.
func warmupLocalizer(ctx context.Context, l vision.Localizer) {
	w, ok := l.(interface{ Warmup(context.Context) error })
	if !ok {
		return
	}
	if err := w.Warmup(ctx); err != nil {
		zap.L().Warn("vision: warmup failed", zap.Error(err))
		return
	}
	zap.L().Info("vision: model warmed up")
}

// initPipeline sets up the store, the detectors, the rule set and gazetteer,
// and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	localizer, err := vision.NewLocalizer(cfg.Vision)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init localizer")
	}
	if cfg.Vision.WarmupOnStart {
		warmupLocalizer(ctx, localizer)
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init extractor")
	}

	ruleSet, err := loadRules(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine, err := rules.NewEngine(ruleSet, cfg.Rules.AbsentMaxConf)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "compile rules")
	}

	countries, err := loadGazetteer(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := loadUnitOverrides(); err != nil {
		_ = st.Close()
		return nil, err
	}
	fieldParser := parser.New(parser.NewGazetteer(countries))

	var assist *parser.Assist
	if cfg.Assist.Enabled {
		assist = parser.NewAssist(cfg.Assist, anthropicpkg.NewClient(cfg.Assist.Key), fieldParser)
		zap.L().Info("assist parser enabled", zap.String("model", cfg.Assist.Model))
	}

	zap.L().Info("pipeline initialized",
		zap.Int("rules", len(ruleSet)),
		zap.String("rules_source", cfg.Rules.Source),
	)

	return &pipelineEnv{
		Store: st,
		Pipeline: pipeline.New(cfg, st, localizer, extractor, fieldParser, assist,
			resolve.New(cfg.Resolver), engine),
		Marketplace: marketplace.New(cfg.Marketplace),
	}, nil
}

// loadRules prefers the Notion registry when configured, otherwise falls
// back to the configured file or embedded default set.
func loadRules(ctx context.Context) ([]model.Rule, error) {
	if cfg.Rules.Source == "notion" {
		if cfg.Notion.Token == "" || cfg.Notion.RuleDB == "" {
			return nil, eris.New("rules source is notion but LABELGUARD_NOTION_TOKEN or rule_db is not set")
		}
		client := notion.NewClient(cfg.Notion.Token)
		ruleSet, err := registry.LoadRuleRegistry(ctx, client, cfg.Notion.RuleDB)
		if err != nil {
			return nil, eris.Wrap(err, "load rule registry")
		}
		return ruleSet, nil
	}

	ruleSet, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, eris.Wrap(err, "load rules")
	}
	return ruleSet, nil
}

// loadGazetteer returns country entries from Notion or a YAML file, or nil
// for the built-in set.
func loadGazetteer(ctx context.Context) (map[string][]string, error) {
	if cfg.Notion.Token != "" && cfg.Notion.GazetteerDB != "" {
		client := notion.NewClient(cfg.Notion.Token)
		entries, err := registry.LoadCountryRegistry(ctx, client, cfg.Notion.GazetteerDB)
		if err != nil {
			return nil, eris.Wrap(err, "load country registry")
		}
		return entries, nil
	}

	if cfg.Gazetteer.CountriesPath != "" {
		data, err := os.ReadFile(cfg.Gazetteer.CountriesPath)
		if err != nil {
			return nil, eris.Wrap(err, "read countries file")
		}
		var entries map[string][]string
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, eris.Wrap(err, "parse countries file")
		}
		return entries, nil
	}

	return nil, nil
}

// loadUnitOverrides merges configured unit synonyms into the normalizer
// before the first run.
func loadUnitOverrides() error {
	if cfg.Gazetteer.UnitsPath == "" {
		return nil
	}
	data, err := os.ReadFile(cfg.Gazetteer.UnitsPath)
	if err != nil {
		return eris.Wrap(err, "read units file")
	}
	var synonyms map[string]string
	if err := yaml.Unmarshal(data, &synonyms); err != nil {
		return eris.Wrap(err, "parse units file")
	}
	normalize.RegisterUnits(synonyms)
	return nil
}
