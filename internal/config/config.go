package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Vision      VisionConfig      `yaml:"vision" mapstructure:"vision"`
	OCR         OCRConfig         `yaml:"ocr" mapstructure:"ocr"`
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Gazetteer   GazetteerConfig   `yaml:"gazetteer" mapstructure:"gazetteer"`
	Resolver    ResolverConfig    `yaml:"resolver" mapstructure:"resolver"`
	Assist      AssistConfig      `yaml:"assist" mapstructure:"assist"`
	Marketplace MarketplaceConfig `yaml:"marketplace" mapstructure:"marketplace"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// VisionConfig configures the region localizer backend.
type VisionConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"`
	ModelPath     string  `yaml:"model_path" mapstructure:"model_path"`
	LibraryPath   string  `yaml:"library_path" mapstructure:"library_path"`
	ScoreFloor    float64 `yaml:"score_floor" mapstructure:"score_floor"`
	InputSize     int     `yaml:"input_size" mapstructure:"input_size"`
	MaxRegions    int     `yaml:"max_regions" mapstructure:"max_regions"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WarmupOnStart bool    `yaml:"warmup_on_start" mapstructure:"warmup_on_start"`
}

// OCRConfig configures the text extractor backend.
type OCRConfig struct {
	Provider    string   `yaml:"provider" mapstructure:"provider"`
	Languages   []string `yaml:"languages" mapstructure:"languages"`
	DPI         int      `yaml:"dpi" mapstructure:"dpi"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RulesConfig configures the declarative rule set source.
type RulesConfig struct {
	Source        string  `yaml:"source" mapstructure:"source"`
	Path          string  `yaml:"path" mapstructure:"path"`
	AbsentMaxConf float64 `yaml:"absent_max_confidence" mapstructure:"absent_max_confidence"`
}

// GazetteerConfig configures static lookup data overrides.
type GazetteerConfig struct {
	CountriesPath string `yaml:"countries_path" mapstructure:"countries_path"`
	UnitsPath     string `yaml:"units_path" mapstructure:"units_path"`
}

// ResolverConfig configures candidate resolution. The threshold below which
// a resolved field counts as absent lives with the rule engine, in
// RulesConfig.AbsentMaxConf.
type ResolverConfig struct {
	MajorityShare   float64 `yaml:"majority_share" mapstructure:"majority_share"`
	AmbiguityFactor float64 `yaml:"ambiguity_factor" mapstructure:"ambiguity_factor"`
}

// AssistConfig configures the optional model-assisted text parser.
type AssistConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseConf  float64 `yaml:"base_confidence" mapstructure:"base_confidence"`
}

// MarketplaceConfig configures the listing fetch adapter.
type MarketplaceConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxImages    int     `yaml:"max_images" mapstructure:"max_images"`
	ImageTimeout int     `yaml:"image_timeout_secs" mapstructure:"image_timeout_secs"`
}

// NotionConfig holds Notion API credentials and database IDs for the rule and
// gazetteer registries.
type NotionConfig struct {
	Token       string `yaml:"token" mapstructure:"token"`
	RuleDB      string `yaml:"rule_db" mapstructure:"rule_db"`
	GazetteerDB string `yaml:"gazetteer_db" mapstructure:"gazetteer_db"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentListings int `yaml:"max_concurrent_listings" mapstructure:"max_concurrent_listings"`
}

// ServerConfig configures the dashboard-facing HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LABELGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "labelguard.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_listings", 5)
	v.SetDefault("vision.provider", "none")
	v.SetDefault("vision.score_floor", 0.25)
	v.SetDefault("vision.input_size", 640)
	v.SetDefault("vision.max_regions", 16)
	v.SetDefault("vision.timeout_secs", 30)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.dpi", 0)
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("rules.source", "default")
	v.SetDefault("rules.absent_max_confidence", 0.3)
	v.SetDefault("resolver.majority_share", 0.6)
	v.SetDefault("resolver.ambiguity_factor", 0.5)
	v.SetDefault("assist.enabled", false)
	v.SetDefault("assist.model", "claude-haiku-4-5-20251001")
	v.SetDefault("assist.max_tokens", 1024)
	v.SetDefault("assist.base_confidence", 0.45)
	v.SetDefault("marketplace.user_agent", "Mozilla/5.0 (compatible; labelguard/1.0)")
	v.SetDefault("marketplace.timeout_secs", 30)
	v.SetDefault("marketplace.max_retries", 2)
	v.SetDefault("marketplace.rate_per_sec", 0.5)
	v.SetDefault("marketplace.max_images", 8)
	v.SetDefault("marketplace.image_timeout_secs", 15)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
