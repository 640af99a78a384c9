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
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Pipedrive PipedriveConfig `yaml:"pipedrive" mapstructure:"pipedrive"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig points at the policy database holding the sale records.
type SourceConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PipedriveConfig holds Pipedrive API credentials and push behavior.
type PipedriveConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	APIToken     string `yaml:"api_token" mapstructure:"api_token"`
	FilterID     int    `yaml:"filter_id" mapstructure:"filter_id"`
	ActivityType string `yaml:"activity_type" mapstructure:"activity_type"`
	PushProducts bool   `yaml:"push_products" mapstructure:"push_products"`
}

// LedgerConfig configures the synced-proposal ledger.
type LedgerConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // file or sqlite
	Path          string `yaml:"path" mapstructure:"path"`
	CommitPerSale bool   `yaml:"commit_per_sale" mapstructure:"commit_per_sale"`
}

// SyncConfig configures reconciliation behavior.
type SyncConfig struct {
	CollisionPolicy string `yaml:"collision_policy" mapstructure:"collision_policy"` // last-wins or first-wins
	MaxPages        int    `yaml:"max_pages" mapstructure:"max_pages"`
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
	v.SetEnvPrefix("DEALSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pipedrive.base_url", "https://api.pipedrive.com/v1")
	v.SetDefault("pipedrive.filter_id", 243)
	v.SetDefault("pipedrive.activity_type", "vf___venda_feita")
	v.SetDefault("pipedrive.push_products", false)
	v.SetDefault("ledger.driver", "file")
	v.SetDefault("ledger.path", "already_synced.txt")
	v.SetDefault("ledger.commit_per_sale", false)
	v.SetDefault("sync.collision_policy", "last-wins")
	v.SetDefault("sync.max_pages", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks that everything a sync run needs is present and sane.
func (c *Config) Validate() error {
	var problems []string

	if c.Source.DatabaseURL == "" {
		problems = append(problems, "source.database_url is required")
	}
	if c.Pipedrive.APIToken == "" {
		problems = append(problems, "pipedrive.api_token is required")
	}
	if c.Pipedrive.FilterID <= 0 {
		problems = append(problems, "pipedrive.filter_id must be > 0")
	}
	switch c.Ledger.Driver {
	case "file", "sqlite":
	default:
		problems = append(problems, "ledger.driver must be file or sqlite")
	}
	if c.Ledger.Path == "" {
		problems = append(problems, "ledger.path is required")
	}
	switch c.Sync.CollisionPolicy {
	case "last-wins", "first-wins":
	default:
		problems = append(problems, "sync.collision_policy must be last-wins or first-wins")
	}
	if c.Sync.MaxPages <= 0 {
		problems = append(problems, "sync.max_pages must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
