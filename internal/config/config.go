package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Broadband BroadbandConfig `yaml:"broadband" mapstructure:"broadband"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// BroadbandConfig configures the National Broadband Map download.
type BroadbandConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	DataDir     string  `yaml:"data_dir" mapstructure:"data_dir"`
	DataVersion string  `yaml:"data_version" mapstructure:"data_version"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LedgerDSN returns the database location for the configured driver.
// SQLite falls back to runs.db inside the data directory.
func (c *Config) LedgerDSN() string {
	if c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	if c.Store.Driver == "sqlite" {
		return filepath.Join(c.Broadband.DataDir, "runs.db")
	}
	return ""
}

// ServerConfig configures the read-only cache server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("BROADBAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("broadband.base_url", "https://www.broadbandmap.gov/broadbandmap/")
	v.SetDefault("broadband.data_dir", "data")
	v.SetDefault("broadband.data_version", "jun2014")
	v.SetDefault("broadband.user_agent", "broadband-cli/1.0")
	v.SetDefault("broadband.timeout_secs", 30)
	v.SetDefault("broadband.max_retries", 3)
	v.SetDefault("broadband.rate_limit", 5.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the settings required by the given mode are present.
// Modes: "download", "summary", "status", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "download":
		if c.Broadband.BaseURL == "" {
			errs = append(errs, "broadband.base_url is required")
		}
		if c.Broadband.MaxRetries < 1 {
			errs = append(errs, "broadband.max_retries must be >= 1")
		}
		if c.Broadband.RateLimit <= 0 {
			errs = append(errs, "broadband.rate_limit must be > 0")
		}
		errs = append(errs, c.validateData()...)
		errs = append(errs, c.validateStore()...)
	case "summary":
		errs = append(errs, c.validateData()...)
		errs = append(errs, c.validateStore()...)
	case "status":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateData()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateData() []string {
	var errs []string
	if c.Broadband.DataDir == "" {
		errs = append(errs, "broadband.data_dir is required")
	}
	if c.Broadband.DataVersion == "" {
		errs = append(errs, "broadband.data_version is required")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "none":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
		return nil
	default:
		return []string{"store.driver must be one of sqlite, postgres, none"}
	}
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
