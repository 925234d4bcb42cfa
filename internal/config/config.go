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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Harvest HarvestConfig `yaml:"harvest" mapstructure:"harvest"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Plans   PlansConfig   `yaml:"plans" mapstructure:"plans"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// HarvestConfig configures the scheduler.
type HarvestConfig struct {
	MaxConcurrent int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Sources       []string `yaml:"sources" mapstructure:"sources"`
}

// FetchConfig configures the HTTP fetch engine.
type FetchConfig struct {
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	RetryAttempts  int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBaseMs    int    `yaml:"retry_base_ms" mapstructure:"retry_base_ms"`
	RetryMaxMs     int    `yaml:"retry_max_ms" mapstructure:"retry_max_ms"`
	WindowSpanSecs int    `yaml:"window_span_secs" mapstructure:"window_span_secs"`
}

// CacheConfig configures the in-memory response cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// PlansConfig configures extraction-plan overrides.
type PlansConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields a given command mode depends on.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be between 1 and 65535")
		}
	case "harvest":
		if c.Harvest.MaxConcurrent < 1 {
			missing = append(missing, "harvest.max_concurrent must be at least 1")
		}
		if c.Fetch.RetryAttempts < 1 {
			missing = append(missing, "fetch.retry_attempts must be at least 1")
		}
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EQUINET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "equinet.db")
	v.SetDefault("harvest.max_concurrent", 4)
	v.SetDefault("fetch.user_agent", "equinet/1.0")
	v.SetDefault("fetch.retry_attempts", 3)
	v.SetDefault("fetch.retry_base_ms", 1000)
	v.SetDefault("fetch.retry_max_ms", 30000)
	v.SetDefault("fetch.window_span_secs", 60)
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

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
