package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Site     SiteConfig     `yaml:"site" mapstructure:"site"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Safety   SafetyConfig   `yaml:"safety" mapstructure:"safety"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScrapeConfig configures run pacing and volume limits.
type ScrapeConfig struct {
	MinDelaySecs  int  `yaml:"min_delay_secs" mapstructure:"min_delay_secs"`
	MaxDelaySecs  int  `yaml:"max_delay_secs" mapstructure:"max_delay_secs"`
	MaxRequests   int  `yaml:"max_requests" mapstructure:"max_requests"`
	SkipRatingsAt int  `yaml:"skip_ratings_at" mapstructure:"skip_ratings_at"`
	SkipSearchAt  int  `yaml:"skip_search_at" mapstructure:"skip_search_at"`
	SkipDirectAt  int  `yaml:"skip_direct_at" mapstructure:"skip_direct_at"`
	SafeMode      bool `yaml:"safe_mode" mapstructure:"safe_mode"`
	TimeoutSecs   int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SiteConfig configures the listing-site client.
type SiteConfig struct {
	Mirror            string  `yaml:"mirror" mapstructure:"mirror"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	SlugsPath         string  `yaml:"slugs_path" mapstructure:"slugs_path"`
}

// SearchConfig configures the web-search fallback.
type SearchConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	BroadThreshold int    `yaml:"broad_threshold" mapstructure:"broad_threshold"`
}

// SafetyConfig configures the content safety filter.
type SafetyConfig struct {
	Strict        bool   `yaml:"strict" mapstructure:"strict"`
	BlocklistPath string `yaml:"blocklist_path" mapstructure:"blocklist_path"`
}

// TelegramConfig holds native API session settings. All optional; the engine
// works without a Telegram session.
type TelegramConfig struct {
	APIID   int    `yaml:"api_id" mapstructure:"api_id"`
	APIHash string `yaml:"api_hash" mapstructure:"api_hash"`
	Phone   string `yaml:"phone" mapstructure:"phone"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "telegram_leads.db")
	v.SetDefault("scrape.min_delay_secs", 2)
	v.SetDefault("scrape.max_delay_secs", 5)
	v.SetDefault("scrape.max_requests", 0)
	v.SetDefault("scrape.skip_ratings_at", 5)
	v.SetDefault("scrape.skip_search_at", 5)
	v.SetDefault("scrape.skip_direct_at", 3)
	v.SetDefault("scrape.safe_mode", true)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("site.mirror", "")
	v.SetDefault("site.requests_per_second", 0.5)
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.broad_threshold", 5)
	v.SetDefault("safety.strict", false)
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

// LoadSlugOverrides reads a keyword-to-slug override table from a YAML file.
// An empty path returns nil, which selects the built-in table.
func LoadSlugOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read slug table %s", path)
	}
	var slugs map[string]string
	if err := yaml.Unmarshal(data, &slugs); err != nil {
		return nil, eris.Wrapf(err, "config: parse slug table %s", path)
	}
	return slugs, nil
}

// LoadBlocklistTerms reads extra safety-filter terms from a YAML file, one
// flat list. An empty path returns nil.
func LoadBlocklistTerms(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read blocklist %s", path)
	}
	var terms []string
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, eris.Wrapf(err, "config: parse blocklist %s", path)
	}
	return terms, nil
}

// Validate checks the configuration for the requested run mode. Modes gate
// different requirements: a scrape needs a working store and sane pacing, a
// server additionally needs a port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for postgres")
	}

	switch mode {
	case "scrape":
		if c.Scrape.MinDelaySecs < 0 || c.Scrape.MaxDelaySecs < c.Scrape.MinDelaySecs {
			problems = append(problems, "scrape delays must satisfy 0 <= min <= max")
		}
		if c.Scrape.MaxRequests < 0 {
			problems = append(problems, "scrape.max_requests must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "leads", "export":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
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
