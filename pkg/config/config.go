package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Sources    SourcesConfig    `yaml:"sources"`
	Alchemy    AlchemyConfig    `yaml:"alchemy"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"3000" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"5m"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
}

// DatabaseConfig contains database connection settings.
// URL takes precedence over the discrete connection fields.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host" default:"localhost" validate:"required_without=URL"`
	Port            int           `yaml:"port" default:"5432"`
	User            string        `yaml:"user" default:"postgres"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database" default:"wallet_indexer"`
	SSLMode         string        `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5" validate:"min=0"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" default:"5m"`
	AutoMigrate     bool          `yaml:"auto_migrate" default:"true"`
}

// SourcesConfig contains address directory settings
type SourcesConfig struct {
	Privy  APISourceConfig  `yaml:"privy"`
	Bridge APISourceConfig  `yaml:"bridge"`
	Feed   FeedSourceConfig `yaml:"feed"`
}

// SetDefaults implements defaults.Setter for the per-source base URLs.
func (s *SourcesConfig) SetDefaults() {
	if defaults.CanUpdate(s.Privy.BaseURL) {
		s.Privy.BaseURL = "https://auth.privy.io/api/v1"
	}
	if defaults.CanUpdate(s.Bridge.BaseURL) {
		s.Bridge.BaseURL = "https://api.sandbox.bridge.xyz"
	}
}

// APISourceConfig describes an authenticated REST directory.
// An empty APIKey disables the source.
type APISourceConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// FeedSourceConfig describes the static JSON address feed
type FeedSourceConfig struct {
	URL      string        `yaml:"url" default:"https://gist.github.com/benbuschmann/18500244ac1e42dacf1d9bd5e88338cd/raw" validate:"required,url"`
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
}

// AlchemyConfig contains transfer-history provider settings.
// An empty APIKey leaves the indexer without a provider.
type AlchemyConfig struct {
	APIKey            string        `yaml:"api_key"`
	EthereumURL       string        `yaml:"ethereum_url" default:"https://eth-mainnet.g.alchemy.com/v2" validate:"required,url"`
	BaseURL           string        `yaml:"base_url" default:"https://base-mainnet.g.alchemy.com/v2" validate:"required,url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"10" validate:"gt=0"`
	Burst             int           `yaml:"burst" default:"5" validate:"min=1"`
	MaxPages          int           `yaml:"max_pages" default:"10" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" default:"30s"`
}

// IndexerConfig contains transaction indexing settings
type IndexerConfig struct {
	BatchSize       int           `yaml:"batch_size" default:"10" validate:"min=1"`
	Interval        time.Duration `yaml:"interval" default:"0s"`
	RunOnStartup    bool          `yaml:"run_on_startup"`
	RunTimeout      time.Duration `yaml:"run_timeout" default:"10m"`
	EthereumUSDRate string        `yaml:"ethereum_usd_rate" default:"3000" validate:"numeric"`
	BaseUSDRate     string        `yaml:"base_usd_rate" default:"3000" validate:"numeric"`
}

// CacheConfig selects the backend of the static feed cache
type CacheConfig struct {
	Backend   string `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	RedisURL  string `yaml:"redis_url" validate:"required_if=Backend redis"`
	KeyPrefix string `yaml:"key_prefix" default:"wallet-indexer:"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool   `yaml:"enabled" default:"true"`
	MetricsPath string `yaml:"metrics_path" default:"/metrics"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load loads configuration from an optional YAML file and environment variables.
// Precedence: environment > file > struct defaults.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("PRIVY_API_KEY", &cfg.Sources.Privy.APIKey)
	setString("BRIDGE_API_KEY", &cfg.Sources.Bridge.APIKey)
	setString("ALCHEMY_API_KEY", &cfg.Alchemy.APIKey)
	setString("JSON_FEED_URL", &cfg.Sources.Feed.URL)
	setString("DATABASE_URL", &cfg.Database.URL)
	setString("CACHE_BACKEND", &cfg.Cache.Backend)
	setString("REDIS_URL", &cfg.Cache.RedisURL)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}
