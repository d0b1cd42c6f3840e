// Package config provides configuration management for travis-metrics.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends accepted by CacheBackend.
const (
	CacheBackendFile     = "file"
	CacheBackendSQLite   = "sqlite"
	CacheBackendPostgres = "postgres"
	CacheBackendMemory   = "memory"
	CacheBackendNone     = "none"
)

// Keys used in viper, config files and flag bindings.
const (
	KeyTravisToken  = "travis_token"
	KeyBaseURL      = "base_url"
	KeyAPIVersion   = "api_version"
	KeyRepoSlug     = "repo"
	KeyBranch       = "branch"
	KeyBuildState   = "state"
	KeyStageNumber  = "stage"
	KeyOutputCSV    = "output"
	KeyLogsDir      = "logs_dir"
	KeyCacheBackend = "cache_backend"
	KeyCacheDir     = "cache_dir"
	KeyCacheDSN     = "cache_dsn"
	KeyCacheTTL     = "cache_ttl"
	KeyHTTPTimeout  = "timeout"
	KeyVerbose      = "verbose"
	KeyQuiet        = "quiet"
	KeyLogFile      = "log_file"
)

// EnvPrefix prefixes every setting except the token, which keeps its historical name.
const EnvPrefix = "TRAVIS_METRICS"

// TokenEnv is the environment variable holding the Travis API token.
const TokenEnv = "TRAVIS_TOKEN"

// ErrMissingToken is returned when no API token is configured.
var ErrMissingToken = errors.New(TokenEnv + " environment variable is required")

// Config holds the application configuration.
type Config struct {
	// TravisToken is the API token sent as "Authorization: token <TravisToken>".
	TravisToken string `mapstructure:"travis_token"`
	// BaseURL is the Travis API root every relative reference is resolved against.
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`

	RepoSlug    string `mapstructure:"repo"`
	Branch      string `mapstructure:"branch"`
	BuildState  string `mapstructure:"state"`
	StageNumber int    `mapstructure:"stage"`

	OutputCSV string `mapstructure:"output"`
	LogsDir   string `mapstructure:"logs_dir"`

	CacheBackend string        `mapstructure:"cache_backend"`
	CacheDir     string        `mapstructure:"cache_dir"`
	CacheDSN     string        `mapstructure:"cache_dsn"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`

	// HTTPTimeout bounds each request. Zero means no timeout.
	HTTPTimeout time.Duration `mapstructure:"timeout"`

	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`
	LogFile string `mapstructure:"log_file"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "https://api.travis-ci.com")
	v.SetDefault(KeyAPIVersion, "3")
	v.SetDefault(KeyRepoSlug, "keboola/connection")
	v.SetDefault(KeyBranch, "master")
	v.SetDefault(KeyBuildState, "passed")
	v.SetDefault(KeyStageNumber, 2)
	v.SetDefault(KeyOutputCSV, "data.csv")
	v.SetDefault(KeyLogsDir, "/tmp/logs")
	v.SetDefault(KeyCacheBackend, CacheBackendFile)
	v.SetDefault(KeyCacheDir, "/tmp/cache")
	v.SetDefault(KeyCacheDSN, "")
	v.SetDefault(KeyCacheTTL, 365*24*time.Hour)
	v.SetDefault(KeyHTTPTimeout, time.Duration(0))
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyLogFile, "")
}

// NewViper creates a viper instance with defaults and environment bindings.
// Settings are read from TRAVIS_METRICS_* variables; the token is read from TRAVIS_TOKEN.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// BindEnv with an explicit name bypasses the prefix.
	_ = v.BindEnv(KeyTravisToken, TokenEnv)
	return v
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads configuration from v, optionally merging a YAML/TOML/JSON config file first.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables and defaults only.
func LoadFromEnv() (*Config, error) {
	return Load(NewViper(), "")
}

// Validate checks that cfg is usable.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.TravisToken) == "" {
		return ErrMissingToken
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be an absolute URL", cfg.BaseURL)
	}

	if cfg.RepoSlug == "" {
		return errors.New("repository slug must not be empty")
	}
	if cfg.StageNumber < 1 {
		return fmt.Errorf("invalid stage number %d: must be >= 1", cfg.StageNumber)
	}
	if cfg.CacheTTL < 0 {
		return fmt.Errorf("invalid cache TTL %s: must not be negative", cfg.CacheTTL)
	}
	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", cfg.HTTPTimeout)
	}
	if cfg.OutputCSV == "" {
		return errors.New("output CSV path must not be empty")
	}
	if cfg.LogsDir == "" {
		return errors.New("logs directory must not be empty")
	}

	switch cfg.CacheBackend {
	case CacheBackendFile:
		if cfg.CacheDir == "" {
			return errors.New("cache directory is required for the file cache backend")
		}
	case CacheBackendPostgres:
		if cfg.CacheDSN == "" {
			return errors.New("cache DSN is required for the postgres cache backend")
		}
	case CacheBackendSQLite:
		if cfg.CacheDSN == "" && cfg.CacheDir == "" {
			return errors.New("cache DSN or cache directory is required for the sqlite cache backend")
		}
	case CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	return nil
}
