// Package config loads esmstat run configuration.
//
// Values come from, in increasing precedence: built-in defaults, an
// esmstat.toml file, ESMSTAT_* environment variables (NPM_TOKEN is accepted
// for the registry token), and explicit overrides supplied by the CLI.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/matzehuels/esmstat/pkg/crawl"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/integrations/npm"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

const (
	appName   = "esmstat"
	envPrefix = "ESMSTAT"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete run configuration.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Packages PackagesConfig `mapstructure:"packages"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Report   ReportConfig   `mapstructure:"report"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

// RegistryConfig points at the npm registry.
type RegistryConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// CrawlConfig tunes the batch runner.
type CrawlConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	Concurrency     int           `mapstructure:"concurrency"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	MaxBatchRetries int           `mapstructure:"max_batch_retries"`
	Backoff         string        `mapstructure:"backoff"`
}

// PackagesConfig names the package list: a file path or http(s) URL.
type PackagesConfig struct {
	Source string `mapstructure:"source"`
}

// PolicyConfig names an optional spam policy file; empty uses the built-in one.
type PolicyConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig selects the registry response cache.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	Dir      string        `mapstructure:"dir"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

// StoreConfig selects the snapshot store.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	Dir           string `mapstructure:"dir"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// ReportConfig names the report outputs.
type ReportConfig struct {
	SVG string `mapstructure:"svg"`
	CSV string `mapstructure:"csv"`
}

// ScheduleConfig holds the crawl schedule for "esmstat schedule".
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// ServeConfig configures "esmstat serve".
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cacheDir, err := httputil.DefaultDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), appName)
	}
	return &Config{
		Registry: RegistryConfig{URL: npm.DefaultRegistry},
		Crawl: CrawlConfig{
			BatchSize:       crawl.DefaultBatchSize,
			RetryDelay:      crawl.DefaultRetryDelay,
			MaxBatchRetries: crawl.DefaultMaxBatchRetries,
			Backoff:         string(httputil.BackoffFlat),
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Dir:     cacheDir,
			TTL:     24 * time.Hour,
		},
		Store: StoreConfig{
			Backend:       snapshot.BackendFile,
			Dir:           "data",
			SQLitePath:    "esmstat.db",
			MongoDatabase: appName,
		},
		Report:   ReportConfig{SVG: "index.svg", CSV: "index.csv"},
		Schedule: ScheduleConfig{Cron: "0 0 * * *"},
		Serve:    ServeConfig{Addr: ":8080"},
	}
}

// Load reads configuration. If path is empty, esmstat.toml is looked up in
// the working directory and $XDG_CONFIG_HOME/esmstat; a missing file is not
// an error. overrides are applied last, keyed like "crawl.batch_size".
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("registry.token", envPrefix+"_REGISTRY_TOKEN", "NPM_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
		}
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config")
			}
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.token", d.Registry.Token)
	v.SetDefault("crawl.batch_size", d.Crawl.BatchSize)
	v.SetDefault("crawl.concurrency", d.Crawl.Concurrency)
	v.SetDefault("crawl.retry_delay", d.Crawl.RetryDelay)
	v.SetDefault("crawl.max_batch_retries", d.Crawl.MaxBatchRetries)
	v.SetDefault("crawl.backoff", d.Crawl.Backoff)
	v.SetDefault("packages.source", d.Packages.Source)
	v.SetDefault("policy.path", d.Policy.Path)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("store.mongo_uri", d.Store.MongoURI)
	v.SetDefault("store.mongo_database", d.Store.MongoDatabase)
	v.SetDefault("report.svg", d.Report.SVG)
	v.SetDefault("report.csv", d.Report.CSV)
	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("serve.addr", d.Serve.Addr)
}

// configDir returns $XDG_CONFIG_HOME/esmstat, falling back to ~/.config/esmstat.
func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errs.New(errs.ErrCodeInvalidConfig, format, args...)
	}

	if err := errs.ValidateURL(c.Registry.URL); err != nil {
		return invalid("registry.url: %s", errs.UserMessage(err))
	}
	if c.Crawl.BatchSize <= 0 {
		return invalid("crawl.batch_size must be positive, got %d", c.Crawl.BatchSize)
	}
	if c.Crawl.Concurrency < 0 {
		return invalid("crawl.concurrency must not be negative, got %d", c.Crawl.Concurrency)
	}
	if c.Crawl.RetryDelay <= 0 {
		return invalid("crawl.retry_delay must be positive, got %s", c.Crawl.RetryDelay)
	}
	if c.Crawl.MaxBatchRetries < 0 {
		return invalid("crawl.max_batch_retries must not be negative, got %d", c.Crawl.MaxBatchRetries)
	}
	if _, err := httputil.ParseBackoff(c.Crawl.Backoff); err != nil {
		return invalid("crawl.backoff: %v", err)
	}

	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			return invalid("cache.dir is required for the file cache")
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return invalid("cache.redis_url is required for the redis cache")
		}
	case CacheNone:
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl must not be negative")
	}

	switch c.Store.Backend {
	case snapshot.BackendFile:
		if c.Store.Dir == "" {
			return invalid("store.dir is required for the file store")
		}
	case snapshot.BackendSQLite:
		if c.Store.SQLitePath == "" {
			return invalid("store.sqlite_path is required for the sqlite store")
		}
	case snapshot.BackendMongo:
		if c.Store.MongoURI == "" {
			return invalid("store.mongo_uri is required for the mongo store")
		}
	default:
		return invalid("unknown store.backend %q", c.Store.Backend)
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return invalid("schedule.cron: %v", err)
	}
	return nil
}

// RequireToken reports a missing registry token.
func (c *Config) RequireToken() error {
	if c.Registry.Token == "" {
		return errs.New(errs.ErrCodeMissingToken, "no npm token: set NPM_TOKEN or registry.token")
	}
	return nil
}

// CrawlOptions converts the crawl section into runner options.
func (c *Config) CrawlOptions() crawl.Options {
	backoff, _ := httputil.ParseBackoff(c.Crawl.Backoff)
	retries := c.Crawl.MaxBatchRetries
	if retries == 0 {
		retries = -1 // runner treats zero as unset
	}
	return crawl.Options{
		BatchSize:       c.Crawl.BatchSize,
		Concurrency:     c.Crawl.Concurrency,
		RetryDelay:      c.Crawl.RetryDelay,
		MaxBatchRetries: retries,
		Backoff:         backoff,
	}
}

// StoreOptions converts the store section into snapshot store options.
func (c *Config) StoreOptions() snapshot.Options {
	return snapshot.Options{
		Backend:       c.Store.Backend,
		Dir:           c.Store.Dir,
		SQLitePath:    c.Store.SQLitePath,
		MongoURI:      c.Store.MongoURI,
		MongoDatabase: c.Store.MongoDatabase,
	}
}
