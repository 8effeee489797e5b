// Package config loads the Runtime configuration consumed by every
// component: matcher binary path, cache sizing, backup root, worker
// count, and logging. Precedence is explicit argument > environment
// variable > file > built-in default, collapsing the ambient mutable
// module state pattern into a single value constructed once at startup.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
)

// Config is the fully resolved Runtime configuration.
type Config struct {
	MatcherBinary  string
	MatcherConfig  string // --config path forwarded to the matcher, if any
	Cache          Cache
	BackupRoot     string
	DefaultWorkers int
	LogLevel       string
	EmbeddingModel string // optional; empty disables Stage 3 similarity
	ReportEndpoint string // optional error-reporting sidecar
}

// Cache mirrors the C2 cache component's configuration knobs.
type Cache struct {
	Enabled  bool
	Capacity int
	TTL      time.Duration
}

// fileConfig is the subset of Config a .astgrepmcp.toml file may set.
// Field names are chosen to read naturally in TOML, distinct from the
// exported Go field names above.
type fileConfig struct {
	MatcherBinary  string `toml:"matcher_binary"`
	MatcherConfig  string `toml:"matcher_config"`
	CacheEnabled   *bool  `toml:"cache_enabled"`
	CacheSize      int    `toml:"cache_size"`
	CacheTTLSec    int    `toml:"cache_ttl_seconds"`
	BackupRoot     string `toml:"backup_root"`
	DefaultWorkers int    `toml:"default_workers"`
	LogLevel       string `toml:"log_level"`
	EmbeddingModel string `toml:"embedding_model"`
	ReportEndpoint string `toml:"report_endpoint"`
}

// Default returns the built-in defaults, before env/file/argument
// overrides are layered on.
func Default() Config {
	return Config{
		MatcherBinary:  "ast-grep",
		Cache:          Cache{Enabled: true, Capacity: 100, TTL: 300 * time.Second},
		BackupRoot:     ".ast-grep-backups",
		DefaultWorkers: defaultWorkerCount(),
		LogLevel:       "info",
	}
}

func defaultWorkerCount() int {
	const defaultWidth = 4
	if n := runtime.NumCPU(); n > 0 && n < defaultWidth {
		return n
	}
	return defaultWidth
}

// Load resolves a Config starting from Default(), then a config file at
// path (if non-empty and present), then environment variables, then
// explicit overrides, each layer overriding only the fields it sets,
// with precedence explicit argument > environment variable > default
// (the file sits between default and environment as the least-specific
// override a user can supply).
func Load(path string, overrides Config) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fc, err := loadFile(path)
			if err != nil {
				return Config{}, err
			}
			applyFile(&cfg, fc)
		} else if !os.IsNotExist(err) {
			return Config{}, errors.New(errors.KindIO, "config.Load", err).WithPath(path)
		}
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, errors.New(errors.KindIO, "config.loadFile", err).WithPath(path)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, errors.New(errors.KindRuleInvalid, "config.loadFile", err).WithPath(path)
	}
	return fc, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.MatcherBinary != "" {
		cfg.MatcherBinary = fc.MatcherBinary
	}
	if fc.MatcherConfig != "" {
		cfg.MatcherConfig = fc.MatcherConfig
	}
	if fc.CacheEnabled != nil {
		cfg.Cache.Enabled = *fc.CacheEnabled
	}
	if fc.CacheSize > 0 {
		cfg.Cache.Capacity = fc.CacheSize
	}
	if fc.CacheTTLSec > 0 {
		cfg.Cache.TTL = time.Duration(fc.CacheTTLSec) * time.Second
	}
	if fc.BackupRoot != "" {
		cfg.BackupRoot = fc.BackupRoot
	}
	if fc.DefaultWorkers > 0 {
		cfg.DefaultWorkers = fc.DefaultWorkers
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.EmbeddingModel != "" {
		cfg.EmbeddingModel = fc.EmbeddingModel
	}
	if fc.ReportEndpoint != "" {
		cfg.ReportEndpoint = fc.ReportEndpoint
	}
}

// envVars names the environment variables consumed, per the external
// interfaces section.
const (
	envMatcherConfig = "MATCHER_CONFIG"
	envCacheSize     = "CACHE_SIZE"
	envCacheTTL      = "CACHE_TTL_SECONDS"
	envLogLevel      = "LOG_LEVEL"
	envBackupRoot    = "BACKUP_ROOT"
)

func applyEnv(cfg *Config) {
	if v := os.Getenv(envMatcherConfig); v != "" {
		cfg.MatcherConfig = v
	}
	if v := os.Getenv(envCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.Capacity = n
		}
	}
	if v := os.Getenv(envCacheTTL); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.TTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envBackupRoot); v != "" {
		cfg.BackupRoot = v
	}
}

func applyOverrides(cfg *Config, o Config) {
	if o.MatcherBinary != "" {
		cfg.MatcherBinary = o.MatcherBinary
	}
	if o.MatcherConfig != "" {
		cfg.MatcherConfig = o.MatcherConfig
	}
	if o.Cache.Capacity > 0 {
		cfg.Cache.Capacity = o.Cache.Capacity
	}
	if o.Cache.TTL > 0 {
		cfg.Cache.TTL = o.Cache.TTL
	}
	if o.BackupRoot != "" {
		cfg.BackupRoot = o.BackupRoot
	}
	if o.DefaultWorkers > 0 {
		cfg.DefaultWorkers = o.DefaultWorkers
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.EmbeddingModel != "" {
		cfg.EmbeddingModel = o.EmbeddingModel
	}
}

// Validate rejects configurations that would put a component in an
// inconsistent state.
func (c Config) Validate() error {
	if c.MatcherBinary == "" {
		return errors.New(errors.KindInternal, "config.Validate", fmt.Errorf("matcher binary path is empty"))
	}
	if c.Cache.Capacity < 0 {
		return errors.New(errors.KindInternal, "config.Validate", fmt.Errorf("cache capacity must be >= 0"))
	}
	if c.DefaultWorkers <= 0 {
		return errors.New(errors.KindInternal, "config.Validate", fmt.Errorf("default workers must be > 0"))
	}
	return nil
}
