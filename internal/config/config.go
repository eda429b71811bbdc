// Package config loads the phi-engine configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// PHI_ENGINE_* environment variables. [Config.Validate] fills remaining
// defaults and rejects impossible combinations.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Cloudhabil/phi-engine/pkg/adapter/photosynthesis"
	"github.com/Cloudhabil/phi-engine/pkg/blob"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/history"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PHI_ENGINE_"

// Defaults.
const (
	DefaultAddr         = ":8200"
	DefaultSlowRequest  = 100 * time.Millisecond
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultMetricsPath  = "/metrics"
	DefaultExportPrefix = "history"
)

// Duration is a time.Duration that decodes from TOML strings such as "100ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	SlowRequest  Duration `toml:"slow_request"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
	File   string `toml:"file"`
}

type Cache struct {
	Driver   string   `toml:"driver"` // none, file or redis
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

type History struct {
	Driver   history.Driver `toml:"driver"`
	DSN      string         `toml:"dsn"`
	Database string         `toml:"database"`
}

type Export struct {
	Driver    blob.Driver `toml:"driver"`
	Dir       string      `toml:"dir"`
	Prefix    string      `toml:"prefix"`
	Bucket    string      `toml:"bucket"`
	Region    string      `toml:"region"`
	Endpoint  string      `toml:"endpoint"`
	PathStyle bool        `toml:"path_style"`
}

type Curves struct {
	Temperature   []photosynthesis.Point `toml:"temperature"`
	Concentration []photosynthesis.Point `toml:"concentration"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config is the complete configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
	Cache   Cache   `toml:"cache"`
	History History `toml:"history"`
	Export  Export  `toml:"export"`
	Curves  Curves  `toml:"curves"`
	Metrics Metrics `toml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         DefaultAddr,
			ReadTimeout:  Duration{DefaultReadTimeout},
			WriteTimeout: Duration{DefaultWriteTimeout},
			SlowRequest:  Duration{DefaultSlowRequest},
		},
		Log:     Log{Level: "info", Format: "text"},
		Cache:   Cache{Driver: "none"},
		History: History{Driver: history.DriverMemory},
		Export:  Export{Driver: blob.DriverFS, Prefix: DefaultExportPrefix},
		Metrics: Metrics{Enabled: true, Path: DefaultMetricsPath},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.InvalidInput(undecoded[0].String(), "unknown configuration key")
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PHI_ENGINE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.InvalidInput(EnvPrefix+key, "not a boolean: %q", v)
			}
			*dst = b
		}
		return nil
	}
	duration := func(key string, dst *Duration) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return errors.InvalidInput(EnvPrefix+key, "not a duration: %q", v)
			}
		}
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)
	str("CACHE_DRIVER", &c.Cache.Driver)
	str("CACHE_DIR", &c.Cache.Dir)
	str("REDIS_URL", &c.Cache.RedisURL)
	str("HISTORY_DSN", &c.History.DSN)
	str("HISTORY_DATABASE", &c.History.Database)
	str("EXPORT_DIR", &c.Export.Dir)
	str("EXPORT_PREFIX", &c.Export.Prefix)
	str("S3_BUCKET", &c.Export.Bucket)
	str("S3_REGION", &c.Export.Region)
	str("S3_ENDPOINT", &c.Export.Endpoint)
	str("METRICS_PATH", &c.Metrics.Path)

	if v, ok := lookup(EnvPrefix + "HISTORY_DRIVER"); ok && v != "" {
		c.History.Driver = history.Driver(v)
	}
	if v, ok := lookup(EnvPrefix + "EXPORT_DRIVER"); ok && v != "" {
		c.Export.Driver = blob.Driver(v)
	}

	for _, err := range []error{
		boolean("S3_PATH_STYLE", &c.Export.PathStyle),
		boolean("METRICS_ENABLED", &c.Metrics.Enabled),
		duration("CACHE_TTL", &c.Cache.TTL),
		duration("SLOW_REQUEST", &c.Server.SlowRequest),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate fills defaults and checks consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.SlowRequest.Duration <= 0 {
		c.Server.SlowRequest.Duration = DefaultSlowRequest
	}
	if c.Server.ReadTimeout.Duration <= 0 {
		c.Server.ReadTimeout.Duration = DefaultReadTimeout
	}
	if c.Server.WriteTimeout.Duration <= 0 {
		c.Server.WriteTimeout.Duration = DefaultWriteTimeout
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = "text"
	case "text", "json":
	default:
		return errors.InvalidInput("log.format", "want text or json, got %q", c.Log.Format)
	}

	switch c.Cache.Driver {
	case "", "none":
		c.Cache.Driver = "none"
	case "file":
	case "redis":
		if err := errors.ValidateURL("cache.redis_url", c.Cache.RedisURL, "redis", "rediss"); err != nil {
			return err
		}
	default:
		return errors.InvalidInput("cache.driver", "want none, file or redis, got %q", c.Cache.Driver)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.InvalidInput("cache.ttl", "must not be negative")
	}

	switch c.History.Driver {
	case "":
		c.History.Driver = history.DriverMemory
	case history.DriverMemory:
	case history.DriverSQLite:
		if c.History.DSN == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return errors.InvalidInput("history.dsn", "required for sqlite")
			}
			c.History.DSN = filepath.Join(dir, "phi-engine", "history.db")
		}
	case history.DriverPostgres, history.DriverMongo:
		if c.History.DSN == "" {
			return errors.InvalidInput("history.dsn", "required for %s", c.History.Driver)
		}
	default:
		return errors.InvalidInput("history.driver", "want memory, sqlite, postgres or mongo, got %q", c.History.Driver)
	}

	switch c.Export.Driver {
	case "":
		c.Export.Driver = blob.DriverFS
	case blob.DriverFS, blob.DriverS3:
	default:
		return errors.InvalidInput("export.driver", "want fs or s3, got %q", c.Export.Driver)
	}
	if c.Export.Driver == blob.DriverS3 && c.Export.Bucket == "" {
		return errors.InvalidInput("export.bucket", "required for s3")
	}
	if c.Export.Driver == blob.DriverFS && c.Export.Dir == "" {
		c.Export.Dir = "exports"
	}
	if c.Export.Endpoint != "" {
		if err := errors.ValidateURL("export.endpoint", c.Export.Endpoint); err != nil {
			return err
		}
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.InvalidInput("metrics.path", "must start with /")
	}

	if _, err := c.PhotosynthesisOptions(); err != nil {
		return err
	}
	return nil
}

// PhotosynthesisOptions converts the curve tables. Empty tables keep the
// built-in curves.
func (c *Config) PhotosynthesisOptions() (photosynthesis.Options, error) {
	var opts photosynthesis.Options
	if len(c.Curves.Temperature) > 0 {
		opts.TemperatureCurve = photosynthesis.Curve{Name: "temperature", Points: c.Curves.Temperature}
		if err := opts.TemperatureCurve.Validate(); err != nil {
			return photosynthesis.Options{}, err
		}
	}
	if len(c.Curves.Concentration) > 0 {
		opts.ConcentrationCurve = photosynthesis.Curve{Name: "concentration", Points: c.Curves.Concentration}
		if err := opts.ConcentrationCurve.Validate(); err != nil {
			return photosynthesis.Options{}, err
		}
	}
	return opts, nil
}

// HistoryConfig converts the history section.
func (c *Config) HistoryConfig() history.Config {
	return history.Config{Driver: c.History.Driver, DSN: c.History.DSN, Database: c.History.Database}
}

// BlobConfig converts the export section.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: c.Export.Driver,
		Dir:    c.Export.Dir,
		S3: blob.S3Config{
			Bucket:    c.Export.Bucket,
			Region:    c.Export.Region,
			Endpoint:  c.Export.Endpoint,
			PathStyle: c.Export.PathStyle,
		},
	}
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.InvalidInput("log.level", "want debug, info, warn or error, got %q", s)
	}
}
