// Package cli implements the phi-engine command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/internal/config"
	"github.com/Cloudhabil/phi-engine/pkg/buildinfo"
	"github.com/Cloudhabil/phi-engine/pkg/cache"
	"github.com/Cloudhabil/phi-engine/pkg/engine"
)

// appName is the application name used for directories and display.
const appName = "phi-engine"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is bound to the persistent --config flag.
	configPath string
	// lookupEnv resolves PHI_ENGINE_* overrides; tests replace it.
	lookupEnv func(string) (string, bool)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		lookupEnv: os.LookupEnv,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "phi-engine maps measurements into D-space and finds bottlenecks",
		Long: `phi-engine transforms positive measurements with D(x) = -ln(x)/ln(phi),
checks sum rules, decomposes dimensions over the Fibonacci basis and runs the
photosynthesis, calibration and sensor_fusion adapters to locate bottlenecks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")

	root.AddCommand(c.transformCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.decomposeCommand())
	root.AddCommand(c.hierarchyCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.constantsCommand())
	root.AddCommand(c.ladderCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadConfig reads the --config file and environment overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(c.lookupEnv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newEngine builds an engine with the configured cache and curves. noCache
// forces the null cache.
func (c *CLI) newEngine(ctx context.Context, cfg config.Config, noCache bool) (*engine.Engine, error) {
	opts, err := cfg.PhotosynthesisOptions()
	if err != nil {
		return nil, err
	}
	store := cache.NewNullCache()
	if !noCache {
		if store, err = openCache(ctx, cfg.Cache); err != nil {
			return nil, err
		}
	}
	return engine.New(engine.Options{
		Cache:          store,
		Keyer:          cache.NewScopedKeyer(nil, cacheScope(cfg)),
		Logger:         c.Logger,
		TTL:            cfg.Cache.TTL.Duration,
		Photosynthesis: opts,
	})
}

// cacheScope prefixes cache keys with the release and, when custom curves
// are configured, their hash, so results computed under other settings are
// never served.
func cacheScope(cfg config.Config) string {
	scope := "v" + buildinfo.Version + ":"
	if len(cfg.Curves.Temperature)+len(cfg.Curves.Concentration) > 0 {
		curves, _ := json.Marshal(cfg.Curves)
		scope += "curves:" + cache.Hash(curves)[:12] + ":"
	}
	return scope
}

// openCache constructs the cache named by cfg.Driver.
func openCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Driver {
	case "file":
		dir, err := cacheDir(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisURL, appName+":")
	default:
		return cache.NewNullCache(), nil
	}
}

// cacheDir returns the configured file cache directory or the per-user
// default (~/.cache/phi-engine on Linux).
func cacheDir(cfg config.Cache) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	return cache.DefaultDir()
}
