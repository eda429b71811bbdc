package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/internal/config"
	"github.com/Cloudhabil/phi-engine/internal/server"
	"github.com/Cloudhabil/phi-engine/pkg/history"
	"github.com/Cloudhabil/phi-engine/pkg/observability"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve starts the HTTP API (default :8200) with the configured cache, history
store and metrics. It shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, closeLog, err := config.SetupLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			var gatherer prometheus.Gatherer
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				prom := observability.NewPrometheus(reg)
				observability.SetEngineHooks(prom)
				observability.SetCacheHooks(prom)
				observability.SetHTTPHooks(prom)
				defer observability.Reset()
				gatherer = reg
			}

			eng, err := c.newEngine(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer eng.Close()

			hcfg := cfg.HistoryConfig()
			hcfg.Logger = c.Logger
			store, err := history.Open(ctx, hcfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Info("starting phi-engine",
				"addr", cfg.Server.Addr,
				"cache", cfg.Cache.Driver,
				"history", string(cfg.History.Driver),
				"adapters", eng.Adapters(),
				"metrics", cfg.Metrics.Enabled)

			srv := server.New(server.Options{
				Engine:      eng,
				History:     store,
				Logger:      logger,
				SlowRequest: cfg.Server.SlowRequest.Duration,
				Gatherer:    gatherer,
				MetricsPath: cfg.Metrics.Path,
			})
			return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
