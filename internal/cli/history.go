package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/internal/config"
	"github.com/Cloudhabil/phi-engine/pkg/blob"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/history"
)

func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and export recorded calls",
		Long: `History reads the store configured in [history]. The memory driver only
lives inside a running server, so use sqlite, postgres or mongo here.`,
	}
	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyExportCommand())
	return cmd
}

// timeFlag parses an optional RFC 3339 flag value.
func timeFlag(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.InvalidInput(name, "not an RFC 3339 time: %q", raw)
	}
	return t, nil
}

// openHistory loads the configuration and opens its history store.
func (c *CLI) openHistory(cmd *cobra.Command) (config.Config, history.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	if cfg.History.Driver == history.DriverMemory {
		printWarning(cmd.ErrOrStderr(), "history driver is memory; nothing persists between runs")
	}
	hcfg := cfg.HistoryConfig()
	hcfg.Logger = c.Logger
	store, err := history.Open(cmd.Context(), hcfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, store, nil
}

func (c *CLI) historyListCommand() *cobra.Command {
	var (
		q        history.Query
		from, to string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded calls, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.From, err = timeFlag("from", from); err != nil {
				return err
			}
			if q.To, err = timeFlag("to", to); err != nil {
				return err
			}
			_, store, err := c.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSONOut(w, map[string]any{"entries": entries, "total": len(entries)})
			}
			if len(entries) == 0 {
				printInfo(w, "No history entries")
				return nil
			}
			t := newTable("Time", "Operation", "Adapter", "Mode", "OK", "ms")
			for _, e := range entries {
				ok := iconSuccess
				if !e.Success {
					ok = iconError
				}
				t.Row(e.Timestamp.Format(time.RFC3339), e.Operation, e.Adapter, e.Mode, ok, strconv.FormatFloat(e.DurationMS, 'f', 2, 64))
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Operation, "operation", "", "filter by operation")
	cmd.Flags().StringVar(&q.Adapter, "adapter", "", "filter by adapter")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 50, "maximum entries (0 for all)")
	cmd.Flags().StringVar(&from, "from", "", "earliest time, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "latest time, exclusive (RFC 3339)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func (c *CLI) historyExportCommand() *cobra.Command {
	var from, to, prefix string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as JSONL to the configured sink",
		Example: `  phi-engine history export --from 2026-01-01T00:00:00Z
  PHI_ENGINE_EXPORT_DRIVER=s3 PHI_ENGINE_S3_BUCKET=archive phi-engine history export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start, err := timeFlag("from", from)
			if err != nil {
				return err
			}
			end, err := timeFlag("to", to)
			if err != nil {
				return err
			}

			cfg, store, err := c.openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sink, err := blob.Open(ctx, cfg.BlobConfig())
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = cfg.Export.Prefix
			}

			prog := newProgress(c.Logger)
			res, err := history.Export(ctx, store, sink, prefix, start, end)
			if err != nil {
				return err
			}
			prog.done("Export complete", "entries", res.Entries, "bytes", res.Bytes)

			w := cmd.OutOrStdout()
			printSuccess(w, "Exported %d entries", res.Entries)
			printFile(w, res.Location)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earliest time, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "latest time, exclusive (RFC 3339; default now)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "object key prefix (default export.prefix)")
	return cmd
}
