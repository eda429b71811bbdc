package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cloudhabil/phi-engine/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. It clears the
// configured backend: the file cache directory or the redis key prefix.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			var count int
			switch cfg.Cache.Driver {
			case "redis":
				rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, appName+":")
				if err != nil {
					return err
				}
				defer rc.Close()
				if count, err = rc.Clear(ctx); err != nil {
					return err
				}
				printSuccess(w, "Cleared %d cached entries", count)
				printDetail(w, "Redis: %s", cfg.Cache.RedisURL)
			default:
				dir, err := cacheDir(cfg.Cache)
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				fc, err := cache.NewFileCache(dir)
				if err != nil {
					return err
				}
				if count, err = fc.Clear(); err != nil {
					return err
				}
				if count == 0 {
					printInfo(w, "Cache is empty")
					return nil
				}
				printSuccess(w, "Cleared %d cached entries", count)
				printDetail(w, "Directory: %s", dir)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg.Cache)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
