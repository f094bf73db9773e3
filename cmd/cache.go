package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"yfmcp/internal/bootstrap"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts and the database size",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		format, _ := cmd.Flags().GetString("format")

		stats, err := svc.Store.Stats(ctx)
		if err != nil {
			return errs.Wrap(err, "read cache stats")
		}
		return writeOutput(cmd.OutOrStdout(), format, stats)
	}),
}

var cacheClearExpiredCmd = &cobra.Command{
	Use:   "clear-expired",
	Short: "Remove entries whose TTL has passed",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		removed, err := svc.Store.ClearExpired(ctx)
		if err != nil {
			return errs.Wrap(err, "clear expired entries")
		}
		logging.Info(ctx, "expired cache entries cleared", slog.Int64("removed", removed))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
		return errs.Wrap(err, "write clear-expired output")
	}),
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		removed, err := svc.Store.ClearAll(ctx)
		if err != nil {
			return errs.Wrap(err, "clear cache")
		}
		logging.Info(ctx, "cache cleared", slog.Int64("removed", removed))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
		return errs.Wrap(err, "write clear output")
	}),
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove one entry by key",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		key := strings.TrimSpace(cmd.Flags().Arg(0))

		deleted, err := svc.Store.Delete(ctx, key)
		if err != nil {
			return errs.Wrapf(err, "delete cache entry %q", key)
		}
		if !deleted {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "no entry for %s\n", key)
			return errs.Wrap(err, "write delete output")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
		return errs.Wrap(err, "write delete output")
	}),
}

var cacheKeyCmd = &cobra.Command{
	Use:   "key <tool>",
	Short: "Print the cache key a tool call would use",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		name := strings.TrimSpace(cmd.Flags().Arg(0))
		raw, err := resolveArgs(cmd)
		if err != nil {
			return err
		}

		var params map[string]any
		if err := json.Unmarshal(raw, &params); err != nil {
			return errs.Wrap(err, "decode --args")
		}

		key, err := svc.Dispatcher.Policy().ResolveKey(name, params)
		if err != nil {
			return errs.Wrapf(err, "resolve cache key for %q", name)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
		return errs.Wrap(err, "write key output")
	}),
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearExpiredCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheKeyCmd)

	cacheStatsCmd.Flags().String("format", "json", "Output format: "+outputFormats)
	cacheKeyCmd.Flags().String("args", "", "Tool arguments as JSON (\"-\" reads stdin)")
}
