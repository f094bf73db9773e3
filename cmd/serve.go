package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"yfmcp/internal/bootstrap"
	"yfmcp/internal/bootstrap/config"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the finance tools over MCP",
	Long:  "Serve the finance tools over MCP on stdio (default) or streamable HTTP with /metrics and /healthz.",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		watch, _ := cmd.Flags().GetBool("watch")

		transport = strings.ToLower(strings.TrimSpace(transport))
		if transport == "" {
			transport = app.Config.Server.Transport
		}
		if strings.TrimSpace(addr) == "" {
			addr = app.Config.Server.Addr
		}

		if watch {
			policy := svc.Dispatcher.Policy()
			err := config.Watch(ctx, cfgFile, func(next config.Config) {
				policy.UpdateTTLs(next.Cache.TTL)
				if !cmd.Flags().Changed("log-level") {
					logging.SetLevel(next.Log.Level)
				}
			})
			if err != nil {
				logging.Warn(ctx, "config watch disabled", slog.Any("err", errs.Loggable(err)))
			}
		}

		logging.Info(ctx, "start mcp server",
			slog.String("transport", transport),
			slog.String("market", app.Config.Market.Default),
			slog.String("cache_path", app.Config.Cache.Path()),
		)

		switch transport {
		case "stdio":
			if err := svc.Server.Run(ctx); err != nil && ctx.Err() == nil {
				return errs.Wrap(err, "serve stdio")
			}
		case "http":
			if err := svc.Server.ServeHTTP(ctx, addr, svc.Gatherer); err != nil {
				return errs.Wrap(err, "serve http")
			}
		default:
			return fmt.Errorf("unsupported transport %q (expected: stdio or http)", transport)
		}

		logging.Info(ctx, "mcp server stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "", "Transport: stdio|http (default: server.transport from config)")
	serveCmd.Flags().String("addr", "", "Listen address for the http transport (default: server.addr from config)")
	serveCmd.Flags().Bool("watch", true, "Reload cache TTLs and log level when the config file changes")
}
