package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"yfmcp/internal/bootstrap"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
	"yfmcp/internal/ports"
	"yfmcp/internal/transport/mcpserver"
	"yfmcp/internal/usecase/dispatch"
)

// services are the wired components a command may need besides the App.
type services struct {
	Server     *mcpserver.Server
	Dispatcher *dispatch.Dispatcher
	Store      ports.CacheStore
	Gatherer   prometheus.Gatherer
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		svc := &services{}
		fxApp := fx.New(
			bootstrap.Module,
			fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc.Server, &svc.Dispatcher, &svc.Store, &svc.Gatherer),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		if !cmd.Flags().Changed("log-level") {
			logging.SetLevel(app.Config.Log.Level)
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
