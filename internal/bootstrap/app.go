package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"yfmcp/internal/bootstrap/config"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
	cacheinfra "yfmcp/internal/infrastructure/cache"
)

// App is the config and cache store shared by every command. The fx
// lifecycle owns the store and closes it on stop.
type App struct {
	Config config.Config
	Store  *cacheinfra.SQLiteCache
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration", slog.String("database_dsn", a.Config.Database.DSN))

	if err := a.Store.Migrate(ctx); err != nil {
		return errs.Wrap(err, "migrate cache schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
