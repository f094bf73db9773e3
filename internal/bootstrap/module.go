package bootstrap

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"yfmcp/internal/bootstrap/config"
	"yfmcp/internal/bootstrap/database"
	"yfmcp/internal/bootstrap/logging"
	cacheinfra "yfmcp/internal/infrastructure/cache"
	"yfmcp/internal/infrastructure/yahoo"
	"yfmcp/internal/ports"
	"yfmcp/internal/transport/mcpserver"
	"yfmcp/internal/usecase/dispatch"
	"yfmcp/internal/usecase/finance"
)

// Version is reported to MCP clients. Release builds set it with -ldflags.
var Version = mcpserver.DefaultVersion

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(provideCacheStore),
	fx.Provide(func(store *cacheinfra.SQLiteCache) ports.CacheStore { return store }),
	fx.Provide(provideJanitor),
	fx.Provide(provideRegistry),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Registerer { return reg }),
	fx.Provide(func(reg *prometheus.Registry) prometheus.Gatherer { return reg }),
	fx.Provide(providePolicy),
	fx.Provide(dispatch.NewMetrics),
	fx.Provide(dispatch.NewDispatcher),
	fx.Provide(
		fx.Annotate(
			provideYahooClient,
			fx.As(new(ports.MarketDataProvider)),
		),
	),
	fx.Provide(provideFinanceService),
	fx.Provide(provideMCPServer),
	fx.Invoke(func(*cacheinfra.Janitor) {}),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	return database.Open(logCtx, cfg.Database)
}

func provideApp(cfg config.Config, store *cacheinfra.SQLiteCache) *App {
	return &App{
		Config: cfg,
		Store:  store,
	}
}

// provideCacheStore owns the database connection from here on: the store's
// Close runs on stop and shuts the underlying handle.
func provideCacheStore(lc fx.Lifecycle, ctx context.Context, db *gorm.DB, cfg config.Config) (*cacheinfra.SQLiteCache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	store, err := cacheinfra.Open(logCtx, db, database.FilePath(cfg.Database.DSN))
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := store.Close(); err != nil {
				return err
			}
			logging.Info(logCtx, "cache store closed")
			return nil
		},
	})
	return store, nil
}

// provideJanitor runs the expiry sweep for as long as the command context
// lives. Its stop hook runs before the store hook closes the connection.
func provideJanitor(lc fx.Lifecycle, ctx context.Context, store *cacheinfra.SQLiteCache, cfg config.Config) *cacheinfra.Janitor {
	janitor := cacheinfra.NewJanitor(store, cfg.Cache.SweepInterval)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			janitor.Start(ctx)
			return nil
		},
		OnStop: janitor.Stop,
	})
	return janitor
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func providePolicy(cfg config.Config) *dispatch.Policy {
	return dispatch.NewPolicy(cfg.Cache.TTL)
}

func provideYahooClient(cfg config.Config) (*yahoo.Client, error) {
	return yahoo.NewClient(yahoo.ClientConfig{
		BaseURL:   cfg.Yahoo.BaseURL,
		CookieURL: cfg.Yahoo.CookieURL,
		UserAgent: cfg.Yahoo.UserAgent,
		Timeout:   cfg.Yahoo.Timeout,
	})
}

func provideFinanceService(provider ports.MarketDataProvider, cfg config.Config) (*finance.Service, error) {
	return finance.NewService(provider, cfg.Market.Default)
}

func provideMCPServer(dispatcher *dispatch.Dispatcher, svc *finance.Service) (*mcpserver.Server, error) {
	return mcpserver.New(dispatcher, svc.Tools(), mcpserver.Options{
		Name:    mcpserver.DefaultName,
		Version: Version,
	})
}
