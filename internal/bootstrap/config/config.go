package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
)

const EnvPrefix = "YFMCP"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Market   MarketConfig   `mapstructure:"market"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Yahoo    YahooConfig    `mapstructure:"yahoo"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MarketConfig struct {
	Default string `mapstructure:"default"`
}

type CacheConfig struct {
	Dir           string         `mapstructure:"dir"`
	File          string         `mapstructure:"file"`
	SweepInterval time.Duration  `mapstructure:"sweep_interval"`
	TTL           map[string]int `mapstructure:"ttl"`
}

// Path is the cache database file inside Dir.
func (c CacheConfig) Path() string {
	return filepath.Join(c.Dir, c.File)
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type YahooConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	CookieURL string        `mapstructure:"cookie_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v, err := read(logCtx, configFile)
	if err != nil {
		return Config{}, err
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("market", cfg.Market.Default),
		slog.String("cache_path", cfg.Cache.Path()),
		slog.String("database_driver", cfg.Database.Driver),
	)

	return cfg, nil
}

// Watch reloads the config file on change and hands every valid result to
// onChange. It does nothing when no config file is in use.
func Watch(ctx context.Context, configFile string, onChange func(Config)) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if onChange == nil {
		return errors.New("onChange is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v, err := read(logCtx, configFile)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		logging.Debug(logCtx, "no config file to watch")
		return nil
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		logging.Debug(logCtx, "config file not present, skip watching", slog.String("path", v.ConfigFileUsed()))
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			logging.Warn(logCtx, "config reload rejected", slog.String("path", e.Name), slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(logCtx, "config reloaded", slog.String("path", e.Name), slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()

	logging.Info(logCtx, "watching config file", slog.String("path", v.ConfigFileUsed()))
	return nil
}

func read(ctx context.Context, configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(ctx, v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Variables understood by earlier releases of the server.
	_ = v.BindEnv("cache.dir", EnvPrefix+"_CACHE_DIR", "YFINANCE_CACHE_DIR")
	_ = v.BindEnv("market.default", EnvPrefix+"_MARKET_DEFAULT", "YFINANCE_DEFAULT_MARKET")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Debug(ctx, "config file not found, fallback to defaults and env")
		} else {
			return nil, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(ctx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	dir, err := ExpandHome(cfg.Cache.Dir)
	if err != nil {
		return Config{}, errs.Wrap(err, "expand cache.dir")
	}
	cfg.Cache.Dir = dir
	if cfg.Cache.File == "" {
		cfg.Cache.File = "cache.db"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = cfg.Cache.Path()
	}

	cfg.Market.Default = strings.ToUpper(strings.TrimSpace(cfg.Market.Default))
	if !market.IsSupportedMarket(cfg.Market.Default) {
		return Config{}, fmt.Errorf("market.default %q is not supported (supported: %s)",
			cfg.Market.Default, strings.Join(market.SupportedMarkets(), ", "))
	}

	cfg.Cache.TTL = normalizeTTL(cfg.Cache.TTL)
	for class, seconds := range cfg.Cache.TTL {
		if seconds <= 0 {
			return Config{}, fmt.Errorf("cache.ttl.%s must be positive, got %d", class, seconds)
		}
	}

	switch cfg.Server.Transport {
	case "stdio", "http":
	default:
		return Config{}, fmt.Errorf("server.transport %q is not supported (stdio or http)", cfg.Server.Transport)
	}

	return cfg, nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "yfmcp")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("market.default", "US")
	v.SetDefault("cache.dir", "~/.mcp-yfinance")
	v.SetDefault("cache.file", "cache.db")
	v.SetDefault("cache.sweep_interval", "10m")
	for class, seconds := range market.DefaultTTLSeconds() {
		v.SetDefault("cache.ttl."+class, seconds)
	}
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("yahoo.user_agent", "")
	v.SetDefault("yahoo.timeout", "30s")
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.addr", "127.0.0.1:8765")
}

// viper lower-cases keys; normalizeTTL also trims stray whitespace.
func normalizeTTL(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for class, seconds := range in {
		out[strings.ToLower(strings.TrimSpace(class))] = seconds
	}
	return out
}

// ExpandHome resolves a leading "~" to the user's home directory.
func ExpandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
