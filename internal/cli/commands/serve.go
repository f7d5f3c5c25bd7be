package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/auth"
	"github.com/metaforge-dev/metaforge/internal/cache"
	"github.com/metaforge-dev/metaforge/internal/catalog"
	"github.com/metaforge-dev/metaforge/internal/cli/config"
	"github.com/metaforge-dev/metaforge/internal/inspector"
	"github.com/metaforge-dev/metaforge/internal/object"
	"github.com/metaforge-dev/metaforge/internal/pattern"
	"github.com/metaforge-dev/metaforge/internal/provider"
	"github.com/metaforge-dev/metaforge/internal/provider/postgres"
	"github.com/metaforge-dev/metaforge/internal/provider/sqlitestore"
	"github.com/metaforge-dev/metaforge/internal/router"
	"github.com/metaforge-dev/metaforge/internal/server"
)

const shutdownGrace = 10 * time.Second

var (
	serveTCP    string
	serveSocket string
	serveHTTP   string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metaforge daemon",
		Long: `Start the daemon and serve the action protocol until interrupted.

The daemon reads metaforge.yml (or --config) for its provider, cache,
listener, and pattern settings. Environment variables with the
METAFORGE_ prefix override file values.

Examples:
  metaforge serve
  metaforge serve --tcp 0.0.0.0:7171
  metaforge serve --socket /tmp/metaforge.sock --http 127.0.0.1:8080`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveTCP, "tcp", "", "TCP listen address (overrides config)")
	cmd.Flags().StringVar(&serveSocket, "socket", "", "Unix socket path (overrides config)")
	cmd.Flags().StringVar(&serveHTTP, "http", "", "HTTP gateway address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	infoColor := color.New(color.FgCyan)
	successColor := color.New(color.FgGreen, color.Bold)
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("tcp") {
		cfg.Server.TCPAddr = serveTCP
	}
	if cmd.Flags().Changed("socket") {
		cfg.Server.SocketPath = serveSocket
	}
	if cmd.Flags().Changed("http") {
		cfg.Server.HTTPAddr = serveHTTP
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Signal context governs the wait below, not the listeners: shutdown
	// stays graceful because the server is stopped by Shutdown, not by
	// context cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov, err := openProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := prov.(io.Closer); ok {
		defer closer.Close()
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	cat := catalog.NewWithConfig(prov, store, logger, catalog.Config{TTL: cfg.Cache.TTL})
	factory := object.NewFactory(cat, prov, logger)
	ins := inspector.NewWithConfig(cat, factory, inspector.Config{
		MaxItems:       cfg.Inspector.MaxItems,
		MaxIdentifiers: cfg.Inspector.MaxIdentifiers,
		MaxDepth:       cfg.Inspector.MaxDepth,
	}, logger)

	lib := pattern.NewLibrary(cfg.Patterns.Dir, logger)
	if err := lib.Load(); err != nil {
		return err
	}
	if cfg.Patterns.Watch {
		if err := lib.Watch(ctx); err != nil {
			logger.Warn("pattern watching disabled", zap.Error(err))
		}
	}
	builder := pattern.NewBuilder(factory, logger)

	r := router.New(logger)
	router.RegisterBuiltins(r, cat, factory, ins, lib, builder)

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		authSvc = auth.New(cfg.Auth.AccessKeyHash, cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, logger)
		router.RegisterAuthActions(r, authSvc)
	}

	srv := server.New(server.Config{
		TCPAddr:      cfg.Server.TCPAddr,
		SocketPath:   cfg.Server.SocketPath,
		HTTPAddr:     cfg.Server.HTTPAddr,
		Workers:      cfg.Server.Workers,
		QueueDepth:   cfg.Server.QueueDepth,
		MaxLineBytes: cfg.Server.MaxLineBytes,
	}, r, authSvc, logger)

	if err := srv.Start(context.Background()); err != nil {
		return err
	}

	infoColor.Fprintln(out, "metaforge daemon started")
	if addr := srv.TCPAddr(); addr != "" {
		fmt.Fprintf(out, "  tcp:    %s\n", addr)
	}
	if cfg.Server.SocketPath != "" {
		fmt.Fprintf(out, "  unix:   %s\n", cfg.Server.SocketPath)
	}
	if addr := srv.HTTPAddr(); addr != "" {
		fmt.Fprintf(out, "  http:   %s\n", addr)
	}
	fmt.Fprintf(out, "  driver: %s, cache: %s\n", cfg.Provider.Driver, cfg.Cache.Backend)
	infoColor.Fprintln(out, "Press Ctrl+C to stop")

	<-ctx.Done()
	stop()

	infoColor.Fprintln(out, "\nShutting down...")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown did not complete: %w", err)
	}

	successColor.Fprintln(out, "✓ Daemon stopped")
	return nil
}

// newLogger builds the daemon logger from the configured level and
// format. "console" uses the development encoder, "json" the production
// one.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// openProvider builds the configured metadata provider. SQL drivers are
// migrated on startup so a fresh database is immediately usable; the
// memory driver optionally preloads a seed file.
func openProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (provider.Provider, error) {
	switch cfg.Provider.Driver {
	case "memory":
		if cfg.Provider.SeedFile != "" {
			prov, err := provider.NewMemoryFromSeedFile(cfg.Provider.SeedFile)
			if err != nil {
				return nil, err
			}
			logger.Info("memory provider seeded",
				zap.String("file", cfg.Provider.SeedFile))
			return prov, nil
		}
		logger.Warn("memory provider started empty; set provider.seed_file to load a schema")
		return provider.NewMemory(), nil

	case "postgres":
		prov, err := postgres.Open(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		if err := prov.Migrate(ctx); err != nil {
			prov.Close()
			return nil, err
		}
		return prov, nil

	case "sqlite":
		prov, err := sqlitestore.Open(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		if err := prov.Migrate(ctx); err != nil {
			prov.Close()
			return nil, err
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unknown provider driver %q", cfg.Provider.Driver)
	}
}

// openCache builds the configured catalog cache backend.
func openCache(cfg *config.Config) (cache.Cache, error) {
	common := cache.DefaultConfig()
	if cfg.Cache.TTL > 0 {
		common.DefaultTTL = cfg.Cache.TTL
	}

	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCacheWithConfig(common), nil
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Cache:    common,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
