package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/infra/confloader"
	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/infra/tlsroots"
	"github.com/yndnr/respkv-go/internal/server/config"
	"github.com/yndnr/respkv-go/internal/server/httpserver"
	"github.com/yndnr/respkv-go/internal/server/localserver"
	"github.com/yndnr/respkv-go/internal/server/redisserver"
	"github.com/yndnr/respkv-go/internal/storage/memory"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("respkv-server %s\n", buildinfo.String())
		return nil
	}

	loader := newLoader(*configFile)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logOutput := initLogger(cfg)
	if logOutput != nil {
		defer logOutput.Close()
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.New(
		memory.WithChannelCapacity(cfg.Storage.ChannelCapacity),
		memory.WithSweepInterval(cfg.Storage.SweepInterval),
		memory.WithLogger(slogLogger),
	)
	go store.Run(ctx)

	registry := metric.NewRegistry()
	registry.MustRegister(metric.NewStoreCollector(func() metric.StoreSnapshot {
		return metric.StoreSnapshot(store.Stats())
	}))

	redisCfg, err := redisConfig(ctx, cfg, slogLogger)
	if err != nil {
		return fmt.Errorf("init tls: %w", err)
	}
	resp := redisserver.New(redisCfg, store,
		redisserver.WithLogger(slogLogger),
		redisserver.WithMetrics(registry),
	)

	shutdownHandler := shutdown.NewHandler(cfg.Shutdown.Timeout)

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("closing store")
		store.Close()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RESP server")
		return resp.Shutdown(ctx)
	})

	if err := resp.Start(ctx); err != nil {
		return fmt.Errorf("start resp server: %w", err)
	}
	if cfg.Server.Local.Enabled {
		if err := startLocal(ctx, cfg, resp, log); err != nil {
			return fmt.Errorf("start local socket: %w", err)
		}
	}

	if cfg.Server.HTTP.Enabled {
		admin, err := startAdmin(cfg, registry, resp, slogLogger)
		if err != nil {
			return fmt.Errorf("start admin server: %w", err)
		}
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return admin.Shutdown(ctx)
		})
	}

	if *configFile != "" {
		watcher, err := watchConfig(loader, *configFile, log)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func newLoader(configFile string) *confloader.Loader {
	opts := []confloader.Option{confloader.WithEnvFiles(".env", ".env.local")}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(confloader.ExpandHome(configFile)))
	}
	return confloader.NewLoader(opts...)
}

// loadConfig layers every source over the defaults and validates the result.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger builds the process logger. The returned closer is non-nil
// when logs go to a rotating file.
func initLogger(cfg *config.ServerConfig) (logger.Logger, io.Closer) {
	var (
		output io.Writer = os.Stderr
		closer io.Closer
	)
	if cfg.Log.File != "" {
		w := logger.NewFileWriter(logger.FileConfig{
			Path:       confloader.ExpandHome(cfg.Log.File),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		output, closer = w, w
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: output,
	})
	logger.SetDefault(log)
	return log, closer
}

// redisConfig maps the file configuration onto the RESP server. With TLS
// enabled it also starts the certificate watcher, which stops with ctx.
func redisConfig(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger) (*redisserver.Config, error) {
	rc := cfg.Server.Redis
	out := &redisserver.Config{
		PlainEnabled: rc.Enabled,
		PlainAddress: rc.Addr,
		TLSEnabled:   rc.TLSEnabled,
		TLSAddress:   rc.TLSAddr,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		IdleTimeout:  rc.IdleTimeout,
		RateLimit:    rc.RateLimit,
		RateBurst:    rc.RateBurst,
	}
	if !rc.TLSEnabled {
		return out, nil
	}

	sec := cfg.Security
	certs, err := tlsroots.NewWatcher(
		confloader.ExpandHome(sec.TLSCertFile),
		confloader.ExpandHome(sec.TLSKeyFile),
		tlsroots.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := tlsroots.ServerConfig(certs, confloader.ExpandHome(sec.TLSCAFile))
	if err != nil {
		return nil, err
	}
	out.TLSConfig = tlsCfg

	go func() {
		if err := certs.Run(ctx); err != nil {
			log.Warn("certificate reload disabled", "error", err)
		}
	}()
	return out, nil
}

// startLocal serves RESP on the Unix socket. resp.Shutdown closes it.
func startLocal(ctx context.Context, cfg *config.ServerConfig, resp *redisserver.Server, log logger.Logger) error {
	path := confloader.ExpandHome(cfg.Server.Local.Socket)
	ln, err := localserver.Listen(ctx, path)
	if err != nil {
		return err
	}
	log.Info("local socket listening", "path", path)
	go func() {
		if err := resp.Serve(ctx, ln); err != nil {
			log.Error("local socket error", "error", err)
		}
	}()
	return nil
}

func startAdmin(cfg *config.ServerConfig, registry *metric.Registry, resp *redisserver.Server, log *slog.Logger) (*httpserver.Server, error) {
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics: registry,
		Logger:  log,
		Ready: func() error {
			if resp.Addr() == nil {
				return errors.New("resp listener not bound")
			}
			return nil
		},
		MetricsAllowList: cfg.Server.HTTP.AllowList,
	})

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		return nil, err
	}
	srv := httpserver.New(ln.Addr().String(), router)
	log.Info("HTTP server listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}()
	return srv, nil
}

// watchConfig reloads the config file on change and applies the settings
// that can change at runtime. Only the log level does today.
func watchConfig(loader *confloader.Loader, path string, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(confloader.ExpandHome(path)); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config is invalid, keeping current settings", "error", err)
			return
		}
		if next.Log.Level != logger.GetLevel() {
			logger.SetLevel(next.Log.Level)
			log.Info("log level changed", "level", next.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}
