package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/valtok-go/internal/config"
	"github.com/yndnr/valtok-go/internal/infra/buildinfo"
	"github.com/yndnr/valtok-go/internal/infra/confloader"
	"github.com/yndnr/valtok-go/internal/infra/shutdown"
	"github.com/yndnr/valtok-go/internal/server/httpserver"
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
	"github.com/yndnr/valtok-go/internal/telemetry/metric"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
	"github.com/yndnr/valtok-go/pkg/token"
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
		fmt.Printf("valtok-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting valtok-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	ring, err := config.BuildKeyRing(cfg.Keys)
	if err != nil {
		return fmt.Errorf("build key ring: %w", err)
	}
	keys := dataprotect.NewSwappable(ring)
	log.Info("key ring loaded", "keys", ring.Len(), "default_key", ring.DefaultKeyID().String())

	registry := metric.NewRegistry()
	if err := registry.Register(metric.NewKeyRingCollector(keys.Load)); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	provider, err := token.NewProvider(keys,
		token.WithLifespan(cfg.Token.Lifespan),
		token.WithName(cfg.Token.ProviderName),
		token.WithSink(token.MultiSink(logger.TokenSink(log), registry)),
	)
	if err != nil {
		return fmt.Errorf("init token provider: %w", err)
	}

	rc, err := routerConfig(cfg, provider, keys, registry, log)
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}
	handler := httpserver.NewRouter(rc)
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, handler)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)

	reloader := newKeyReloader(keys, cfg.Keys, registry, log)

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	// The watcher exists even without keys.file so a reload can add one.
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return fmt.Errorf("watch keys file: %w", err)
	}
	if err := reloader.WatchFiles(watcher); err != nil {
		return fmt.Errorf("watch keys file: %w", err)
	}
	watcher.OnChange(func(string) { _ = reloader.Reload() })
	watcher.StartAsync()
	shutdownHandler.OnShutdown(func(context.Context) error {
		return watcher.Stop()
	})

	shutdownHandler.OnReload(func() {
		next, err := loadConfig(*configFile)
		if err != nil {
			log.Error("reload config failed, keeping current settings", "error", err)
			return
		}
		logger.SetLevel(next.Log.Level)
		log.Info("configuration reloaded", "log_level", logger.GetLevel())
		_ = reloader.ReloadFrom(next.Keys)
	})

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		tlsCfg := cfg.Server.HTTP
		log.Info("HTTP server listening", "addr", ln.Addr().String(), "tls", tlsCfg.TLSCertFile != "")
		if tlsCfg.TLSCertFile != "" {
			serveErr <- httpServer.ServeTLS(ln, tlsCfg.TLSCertFile, tlsCfg.TLSKeyFile)
		} else {
			serveErr <- httpServer.Serve(ln)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			log.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment and verifies it.
func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger and makes it the default.
func initLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

func routerConfig(cfg *config.Config, provider *token.Provider, keys *dataprotect.Swappable, registry *metric.Registry, log logger.Logger) (*httpserver.RouterConfig, error) {
	trusted, err := httpserver.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	rc := httpserver.DefaultRouterConfig()
	rc.Tokens = provider
	rc.Stamps = token.NewStampGenerator(nil)
	rc.Ready = func() bool { return keys.Load() != nil }
	rc.Logger = log
	rc.APIKeys = cfg.Server.APIKeys
	rc.RateLimit = cfg.Server.RateLimit
	rc.RateBurst = cfg.Server.RateBurst
	rc.TrustedProxies = trusted
	rc.OnRateLimited = registry.IncRateLimited
	rc.Recorder = registry
	if cfg.Server.MetricsEnabled {
		rc.MetricsHandler = registry.Handler()
		rc.MetricsAuthRequired = len(cfg.Server.APIKeys) > 0
	}
	return rc, nil
}
