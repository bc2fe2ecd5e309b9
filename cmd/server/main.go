package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-presence/internal/logging"
	"github.com/Tyrowin/gochat-presence/internal/messages"
	"github.com/Tyrowin/gochat-presence/internal/metrics"
	"github.com/Tyrowin/gochat-presence/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gochat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("gochat", pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded into the environment if present")
	port := flags.String("port", "", "listen address, e.g. :8080")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	dbDriver := flags.String("db-driver", "", "sqlite or postgres")
	dbDSN := flags.String("db-dsn", "", "database connection string")
	_ = flags.Parse(os.Args[1:])

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if flags.Changed("port") {
		cfg.Port = *port
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = *dbDriver
	}
	if flags.Changed("db-dsn") {
		cfg.Database.DSN = *dbDSN
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	server.SetConfig(cfg)
	active := server.CurrentConfig()
	logger.Info("starting GoChat presence server",
		zap.String("port", active.Port),
		zap.Strings("allowed_origins", active.AllowedOrigins),
		zap.String("db_driver", active.Database.Driver))

	var (
		collector *metrics.Collector
		gatherer  prometheus.Gatherer
	)
	if active.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.New(registry)
		gatherer = registry
	}

	hub := server.NewHub(server.WithLogger(logger), server.WithMetrics(collector))
	go hub.Run()

	db, err := messages.Open(active.Database.Driver, active.Database.DSN)
	if err != nil {
		return err
	}
	store := messages.NewStore(db, hub, logger.Named("messages"))
	if err := store.Migrate(context.Background()); err != nil {
		return err
	}

	handlers := server.NewHandlers(hub, store, logger.Named("http"))
	httpServer := server.CreateServer(active.Port, server.SetupRoutes(handlers, gatherer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, active.ShutdownTimeout, logger); err != nil {
		logger.Warn("HTTP server did not shut down cleanly", zap.Error(err))
	}
	if err := hub.Shutdown(active.ShutdownTimeout); err != nil {
		logger.Warn("hub did not shut down cleanly", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// loadConfig layers defaults, the optional YAML file, and the environment.
func loadConfig(path string) (*server.Config, error) {
	cfg := server.NewConfig()
	if path != "" {
		if err := server.LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	server.ApplyEnv(cfg)
	return cfg, nil
}
