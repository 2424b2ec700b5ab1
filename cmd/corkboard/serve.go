package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/corkboard-dev/corkboard/internal/config"
	"github.com/corkboard-dev/corkboard/pkg/persist"
	"github.com/corkboard-dev/corkboard/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		address    string
		dataDir    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync server",
		Long: `Start the sync server.

Loads corkboard.json from the working directory (or --config),
restores the last snapshot, and serves the HTTP and WebSocket
endpoints until interrupted.

Examples:
  corkboard serve
  corkboard serve --address=:9000
  corkboard serve --config=/etc/corkboard/corkboard.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, address, dataDir, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigFileName, "Path to configuration file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "Snapshot directory (overrides config)")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func runServe(configPath, address, dataDir, logLevel string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if dataDir != "" {
		cfg.Persistence.Dir = dataDir
	}

	logger := newLogger(logLevel)
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(&server.Config{
		Address:           cfg.Server.Address,
		ReadTimeout:       cfg.Server.ReadTimeout(),
		WriteTimeout:      cfg.Server.WriteTimeout(),
		HeartbeatInterval: cfg.Sync.Heartbeat(),
		EditingTTL:        cfg.Sync.EditingTTL(),
		SaveInterval:      cfg.Persistence.SaveInterval(),
		MaxSessions:       cfg.Sync.MaxSessions,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout(),
	}, backend, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildBackend constructs the snapshot store named by the configuration.
func buildBackend(cfg *config.Config, logger *slog.Logger) (persist.Store, error) {
	switch cfg.Persistence.Backend {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		store := persist.NewS3Store(client, cfg.Persistence.Bucket, cfg.Persistence.Prefix, logger).
			WithRetry(cfg.Persistence.MaxRetries, cfg.Persistence.RetryBackoff())
		return store, nil

	default:
		store := persist.NewFileStore(cfg.Persistence.Dir, logger).
			WithRetry(cfg.Persistence.MaxRetries, cfg.Persistence.RetryBackoff())
		return store, nil
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
