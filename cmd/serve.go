package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Twe-ux/arc-messenger/internal/config"
	"github.com/Twe-ux/arc-messenger/internal/gmail"
	"github.com/Twe-ux/arc-messenger/internal/history"
	"github.com/Twe-ux/arc-messenger/internal/logging"
	"github.com/Twe-ux/arc-messenger/internal/server"
	"github.com/Twe-ux/arc-messenger/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the messaging API server",
		Long: `Start the HTTP API server that backs the messenger frontend.

Configuration is read from the environment (a local .env file is merged
in during development). GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and
JWT_SECRET are required; everything else has defaults.

The API listens on LISTEN_ADDR (default :8080). Prometheus metrics are
served on a dedicated port (METRICS_ADDR, default :9090) so operational
data stays off the public surface.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting arc-messenger",
		slog.String("version", version),
		slog.String("addr", cfg.ListenAddr))

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing user store", logging.Err(err))
		}
	}()

	// The SQLite store is the history baseline store unless a shared
	// Valkey instance is configured for multi-replica deployments.
	var historyStore history.Store = st
	if cfg.ValkeyAddr != "" {
		vs, err := history.NewValkeyStore(cfg.ValkeyAddr)
		if err != nil {
			return fmt.Errorf("failed to connect history store: %w", err)
		}
		defer vs.Close()
		historyStore = vs
		logger.Info("using valkey history store", slog.String("addr", cfg.ValkeyAddr))
	}

	factory := server.NewGmailServiceFactory(st, gmail.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, logger)

	srv := server.New(cfg, logger, factory, st, historyStore)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
