package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/vocalis/internal/adapters/rest"
	"github.com/ewilliams-labs/vocalis/internal/config"
	"github.com/ewilliams-labs/vocalis/internal/inference"
	"github.com/ewilliams-labs/vocalis/internal/worker"
)

// NewServeCmd creates the 'serve' command that runs the HTTP API.
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Load the configuration and every model artifact, open the history store
and serve the HTTP API until SIGINT or SIGTERM.

Startup halts when the models directory is missing or holds no artifact.`,
		Example: `  vocalis serve
  vocalis serve --addr :9090
  vocalis --config vocalis.yaml serve -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, slog.Default())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg, err := loadModels(cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot start without models: %w", err)
	}

	history, closeHistory, err := openHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeHistory()

	companion, err := newCompanion(ctx, cfg, history, reg, logger)
	if err != nil {
		return err
	}
	voice, err := newVoice(cfg, logger)
	if err != nil {
		return err
	}

	pool := worker.NewPool(worker.NewStore(cfg.Workers.RetainJobs), cfg.Workers.QueueSize, logger)
	pool.Start(cfg.Workers.Count)
	defer pool.Stop()

	if cfg.Models.Watch {
		w := inference.NewWatcher(reg, cfg.Models.Dir, cfg.Models.Pattern, logger)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("model watcher stopped", "error", err)
			}
		}()
	}

	handler := rest.NewHandler(companion, voice, reg,
		rest.WithJobs(pool),
		rest.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		rest.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	logger.Info("------------------------------------------------")
	logger.Info("🎙️ Vocalis API is running", "addr", cfg.Server.Addr, "models", reg.Len(), "storage", cfg.Storage.Driver)
	logger.Info("------------------------------------------------")

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("👋 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	return nil
}
