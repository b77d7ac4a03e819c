package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/adapters/csvlog"
	"github.com/ewilliams-labs/vocalis/internal/adapters/memory"
	"github.com/ewilliams-labs/vocalis/internal/adapters/ollama"
	"github.com/ewilliams-labs/vocalis/internal/adapters/spotify"
	"github.com/ewilliams-labs/vocalis/internal/adapters/sqlite"
	"github.com/ewilliams-labs/vocalis/internal/config"
	"github.com/ewilliams-labs/vocalis/internal/core/ports"
	"github.com/ewilliams-labs/vocalis/internal/core/services"
	"github.com/ewilliams-labs/vocalis/internal/inference"
)

// openHistory picks the history adapter for the configured driver. The
// returned close function is never nil.
func openHistory(cfg *config.Config) (ports.HistoryRepository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage.Driver {
	case config.StorageSQLite, config.StorageSQLitePure:
		db, err := sqlite.NewAdapter(cfg.Storage.Driver, cfg.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	case config.StorageCSV:
		return csvlog.NewAdapter(cfg.Storage.Path), noop, nil
	case config.StorageMemory:
		return memory.NewAdapter(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// loadModels loads every artifact under the models directory. A missing
// directory or an empty one is an error.
func loadModels(cfg *config.Config, logger *slog.Logger) (*inference.Registry, error) {
	reg := inference.NewRegistry(logger)
	info, err := os.Stat(cfg.Models.Dir)
	if err != nil {
		return nil, fmt.Errorf("models directory %q: %w", cfg.Models.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("models directory %q is not a directory", cfg.Models.Dir)
	}
	n, err := reg.LoadDir(os.DirFS(cfg.Models.Dir), cfg.Models.Pattern)
	if err != nil {
		return nil, err
	}
	logger.Info("models loaded", "count", n, "dir", cfg.Models.Dir)
	return reg, nil
}

// optionalModels is loadModels for commands that work without artifacts.
func optionalModels(cfg *config.Config, logger *slog.Logger) *inference.Registry {
	reg, err := loadModels(cfg, logger)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, inference.ErrNoArtifacts) {
			logger.Warn("models unavailable", "error", err)
		}
		return nil
	}
	return reg
}

// newCompanion wires the companion service from config.
func newCompanion(ctx context.Context, cfg *config.Config, history ports.HistoryRepository, reg *inference.Registry, logger *slog.Logger) (*services.Companion, error) {
	tables, err := cfg.RuleTables()
	if err != nil {
		return nil, err
	}
	opts := []services.CompanionOption{
		services.WithLogger(logger),
		services.WithRuleTables(tables...),
		services.WithDefaultTable(cfg.Recommend.DefaultTable),
	}
	if len(cfg.Recommend.Links) > 0 {
		opts = append(opts, services.WithPlaylistLinks(cfg.Recommend.Links))
	}
	if reg != nil && cfg.Recommend.TaskModel != "" {
		if _, err := reg.Get(cfg.Recommend.TaskModel); err == nil {
			opts = append(opts, services.WithTaskModel(reg, cfg.Recommend.TaskModel))
		} else {
			logger.Debug("task model not loaded", "model", cfg.Recommend.TaskModel)
		}
	}
	if cfg.Spotify.Enabled() {
		finder := spotify.NewClientCredentials(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, "", "",
			spotify.WithRetry(cfg.Spotify.MaxRetries, time.Duration(cfg.Spotify.RetryBackoffMS)*time.Millisecond),
			spotify.WithMarket(cfg.Spotify.Market),
			spotify.WithLogger(logger),
		)
		opts = append(opts, services.WithPlaylistFinder(finder))
	}
	if cfg.Ollama.Enabled() {
		opts = append(opts, services.WithMoodClassifier(ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model)))
	}
	return services.NewCompanion(history, opts...), nil
}

// newVoice wires the voice service from config.
func newVoice(cfg *config.Config, logger *slog.Logger) (*services.Voice, error) {
	opts, err := cfg.SynthOptions()
	if err != nil {
		return nil, err
	}
	return services.NewVoice(cfg.Synth.SampleRate, opts, logger), nil
}
