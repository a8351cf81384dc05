package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/sadopc/writingflow/internal/analysis"
	"github.com/sadopc/writingflow/internal/config"
	"github.com/sadopc/writingflow/internal/logging"
	"github.com/sadopc/writingflow/internal/metrics"
	"github.com/sadopc/writingflow/internal/session"
	"github.com/sadopc/writingflow/internal/store"
)

// env is everything a command needs: resolved config, a logger, the store
// and the metrics registry.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *store.Store
	metrics *metrics.Metrics

	logCloser io.Closer
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openEnv loads configuration, sets up logging and opens the store. console
// receives log output besides the configured file; pass nil while the TUI
// owns the terminal.
func openEnv(opts *RootOptions, console io.Writer) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "set up logging", err)
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		closer.Close()
		return nil, WrapExitError(ExitFailure, "open database", err)
	}
	logger.Debug().Str("db", cfg.DBPath).Msg("database opened")

	return &env{
		cfg:       cfg,
		log:       logger,
		store:     s,
		metrics:   metrics.New(nil),
		logCloser: closer,
	}, nil
}

func (e *env) Close() error {
	return errors.Join(e.store.Close(), e.logCloser.Close())
}

// analyzer builds the configured analyzer. Ollama is always backed by the
// heuristic so a finished session still gets a summary when the server is
// down.
func (e *env) analyzer() analysis.Analyzer {
	if e.cfg.Analysis.Provider != config.ProviderOllama {
		return analysis.NewHeuristic()
	}
	primary := analysis.NewOllama(analysis.OllamaConfig{
		Endpoint: e.cfg.Analysis.Ollama.Endpoint,
		Model:    e.cfg.Analysis.Ollama.Model,
		Timeout:  e.cfg.Analysis.Ollama.Timeout,
	})
	return analysis.WithHeuristicFallback(primary, e.log, e.metrics.Fallback)
}

// inactivityThreshold prefers the value saved from the settings view over
// the configured one.
func (e *env) inactivityThreshold(ctx context.Context) time.Duration {
	d, err := e.store.GetDurationSetting(ctx, "inactivity_threshold")
	if err != nil || d <= 0 {
		return e.cfg.Session.InactivityThreshold
	}
	return d
}

func (e *env) newEngine(ctx context.Context) *session.Engine {
	return session.New(e.store,
		session.WithAnalyzer(e.analyzer()),
		session.WithLogger(e.log),
		session.WithMetrics(e.metrics),
		session.WithInactivityThreshold(e.inactivityThreshold(ctx)),
	)
}
