package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/writingflow/internal/tui"
)

func runTUI(cmd *cobra.Command, opts *RootOptions) error {
	// The TUI owns the terminal, so logs only go to the configured file.
	e, err := openEnv(opts, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if e.cfg.Metrics.Addr != "" {
		srv := newMetricsServer(e.cfg.Metrics.Addr, e.metrics.Handler())
		go func() {
			e.log.Info().Str("addr", srv.Addr).Msg("metrics server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	engine := e.newEngine(ctx)
	defer engine.Close()

	app := tui.NewApp(e.store, engine, e.cfg.Session.DefaultDuration)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "TUI error", err)
	}
	return nil
}

func newMetricsServer(addr string, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
