package analysis

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Fallback runs Primary and, when it fails for any reason other than the
// text being too short, returns Secondary's result instead.
type Fallback struct {
	Primary   Analyzer
	Secondary Analyzer
	Logger    zerolog.Logger
	// OnFallback, if set, is called with the primary error each time the
	// secondary analyzer is used.
	OnFallback func(err error)
}

// WithHeuristicFallback wraps primary so the heuristic analyzer answers
// whenever primary cannot.
func WithHeuristicFallback(primary Analyzer, logger zerolog.Logger, onFallback func(error)) *Fallback {
	return &Fallback{
		Primary:    primary,
		Secondary:  Heuristic{},
		Logger:     logger,
		OnFallback: onFallback,
	}
}

func (f *Fallback) Analyze(ctx context.Context, text string) (Result, error) {
	if f.Primary == nil {
		return f.Secondary.Analyze(ctx, text)
	}

	res, err := f.Primary.Analyze(ctx, text)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrTextTooShort) {
		return Result{}, err
	}

	f.Logger.Warn().Err(err).Msg("primary analyzer failed, using fallback")
	if f.OnFallback != nil {
		f.OnFallback(err)
	}
	return f.Secondary.Analyze(ctx, text)
}
