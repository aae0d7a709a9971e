package form

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Option customises a Controller. Options are not parameterised by the
// extras type; New checks the values given to WithExtra and WithCalculate
// against X and panics on a mismatch.
type Option func(*config)

type config struct {
	id        string
	extra     any
	calculate any
	submit    SubmitFunc
	logger    *slog.Logger
	clock     Clock
	debounce  time.Duration
}

// WithExtra sets the initial extra context passed to validators and to the
// calculate function. Its type must match the controller's extra type.
func WithExtra[X any](extra X) Option {
	return func(cfg *config) {
		cfg.extra = extra
	}
}

// WithCalculate installs the function deriving calculated values.
func WithCalculate[X any](fn CalculateFunc[X]) Option {
	return func(cfg *config) {
		if fn == nil {
			return
		}
		cfg.calculate = fn
	}
}

// WithSubmit installs the callback used by ProcessSubmit.
func WithSubmit(fn SubmitFunc) Option {
	return func(cfg *config) {
		cfg.submit = fn
	}
}

// WithLogger routes transition and validation logs to logger. Logs are
// emitted at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithClock replaces the timer source used for debounced validation.
func WithClock(clock Clock) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.debounce = d
		}
	}
}

// WithID overrides the generated controller identifier.
func WithID(id string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cfg.id = trimmed
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
