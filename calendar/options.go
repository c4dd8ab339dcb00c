package calendar

import (
	"log/slog"
	"time"

	"github.com/oernster/calendifier-sub002/calendar/cache"
	"github.com/oernster/calendifier-sub002/pkg/metrics"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache attaches the shared expansion cache. Without one, every request
// recomputes.
func WithCache(c *cache.Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithTranslator supplies localized month and weekday names.
func WithTranslator(t Translator) Option {
	return func(a *Aggregator) { a.translator = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Manager) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithMaxSpan caps the expansion range accepted for open-ended recurrence
// rules.
func WithMaxSpan(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.expander.MaxSpan = d
		}
	}
}
