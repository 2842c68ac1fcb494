package census

import (
	"context"
	"time"

	"github.com/warp/census-tracker/logging"
	"github.com/warp/census-tracker/metrics"
)

// Option configures the registry, ledger, aggregator and tracker.
type Option func(*options)

type options struct {
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.Metrics
}

func newOptions(opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source for created_at / collected_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Defaults to none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// withTx runs fn in a transaction when the store supports one.
func withTx(ctx context.Context, s Store, fn func(Store) error) error {
	if ts, ok := s.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(s)
}
