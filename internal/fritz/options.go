package fritz

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// options is shared by Authenticator, Graph and Info. Each constructor reads
// the fields it needs.
type options struct {
	fetcher      Fetcher
	observer     Observer
	log          *zap.Logger
	now          func() time.Time
	sleep        func(context.Context, time.Duration) error
	validity     time.Duration
	maxTries     int
	pollInterval time.Duration
}

// Option configures an Authenticator, Graph or Info client.
type Option func(*options)

func defaultOptions() options {
	return options{
		fetcher:      NewHTTPFetcher(DefaultRequestTimeout),
		log:          zap.NewNop(),
		now:          time.Now,
		sleep:        sleepContext,
		validity:     TokenValidity,
		maxTries:     MaxAuthTries,
		pollInterval: SampleInterval,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		if f != nil {
			o.fetcher = f
		}
	}
}

// WithObserver installs an event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the logger used for retry and cooldown diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSleeper overrides the context-aware sleep used for block-time backoff.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithTokenValidity sets how long an issued token is trusted.
func WithTokenValidity(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.validity = d
		}
	}
}

// WithMaxTries sets the per-call authentication attempt budget.
func WithMaxTries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTries = n
		}
	}
}

// WithPollInterval sets the expected time between graph polls. New samples
// found on a warm poll are spread over it.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
