package console

import (
	"context"
	"fmt"
	"time"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Option configures a service.
type Option func(*base)

// WithLogger sets the fallback logger. Request-scoped loggers in the
// context take precedence.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the domain metrics sink.
func WithMetrics(m Metrics) Option {
	return func(b *base) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithClock replaces the time source.
func WithClock(now Clock) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSessionReset registers a callback run after a session is wiped or its
// token is replaced. Anything cached under the old token must go.
func WithSessionReset(fn func(sid string)) Option {
	return func(b *base) {
		if fn != nil {
			b.onReset = append(b.onReset, fn)
		}
	}
}

// base carries what every service shares.
type base struct {
	store   session.Store
	loc     *notify.Localizer
	fail    failures
	metrics Metrics
	logger  *zap.Logger
	now     Clock
	onReset []func(sid string)
}

func newBase(store session.Store, loc *notify.Localizer, opts []Option) base {
	if loc == nil {
		loc = notify.NewLocalizer()
	}
	b := base{
		store:   store,
		loc:     loc,
		fail:    failures{loc: loc},
		metrics: nopMetrics{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// log prefers the request logger attached by the HTTP middleware.
func (b *base) log(ctx context.Context) *zap.Logger {
	if l := logger.FromContext(ctx); l.Core().Enabled(zap.ErrorLevel) {
		return logger.L(ctx)
	}
	return logger.Enrich(ctx, b.logger)
}

func (b *base) load(ctx context.Context, sid string) (session.Values, error) {
	v, err := b.store.Load(ctx, sid)
	if err != nil {
		b.log(ctx).Error("Failed to load session", zap.Error(err))
		return nil, b.fail.session(ctx, fmt.Errorf("load session: %w", err))
	}
	return v, nil
}

// token returns the stored token, failing with ErrMissingToken when it is
// absent or expired.
func (b *base) token(ctx context.Context, sid string) (string, session.Values, error) {
	v, err := b.load(ctx, sid)
	if err != nil {
		return "", nil, err
	}
	if !v.TokenValid(b.now()) {
		return "", v, b.fail.missingToken(ctx)
	}
	return v.Get(session.KeyToken), v, nil
}

func (b *base) apply(ctx context.Context, sid string, u session.Update) error {
	if err := b.store.Apply(ctx, sid, u); err != nil {
		b.log(ctx).Error("Failed to write session", zap.Error(err))
		return b.fail.session(ctx, fmt.Errorf("write session: %w", err))
	}
	return nil
}

func (b *base) clear(ctx context.Context, sid string) error {
	if err := b.store.Clear(ctx, sid); err != nil {
		b.log(ctx).Error("Failed to clear session", zap.Error(err))
		return b.fail.session(ctx, fmt.Errorf("clear session: %w", err))
	}
	b.reset(sid)
	return nil
}

func (b *base) reset(sid string) {
	for _, fn := range b.onReset {
		fn(sid)
	}
}

// outcome maps a failure to a metrics label.
func outcome(f *Failure) string {
	switch f.Code {
	case CodeUpstream, CodeUpstreamOffline, CodeInternal:
		return OutcomeError
	}
	return OutcomeRejected
}
