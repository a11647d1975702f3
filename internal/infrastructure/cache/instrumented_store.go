package cache

import (
	"context"
	"time"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
)

// StoreObserver receives one record per session store call.
type StoreObserver interface {
	ObserveStore(ctx context.Context, backend, op string, d time.Duration, err error)
}

// InstrumentedStore wraps a session.Store with metrics and spans.
type InstrumentedStore struct {
	next     session.Store
	backend  string
	observer StoreObserver
}

// NewInstrumentedStore wraps next. backend labels the metrics
// (memory, redis, sql).
func NewInstrumentedStore(next session.Store, backend string, observer StoreObserver) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend, observer: observer}
}

func (s *InstrumentedStore) observe(ctx context.Context, op string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveStore(ctx, s.backend, op, time.Since(start), err)
	}
}

// Load implements session.Store.
func (s *InstrumentedStore) Load(ctx context.Context, sid string) (session.Values, error) {
	ctx, span := telemetry.StartSpan(ctx, "session.load", telemetry.WithAttribute("session.backend", s.backend))
	defer span.End()

	start := time.Now()
	v, err := s.next.Load(ctx, sid)
	s.observe(ctx, "load", start, err)
	telemetry.RecordError(span, err)
	return v, err
}

// Apply implements session.Store.
func (s *InstrumentedStore) Apply(ctx context.Context, sid string, u session.Update) error {
	ctx, span := telemetry.StartSpan(ctx, "session.apply",
		telemetry.WithAttribute("session.backend", s.backend),
		telemetry.WithAttribute("session.keys", len(u.Set)+len(u.Delete)),
	)
	defer span.End()

	start := time.Now()
	err := s.next.Apply(ctx, sid, u)
	s.observe(ctx, "apply", start, err)
	telemetry.RecordError(span, err)
	return err
}

// Clear implements session.Store.
func (s *InstrumentedStore) Clear(ctx context.Context, sid string) error {
	ctx, span := telemetry.StartSpan(ctx, "session.clear", telemetry.WithAttribute("session.backend", s.backend))
	defer span.End()

	start := time.Now()
	err := s.next.Clear(ctx, sid)
	s.observe(ctx, "clear", start, err)
	telemetry.RecordError(span, err)
	return err
}

var _ session.Store = (*InstrumentedStore)(nil)
