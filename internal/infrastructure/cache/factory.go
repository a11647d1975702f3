package cache

import (
	"errors"
	"fmt"
	"io"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SQLStoreProvider opens the SQL-backed session store. It lives in the
// persistence package, so the factory receives it from the caller.
type SQLStoreProvider func() (session.Store, io.Closer, error)

// SessionStoreFactory creates the session store selected in configuration
type SessionStoreFactory struct {
	sessionCfg            config.SessionConfig
	redisCfg              config.RedisConfig
	logger                *zap.Logger
	sqlProvider           SQLStoreProvider
	observer              StoreObserver
	allowInMemoryFallback bool
}

// SessionStoreFactoryOption is a functional option for the factory
type SessionStoreFactoryOption func(*SessionStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.logger = logger
	}
}

// WithSQLStore registers the provider used for backend "sql"
func WithSQLStore(p SQLStoreProvider) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.sqlProvider = p
	}
}

// WithStoreObserver wraps the created store in an InstrumentedStore.
func WithStoreObserver(o StoreObserver) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.observer = o
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory store. Off by default: sessions would silently stop being
// shared between instances.
func WithInMemoryFallback(allow bool) SessionStoreFactoryOption {
	return func(f *SessionStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSessionStoreFactory creates a new factory
func NewSessionStoreFactory(sessionCfg config.SessionConfig, redisCfg config.RedisConfig, opts ...SessionStoreFactoryOption) *SessionStoreFactory {
	f := &SessionStoreFactory{
		sessionCfg: sessionCfg,
		redisCfg:   redisCfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create opens the configured store. The returned closer releases its
// connections.
func (f *SessionStoreFactory) Create() (session.Store, io.Closer, error) {
	s, closer, backend, err := f.create()
	if err != nil {
		return nil, nil, err
	}
	if f.observer != nil {
		return NewInstrumentedStore(s, backend, f.observer), closer, nil
	}
	return s, closer, nil
}

func (f *SessionStoreFactory) create() (session.Store, io.Closer, string, error) {
	switch f.sessionCfg.Backend {
	case "memory", "":
		f.logger.Info("Using in-memory session store")
		s := NewInMemorySessionStore(f.sessionCfg.TTL)
		return s, s, "memory", nil

	case "redis":
		s, err := NewRedisSessionStore(f.redisCfg, f.sessionCfg.KeyPrefix, f.sessionCfg.TTL)
		if err != nil {
			if !f.allowInMemoryFallback {
				return nil, nil, "", err
			}
			f.logger.Warn("Redis unavailable, falling back to in-memory session store", zap.Error(err))
			m := NewInMemorySessionStore(f.sessionCfg.TTL)
			return m, m, "memory", nil
		}
		f.logger.Info("Using Redis session store", zap.String("addr", f.redisCfg.Addr()))
		return s, s, "redis", nil

	case "sql":
		if f.sqlProvider == nil {
			return nil, nil, "", errors.New("sql session backend selected but no SQL store provider registered")
		}
		f.logger.Info("Using SQL session store")
		s, closer, err := f.sqlProvider()
		return s, closer, "sql", err
	}
	return nil, nil, "", fmt.Errorf("unknown session backend %q", f.sessionCfg.Backend)
}
