package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coagronet/console/internal/domain/cascade"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// CascadeConfig configures the dependent-selection chains.
type CascadeConfig struct {
	AutoSelectSingle bool
	StalePolicy      cascade.StalePolicy
	// IdleTTL drops chains unused for this long. Zero keeps them until the
	// session is cleared.
	IdleTTL time.Duration
}

type chainKey struct {
	session string
	chain   string
}

type chainEntry struct {
	chain    *cascade.Chain
	lastUsed time.Time
}

// CascadeService keeps one chain per (session, chain name) in memory.
type CascadeService struct {
	base
	defs      *cascade.Catalog
	resources *resource.Catalog
	gateway   ResourceGateway
	cfg       CascadeConfig

	mu     sync.Mutex
	chains map[chainKey]*chainEntry
}

// NewCascadeService creates a CascadeService.
func NewCascadeService(
	defs *cascade.Catalog,
	resources *resource.Catalog,
	gateway ResourceGateway,
	store session.Store,
	cfg CascadeConfig,
	loc *notify.Localizer,
	opts ...Option,
) *CascadeService {
	return &CascadeService{
		base:      newBase(store, loc, opts),
		defs:      defs,
		resources: resources,
		gateway:   gateway,
		cfg:       cfg,
		chains:    make(map[chainKey]*chainEntry),
	}
}

// Names returns the chain names.
func (s *CascadeService) Names() []string {
	return s.defs.Names()
}

type tokenKey struct{}

// fetcher lists a resource with the token of the request that triggered the
// fetch. Chains outlive requests, so the token is not captured.
func (s *CascadeService) fetcher(name string) cascade.FetchFunc {
	d, ok := s.resources.Get(name)
	if !ok {
		return nil
	}
	return func(ctx context.Context, parentID int64) ([]cascade.Option, error) {
		token, _ := ctx.Value(tokenKey{}).(string)
		page, err := s.gateway.List(ctx, token, d, 0, 0, parentID)
		if err != nil {
			return nil, err
		}
		opts := make([]cascade.Option, 0, len(page.Items))
		for _, rec := range page.Items {
			id, ok := rec.ID()
			if !ok {
				continue
			}
			opts = append(opts, cascade.Option{ID: id, Label: rec.Label()})
		}
		return opts, nil
	}
}

// chain returns the session's chain, creating it on first use. created
// reports whether it is new.
func (s *CascadeService) chain(ctx context.Context, sid, name string) (*cascade.Chain, bool, error) {
	def, ok := s.defs.Get(name)
	if !ok {
		return nil, false, s.fail.unknown(ctx, ErrUnknownChain, name)
	}
	key := chainKey{session: auth.HashSessionID(sid), chain: name}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	if e, ok := s.chains[key]; ok {
		e.lastUsed = now
		return e.chain, false, nil
	}
	c, err := def.Build(s.fetcher, s.cfg.AutoSelectSingle, s.cfg.StalePolicy)
	if err != nil {
		return nil, false, s.fail.internal(ctx, err, notify.MsgLoadFailed, name)
	}
	s.chains[key] = &chainEntry{chain: c, lastUsed: now}
	s.metrics.SetCascadeChains(len(s.chains))
	return c, true, nil
}

func (s *CascadeService) prepare(ctx context.Context, sid, name string) (context.Context, *cascade.Chain, bool, error) {
	token, _, err := s.token(ctx, sid)
	if err != nil {
		return ctx, nil, false, err
	}
	c, created, err := s.chain(ctx, sid, name)
	if err != nil {
		return ctx, nil, false, err
	}
	return context.WithValue(ctx, tokenKey{}, token), c, created, nil
}

// State returns the chain, loading the root level the first time.
func (s *CascadeService) State(ctx context.Context, sid, name string) (*CascadeView, error) {
	ctx, c, created, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	var fetchErr error
	if created || !c.Snapshot()[0].Loaded {
		fetchErr = c.Load(ctx)
	}
	return s.view(ctx, c, fetchErr)
}

// Select picks id at the named level and loads the level below it.
func (s *CascadeService) Select(ctx context.Context, sid, name, level string, id int64) (*CascadeView, error) {
	ctx, c, _, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	idx, ok := c.LevelIndex(level)
	if !ok {
		return nil, s.fail.invalid(ctx, fmt.Errorf("%w: level %q", cascade.ErrLevelOutOfRange, level), notify.MsgLoadFailed, level)
	}
	return s.view(ctx, c, c.Select(ctx, idx, id))
}

// Clear drops every selection of the chain. The root options are kept, or
// loaded when they never were.
func (s *CascadeService) Clear(ctx context.Context, sid, name string) (*CascadeView, error) {
	ctx, c, _, err := s.prepare(ctx, sid, name)
	if err != nil {
		return nil, err
	}
	c.Clear()
	var fetchErr error
	if !c.Snapshot()[0].Loaded {
		fetchErr = c.Load(ctx)
	}
	return s.view(ctx, c, fetchErr)
}

// view snapshots c. A failed fetch becomes a notification; a superseded
// selection is not an error for the caller.
func (s *CascadeService) view(ctx context.Context, c *cascade.Chain, opErr error) (*CascadeView, error) {
	v := &CascadeView{Chain: c.Name()}
	var fetchErr *cascade.FetchError
	switch {
	case opErr == nil, errors.Is(opErr, cascade.ErrSuperseded):
	case errors.As(opErr, &fetchErr):
		label := s.levelLabel(c.Name(), fetchErr.Level)
		s.log(ctx).Warn("Cascade level failed to load",
			zap.String("chain", c.Name()),
			zap.String("level", fetchErr.Level),
			zap.Error(fetchErr.Err))
		n := s.fail.upstream(ctx, fetchErr.Err, notify.MsgLoadFailed, label).Notification
		v.Notification = &n
	case errors.Is(opErr, cascade.ErrLevelOutOfRange),
		errors.Is(opErr, cascade.ErrParentNotSelected),
		errors.Is(opErr, cascade.ErrUnknownOption):
		return nil, s.fail.invalid(ctx, opErr, notify.MsgLoadFailed, c.Name())
	default:
		return nil, s.fail.internal(ctx, opErr, notify.MsgLoadFailed, c.Name())
	}
	v.Levels = c.Snapshot()
	return v, nil
}

// levelLabel names a level by its resource's display label.
func (s *CascadeService) levelLabel(chain, level string) string {
	def, ok := s.defs.Get(chain)
	if !ok {
		return level
	}
	for _, l := range def.Levels {
		if l.Name != level {
			continue
		}
		if d, ok := s.resources.Get(l.Resource); ok && d.Label != "" {
			return d.Label
		}
	}
	return level
}

// Forget drops every chain of sid.
func (s *CascadeService) Forget(sid string) {
	hashed := auth.HashSessionID(sid)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.chains {
		if k.session == hashed {
			delete(s.chains, k)
		}
	}
	s.metrics.SetCascadeChains(len(s.chains))
}

// Sweep drops chains idle for longer than the configured TTL and returns
// how many were dropped.
func (s *CascadeService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *CascadeService) sweepLocked(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	dropped := 0
	for k, e := range s.chains {
		if now.Sub(e.lastUsed) > s.cfg.IdleTTL {
			delete(s.chains, k)
			dropped++
		}
	}
	if dropped > 0 {
		s.metrics.SetCascadeChains(len(s.chains))
	}
	return dropped
}

// Len returns the number of live chains.
func (s *CascadeService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}

// RunJanitor sweeps idle chains every interval until ctx is done.
func (s *CascadeService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Dropped idle cascade chains", zap.Int("count", n))
			}
		}
	}
}
