package console

import (
	"context"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"go.uber.org/zap"
)

// NavigationService resolves navigation events and keeps the UI state stored
// in the session.
type NavigationService struct {
	base
	resolver *screen.Resolver
}

// NewNavigationService creates a NavigationService.
func NewNavigationService(resolver *screen.Resolver, store session.Store, loc *notify.Localizer, opts ...Option) *NavigationService {
	return &NavigationService{
		base:     newBase(store, loc, opts),
		resolver: resolver,
	}
}

// Resolve returns the screen to mount for rawLocation. When the rules ask
// for it, the session is wiped before returning.
func (s *NavigationService) Resolve(ctx context.Context, sid, rawLocation string) (screen.Resolution, error) {
	values, err := s.load(ctx, sid)
	if err != nil {
		return screen.Resolution{}, err
	}
	path, query := screen.ParseLocation(rawLocation)
	res := s.resolver.Resolve(screen.Request{Path: path, Query: query, Session: values, Now: s.now()})

	if res.ClearSession {
		// An expired store entry may still have state cached beside it.
		if len(values) == 0 {
			s.reset(sid)
			return res, nil
		}
		if err := s.clear(ctx, sid); err != nil {
			return screen.Resolution{}, err
		}
		s.log(ctx).Debug("Session cleared on navigation", zap.String("path", path))
	}
	return res, nil
}

// Session returns the current session view.
func (s *NavigationService) Session(ctx context.Context, sid string) (*SessionView, error) {
	values, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	st := values.State()
	return &SessionView{
		Authenticated: st.Authenticated(s.now()),
		State:         st,
		Companies:     session.Companies(st.RolesByCompany),
	}, nil
}

// SetActiveModule records the screen the user is on. name may be the
// screen's URL name or its registry key.
func (s *NavigationService) SetActiveModule(ctx context.Context, sid, name string) (screen.Screen, error) {
	if _, _, err := s.token(ctx, sid); err != nil {
		return 0, err
	}
	sc, ok := screen.ParseName(name)
	if !ok {
		sc, ok = screen.ParseKey(name)
	}
	if !ok || (sc.Public() && !sc.Onboarding()) {
		return 0, s.fail.unknown(ctx, ErrUnknownResource, name)
	}
	if err := s.apply(ctx, sid, session.ActiveModuleUpdate(sc.Key())); err != nil {
		return 0, err
	}
	return sc, nil
}

// SetPreferences stores the UI flags and returns the updated state.
func (s *NavigationService) SetPreferences(ctx context.Context, sid string, prefs session.Preferences) (session.State, error) {
	if u := session.PreferencesUpdate(prefs); !u.Empty() {
		if err := s.apply(ctx, sid, u); err != nil {
			return session.State{}, err
		}
	}
	values, err := s.load(ctx, sid)
	if err != nil {
		return session.State{}, err
	}
	return values.State(), nil
}
