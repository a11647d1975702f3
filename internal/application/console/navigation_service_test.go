package console

import (
	"errors"
	"testing"
	"time"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNavigationService(store session.Store, opts ...Option) *NavigationService {
	opts = append([]Option{WithClock(testClock)}, opts...)
	return NewNavigationService(screen.NewResolver(screen.DefaultRoutes()), store, notify.NewLocalizer(), opts...)
}

func TestNavigationService_Resolve(t *testing.T) {
	ctx := testCtx()

	t.Run("signed in on a registry screen", func(t *testing.T) {
		store := newTestStore(t)
		signIn(t, store, pairFinca)
		require.NoError(t, store.Apply(ctx, testSID, session.ActiveModuleUpdate(screen.Warehouses.Key())))
		svc := newNavigationService(store)

		res, err := svc.Resolve(ctx, testSID, "/coagronet/almacenes")
		require.NoError(t, err)
		assert.Equal(t, screen.Warehouses, res.Screen)
		assert.Equal(t, screen.LayoutShell, res.Layout)
		assert.False(t, res.ClearSession)
	})

	t.Run("expired token clears the session", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Apply(ctx, testSID, session.NewLoginUpdate(session.Login{
			Token:     "old",
			ExpiresAt: testNow.Add(-time.Second),
		})))
		var cleared []string
		svc := newNavigationService(store, WithSessionReset(func(sid string) { cleared = append(cleared, sid) }))

		res, err := svc.Resolve(ctx, testSID, "/coagronet/kardex")
		require.NoError(t, err)
		assert.Equal(t, screen.Landing, res.Screen)
		assert.True(t, res.ClearSession)
		v, err := store.Load(ctx, testSID)
		require.NoError(t, err)
		assert.Empty(t, v)
		assert.Equal(t, []string{testSID}, cleared)
	})

	t.Run("verification link keeps the session", func(t *testing.T) {
		store := newTestStore(t)
		signIn(t, store)
		svc := newNavigationService(store)

		res, err := svc.Resolve(ctx, testSID, "/coagronet/auth/verify?token=abc")
		require.NoError(t, err)
		assert.Equal(t, screen.Verify, res.Screen)
		assert.Equal(t, map[string]string{"token": "abc"}, res.Params)
		assert.NotEmpty(t, loadState(t, store).Token)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := newNavigationService(failingStore{err: errors.New("boom")})
		_, err := svc.Resolve(ctx, testSID, "/")
		requireFailure(t, err, CodeInternal)
	})
}

func TestNavigationService_Session(t *testing.T) {
	ctx := testCtx()
	store := newTestStore(t)
	svc := newNavigationService(store)

	view, err := svc.Session(ctx, testSID)
	require.NoError(t, err)
	assert.False(t, view.Authenticated)

	signIn(t, store, pairFinca, pairCoop)
	view, err = svc.Session(ctx, testSID)
	require.NoError(t, err)
	assert.True(t, view.Authenticated)
	assert.Len(t, view.Companies, 2)
}

func TestNavigationService_SetActiveModule(t *testing.T) {
	ctx := testCtx()
	store := newTestStore(t)
	svc := newNavigationService(store)

	_, err := svc.SetActiveModule(ctx, testSID, "kardex")
	requireFailure(t, err, CodeMissingToken)

	signIn(t, store)
	sc, err := svc.SetActiveModule(ctx, testSID, "kardex")
	require.NoError(t, err)
	assert.Equal(t, screen.Kardex, sc)
	assert.Equal(t, "Kardex", loadState(t, store).ActiveModule)

	sc, err = svc.SetActiveModule(ctx, testSID, "Almacenes")
	require.NoError(t, err)
	assert.Equal(t, screen.Warehouses, sc)

	_, err = svc.SetActiveModule(ctx, testSID, "OnboardingEmpresa")
	require.NoError(t, err)

	for _, name := range []string{"nope", "landing", "verify"} {
		_, err = svc.SetActiveModule(ctx, testSID, name)
		requireFailure(t, err, CodeNotFound)
	}
}

func TestNavigationService_SetPreferences(t *testing.T) {
	ctx := testCtx()
	store := newTestStore(t)
	svc := newNavigationService(store)
	on, off := true, false

	st, err := svc.SetPreferences(ctx, testSID, session.Preferences{SidebarOpen: &on})
	require.NoError(t, err)
	assert.True(t, st.SidebarOpen)
	assert.False(t, st.DarkMode)

	st, err = svc.SetPreferences(ctx, testSID, session.Preferences{DarkMode: &on, SidebarOpen: &off})
	require.NoError(t, err)
	assert.False(t, st.SidebarOpen)
	assert.True(t, st.DarkMode)

	st, err = svc.SetPreferences(ctx, testSID, session.Preferences{})
	require.NoError(t, err)
	assert.True(t, st.DarkMode)
}
