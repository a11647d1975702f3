package console

import (
	"testing"
	"time"

	"github.com/coagronet/console/internal/domain/cascade"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// resetFixture wires the services the way the server does: every service
// that replaces or wipes the token forgets the cascade chains.
type resetFixture struct {
	store     session.Store
	gateway   *MockAuthGateway
	inspector *MockTokenInspector
	resources *MockResourceGateway
	cascades  *CascadeService
	contexts  *ContextService
	auth      *AuthService
	nav       *NavigationService
}

func newResetFixture(t *testing.T) *resetFixture {
	f := &resetFixture{
		store:     newTestStore(t),
		gateway:   new(MockAuthGateway),
		inspector: new(MockTokenInspector),
		resources: new(MockResourceGateway),
	}
	loc := notify.NewLocalizer()
	f.cascades = NewCascadeService(cascade.DefaultCatalog(), resource.DefaultCatalog(), f.resources, f.store,
		CascadeConfig{}, loc, WithClock(testClock))
	opts := []Option{WithClock(testClock), WithSessionReset(f.cascades.Forget)}
	f.contexts = NewContextService(f.gateway, f.inspector, f.store, loc, opts...)
	f.auth = NewAuthService(f.gateway, f.inspector, f.store, f.contexts, loc, opts...)
	f.nav = newNavigationService(f.store, WithSessionReset(f.cascades.Forget))
	return f
}

// warm builds the storage chain with tok-1 and checks its root options.
func (f *resetFixture) warm(t *testing.T) {
	t.Helper()
	f.resources.On("List", mock.Anything, "tok-1", "sedes", 0, 0, int64(0)).
		Return(page(resource.Record{"id": 1, "nombre": "Sede Finca"}), nil).Once()
	view, err := f.cascades.State(testCtx(), testSID, "storage")
	require.NoError(t, err)
	require.Equal(t, []cascade.Option{{ID: 1, Label: "Sede Finca"}}, view.Levels[0].Options)
	require.Equal(t, 1, f.cascades.Len())
}

func TestSessionReset_SwitchRefetchesWithNewToken(t *testing.T) {
	ctx := testCtx()
	f := newResetFixture(t)
	signIn(t, f.store, pairFinca, pairCoop)
	f.warm(t)

	f.gateway.On("SwitchContext", mock.Anything, "tok-1", upstream.SwitchContextRequest{EmpresaID: 7, RolID: 2}).
		Return("tok-2", nil).Once()
	f.inspector.On("Inspect", "tok-2").Return(auth.TokenInfo{ExpiresAt: testNow.Add(time.Hour)}).Once()
	_, err := f.contexts.Switch(ctx, testSID, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cascades.Len())

	f.resources.On("List", mock.Anything, "tok-2", "sedes", 0, 0, int64(0)).
		Return(page(resource.Record{"id": 9, "nombre": "Sede Cooperativa"}), nil).Once()
	view, err := f.cascades.State(ctx, testSID, "storage")
	require.NoError(t, err)
	assert.Equal(t, []cascade.Option{{ID: 9, Label: "Sede Cooperativa"}}, view.Levels[0].Options)
	f.resources.AssertExpectations(t)
}

func TestSessionReset_FailedSwitchKeepsChains(t *testing.T) {
	f := newResetFixture(t)
	signIn(t, f.store, pairFinca, pairCoop)
	f.warm(t)

	f.gateway.On("SwitchContext", mock.Anything, "tok-1", mock.Anything).
		Return("", &upstream.APIError{Status: 403, Message: "Sin permisos"}).Once()
	_, err := f.contexts.Switch(testCtx(), testSID, 7, 2)
	require.Error(t, err)
	assert.Equal(t, 1, f.cascades.Len())
}

func TestSessionReset_LoginForgetsChains(t *testing.T) {
	f := newResetFixture(t)
	signIn(t, f.store, pairFinca)
	f.warm(t)

	ctxPair := pairCoop
	f.gateway.On("Login", mock.Anything, upstream.LoginRequest{Correo: "ana@finca.co", Password: "secreta"}).
		Return(&upstream.LoginResponse{Token: "tok-login", UsuarioEstado: "ACTIVO"}, nil).Once()
	f.inspector.On("Inspect", "tok-login").Return(auth.TokenInfo{
		ExpiresAt:      testNow.Add(time.Hour),
		Context:        &ctxPair,
		RolesByCompany: []session.CompanyRole{pairCoop},
	}).Once()

	_, err := f.auth.Login(testCtx(), testSID, "ana@finca.co", "secreta")
	require.NoError(t, err)
	assert.Equal(t, 0, f.cascades.Len())
}

func TestSessionReset_ResolveOnExpiredSession(t *testing.T) {
	ctx := testCtx()
	f := newResetFixture(t)
	signIn(t, f.store, pairFinca)
	f.warm(t)

	// The store entry is gone while the chain is still cached.
	require.NoError(t, f.store.Clear(ctx, testSID))

	res, err := f.nav.Resolve(ctx, testSID, "/coagronet/kardex")
	require.NoError(t, err)
	assert.True(t, res.ClearSession)
	assert.Equal(t, 0, f.cascades.Len())
}
