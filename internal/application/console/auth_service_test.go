package console

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	gateway   *MockAuthGateway
	inspector *MockTokenInspector
	store     session.Store
	metrics   *recordingMetrics
	service   *AuthService
	loc       *notify.Localizer
}

func newAuthFixture(t *testing.T) *authFixture {
	f := &authFixture{
		gateway:   new(MockAuthGateway),
		inspector: new(MockTokenInspector),
		store:     newTestStore(t),
		metrics:   &recordingMetrics{},
		loc:       notify.NewLocalizer(),
	}
	opts := []Option{WithClock(testClock), WithMetrics(f.metrics)}
	contexts := NewContextService(f.gateway, f.inspector, f.store, f.loc, opts...)
	f.service = NewAuthService(f.gateway, f.inspector, f.store, contexts, f.loc, opts...)
	return f
}

func (f *authFixture) expectLogin(state string, info auth.TokenInfo) {
	f.gateway.On("Login", mock.Anything, upstream.LoginRequest{Correo: "ana@finca.co", Password: "secreta"}).
		Return(&upstream.LoginResponse{Token: "tok-login", UsuarioEstado: state}, nil).Once()
	f.inspector.On("Inspect", "tok-login").Return(info).Once()
}

func TestAuthService_Login(t *testing.T) {
	ctx := testCtx()

	t.Run("token already scoped to a context", func(t *testing.T) {
		f := newAuthFixture(t)
		ctxPair := pairFinca
		f.expectLogin("ACTIVO", auth.TokenInfo{
			ExpiresAt:      testNow.Add(time.Hour),
			Context:        &ctxPair,
			RolesByCompany: []session.CompanyRole{pairFinca, pairCoop},
		})

		res, err := f.service.Login(ctx, testSID, " ana@finca.co ", "secreta")
		require.NoError(t, err)
		assert.False(t, res.NeedsContextSwitch)
		assert.Equal(t, screen.Home, res.Next)
		assert.Equal(t, int64(4), res.State.EmpresaID)
		assert.Equal(t, "Administrador", res.State.RolNombre)
		assert.True(t, res.State.Authenticated(testNow))
		assert.Len(t, res.State.RolesByCompany, 2)
		assert.Equal(t, []string{OutcomeOK}, f.metrics.logins)
		f.gateway.AssertExpectations(t)
	})

	t.Run("several pairs require a choice", func(t *testing.T) {
		f := newAuthFixture(t)
		f.expectLogin("ACTIVO", auth.TokenInfo{
			ExpiresAt:      testNow.Add(time.Hour),
			RolesByCompany: []session.CompanyRole{pairFinca, pairFincaBodega, pairCoop},
		})

		res, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
		require.NoError(t, err)
		assert.True(t, res.NeedsContextSwitch)
		assert.Equal(t, screen.ContextSwitch, res.Next)
		assert.Zero(t, res.State.EmpresaID)
		f.gateway.AssertNotCalled(t, "SwitchContext", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("single pair is selected automatically", func(t *testing.T) {
		f := newAuthFixture(t)
		f.expectLogin("ACTIVO", auth.TokenInfo{
			ExpiresAt:      testNow.Add(time.Hour),
			RolesByCompany: []session.CompanyRole{pairFinca},
		})
		f.gateway.On("SwitchContext", mock.Anything, "tok-login", upstream.SwitchContextRequest{EmpresaID: 4, RolID: 9}).
			Return("tok-scoped", nil).Once()
		f.inspector.On("Inspect", "tok-scoped").Return(auth.TokenInfo{ExpiresAt: testNow.Add(2 * time.Hour)}).Once()

		res, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
		require.NoError(t, err)
		assert.False(t, res.NeedsContextSwitch)
		assert.Equal(t, screen.Home, res.Next)
		assert.Equal(t, int64(4), res.State.EmpresaID)
		assert.Equal(t, int64(9), res.State.RolID)
		assert.Equal(t, "tok-scoped", res.State.Token)
		require.Len(t, res.Notifications, 1)
		assert.Equal(t, notify.SeveritySuccess, res.Notifications[0].Severity)
		assert.Equal(t, []string{OutcomeOK}, f.metrics.switches)
	})

	t.Run("failed automatic switch falls back to the chooser", func(t *testing.T) {
		f := newAuthFixture(t)
		f.expectLogin("ACTIVO", auth.TokenInfo{
			ExpiresAt:      testNow.Add(time.Hour),
			RolesByCompany: []session.CompanyRole{pairFinca},
		})
		f.gateway.On("SwitchContext", mock.Anything, "tok-login", mock.Anything).
			Return("", &upstream.APIError{Status: http.StatusForbidden, Message: "Rol inactivo"}).Once()

		res, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
		require.NoError(t, err)
		assert.True(t, res.NeedsContextSwitch)
		assert.Equal(t, screen.ContextSwitch, res.Next)
		assert.Equal(t, "tok-login", res.State.Token)
		require.Len(t, res.Notifications, 1)
		assert.Equal(t, notify.Error("Rol inactivo"), res.Notifications[0])
	})

	t.Run("pending account goes to onboarding", func(t *testing.T) {
		tests := []struct {
			state string
			want  screen.Screen
		}{
			{AccountPendingPersona, screen.OnboardingPersona},
			{AccountPendingEmpresa, screen.OnboardingEmpresa},
		}
		for _, tt := range tests {
			t.Run(tt.state, func(t *testing.T) {
				f := newAuthFixture(t)
				f.expectLogin(tt.state, auth.TokenInfo{
					ExpiresAt:      testNow.Add(time.Hour),
					RolesByCompany: []session.CompanyRole{pairFinca, pairCoop},
				})

				res, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Next)
				assert.False(t, res.NeedsContextSwitch)
				assert.Equal(t, tt.want.Key(), res.State.ActiveModule)
			})
		}
	})

	t.Run("previous context is dropped on a new login", func(t *testing.T) {
		f := newAuthFixture(t)
		require.NoError(t, f.store.Apply(ctx, testSID, session.NewContextUpdate("old", testNow.Add(time.Hour), pairCoop)))
		require.NoError(t, f.store.Apply(ctx, testSID, session.ActiveModuleUpdate("Kardex")))
		f.expectLogin("ACTIVO", auth.TokenInfo{ExpiresAt: testNow.Add(time.Hour)})

		res, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
		require.NoError(t, err)
		assert.Zero(t, res.State.EmpresaID)
		assert.Empty(t, res.State.RolNombre)
		assert.Empty(t, res.State.ActiveModule)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("Login", mock.Anything, mock.Anything).
			Return(nil, &upstream.APIError{Status: http.StatusUnauthorized, Message: "Credenciales inválidas"}).Once()

		_, err := f.service.Login(ctx, testSID, "ana@finca.co", "mala")
		fail := requireFailure(t, err, CodeUnauthorized)
		assert.Equal(t, notify.Error("Credenciales inválidas"), fail.Notification)
		assert.Empty(t, loadState(t, f.store).Token)
		assert.Equal(t, []string{OutcomeRejected}, f.metrics.logins)
	})

	t.Run("rejection without message uses the fallback", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("Login", mock.Anything, mock.Anything).
			Return(nil, &upstream.APIError{Status: http.StatusUnauthorized}).Once()

		_, err := f.service.Login(ctx, testSID, "ana@finca.co", "mala")
		fail := requireFailure(t, err, CodeUnauthorized)
		assert.Equal(t, f.loc.Message(ctx, notify.MsgLoginFailed), fail.Notification.Message)
	})

	t.Run("api offline", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("Login", mock.Anything, mock.Anything).
			Return(nil, errors.Join(upstream.ErrUnavailable, errors.New("dial tcp"))).Once()

		_, err := f.service.Login(ctx, testSID, "ana@finca.co", "secreta")
		fail := requireFailure(t, err, CodeUpstreamOffline)
		assert.Equal(t, f.loc.Message(ctx, notify.MsgUpstreamOffline), fail.Notification.Message)
		assert.Equal(t, []string{OutcomeError}, f.metrics.logins)
	})

	t.Run("missing credentials never reach the api", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.service.Login(ctx, testSID, "  ", "secreta")
		requireFailure(t, err, CodeInvalidInput)
		f.gateway.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("session write failure", func(t *testing.T) {
		gw := new(MockAuthGateway)
		in := new(MockTokenInspector)
		svc := NewAuthService(gw, in, failingStore{err: errors.New("redis down")}, nil, nil, WithClock(testClock))
		gw.On("Login", mock.Anything, mock.Anything).Return(&upstream.LoginResponse{Token: "t"}, nil)
		in.On("Inspect", "t").Return(auth.TokenInfo{ExpiresAt: testNow.Add(time.Hour)})

		_, err := svc.Login(ctx, testSID, "ana@finca.co", "secreta")
		requireFailure(t, err, CodeInternal)
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := testCtx()
	signIn(t, f.store, pairFinca)

	var cleared []string
	svc := NewAuthService(f.gateway, f.inspector, f.store, nil, f.loc,
		WithSessionReset(func(sid string) { cleared = append(cleared, sid) }))

	n, err := svc.Logout(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, notify.SeveritySuccess, n.Severity)
	assert.Empty(t, loadState(t, f.store).Token)
	assert.Equal(t, []string{testSID}, cleared)
}

func TestAuthService_AccountLifecycle(t *testing.T) {
	ctx := testCtx()

	t.Run("verify uses the api message", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("Verify", mock.Anything, "abc").Return("Cuenta activada", nil).Once()
		n, err := f.service.Verify(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, notify.Success("Cuenta activada"), n)
	})

	t.Run("forgot password falls back to the local message", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("ForgotPassword", mock.Anything, "ana@finca.co").Return("", nil).Once()
		n, err := f.service.ForgotPassword(ctx, "ana@finca.co")
		require.NoError(t, err)
		assert.Equal(t, notify.Success(f.loc.Message(ctx, notify.MsgResetSent)), n)
	})

	t.Run("change password rejected", func(t *testing.T) {
		f := newAuthFixture(t)
		f.gateway.On("ChangePassword", mock.Anything, "reset-1", "nueva").
			Return("", &upstream.APIError{Status: http.StatusBadRequest, Message: "Token vencido"}).Once()
		_, err := f.service.ChangePassword(ctx, "reset-1", "nueva")
		fail := requireFailure(t, err, CodeUpstreamRejected)
		assert.Equal(t, "Token vencido", fail.Notification.Message)
	})

	t.Run("empty inputs", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.service.Verify(ctx, "")
		requireFailure(t, err, CodeInvalidInput)
		_, err = f.service.ForgotPassword(ctx, " ")
		requireFailure(t, err, CodeInvalidInput)
		_, err = f.service.ChangePassword(ctx, "t", "")
		requireFailure(t, err, CodeInvalidInput)
		f.gateway.AssertExpectations(t)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeError, outcome(&Failure{Code: CodeUpstream}))
	assert.Equal(t, OutcomeError, outcome(&Failure{Code: CodeUpstreamOffline}))
	assert.Equal(t, OutcomeRejected, outcome(&Failure{Code: CodeUnauthorized}))
	assert.Equal(t, OutcomeRejected, outcome(&Failure{Code: CodeInvalidInput}))
}
