package console

import (
	"context"
	"errors"
	"strings"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"go.uber.org/zap"
)

// AuthService signs users in and out and runs the account lifecycle
// requests (e-mail verification, password reset).
type AuthService struct {
	base
	gateway   AuthGateway
	inspector TokenInspector
	contexts  *ContextService
}

// NewAuthService creates an AuthService. contexts is used to scope the token
// when the user holds exactly one company/role pair; it may be nil.
func NewAuthService(
	gateway AuthGateway,
	inspector TokenInspector,
	store session.Store,
	contexts *ContextService,
	loc *notify.Localizer,
	opts ...Option,
) *AuthService {
	return &AuthService{
		base:      newBase(store, loc, opts),
		gateway:   gateway,
		inspector: inspector,
		contexts:  contexts,
	}
}

// Login exchanges credentials for a token and stores it with everything the
// token payload reveals, in one write.
func (s *AuthService) Login(ctx context.Context, sid, correo, password string) (*LoginResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "login")
	defer span.End()

	correo = strings.TrimSpace(correo)
	if correo == "" || password == "" {
		s.metrics.RecordLogin(OutcomeRejected)
		return nil, s.fail.invalid(ctx, errors.New("correo and password are required"), notify.MsgLoginFailed)
	}

	resp, err := s.gateway.Login(ctx, upstream.LoginRequest{Correo: correo, Password: password})
	if err != nil {
		f := s.fail.upstream(ctx, err, notify.MsgLoginFailed)
		s.log(ctx).Warn("Login failed", zap.String("code", f.Code), zap.Error(err))
		telemetry.RecordError(span, err)
		s.metrics.RecordLogin(outcome(f))
		return nil, f
	}

	info := s.inspector.Inspect(resp.Token)
	next := screenForAccount(resp.UsuarioEstado)
	login := session.Login{
		Token:          resp.Token,
		ExpiresAt:      info.ExpiresAt,
		Context:        info.Context,
		RolesByCompany: info.RolesByCompany,
	}
	if next.Onboarding() {
		login.ActiveModule = next.Key()
	}
	if err := s.apply(ctx, sid, session.NewLoginUpdate(login)); err != nil {
		s.metrics.RecordLogin(OutcomeError)
		return nil, err
	}
	s.reset(sid)
	if info.Opaque {
		s.log(ctx).Warn("Token payload could not be decoded, using fallback expiry")
	}

	result := &LoginResult{AccountState: resp.UsuarioEstado, Next: next}
	if !next.Onboarding() && info.Context == nil {
		switch len(info.RolesByCompany) {
		case 0:
		case 1:
			if !s.switchOnlyPair(ctx, sid, info.RolesByCompany[0], result) {
				result.NeedsContextSwitch = true
				result.Next = screen.ContextSwitch
			}
		default:
			result.NeedsContextSwitch = true
			result.Next = screen.ContextSwitch
		}
	}

	values, err := s.load(ctx, sid)
	if err != nil {
		s.metrics.RecordLogin(OutcomeError)
		return nil, err
	}
	result.State = values.State()
	s.metrics.RecordLogin(OutcomeOK)
	s.log(ctx).Info("User signed in",
		zap.String("account_state", resp.UsuarioEstado),
		zap.Bool("needs_context_switch", result.NeedsContextSwitch))
	return result, nil
}

// switchOnlyPair scopes the token to the user's single pair. A failure is
// reported as a notification; the user can still pick the pair manually.
func (s *AuthService) switchOnlyPair(ctx context.Context, sid string, pair session.CompanyRole, result *LoginResult) bool {
	if s.contexts == nil {
		return false
	}
	sw, err := s.contexts.Switch(ctx, sid, pair.EmpresaID, pair.RolID)
	if err != nil {
		if f, ok := AsFailure(err); ok {
			result.Notifications = append(result.Notifications, f.Notification)
		}
		return false
	}
	result.Notifications = append(result.Notifications, sw.Notification)
	return true
}

func screenForAccount(state string) screen.Screen {
	switch state {
	case AccountPendingPersona:
		return screen.OnboardingPersona
	case AccountPendingEmpresa:
		return screen.OnboardingEmpresa
	}
	return screen.Home
}

// Logout wipes every session key.
func (s *AuthService) Logout(ctx context.Context, sid string) (notify.Notification, error) {
	if err := s.clear(ctx, sid); err != nil {
		return notify.Notification{}, err
	}
	s.log(ctx).Info("User signed out")
	return notify.Success(s.loc.Message(ctx, notify.MsgLoggedOut)), nil
}

// Verify confirms an e-mail address with the token from the verification
// link.
func (s *AuthService) Verify(ctx context.Context, verificationToken string) (notify.Notification, error) {
	if strings.TrimSpace(verificationToken) == "" {
		return notify.Notification{}, s.fail.invalid(ctx, errors.New("verification token is required"), notify.MsgVerifyFailed)
	}
	msg, err := s.gateway.Verify(ctx, verificationToken)
	return s.lifecycle(ctx, "verify", msg, err, notify.MsgVerified, notify.MsgVerifyFailed)
}

// ForgotPassword asks the API to send a reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (notify.Notification, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return notify.Notification{}, s.fail.invalid(ctx, errors.New("email is required"), notify.MsgResetFailed)
	}
	msg, err := s.gateway.ForgotPassword(ctx, email)
	return s.lifecycle(ctx, "forgot_password", msg, err, notify.MsgResetSent, notify.MsgResetFailed)
}

// ChangePassword sets a new password with the token from the reset link.
func (s *AuthService) ChangePassword(ctx context.Context, resetToken, password string) (notify.Notification, error) {
	if strings.TrimSpace(resetToken) == "" || password == "" {
		return notify.Notification{}, s.fail.invalid(ctx, errors.New("reset token and password are required"), notify.MsgPasswordChangeFailed)
	}
	msg, err := s.gateway.ChangePassword(ctx, resetToken, password)
	return s.lifecycle(ctx, "change_password", msg, err, notify.MsgPasswordChanged, notify.MsgPasswordChangeFailed)
}

// lifecycle turns the outcome of an account request into a notification.
// The API's own message is preferred in both directions.
func (s *AuthService) lifecycle(ctx context.Context, op, msg string, err error, ok, failed notify.Key) (notify.Notification, error) {
	if err != nil {
		f := s.fail.upstream(ctx, err, failed)
		s.log(ctx).Warn("Account request failed", zap.String("operation", op), zap.Error(err))
		return notify.Notification{}, f
	}
	if msg == "" {
		msg = s.loc.Message(ctx, ok)
	}
	return notify.Success(msg), nil
}
