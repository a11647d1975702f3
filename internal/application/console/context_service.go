package console

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/logger"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"go.uber.org/zap"
)

// ContextService lists and switches the company/role a token is scoped to.
type ContextService struct {
	base
	gateway   AuthGateway
	inspector TokenInspector
}

// NewContextService creates a ContextService.
func NewContextService(gateway AuthGateway, inspector TokenInspector, store session.Store, loc *notify.Localizer, opts ...Option) *ContextService {
	return &ContextService{
		base:      newBase(store, loc, opts),
		gateway:   gateway,
		inspector: inspector,
	}
}

// Options returns the companies the user belongs to and the roles of
// empresaID. With empresaID 0 a single company is selected automatically.
func (s *ContextService) Options(ctx context.Context, sid string, empresaID int64) (*ContextOptions, error) {
	_, values, err := s.token(ctx, sid)
	if err != nil {
		return nil, err
	}
	st := values.State()
	pairs := st.RolesByCompany

	out := &ContextOptions{
		Companies: session.Companies(pairs),
		Roles:     []session.Role{},
		Skippable: len(pairs) == 1,
	}
	if st.EmpresaID != 0 && st.RolID != 0 {
		out.Current = &session.CompanyRole{
			EmpresaID: st.EmpresaID, EmpresaNombre: st.EmpresaNombre,
			RolID: st.RolID, RolNombre: st.RolNombre,
		}
	}
	if out.Companies == nil {
		out.Companies = []session.Company{}
	}

	if empresaID == 0 && len(out.Companies) == 1 {
		empresaID = out.Companies[0].EmpresaID
	}
	if empresaID == 0 {
		return out, nil
	}
	roles := session.RolesFor(pairs, empresaID)
	if len(roles) == 0 {
		return nil, s.fail.invalid(ctx, fmt.Errorf("%w: empresa %d", ErrUnknownContext, empresaID), notify.MsgContextUnknown)
	}
	out.EmpresaID = empresaID
	out.Roles = roles
	if len(roles) == 1 {
		out.RolID = roles[0].RolID
	}
	return out, nil
}

// Switch asks the API for a token scoped to (empresaID, rolID) and stores it
// together with the pair. On failure the session is left untouched.
// Switching to the current pair again is harmless.
func (s *ContextService) Switch(ctx context.Context, sid string, empresaID, rolID int64) (*SwitchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "context", "switch",
		telemetry.WithAttribute("empresa_id", empresaID),
		telemetry.WithAttribute("rol_id", rolID))
	defer span.End()

	token, values, err := s.token(ctx, sid)
	if err != nil {
		s.metrics.RecordContextSwitch(OutcomeRejected)
		return nil, err
	}

	pairs := values.State().RolesByCompany
	pair, known := session.Lookup(pairs, empresaID, rolID)
	if !known && len(pairs) > 0 {
		s.metrics.RecordContextSwitch(OutcomeRejected)
		return nil, s.fail.invalid(ctx,
			fmt.Errorf("%w: empresa %d rol %d", ErrUnknownContext, empresaID, rolID),
			notify.MsgContextUnknown)
	}

	newToken, err := s.gateway.SwitchContext(ctx, token, upstream.SwitchContextRequest{EmpresaID: empresaID, RolID: rolID})
	if err != nil {
		f := s.fail.upstream(ctx, err, notify.MsgContextSwitchFailed)
		s.log(ctx).Warn("Context switch failed", zap.Int64("empresa_id", empresaID), zap.Int64("rol_id", rolID), zap.Error(err))
		telemetry.RecordError(span, err)
		s.metrics.RecordContextSwitch(outcome(f))
		return nil, f
	}

	info := s.inspector.Inspect(newToken)
	if !known {
		// Without a cached pair the names come from the new token.
		pair = session.CompanyRole{EmpresaID: empresaID, RolID: rolID}
		if info.Context != nil {
			pair.EmpresaNombre = info.Context.EmpresaNombre
			pair.RolNombre = info.Context.RolNombre
		}
	}
	if err := s.apply(ctx, sid, session.NewContextUpdate(newToken, info.ExpiresAt, pair)); err != nil {
		s.metrics.RecordContextSwitch(OutcomeError)
		return nil, err
	}
	s.reset(sid)

	updated, err := s.load(ctx, sid)
	if err != nil {
		s.metrics.RecordContextSwitch(OutcomeError)
		return nil, err
	}
	s.metrics.RecordContextSwitch(OutcomeOK)
	ctx = logger.WithCompany(ctx, strconv.FormatInt(empresaID, 10))
	s.log(ctx).Info("Context switched", zap.Int64("rol_id", rolID))

	return &SwitchResult{
		Reload:       true,
		Context:      pair,
		State:        updated.State(),
		Notification: notify.Success(s.loc.Message(ctx, notify.MsgContextSwitched)),
	}, nil
}
