package console

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/cache"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// MockAuthGateway is a mock implementation of AuthGateway
type MockAuthGateway struct {
	mock.Mock
}

func (m *MockAuthGateway) Login(ctx context.Context, req upstream.LoginRequest) (*upstream.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.LoginResponse), args.Error(1)
}

func (m *MockAuthGateway) SwitchContext(ctx context.Context, token string, req upstream.SwitchContextRequest) (string, error) {
	args := m.Called(ctx, token, req)
	return args.String(0), args.Error(1)
}

func (m *MockAuthGateway) Verify(ctx context.Context, verificationToken string) (string, error) {
	args := m.Called(ctx, verificationToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthGateway) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAuthGateway) ChangePassword(ctx context.Context, resetToken, password string) (string, error) {
	args := m.Called(ctx, resetToken, password)
	return args.String(0), args.Error(1)
}

// MockResourceGateway is a mock implementation of ResourceGateway
type MockResourceGateway struct {
	mock.Mock
}

func (m *MockResourceGateway) List(ctx context.Context, token string, d resource.Descriptor, page, size int, parentID int64) (resource.Page, error) {
	args := m.Called(ctx, token, d.Name, page, size, parentID)
	return args.Get(0).(resource.Page), args.Error(1)
}

func (m *MockResourceGateway) Create(ctx context.Context, token string, d resource.Descriptor, rec resource.Record) (resource.Record, error) {
	args := m.Called(ctx, token, d.Name, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(resource.Record), args.Error(1)
}

func (m *MockResourceGateway) Update(ctx context.Context, token string, d resource.Descriptor, id int64, rec resource.Record) (resource.Record, error) {
	args := m.Called(ctx, token, d.Name, id, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(resource.Record), args.Error(1)
}

func (m *MockResourceGateway) Delete(ctx context.Context, token string, d resource.Descriptor, id int64) error {
	args := m.Called(ctx, token, d.Name, id)
	return args.Error(0)
}

// MockReportGateway is a mock implementation of ReportGateway
type MockReportGateway struct {
	mock.Mock
}

func (m *MockReportGateway) Report(ctx context.Context, token, name string, filter json.RawMessage) (*upstream.Report, error) {
	args := m.Called(ctx, token, name, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.Report), args.Error(1)
}

// MockReportArchive is a mock implementation of ReportArchive
type MockReportArchive struct {
	mock.Mock
}

func (m *MockReportArchive) Archive(ctx context.Context, key string, data []byte, contentType string) (*storage.Archived, error) {
	args := m.Called(ctx, key, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Archived), args.Error(1)
}

// MockTokenInspector is a mock implementation of TokenInspector
type MockTokenInspector struct {
	mock.Mock
}

func (m *MockTokenInspector) Inspect(token string) auth.TokenInfo {
	args := m.Called(token)
	return args.Get(0).(auth.TokenInfo)
}

// recordingMetrics collects domain counters.
type recordingMetrics struct {
	mu       sync.Mutex
	logins   []string
	switches []string
	reports  []string
	failures []string
	chains   int
}

func (r *recordingMetrics) RecordLogin(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, outcome)
}

func (r *recordingMetrics) RecordContextSwitch(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switches = append(r.switches, outcome)
}

func (r *recordingMetrics) RecordReport(report, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report+":"+outcome)
}

func (r *recordingMetrics) RecordResourceFailure(res, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, res+":"+op)
}

func (r *recordingMetrics) SetCascadeChains(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains = n
}

func (r *recordingMetrics) chainCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chains
}

// failingStore fails every call.
type failingStore struct {
	err error
}

func (f failingStore) Load(context.Context, string) (session.Values, error) { return nil, f.err }
func (f failingStore) Apply(context.Context, string, session.Update) error  { return f.err }
func (f failingStore) Clear(context.Context, string) error                  { return f.err }

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pairFinca       = session.CompanyRole{EmpresaID: 4, EmpresaNombre: "Finca La Esperanza", RolID: 9, RolNombre: "Administrador"}
	pairFincaBodega = session.CompanyRole{EmpresaID: 4, EmpresaNombre: "Finca La Esperanza", RolID: 10, RolNombre: "Bodeguero"}
	pairCoop        = session.CompanyRole{EmpresaID: 7, EmpresaNombre: "Cooperativa Andina", RolID: 2, RolNombre: "Auditor"}
)

const testSID = "b2f7a3b0-6a3c-4c1e-9a39-0c8c2a1a7e11"

func testClock() time.Time { return testNow }

// testCtx pins the notification language.
func testCtx() context.Context {
	return notify.WithLanguage(context.Background(), language.Spanish)
}

func newTestStore(t *testing.T) *cache.InMemorySessionStore {
	t.Helper()
	s := cache.NewInMemorySessionStore(0)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// signIn stores a valid token and the given pairs.
func signIn(t *testing.T, store session.Store, pairs ...session.CompanyRole) {
	t.Helper()
	require.NoError(t, store.Apply(context.Background(), testSID, session.NewLoginUpdate(session.Login{
		Token:          "tok-1",
		ExpiresAt:      testNow.Add(time.Hour),
		RolesByCompany: pairs,
	})))
}

func loadState(t *testing.T, store session.Store) session.State {
	t.Helper()
	v, err := store.Load(context.Background(), testSID)
	require.NoError(t, err)
	return v.State()
}

func requireFailure(t *testing.T, err error, code string) *Failure {
	t.Helper()
	require.Error(t, err)
	f, ok := AsFailure(err)
	require.True(t, ok, "expected *Failure, got %T: %v", err, err)
	require.Equal(t, code, f.Code)
	return f
}
