package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/cascade"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/cache"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/coagronet/console/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockAuthGateway is a mock implementation of console.AuthGateway
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

// MockResourceGateway is a mock implementation of console.ResourceGateway.
// Descriptors are matched by name.
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

// MockReportGateway is a mock implementation of console.ReportGateway
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

// MockTokenInspector is a mock implementation of console.TokenInspector
type MockTokenInspector struct {
	mock.Mock
}

func (m *MockTokenInspector) Inspect(token string) auth.TokenInfo {
	args := m.Called(token)
	return args.Get(0).(auth.TokenInfo)
}

const testSID = "b2f7a3b0-6a3c-4c1e-9a39-0c8c2a1a7e11"

var (
	pairFinca = session.CompanyRole{EmpresaID: 4, EmpresaNombre: "Finca La Esperanza", RolID: 9, RolNombre: "Administrador"}
	pairCoop  = session.CompanyRole{EmpresaID: 7, EmpresaNombre: "Cooperativa Andina", RolID: 2, RolNombre: "Auditor"}
)

// testEnv wires the real console services to mocked gateways behind the
// console routes.
type testEnv struct {
	auth      *MockAuthGateway
	resources *MockResourceGateway
	reports   *MockReportGateway
	inspector *MockTokenInspector
	store     *cache.InMemorySessionStore
	archive   *storage.MemoryReportArchive
	router    *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		auth:      new(MockAuthGateway),
		resources: new(MockResourceGateway),
		reports:   new(MockReportGateway),
		inspector: new(MockTokenInspector),
		store:     cache.NewInMemorySessionStore(0),
		archive:   storage.NewMemoryReportArchive("/console/v1/reports"),
	}
	t.Cleanup(func() { _ = e.store.Close() })

	loc := notify.NewLocalizer()
	catalog := resource.DefaultCatalog()
	contexts := console.NewContextService(e.auth, e.inspector, e.store, loc)
	authSvc := console.NewAuthService(e.auth, e.inspector, e.store, contexts, loc)
	navigation := console.NewNavigationService(screen.NewResolver(screen.DefaultRoutes()), e.store, loc)
	resources := console.NewResourceService(catalog, e.resources, e.store, loc)
	cascades := console.NewCascadeService(cascade.DefaultCatalog(), catalog, e.resources, e.store,
		console.CascadeConfig{AutoSelectSingle: true}, loc)
	reports := console.NewReportService(e.reports, e.archive, e.store, loc)

	authH := NewAuthHandler(authSvc)
	sessionH := NewSessionHandler(navigation)
	contextH := NewContextHandler(contexts)
	resourceH := NewResourceHandler(resources)
	cascadeH := NewCascadeHandler(cascades)
	reportH := NewReportHandler(reports, e.archive)

	r := gin.New()
	r.Use(middleware.Session(middleware.DefaultSessionCookieConfig()), middleware.Language(loc))
	v1 := r.Group("/console/v1")
	v1.POST("/auth/login", authH.Login)
	v1.POST("/auth/logout", authH.Logout)
	v1.GET("/auth/verify", authH.Verify)
	v1.POST("/auth/forgot-password", authH.ForgotPassword)
	v1.POST("/auth/change-password", authH.ChangePassword)
	v1.GET("/session", sessionH.Session)
	v1.GET("/navigation/resolve", sessionH.Resolve)
	v1.PUT("/navigation/active-module", sessionH.SetActiveModule)
	v1.PUT("/preferences", sessionH.SetPreferences)
	v1.GET("/context/options", contextH.Options)
	v1.POST("/context/switch", contextH.Switch)
	v1.GET("/resources/:resource", resourceH.List)
	v1.POST("/resources/:resource", resourceH.Create)
	v1.PUT("/resources/:resource/:id", resourceH.Update)
	v1.DELETE("/resources/:resource/:id", resourceH.Delete)
	v1.GET("/cascades/:chain", cascadeH.State)
	v1.POST("/cascades/:chain/select", cascadeH.Select)
	v1.POST("/cascades/:chain/clear", cascadeH.Clear)
	v1.POST("/reports/*report", reportH.Render)
	v1.GET("/reports/download/*key", reportH.Download)
	e.router = r
	return e
}

// signIn stores a valid token and the given pairs under testSID.
func (e *testEnv) signIn(t *testing.T, pairs ...session.CompanyRole) {
	t.Helper()
	require.NoError(t, e.store.Apply(context.Background(), testSID, session.NewLoginUpdate(session.Login{
		Token:          "tok-1",
		ExpiresAt:      time.Now().Add(time.Hour),
		RolesByCompany: pairs,
	})))
}

func (e *testEnv) state(t *testing.T) session.State {
	t.Helper()
	v, err := e.store.Load(context.Background(), testSID)
	require.NoError(t, err)
	return v.State()
}

// do sends a request carrying the test session cookie. Messages come back
// in Spanish unless lang overrides Accept-Language.
func (e *testEnv) do(method, path, body string, lang ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookieConfig().Name, Value: testSID})
	req.Header.Set("Accept-Language", "es")
	if len(lang) > 0 {
		req.Header.Set("Accept-Language", lang[0])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// envelope is the decoded response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
	Notifications []notify.Notification `json:"notifications"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
}
