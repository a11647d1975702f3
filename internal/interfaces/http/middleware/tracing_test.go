package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func attr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test-service"}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SessionAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(
		RequestID(),
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}),
		Session(DefaultSessionCookieConfig()),
		SessionSpanAttributes(),
	)
	router.GET("/console/v1/session", func(c *gin.Context) { c.Status(http.StatusOK) })

	sid := auth.NewSessionID()
	req := httptest.NewRequest(http.MethodGet, "/console/v1/session", nil)
	req.Header.Set("X-Request-ID", "req-42")
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookieConfig().Name, Value: sid})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	span := findSpan(sr.Ended(), "GET /console/v1/session")
	require.NotNil(t, span, "HTTP span not found")

	v, ok := attr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", v.AsString())

	v, ok = attr(span, "session")
	require.True(t, ok)
	assert.Equal(t, auth.Fingerprint(sid), v.AsString())
	assert.NotContains(t, v.AsString(), sid)
}

func TestSpanErrorMarker(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(DefaultTracingConfig()), SpanErrorMarker())
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/fail", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	failed := findSpan(sr.Ended(), "GET /fail")
	require.NotNil(t, failed)
	assert.Equal(t, codes.Error, failed.Status().Code)

	missing := findSpan(sr.Ended(), "GET /missing")
	require.NotNil(t, missing)
	v, ok := attr(missing, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusNotFound), v.AsInt64())
}
