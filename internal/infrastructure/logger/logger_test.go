package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(&Config{Level: "debug", Format: "json", Output: "stderr"}, "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	path := filepath.Join(t.TempDir(), "console.log")
	l, err = New(&Config{Level: "warn", Format: "console", Output: path}, "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")}, "")
	assert.Error(t, err)
}

func TestTee(t *testing.T) {
	baseCore, base := observer.New(zapcore.InfoLevel)
	extraCore, extra := observer.New(zapcore.WarnLevel)
	l := zap.New(baseCore).With(zap.String("service", "console"))

	assert.Same(t, l, Tee(l))

	tee := Tee(l, extraCore)
	tee.Info("listening")
	tee.Warn("upstream slow", zap.Int("status", 504))

	assert.Equal(t, 2, base.Len())
	require.Equal(t, 1, extra.Len())
	entry := extra.All()[0]
	assert.Equal(t, "upstream slow", entry.Message)
	assert.Equal(t, int64(504), entry.ContextMap()["status"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestL_EnrichesFromContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-9")
	ctx = WithSession(ctx, "f00dbabe")
	ctx = WithCompany(ctx, "12")

	L(ctx).Info("switched")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "f00dbabe", fields["session"])
	assert.Equal(t, "12", fields["empresa_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestFromContext_NoLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(GinRequestIDKey, "req-1")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/console/v1/session", func(c *gin.Context) {
		c.Set(GinSessionKey, "abc123")
		assert.Equal(t, "req-1", GetRequestID(c.Request.Context()))
		L(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/console/v1/session", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc123", fields["session"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, 1, recorded.FilterMessage("inside handler").Len())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	last := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, last, 2)
	assert.Equal(t, zapcore.ErrorLevel, last[1].Level)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}
