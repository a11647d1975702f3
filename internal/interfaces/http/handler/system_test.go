package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coagronet/console/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("coagronet-console", "1.2.0")
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
	assert.Empty(t, h.checks)
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		h := NewSystemHandler("coagronet-console", "1.2.0")

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "coagronet-console", data["name"])
		assert.Equal(t, "1.2.0", data["version"])
		assert.NotEmpty(t, data["go_version"])
		assert.NotContains(t, data, "checks")
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := NewSystemHandler("coagronet-console", "1.2.0")
		h.AddCheck("session_store", func(context.Context) error { return nil })
		h.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp struct {
			Success bool           `json:"success"`
			Data    HealthResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "degraded", resp.Data.Status)
		assert.Equal(t, map[string]string{"database": "error", "session_store": "ok"}, resp.Data.Checks)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("checks see a deadline", func(t *testing.T) {
		h := NewSystemHandler("coagronet-console", "1.2.0")
		var hasDeadline bool
		h.AddCheck("redis", func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		})

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hasDeadline)
	})
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("coagronet-console", "1.2.0")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
