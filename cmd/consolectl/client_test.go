package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/coagronet/console/internal/application/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/console/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "console_session", Value: "sid-1", Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"session":{"sidebarOpen":false,"darkMode":false,"empresaId":4},"needsContextSwitch":false,"next":"home"},"notifications":[{"severity":"success","message":"Bienvenido"}]}`))
	})
	mux.HandleFunc("/console/v1/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ck, err := r.Cookie("console_session")
		if err != nil || ck.Value != "sid-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"no session"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"authenticated":true,"state":{"sidebarOpen":true,"darkMode":false}}}`))
	})
	mux.HandleFunc("/console/v1/reports/kardex", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	mux.HandleFunc("/console/v1/reports/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"ERR_UPSTREAM","message":"No fue posible generar el reporte"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SessionSurvivesInvocations(t *testing.T) {
	srv := consoleStub(t)
	file := filepath.Join(t.TempDir(), "session")
	ctx := context.Background()

	c, err := newClient(srv.URL+"/console/v1", file, "es")
	require.NoError(t, err)
	var login console.LoginResult
	env, err := c.call(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"correo": "ana@finca.co", "password": "x"}, &login)
	require.NoError(t, err)
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, int64(4), login.State.EmpresaID)

	// A fresh client reads the cookie back from the file.
	next, err := newClient(srv.URL+"/console/v1", file, "es")
	require.NoError(t, err)
	var view console.SessionView
	_, err = next.call(ctx, http.MethodGet, "/session", nil, nil, &view)
	require.NoError(t, err)
	assert.True(t, view.Authenticated)

	require.NoError(t, next.forget())
	fresh, err := newClient(srv.URL+"/console/v1", file, "es")
	require.NoError(t, err)
	_, err = fresh.call(ctx, http.MethodGet, "/session", nil, nil, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestClient_Download(t *testing.T) {
	srv := consoleStub(t)
	c, err := newClient(srv.URL+"/console/v1", "", "es")
	require.NoError(t, err)

	var buf bytes.Buffer
	contentType, err := c.download(context.Background(), "/reports/kardex", map[string]any{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "%PDF-1.7", buf.String())

	buf.Reset()
	_, err = c.download(context.Background(), "/reports/broken", map[string]any{}, &buf)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "ERR_UPSTREAM", apiErr.Code)
	assert.Equal(t, "No fue posible generar el reporte", apiErr.Message)
	assert.Zero(t, buf.Len())
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "x"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseOptionID(t *testing.T) {
	id, err := parseOptionID("0")
	require.NoError(t, err)
	assert.Zero(t, id)

	id, err = parseOptionID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"-1", "", "uno"} {
		_, err := parseOptionID(bad)
		assert.Error(t, err, bad)
	}
}
