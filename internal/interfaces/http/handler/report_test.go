package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/coagronet/console/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const pdfBody = "%PDF-1.7 kardex"

func pdfReport() *upstream.Report {
	return &upstream.Report{
		Body:        io.NopCloser(strings.NewReader(pdfBody)),
		ContentType: "application/pdf",
		Size:        int64(len(pdfBody)),
	}
}

func TestReportHandler_Render(t *testing.T) {
	t.Run("streams the pdf", func(t *testing.T) {
		e := newTestEnv(t)
		e.signIn(t, pairFinca)
		e.reports.On("Report", mock.Anything, "tok-1", "inventario/kardex", json.RawMessage(`{"almacenId":3}`)).
			Return(pdfReport(), nil).Once()

		w := e.do(http.MethodPost, "/console/v1/reports/inventario/kardex", `{"almacenId":3}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="kardex.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, pdfBody, w.Body.String())
		e.reports.AssertExpectations(t)
	})

	t.Run("filter must be an object", func(t *testing.T) {
		e := newTestEnv(t)
		e.signIn(t, pairFinca)

		w := e.do(http.MethodPost, "/console/v1/reports/kardex", `[1]`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, w).Error.Code)
		e.reports.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid name", func(t *testing.T) {
		e := newTestEnv(t)
		e.signIn(t, pairFinca)

		w := e.do(http.MethodPost, "/console/v1/reports/../secret", "")

		assert.NotEqual(t, http.StatusOK, w.Code)
		e.reports.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("api failure", func(t *testing.T) {
		e := newTestEnv(t)
		e.signIn(t, pairFinca)
		e.reports.On("Report", mock.Anything, "tok-1", "kardex", mock.Anything).
			Return(nil, &upstream.APIError{Endpoint: "/v1/reportes/kardex", Status: http.StatusInternalServerError}).Once()

		w := e.do(http.MethodPost, "/console/v1/reports/kardex", "")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "No fue posible generar el reporte", decode(t, w).Notifications[0].Message)
	})
}

func TestReportHandler_ArchiveAndDownload(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t, pairFinca)
	e.reports.On("Report", mock.Anything, "tok-1", "inventario/kardex", mock.Anything).Return(pdfReport(), nil).Once()

	w := e.do(http.MethodPost, "/console/v1/reports/inventario/kardex?archive=true", `{}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out storage.Archived
	decodeData(t, decode(t, w), &out)
	assert.True(t, strings.HasPrefix(out.Key, "reports/"))
	assert.Contains(t, out.Key, "inventario-kardex-")
	require.True(t, strings.HasPrefix(out.URL, "/console/v1/reports/download/"+out.Key))
	assert.Equal(t, 1, e.archive.Len())

	w = e.do(http.MethodGet, out.URL, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, pdfBody, w.Body.String())

	w = e.do(http.MethodGet, "/console/v1/reports/download/reports/missing.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandler_DownloadWithoutArchive(t *testing.T) {
	h := NewReportHandler(nil, nil)
	e := newTestEnv(t)
	e.router.GET("/plain/download/*key", h.Download)

	w := e.do(http.MethodGet, "/plain/download/reports/a.pdf", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
