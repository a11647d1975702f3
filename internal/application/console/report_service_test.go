package console

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pdf(body string) *upstream.Report {
	return &upstream.Report{Body: io.NopCloser(strings.NewReader(body)), ContentType: "application/pdf", Size: int64(len(body))}
}

func newReportFixture(t *testing.T, archive ReportArchive) (*ReportService, *MockReportGateway, *recordingMetrics) {
	store := newTestStore(t)
	signIn(t, store, pairFinca)
	gw := new(MockReportGateway)
	m := &recordingMetrics{}
	svc := NewReportService(gw, archive, store, notify.NewLocalizer(), WithClock(testClock), WithMetrics(m))
	return svc, gw, m
}

func TestReportService_Render(t *testing.T) {
	ctx := testCtx()
	filter := json.RawMessage(`{"almacenId":3}`)

	t.Run("streams the document", func(t *testing.T) {
		svc, gw, m := newReportFixture(t, nil)
		gw.On("Report", mock.Anything, "tok-1", "kardex", filter).Return(pdf("%PDF-1.7"), nil).Once()

		rep, err := svc.Render(ctx, testSID, "kardex", filter)
		require.NoError(t, err)
		defer rep.Body.Close()
		body, err := io.ReadAll(rep.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7", string(body))
		assert.Equal(t, []string{"kardex:ok"}, m.reports)
	})

	t.Run("rejected by the api", func(t *testing.T) {
		svc, gw, m := newReportFixture(t, nil)
		gw.On("Report", mock.Anything, "tok-1", "inventario/existencias", mock.Anything).
			Return(nil, &upstream.APIError{Status: http.StatusBadRequest, Message: "Rango de fechas inválido"}).Once()

		_, err := svc.Render(ctx, testSID, "inventario/existencias", nil)
		f := requireFailure(t, err, CodeUpstreamRejected)
		assert.Equal(t, "Rango de fechas inválido", f.Notification.Message)
		assert.Equal(t, []string{"inventario/existencias:rejected"}, m.reports)
	})

	t.Run("invalid input never reaches the api", func(t *testing.T) {
		svc, gw, _ := newReportFixture(t, nil)
		for _, name := range []string{"", "../secret", "a//b", "kardex?x=1"} {
			_, err := svc.Render(ctx, testSID, name, nil)
			requireFailure(t, err, CodeInvalidInput)
		}
		for _, f := range []string{`[1,2]`, `{"a":`, `"x"`} {
			_, err := svc.Render(ctx, testSID, "kardex", json.RawMessage(f))
			requireFailure(t, err, CodeInvalidInput)
		}
		gw.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signed out", func(t *testing.T) {
		gw := new(MockReportGateway)
		svc := NewReportService(gw, nil, newTestStore(t), nil, WithClock(testClock))
		_, err := svc.Render(ctx, testSID, "kardex", nil)
		requireFailure(t, err, CodeMissingToken)
	})
}

func TestReportService_Archive(t *testing.T) {
	ctx := testCtx()

	t.Run("stores the document and returns a link", func(t *testing.T) {
		archive := storage.NewMemoryReportArchive("http://console.local")
		svc, gw, m := newReportFixture(t, archive)
		gw.On("Report", mock.Anything, "tok-1", "inventario/kardex", mock.Anything).Return(pdf("%PDF-data"), nil).Once()

		out, err := svc.Archive(ctx, testSID, "inventario/kardex", nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.Key, "reports/2026/03/01/inventario-kardex-"), out.Key)
		data, ctype, ok := archive.Get(out.Key)
		require.True(t, ok)
		assert.Equal(t, "%PDF-data", string(data))
		assert.Equal(t, "application/pdf", ctype)
		assert.True(t, out.ExpiresAt.After(time.Now()))
		assert.Equal(t, []string{"inventario/kardex:ok"}, m.reports)
	})

	t.Run("disabled", func(t *testing.T) {
		svc, _, _ := newReportFixture(t, nil)
		assert.False(t, svc.ArchiveEnabled())
		_, err := svc.Archive(ctx, testSID, "kardex", nil)
		f := requireFailure(t, err, CodeInvalidInput)
		assert.ErrorIs(t, f, ErrArchiveDisabled)
	})

	t.Run("too large", func(t *testing.T) {
		archive := new(MockReportArchive)
		svc, gw, _ := newReportFixture(t, archive)
		svc.maxSize = 4
		gw.On("Report", mock.Anything, "tok-1", "kardex", mock.Anything).Return(pdf("%PDF-too-big"), nil).Once()

		_, err := svc.Archive(ctx, testSID, "kardex", nil)
		f := requireFailure(t, err, CodeInternal)
		assert.ErrorIs(t, f, ErrReportTooLarge)
		archive.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upload failure", func(t *testing.T) {
		archive := new(MockReportArchive)
		svc, gw, m := newReportFixture(t, archive)
		gw.On("Report", mock.Anything, "tok-1", "kardex", mock.Anything).Return(pdf("%PDF"), nil).Once()
		archive.On("Archive", mock.Anything, mock.AnythingOfType("string"), []byte("%PDF"), "application/pdf").
			Return(nil, errors.New("access denied")).Once()

		_, err := svc.Archive(ctx, testSID, "kardex", nil)
		f := requireFailure(t, err, CodeInternal)
		assert.Equal(t, svc.loc.Message(ctx, notify.MsgReportFailed), f.Notification.Message)
		assert.Equal(t, []string{"kardex:error"}, m.reports)
		archive.AssertExpectations(t)
	})
}
