package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/coagronet/console/internal/application/console"
	"github.com/gin-gonic/gin"
)

// ReportQuery selects between streaming and archiving.
type ReportQuery struct {
	Archive bool `form:"archive"`
}

// ArchiveReader serves reports kept by an in-process archive.
type ArchiveReader interface {
	Get(key string) ([]byte, string, bool)
}

// ReportHandler renders reports through the inventory API
type ReportHandler struct {
	BaseHandler
	reports *console.ReportService
	stored  ArchiveReader
}

// NewReportHandler creates a new ReportHandler. stored may be nil when
// archived reports are served by object storage.
func NewReportHandler(reports *console.ReportService, stored ArchiveReader) *ReportHandler {
	return &ReportHandler{reports: reports, stored: stored}
}

// Render streams the named report, or archives it and returns a download
// link when ?archive=true. The body is the JSON filter.
func (h *ReportHandler) Render(c *gin.Context) {
	var q ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	name := strings.Trim(c.Param("report"), "/")
	filter, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}

	if q.Archive {
		out, err := h.reports.Archive(reqCtx(c), sessionID(c), name, json.RawMessage(filter))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, out)
		return
	}

	rep, err := h.reports.Render(reqCtx(c), sessionID(c), name, json.RawMessage(filter))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer rep.Body.Close()

	c.DataFromReader(http.StatusOK, rep.Size, rep.ContentType, rep.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", path.Base(name)+".pdf"),
	})
}

// Download serves a report stored by the in-process archive.
func (h *ReportHandler) Download(c *gin.Context) {
	if h.stored == nil {
		h.NotFound(c, "Report archive is not served here")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	data, ctype, ok := h.stored.Get(key)
	if !ok {
		h.NotFound(c, "Report not found")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	c.Data(http.StatusOK, ctype, data)
}
