// Package handler adapts the console application services to HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/infrastructure/logger"
	"github.com/coagronet/console/internal/interfaces/http/dto"
	"github.com/coagronet/console/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// sessionID returns the browser session id set by middleware.Session.
func sessionID(c *gin.Context) string {
	return middleware.GetSessionID(c)
}

func reqCtx(c *gin.Context) context.Context {
	return c.Request.Context()
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any, notes ...notify.Notification) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data, notes...))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string, notes ...notify.Notification) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, notes...))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts an application failure into a response carrying its
// notification. Anything else becomes a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError with a payload, used where a failed
// read still yields data the client renders, such as an empty page.
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	f, ok := console.AsFailure(err)
	if !ok {
		logger.L(reqCtx(c)).Error("unhandled error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(f.Code)
	resp := dto.NewErrorResponse(code, f.Notification.Message, f.Notification)
	resp.Data = data
	c.JSON(dto.GetHTTPStatus(code), resp)
}
