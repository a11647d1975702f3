package handler

import (
	"github.com/coagronet/console/internal/application/console"
	"github.com/gin-gonic/gin"
)

// ContextOptionsQuery optionally narrows roles to one company.
type ContextOptionsQuery struct {
	EmpresaID int64 `form:"empresaId" binding:"omitempty,min=1"`
}

// SwitchContextRequest picks the company/role to act as.
type SwitchContextRequest struct {
	EmpresaID int64 `json:"empresaId" binding:"required,min=1"`
	RolID     int64 `json:"rolId" binding:"required,min=1"`
}

// ContextHandler handles company/role selection
type ContextHandler struct {
	BaseHandler
	contexts *console.ContextService
}

// NewContextHandler creates a new ContextHandler
func NewContextHandler(contexts *console.ContextService) *ContextHandler {
	return &ContextHandler{contexts: contexts}
}

// Options lists the companies and roles available to the user
func (h *ContextHandler) Options(c *gin.Context) {
	var q ContextOptionsQuery
	if !bindQuery(c, &q) {
		return
	}
	opts, err := h.contexts.Options(reqCtx(c), sessionID(c), q.EmpresaID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, opts)
}

// Switch scopes the session to a company/role. On success the client
// reloads everything fetched under the previous context.
func (h *ContextHandler) Switch(c *gin.Context) {
	var req SwitchContextRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.contexts.Switch(reqCtx(c), sessionID(c), req.EmpresaID, req.RolID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res, res.Notification)
}
