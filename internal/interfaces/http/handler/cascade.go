package handler

import (
	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/gin-gonic/gin"
)

// SelectRequest picks an option at one level of a chain. An id of 0
// deselects the level and everything below it.
type SelectRequest struct {
	Level string `json:"level" binding:"required,max=64"`
	ID    *int64 `json:"id" binding:"required,min=0"`
}

// CascadeHandler drives the dependent selectors
type CascadeHandler struct {
	BaseHandler
	cascades *console.CascadeService
}

// NewCascadeHandler creates a new CascadeHandler
func NewCascadeHandler(cascades *console.CascadeService) *CascadeHandler {
	return &CascadeHandler{cascades: cascades}
}

// State returns a chain, loading its first level if needed
func (h *CascadeHandler) State(c *gin.Context) {
	view, err := h.cascades.State(reqCtx(c), sessionID(c), c.Param("chain"))
	h.respond(c, view, err)
}

// Select picks an option and loads the next level
func (h *CascadeHandler) Select(c *gin.Context) {
	var req SelectRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.cascades.Select(reqCtx(c), sessionID(c), c.Param("chain"), req.Level, *req.ID)
	h.respond(c, view, err)
}

// Clear resets every selection of a chain
func (h *CascadeHandler) Clear(c *gin.Context) {
	view, err := h.cascades.Clear(reqCtx(c), sessionID(c), c.Param("chain"))
	h.respond(c, view, err)
}

// respond sends the view. A failed level fetch is not an error: the
// ancestors stay selected and the failure travels as a notification.
func (h *CascadeHandler) respond(c *gin.Context, view *console.CascadeView, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var notes []notify.Notification
	if view.Notification != nil {
		notes = append(notes, *view.Notification)
	}
	h.Success(c, view, notes...)
}
