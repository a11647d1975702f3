package handler

import (
	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/gin-gonic/gin"
)

// ResolveQuery is the browser location to resolve, path plus query.
type ResolveQuery struct {
	Path string `form:"path" binding:"max=2048"`
}

// ActiveModuleRequest names the screen being opened, by name or key.
type ActiveModuleRequest struct {
	Module string `json:"module" binding:"required,max=64"`
}

// ActiveModuleData echoes the stored screen.
type ActiveModuleData struct {
	Screen screen.Screen `json:"screen"`
	Key    string        `json:"key"`
}

// SessionHandler exposes the session, navigation and preferences
type SessionHandler struct {
	BaseHandler
	navigation *console.NavigationService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(navigation *console.NavigationService) *SessionHandler {
	return &SessionHandler{navigation: navigation}
}

// Session returns the session as the browser sees it
func (h *SessionHandler) Session(c *gin.Context) {
	view, err := h.navigation.Session(reqCtx(c), sessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Resolve decides which screen to mount for a location
func (h *SessionHandler) Resolve(c *gin.Context) {
	var q ResolveQuery
	if !bindQuery(c, &q) {
		return
	}
	if q.Path == "" {
		q.Path = "/"
	}
	res, err := h.navigation.Resolve(reqCtx(c), sessionID(c), q.Path)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// SetActiveModule remembers the open screen
func (h *SessionHandler) SetActiveModule(c *gin.Context) {
	var req ActiveModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	sc, err := h.navigation.SetActiveModule(reqCtx(c), sessionID(c), req.Module)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ActiveModuleData{Screen: sc, Key: sc.Key()})
}

// SetPreferences stores UI flags
func (h *SessionHandler) SetPreferences(c *gin.Context) {
	var prefs session.Preferences
	if !bindJSON(c, &prefs) {
		return
	}
	st, err := h.navigation.SetPreferences(reqCtx(c), sessionID(c), prefs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}
