package handler

import (
	"github.com/coagronet/console/internal/application/console"
	"github.com/gin-gonic/gin"
)

// LoginRequest holds sign-in credentials. Blank credentials are rejected by
// the service with the same notification as wrong ones.
type LoginRequest struct {
	Correo   string `json:"correo" binding:"max=254"`
	Password string `json:"password" binding:"max=256"`
}

// VerifyQuery carries the e-mail verification token.
type VerifyQuery struct {
	Token string `form:"token" binding:"required"`
}

// ForgotPasswordRequest asks for a password reset e-mail.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest sets a new password with a reset token.
type ChangePasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,max=256"`
}

// AuthHandler handles sign-in and the account lifecycle
type AuthHandler struct {
	BaseHandler
	authService *console.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *console.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login signs the browser session in. The response tells the client which
// screen to show next and whether a company/role must be picked.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(reqCtx(c), sessionID(c), req.Correo, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result, result.Notifications...)
}

// Logout clears the session
func (h *AuthHandler) Logout(c *gin.Context) {
	note, err := h.authService.Logout(reqCtx(c), sessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LogoutData{SignedOut: true}, note)
}

// Verify confirms an e-mail address
func (h *AuthHandler) Verify(c *gin.Context) {
	var q VerifyQuery
	if !bindQuery(c, &q) {
		return
	}
	note, err := h.authService.Verify(reqCtx(c), q.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: note.Message}, note)
}

// ForgotPassword sends a password reset e-mail
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.authService.ForgotPassword(reqCtx(c), req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: note.Message}, note)
}

// ChangePassword sets a new password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.authService.ChangePassword(reqCtx(c), req.Token, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: note.Message}, note)
}
