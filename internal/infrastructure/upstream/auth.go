package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// LoginRequest is the credential payload of POST /auth/login.
type LoginRequest struct {
	Correo   string `json:"correo"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the account completion state.
type LoginResponse struct {
	Token         string `json:"token"`
	UsuarioEstado string `json:"usuarioEstado"`
}

// SwitchContextRequest selects the company/role a new token is scoped to.
type SwitchContextRequest struct {
	EmpresaID int64 `json:"empresaId"`
	RolID     int64 `json:"rolId"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
}

func (m messageResponse) text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Mensaje
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.execute(ctx, call{endpoint: "auth.login", method: http.MethodPost, path: "/auth/login", body: req})
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := decode("auth.login", resp, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("auth.login: response has no token")
	}
	return &out, nil
}

// SwitchContext reissues token scoped to the chosen company and role.
func (c *Client) SwitchContext(ctx context.Context, token string, req SwitchContextRequest) (string, error) {
	resp, err := c.execute(ctx, call{
		endpoint: "auth.switch_context",
		method:   http.MethodPost,
		path:     "/auth/switch-context",
		token:    token,
		body:     req,
	})
	if err != nil {
		return "", err
	}
	var out tokenResponse
	if err := decode("auth.switch_context", resp, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("auth.switch_context: response has no token")
	}
	return out.Token, nil
}

// Verify confirms an e-mail verification token. The backend's message, if
// any, is returned.
func (c *Client) Verify(ctx context.Context, verificationToken string) (string, error) {
	return c.message(ctx, call{
		endpoint: "auth.verify",
		method:   http.MethodGet,
		path:     "/auth/verify",
		query:    url.Values{"token": {verificationToken}},
	})
}

// ForgotPassword asks the API to send a reset link to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.message(ctx, call{
		endpoint: "auth.forgot_password",
		method:   http.MethodPost,
		path:     "/auth/forgot-password",
		body:     map[string]string{"correo": email},
	})
}

// ChangePassword sets a new password using a one-time reset token.
func (c *Client) ChangePassword(ctx context.Context, resetToken, password string) (string, error) {
	return c.message(ctx, call{
		endpoint: "auth.change_password",
		method:   http.MethodPost,
		path:     "/auth/change-password",
		body:     map[string]string{"token": resetToken, "password": password},
	})
}

func (c *Client) message(ctx context.Context, in call) (string, error) {
	resp, err := c.execute(ctx, in)
	if err != nil {
		return "", err
	}
	var out messageResponse
	// Plain-text success bodies are fine; only the message is optional.
	_ = decode(in.endpoint, resp, &out)
	return out.text(), nil
}
