package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// SessionIDKey is the gin context key holding the session id.
const SessionIDKey = "session_id"

// SessionCookieConfig describes the session cookie.
type SessionCookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// DefaultSessionCookieConfig returns the cookie settings used in development.
func DefaultSessionCookieConfig() SessionCookieConfig {
	return SessionCookieConfig{
		Name:     "console_sid",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   24 * time.Hour,
	}
}

// ParseSameSite maps a config value to http.SameSite. Unknown values
// yield Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Session assigns every browser a session id carried in an HttpOnly cookie.
// Cookies that are missing or were not issued by NewSessionID are replaced.
// The cookie is refreshed on each request so MaxAge slides with activity.
func Session(cfg SessionCookieConfig) gin.HandlerFunc {
	if cfg.Name == "" {
		cfg.Name = DefaultSessionCookieConfig().Name
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.Name)
		if err != nil || !auth.ValidSessionID(sid) {
			sid = auth.NewSessionID()
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.Name,
			Value:    sid,
			Path:     cfg.Path,
			Domain:   cfg.Domain,
			MaxAge:   int(cfg.MaxAge.Seconds()),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: cfg.SameSite,
		})

		fp := auth.Fingerprint(sid)
		c.Set(SessionIDKey, sid)
		c.Set(logger.GinSessionKey, fp)
		c.Request = c.Request.WithContext(logger.WithSession(c.Request.Context(), fp))

		c.Next()
	}
}

// GetSessionID returns the session id set by Session.
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
