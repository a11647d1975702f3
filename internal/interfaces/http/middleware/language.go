package middleware

import (
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/gin-gonic/gin"
)

// Language negotiates the notification language from Accept-Language and
// stores it in the request context.
func Language(loc *notify.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := loc.Match(c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(notify.WithLanguage(c.Request.Context(), tag))
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}
