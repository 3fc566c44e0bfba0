package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/auth"
)

// ContextKeyPrivilege is the context key for storing the session tier.
const ContextKeyPrivilege = "privilege"

// SessionMiddleware admits requests carrying a valid session cookie for tier
// and redirects everything else to the tier's login page.
func SessionMiddleware(authService *auth.Service, tier Tier, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(tier.Cookie)
		if err != nil || authService.Privilege(token) != tier.Privilege {
			logger.Debug().Str("path", c.Request.URL.Path).Str("tier", tier.Privilege.String()).Msg("missing or invalid session")
			c.Redirect(http.StatusSeeOther, tier.Base)
			c.Abort()
			return
		}

		c.Set(ContextKeyPrivilege, tier.Privilege)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
