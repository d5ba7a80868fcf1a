package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MacJediWizard/modlicense/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrOpenCORS is returned when production is configured without allowed origins.
var ErrOpenCORS = errors.New("ALLOWED_ORIGINS must be set in production")

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// In production allowedOrigins must not be empty. In other environments an
// empty list allows all origins with a warning.
func CORS(allowedOrigins []string, env config.Environment, logger zerolog.Logger) (gin.HandlerFunc, error) {
	if len(allowedOrigins) == 0 {
		if env == config.EnvProduction {
			return nil, ErrOpenCORS
		}
		logger.Warn().Msg("ALLOWED_ORIGINS is empty, all origins are allowed (not suitable for production)")
	}

	allowAll := len(allowedOrigins) == 0

	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.ToLower(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := allowAll
		if !allowed && origin != "" {
			_, allowed = originSet[strings.ToLower(origin)]
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Retry-After")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}, nil
}
