package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// cspAPI is a strict Content-Security-Policy for routes that return JSON.
const cspAPI = "default-src 'none'; frame-ancestors 'none'"

// cspDocs is the Content-Security-Policy for the Swagger UI, which relies on
// inline scripts and styles.
const cspDocs = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; frame-ancestors 'none'"

// SecurityHeaders returns a middleware that sets security-related HTTP response headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/docs") {
			c.Header("Content-Security-Policy", cspDocs)
		} else {
			c.Header("Content-Security-Policy", cspAPI)
		}

		// Token listings must never be cached by intermediaries.
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/") {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}

// BodyLimitMiddleware limits the size of request bodies. Reads past maxBytes fail
// and the handler responds with 413.
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
