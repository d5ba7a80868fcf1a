// Package middleware provides HTTP middleware for the modlicense API.
package middleware

import (
	"net/http"
	"time"

	"github.com/MacJediWizard/modlicense/internal/auth"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// UserContextKey is the context key for the authenticated session user.
	UserContextKey ContextKey = "user"
	// CallerContextKey is the context key for the resolved license caller.
	CallerContextKey ContextKey = "caller"
)

// SessionReader loads the signed-in user from a request.
type SessionReader interface {
	GetUser(r *http.Request) (*auth.SessionUser, error)
}

// AuthMiddleware returns a Gin middleware that requires authentication and
// resolves the session into a license caller. Sessions whose roles are older
// than the policy allows must sign in again.
func AuthMiddleware(sessions SessionReader, policy auth.RolePolicy, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		sessionUser, err := sessions.GetUser(c.Request)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   string(license.KindUnauthenticated),
				"message": "authentication required",
			})
			return
		}

		if policy.RolesStale(sessionUser, time.Now()) {
			log.Debug().
				Str("owner_id", sessionUser.OwnerID).
				Time("authenticated_at", sessionUser.AuthenticatedAt).
				Msg("session roles expired")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   string(license.KindUnauthenticated),
				"message": "session expired, sign in again",
			})
			return
		}

		c.Set(string(UserContextKey), sessionUser)
		c.Set(string(CallerContextKey), policy.Caller(sessionUser))

		log.Debug().
			Str("owner_id", sessionUser.OwnerID).
			Str("path", c.Request.URL.Path).
			Msg("authenticated request")

		c.Next()
	}
}

// AdminMiddleware returns a Gin middleware that requires administrator
// privileges. It must run after AuthMiddleware.
func AdminMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "admin_middleware").Logger()

	return func(c *gin.Context) {
		caller := GetCaller(c)
		if caller.OwnerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   string(license.KindUnauthenticated),
				"message": "authentication required",
			})
			return
		}

		if !caller.IsAdmin {
			log.Warn().
				Str("owner_id", caller.OwnerID).
				Str("path", c.Request.URL.Path).
				Msg("non-admin attempted to access admin endpoint")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   string(license.KindForbidden),
				"message": "administrator privileges required",
			})
			return
		}

		c.Next()
	}
}

// GetUser retrieves the authenticated user from the Gin context.
// Returns nil if no user is authenticated.
func GetUser(c *gin.Context) *auth.SessionUser {
	user, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil
	}
	sessionUser, ok := user.(*auth.SessionUser)
	if !ok {
		return nil
	}
	return sessionUser
}

// GetCaller retrieves the license caller from the Gin context. An
// unauthenticated zero Caller is returned when none is present.
func GetCaller(c *gin.Context) license.Caller {
	v, exists := c.Get(string(CallerContextKey))
	if !exists {
		return license.Caller{}
	}
	caller, ok := v.(license.Caller)
	if !ok {
		return license.Caller{}
	}
	return caller
}
