// Package handlers provides HTTP handlers for the modlicense API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error      string              `json:"error" example:"too_many_requests"`
	Message    string              `json:"message" example:"you can claim again in 6d 23h"`
	RetryAfter *license.RetryAfter `json:"retry_after,omitempty"`
}

// statusForKind maps a service error kind to its HTTP status code.
func statusForKind(kind license.Kind) int {
	switch kind {
	case license.KindUnauthenticated:
		return http.StatusUnauthorized
	case license.KindForbidden:
		return http.StatusForbidden
	case license.KindTooManyRequests:
		return http.StatusTooManyRequests
	case license.KindNotFound:
		return http.StatusNotFound
	case license.KindConflict:
		return http.StatusConflict
	case license.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Internal failures are logged
// and their cause is never exposed.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var svcErr *license.Error
	if !errors.As(err, &svcErr) {
		svcErr = &license.Error{Kind: license.KindInternal, Message: "internal server error", Err: err}
	}

	status := statusForKind(svcErr.Kind)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	if svcErr.RetryAfter != nil {
		c.Header("Retry-After", strconv.FormatInt(svcErr.RetryAfter.Seconds, 10))
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:      string(svcErr.Kind),
		Message:    svcErr.Message,
		RetryAfter: svcErr.RetryAfter,
	})
}

// respondInvalid writes a 400 for a malformed request.
func respondInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(license.KindInvalid),
		Message: msg,
	})
}
