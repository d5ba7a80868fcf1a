package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind license.Kind
		want int
	}{
		{license.KindUnauthenticated, http.StatusUnauthorized},
		{license.KindForbidden, http.StatusForbidden},
		{license.KindTooManyRequests, http.StatusTooManyRequests},
		{license.KindNotFound, http.StatusNotFound},
		{license.KindConflict, http.StatusConflict},
		{license.KindInvalid, http.StatusBadRequest},
		{license.KindInternal, http.StatusInternalServerError},
		{license.Kind("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := statusForKind(tt.kind); got != tt.want {
				t.Errorf("statusForKind(%q) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func respondWith(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/fail", func(c *gin.Context) { respondError(c, zerolog.Nop(), err) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/fail", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRespondError_HidesInternalCause(t *testing.T) {
	w := respondWith(errors.New("pq: password authentication failed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("internal cause leaked: %s", w.Body.String())
	}
	resp := decodeError(t, w)
	if resp.Error != "internal" {
		t.Errorf("expected error kind internal, got %q", resp.Error)
	}
}

func TestRespondError_RetryAfter(t *testing.T) {
	availableAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	err := &license.Error{
		Kind:       license.KindTooManyRequests,
		Message:    "wait",
		RetryAfter: license.NewRetryAfter(90*time.Minute, availableAt),
	}
	w := respondWith(err)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "5400" {
		t.Errorf("Retry-After = %q, want 5400", got)
	}
	resp := decodeError(t, w)
	if resp.RetryAfter == nil || resp.RetryAfter.Hours != 2 || resp.RetryAfter.Label != "0d 2h" {
		t.Errorf("unexpected retry_after: %+v", resp.RetryAfter)
	}
}
