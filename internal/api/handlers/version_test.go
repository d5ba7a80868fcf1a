package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestVersionGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewVersionHandler(VersionInfo{Version: "1.0.0", Commit: "abc1234", BuildDate: "2026-01-15T10:30:00Z"}, zerolog.Nop()).RegisterPublicRoutes(r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/version", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp VersionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Version != "1.0.0" {
		t.Fatalf("expected version '1.0.0', got %q", resp.Version)
	}
	if resp.Commit != "abc1234" {
		t.Fatalf("expected commit 'abc1234', got %q", resp.Commit)
	}
	if resp.BuildDate != "2026-01-15T10:30:00Z" {
		t.Fatalf("expected build_date '2026-01-15T10:30:00Z', got %q", resp.BuildDate)
	}
}
