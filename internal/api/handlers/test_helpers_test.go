package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MacJediWizard/modlicense/internal/api/middleware"
	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/license/licensetest"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const testClaimRole = "role-supporter"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *licensetest.Store) *license.Service {
	t.Helper()
	cfg := license.DefaultConfig()
	cfg.ClaimRoleID = testClaimRole
	svc, err := license.NewService(store, nil, nil, cfg, zerolog.Nop(), license.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	t.Cleanup(svc.Wait)
	return svc
}

func testMember(id string) license.Caller {
	return license.Caller{OwnerID: id, Username: "member-" + id, Roles: []string{testClaimRole}}
}

func testAdmin() license.Caller {
	return license.Caller{OwnerID: "999", Username: "admin", IsAdmin: true}
}

// injectCaller places caller in the context the way AuthMiddleware does.
func injectCaller(caller license.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(middleware.CallerContextKey), caller)
		c.Next()
	}
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error body %q: %v", w.Body.String(), err)
	}
	return resp
}
