package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// newMockDiscordServer serves the token, user and guild member endpoints.
// Member lookups for guild "no-such-guild" return 404.
func newMockDiscordServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "valid-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   604800,
		})
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "123456789012345678",
			"username":    "modder",
			"global_name": "Mod Der",
			"avatar":      "a1b2",
		})
	})
	mux.HandleFunc("/api/users/@me/guilds/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "no-such-guild") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Unknown Guild"}`))
			return
		}
		if strings.Contains(r.URL.Path, "broken-guild") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"roles": []string{"role-supporter", "role-other"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestDiscord(t *testing.T, server *httptest.Server, guildID string) *Discord {
	t.Helper()
	cfg := DefaultDiscordConfig("client-id", "client-secret", "http://localhost/auth/callback", guildID)
	cfg.APIBaseURL = server.URL + "/api"
	cfg.Endpoint = &oauth2.Endpoint{
		AuthURL:   server.URL + "/oauth2/authorize",
		TokenURL:  server.URL + "/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	d, err := NewDiscord(cfg, server.Client(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDiscord() error = %v", err)
	}
	return d
}

func TestNewDiscord_Validation(t *testing.T) {
	if _, err := NewDiscord(DiscordConfig{}, nil, zerolog.Nop()); err == nil {
		t.Error("expected error without client credentials")
	}
	cfg := DefaultDiscordConfig("id", "secret", "", "")
	if _, err := NewDiscord(cfg, nil, zerolog.Nop()); err == nil {
		t.Error("expected error without redirect url")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if a == b {
		t.Error("states should be unique")
	}
	if len(a) != 43 {
		t.Errorf("state length = %d, want 43", len(a))
	}
}

func TestDiscord_AuthorizationURL(t *testing.T) {
	server := newMockDiscordServer(t)
	d := newTestDiscord(t, server, "guild-1")

	u, err := url.Parse(d.AuthorizationURL("state-xyz"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-xyz" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("scope") != "identify guilds.members.read" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestDiscord_ExchangeAndFetchIdentity(t *testing.T) {
	server := newMockDiscordServer(t)
	d := newTestDiscord(t, server, "guild-1")
	ctx := context.Background()

	token, err := d.Exchange(ctx, "valid-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	identity, err := d.FetchIdentity(ctx, token)
	if err != nil {
		t.Fatalf("FetchIdentity() error = %v", err)
	}
	if identity.ID != "123456789012345678" {
		t.Errorf("ID = %q", identity.ID)
	}
	if identity.Username != "Mod Der" {
		t.Errorf("Username = %q, want global name", identity.Username)
	}
	if len(identity.Roles) != 2 || identity.Roles[0] != "role-supporter" {
		t.Errorf("Roles = %v", identity.Roles)
	}
}

func TestDiscord_ExchangeInvalidCode(t *testing.T) {
	server := newMockDiscordServer(t)
	d := newTestDiscord(t, server, "guild-1")

	if _, err := d.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("expected exchange error")
	}
}

func TestDiscord_FetchIdentityGuildCases(t *testing.T) {
	server := newMockDiscordServer(t)
	token := &oauth2.Token{AccessToken: "access-123", TokenType: "Bearer"}

	t.Run("not a member", func(t *testing.T) {
		d := newTestDiscord(t, server, "no-such-guild")
		identity, err := d.FetchIdentity(context.Background(), token)
		if err != nil {
			t.Fatalf("FetchIdentity() error = %v", err)
		}
		if len(identity.Roles) != 0 {
			t.Errorf("Roles = %v, want none", identity.Roles)
		}
	})

	t.Run("no guild configured", func(t *testing.T) {
		d := newTestDiscord(t, server, "")
		identity, err := d.FetchIdentity(context.Background(), token)
		if err != nil {
			t.Fatalf("FetchIdentity() error = %v", err)
		}
		if identity.Roles == nil || len(identity.Roles) != 0 {
			t.Errorf("Roles = %#v, want empty", identity.Roles)
		}
	})

	t.Run("guild error", func(t *testing.T) {
		d := newTestDiscord(t, server, "broken-guild")
		if _, err := d.FetchIdentity(context.Background(), token); err == nil {
			t.Error("expected error on guild lookup failure")
		}
	})

	t.Run("bad token", func(t *testing.T) {
		d := newTestDiscord(t, server, "guild-1")
		bad := &oauth2.Token{AccessToken: "wrong", TokenType: "Bearer"}
		if _, err := d.FetchIdentity(context.Background(), bad); err == nil {
			t.Error("expected error for rejected token")
		}
	})
}
