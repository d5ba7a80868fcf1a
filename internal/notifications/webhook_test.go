package notifications

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/rs/zerolog"
)

// newTestWebhookSender creates a webhook sender that retries without waiting.
func newTestWebhookSender(t *testing.T, url, secret string) *WebhookSender {
	t.Helper()
	s, err := NewWebhookSender(WebhookConfig{URL: url, Secret: secret}, &http.Client{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.backoff = func(int) time.Duration { return time.Millisecond }
	return s
}

func TestWebhookSender_NotifyTokensIssued(t *testing.T) {
	var receivedPayload struct {
		EventType string                   `json:"event_type"`
		Data      models.TokensIssuedEvent `json:"data"`
	}
	var receivedSig string

	secret := "test-secret"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedSig = r.Header.Get(SignatureHeader)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &receivedPayload); err != nil {
			t.Errorf("failed to unmarshal body: %v", err)
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expectedSig := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		if receivedSig != expectedSig {
			t.Errorf("signature mismatch: got %q, want %q", receivedSig, expectedSig)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := newTestWebhookSender(t, server.URL, secret)
	if err := sender.NotifyTokensIssued(context.Background(), testEvent(models.IssueSourceClaim)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPayload.EventType != "tokens_issued" {
		t.Errorf("expected event_type tokens_issued, got %s", receivedPayload.EventType)
	}
	if receivedPayload.Data.OwnerID != "123" || len(receivedPayload.Data.Tokens) != 2 {
		t.Errorf("unexpected event data: %+v", receivedPayload.Data)
	}
}

func TestWebhookSender_SendNoSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sig := r.Header.Get(SignatureHeader); sig != "" {
			t.Errorf("expected no signature header, got %s", sig)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := newTestWebhookSender(t, server.URL, "")
	if err := sender.Send(context.Background(), WebhookPayload{EventType: "test", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookSender_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := newTestWebhookSender(t, server.URL, "")
	if err := sender.Send(context.Background(), WebhookPayload{EventType: "test", Timestamp: time.Now()}); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookSender_AllRetriesFail(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := newTestWebhookSender(t, server.URL, "")
	if err := sender.Send(context.Background(), WebhookPayload{EventType: "test", Timestamp: time.Now()}); err == nil {
		t.Fatal("expected error after all retries fail")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookSender_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := newTestWebhookSender(t, server.URL, "")
	sender.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sender.Send(ctx, WebhookPayload{EventType: "test", Timestamp: time.Now()}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestNewWebhookSender_RequiresURL(t *testing.T) {
	if _, err := NewWebhookSender(WebhookConfig{}, nil, zerolog.Nop()); err == nil {
		t.Error("expected error for empty URL")
	}
}
