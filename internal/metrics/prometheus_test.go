package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) *PrometheusMetrics {
	t.Helper()
	m, err := NewPrometheusMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m
}

func TestPrometheus_ClaimCounter(t *testing.T) {
	m := newTestMetrics(t)

	t.Run("increments success counter", func(t *testing.T) {
		m.RecordClaim("success")
		m.RecordClaim("success")
		m.RecordClaim("success")

		if val := getCounterValue(t, m.ClaimCounter, "success"); val != 3 {
			t.Errorf("expected 3, got %f", val)
		}
	})

	t.Run("tracks outcomes independently", func(t *testing.T) {
		m.RecordClaim("cooldown")

		if val := getCounterValue(t, m.ClaimCounter, "cooldown"); val != 1 {
			t.Errorf("expected 1, got %f", val)
		}
		if val := getCounterValue(t, m.ClaimCounter, "forbidden"); val != 0 {
			t.Errorf("expected 0, got %f", val)
		}
	})
}

func TestPrometheus_TokensIssued(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordTokensIssued(models.TierBasic, models.IssueSourceClaim, 2)
	m.RecordTokensIssued(models.TierBasic, models.IssueSourceClaim, 1)
	m.RecordTokensIssued(models.TierVIP, models.IssueSourceAdminGrant, 1)

	if val := getCounterValue(t, m.TokensIssuedCounter, "BASIC", "claim"); val != 3 {
		t.Errorf("expected 3 basic claims, got %f", val)
	}
	if val := getCounterValue(t, m.TokensIssuedCounter, "VIP", "admin_grant"); val != 1 {
		t.Errorf("expected 1 vip grant, got %f", val)
	}
}

func TestPrometheus_AdminAndSideEffects(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordAdminAction("grant")
	m.RecordAdminAction("grant")
	m.RecordSideEffectFailure("notify")

	if val := getCounterValue(t, m.AdminActionCounter, "grant"); val != 2 {
		t.Errorf("expected 2, got %f", val)
	}
	if val := getCounterValue(t, m.SideEffectFailures, "notify"); val != 1 {
		t.Errorf("expected 1, got %f", val)
	}
}

func TestPrometheus_SetInventory(t *testing.T) {
	m := newTestMetrics(t)

	m.SetInventory(&models.TokenStats{
		ByTier: []models.TierStats{
			{Tier: models.TierBasic, Active: 5, Expired: 2},
			{Tier: models.TierVIP, Active: 1},
		},
		Owners: 4,
	})

	if val := getGaugeValue(t, m.TokenGauge, "BASIC", "active"); val != 5 {
		t.Errorf("expected 5, got %f", val)
	}
	if val := getGaugeValue(t, m.TokenGauge, "BASIC", "expired"); val != 2 {
		t.Errorf("expected 2, got %f", val)
	}

	var owners dto.Metric
	if err := m.OwnerGauge.Write(&owners); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if owners.GetGauge().GetValue() != 4 {
		t.Errorf("expected 4 owners, got %f", owners.GetGauge().GetValue())
	}

	m.SetInventory(&models.TokenStats{ByTier: []models.TierStats{{Tier: models.TierVIP, Active: 3}}})
	if val := getGaugeValue(t, m.TokenGauge, "BASIC", "active"); val != 0 {
		t.Errorf("stale tier should be cleared, got %f", val)
	}
}

func TestPrometheus_GinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestMetrics(t)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/v1/tokens/:token", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tokens/abc", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if val := getCounterValue(t, m.HTTPRequestCounter, "/api/v1/tokens/:token", "GET", "418"); val != 2 {
		t.Errorf("expected 2 matched requests, got %f", val)
	}
	if val := getCounterValue(t, m.HTTPRequestCounter, "unmatched", "GET", "404"); val != 1 {
		t.Errorf("expected 1 unmatched request, got %f", val)
	}
	if count, _ := getHistogramValues(t, m.HTTPRequestDuration, "/api/v1/tokens/:token", "GET"); count != 2 {
		t.Errorf("expected 2 observations, got %d", count)
	}
}

func TestPrometheus_Registration(t *testing.T) {
	t.Run("creates metrics successfully", func(t *testing.T) {
		m := newTestMetrics(t)
		if m.ClaimCounter == nil || m.TokensIssuedCounter == nil || m.TokenGauge == nil {
			t.Error("collectors should not be nil")
		}
	})

	t.Run("fails on duplicate registration", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if _, err := NewPrometheusMetrics(reg); err != nil {
			t.Fatalf("first registration failed: %v", err)
		}
		if _, err := NewPrometheusMetrics(reg); err == nil {
			t.Fatal("expected error on duplicate registration")
		}
	})
}

// Helper functions for extracting Prometheus metric values.

func getCounterValue(t *testing.T, counter *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := counter.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, gauge *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := gauge.WithLabelValues(labels...).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func getHistogramValues(t *testing.T, hist *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	t.Helper()
	observer := hist.WithLabelValues(labels...)
	var m dto.Metric
	if err := observer.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}
