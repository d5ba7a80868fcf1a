// Package metrics provides Prometheus metrics for the license service.
package metrics

import (
	"strconv"
	"time"

	"github.com/MacJediWizard/modlicense/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modlicense"

// PrometheusMetrics holds the service's Prometheus collectors. It implements
// license.Recorder.
type PrometheusMetrics struct {
	ClaimCounter        *prometheus.CounterVec
	TokensIssuedCounter *prometheus.CounterVec
	AdminActionCounter  *prometheus.CounterVec
	SideEffectFailures  *prometheus.CounterVec
	TokenGauge          *prometheus.GaugeVec
	OwnerGauge          prometheus.Gauge
	HTTPRequestCounter  *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates and registers all collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		ClaimCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		TokensIssuedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued by tier and source.",
		}, []string{"tier", "source"}),
		AdminActionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_actions_total",
			Help:      "Administrative actions performed.",
		}, []string{"action"}),
		SideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Failed post-issuance side effects.",
		}, []string{"effect"}),
		TokenGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens",
			Help:      "Stored tokens by tier and state.",
		}, []string{"tier", "state"}),
		OwnerGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "owners",
			Help:      "Known owners.",
		}),
		HTTPRequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{
		m.ClaimCounter,
		m.TokensIssuedCounter,
		m.AdminActionCounter,
		m.SideEffectFailures,
		m.TokenGauge,
		m.OwnerGauge,
		m.HTTPRequestCounter,
		m.HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordClaim counts a claim attempt.
func (m *PrometheusMetrics) RecordClaim(outcome string) {
	m.ClaimCounter.WithLabelValues(outcome).Inc()
}

// RecordTokensIssued counts issued tokens.
func (m *PrometheusMetrics) RecordTokensIssued(tier models.Tier, source models.IssueSource, n int) {
	m.TokensIssuedCounter.WithLabelValues(string(tier), string(source)).Add(float64(n))
}

// RecordAdminAction counts an admin action.
func (m *PrometheusMetrics) RecordAdminAction(action string) {
	m.AdminActionCounter.WithLabelValues(action).Inc()
}

// RecordSideEffectFailure counts a failed side effect.
func (m *PrometheusMetrics) RecordSideEffectFailure(effect string) {
	m.SideEffectFailures.WithLabelValues(effect).Inc()
}

// SetInventory publishes a token and owner snapshot.
func (m *PrometheusMetrics) SetInventory(stats *models.TokenStats) {
	m.TokenGauge.Reset()
	for _, s := range stats.ByTier {
		m.TokenGauge.WithLabelValues(string(s.Tier), "active").Set(float64(s.Active))
		m.TokenGauge.WithLabelValues(string(s.Tier), "expired").Set(float64(s.Expired))
	}
	m.OwnerGauge.Set(float64(stats.Owners))
}

// GinMiddleware records request counts and latency per matched route.
func (m *PrometheusMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestCounter.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
