package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MetricsHandler serves the Prometheus exposition endpoint.
type MetricsHandler struct {
	handler http.Handler
	logger  zerolog.Logger
}

// NewMetricsHandler creates a new MetricsHandler for the given gatherer.
func NewMetricsHandler(gatherer prometheus.Gatherer, logger zerolog.Logger) *MetricsHandler {
	log := logger.With().Str("component", "metrics_handler").Logger()
	return &MetricsHandler{
		handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog: promErrorLogger{log},
		}),
		logger: log,
	}
}

// RegisterPublicRoutes registers metrics routes that don't require authentication.
func (h *MetricsHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/metrics", h.Metrics)
}

// Metrics returns metrics in Prometheus exposition format.
//
//	@Summary		Prometheus metrics endpoint
//	@Description	Returns metrics in Prometheus exposition format for scraping
//	@Tags			Monitoring
//	@Produce		plain
//	@Success		200	{string}	string	"Prometheus metrics"
//	@Router			/metrics [get]
func (h *MetricsHandler) Metrics(c *gin.Context) {
	h.handler.ServeHTTP(c.Writer, c.Request)
}

// promErrorLogger adapts zerolog to promhttp.Logger.
type promErrorLogger struct {
	logger zerolog.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
