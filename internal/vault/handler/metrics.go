package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attestia/docseal/internal/vault/model"
)

var (
	sealsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docseal_seals_total",
		Help: "Total seal attempts by final status and simulation flag.",
	}, []string{"status", "simulated"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docseal_verifications_total",
		Help: "Total hash verifications by outcome.",
	}, []string{"outcome"})

	deletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docseal_deletions_total",
		Help: "Total soft deletions.",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docseal_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docseal_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ledgerProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docseal_ledger_probes_total",
		Help: "Total ledger health probes by result.",
	}, []string{"result"})

	ledgerUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docseal_ledger_up",
		Help: "Whether the remote ledger answered its last health probe.",
	})

	notifyDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docseal_notify_deliveries_total",
		Help: "Total notification deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordSeal records a seal attempt outcome.
func RecordSeal(status model.SealStatus, simulated bool) {
	sealsTotal.WithLabelValues(string(status), strconv.FormatBool(simulated)).Inc()
}

// RecordVerification records a verification outcome.
func RecordVerification(outcome model.VerificationOutcome) {
	verificationsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordDeletion records a soft deletion.
func RecordDeletion() {
	deletionsTotal.Inc()
}

// RecordLedgerProbe records a ledger health probe result and updates the gauge.
func RecordLedgerProbe(up bool) {
	if up {
		ledgerProbesTotal.WithLabelValues("up").Inc()
		ledgerUp.Set(1)
	} else {
		ledgerProbesTotal.WithLabelValues("down").Inc()
		ledgerUp.Set(0)
	}
}

// RecordNotifyDelivery records a notification delivery attempt.
func RecordNotifyDelivery(success bool) {
	if success {
		notifyDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		notifyDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
