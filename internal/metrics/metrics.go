package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportRows counts previewed rows by their resulting status
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_rows_total",
		Help: "Rows evaluated during import preview by status",
	}, []string{"status"})

	// ImportBatches counts staged batches
	ImportBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_import_batches_staged_total",
		Help: "Import batches staged for confirmation",
	})

	// ImportConfirms counts confirm calls by outcome kind
	ImportConfirms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_confirms_total",
		Help: "Import confirm calls by outcome",
	}, []string{"outcome"})

	// ImportApplyDuration tracks commit transaction latency
	ImportApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_import_apply_duration_seconds",
		Help:    "Time spent applying a confirmed batch",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// CategoriesProvisioned counts categories created on the fly
	CategoriesProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_categories_provisioned_total",
		Help: "Categories created automatically while writing products",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "HTTP requests by method, route and status class",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, statusClass(status)).Inc()
		httpLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
