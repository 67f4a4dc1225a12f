package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Match outcome labels
const (
	OutcomeKept           = "kept"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeFailed         = "failed"
	OutcomeCached         = "cached"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ProductsScraped   *prometheus.CounterVec
	ScrapeErrors      *prometheus.CounterVec
	ScrapeDuration    *prometheus.HistogramVec
	MatchOutcomes     *prometheus.CounterVec
	ModelRequests     *prometheus.CounterVec
	ModelLatency      *prometheus.HistogramVec
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewMetrics registers the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProductsScraped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopper_products_scraped_total",
			Help: "Products extracted from listing pages",
		}, []string{"retailer"}),
		ScrapeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopper_scrape_errors_total",
			Help: "Listing fetches that failed or yielded nothing",
		}, []string{"retailer", "type"}), // e.g. 'fetch_failed', 'empty'
		ScrapeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopper_scrape_duration_seconds",
			Help:    "Time spent scraping one retailer",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"retailer"}),
		MatchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopper_match_outcomes_total",
			Help: "Per-product matching outcomes",
		}, []string{"outcome"}),
		ModelRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopper_model_requests_total",
			Help: "Vision model calls",
		}, []string{"status"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopper_model_request_duration_seconds",
			Help:    "Vision model call latency",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"status"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopper_http_requests_total",
			Help: "API requests served",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopper_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObserveScrape records the outcome of scraping one retailer
func (m *Metrics) ObserveScrape(retailer string, products int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ScrapeDuration.WithLabelValues(retailer).Observe(elapsed.Seconds())
	m.ProductsScraped.WithLabelValues(retailer).Add(float64(products))
	switch {
	case err != nil:
		m.ScrapeErrors.WithLabelValues(retailer, "fetch_failed").Inc()
	case products == 0:
		m.ScrapeErrors.WithLabelValues(retailer, "empty").Inc()
	}
}

// IncMatchOutcome counts one product's matching outcome
func (m *Metrics) IncMatchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.MatchOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveModelRequest records one vision model call
func (m *Metrics) ObserveModelRequest(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelRequests.WithLabelValues(status).Inc()
	m.ModelLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. routePattern maps a request
// to a low-cardinality path label.
func (m *Metrics) Middleware(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if routePattern != nil {
				if p := routePattern(r); p != "" {
					path = p
				}
			}
			status := strconv.Itoa(rw.statusCode)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}
