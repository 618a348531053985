package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

type ServerMetrics struct {
	reg *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Checkouts     *prometheus.CounterVec
	ReservedUnits prometheus.Counter
	Revenue       prometheus.Counter
	Cancellations prometheus.Counter
}

// New registers the server and order metrics on a fresh registry.
func New(service string) *ServerMetrics {
	service = strings.ReplaceAll(service, "-", "_")
	reg := prometheus.NewRegistry()
	m := &ServerMetrics{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"result"}),
		ReservedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "stock_reserved_units_total",
			Help:      "Units of stock reserved by successful checkouts.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_final_price_total",
			Help:      "Sum of order final prices in minor units.",
		}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled with stock released.",
		}),
	}
	reg.MustRegister(
		m.Requests, m.LatencyMS, m.Checkouts, m.ReservedUnits, m.Revenue, m.Cancellations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by route pattern.
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *ServerMetrics) CheckoutSucceeded(units int, finalPrice int64) {
	m.Checkouts.WithLabelValues("success").Inc()
	m.ReservedUnits.Add(float64(units))
	m.Revenue.Add(float64(finalPrice))
}

func (m *ServerMetrics) CheckoutFailed(reason string) {
	m.Checkouts.WithLabelValues(reason).Inc()
}

func (m *ServerMetrics) OrderCancelled() {
	m.Cancellations.Inc()
}
