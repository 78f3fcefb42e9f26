package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_total",
		Help: "Order placement attempts by result",
	}, []string{"result"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	catalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_catalog_products",
		Help: "Number of products currently in the catalog",
	})

	pendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_pending_orders",
		Help: "Number of orders in the pending state",
	})

	orderFeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_order_feed_subscribers",
		Help: "Connected order feed websocket clients",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveOrder counts an order placement attempt with a result label
// (placed, insufficient_stock, product_not_found, error).
func ObserveOrder(result string) {
	ordersTotal.WithLabelValues(result).Inc()
}

// ObserveLogin counts a login attempt with a result label (ok, rejected)
func ObserveLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// SetCatalogSize sets the product count gauge
func SetCatalogSize(count int) {
	if count < 0 {
		count = 0
	}
	catalogSize.Set(float64(count))
}

// SetPendingOrders sets the pending order gauge
func SetPendingOrders(count int) {
	if count < 0 {
		count = 0
	}
	pendingOrders.Set(float64(count))
}

// SetFeedSubscribers sets the websocket subscriber gauge
func SetFeedSubscribers(count int) {
	orderFeedSubscribers.Set(float64(count))
}
