package prometheus

import (
	"time"

	"inventory-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Order lifecycle metrics, labelled by order kind (purchase/sale)
	OrderOperationsCounter prometheus.CounterVec

	// Stock reconciliation metrics
	StockMovementsCounter prometheus.CounterVec
	ProductInventoryGauge prometheus.GaugeVec

	// initialized guards the recording helpers so library code (and tests)
	// can run without the metric registry being set up.
	initialized bool
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Order operations
	OrderOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_order_operations_total",
			Help: "Total number of order operations",
		},
		[]string{"kind", "operation"},
	)

	// Stock movements applied by the reconciliation engine
	StockMovementsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_movements_total",
			Help: "Total number of stock delta applications",
		},
		[]string{"kind", "direction"},
	)

	// Product inventory levels
	ProductInventoryGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current inventory level for products",
		},
		[]string{"product_id"},
	)

	initialized = true
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if !initialized {
			return
		}
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordOrderOperation increments the counter for order operations
func RecordOrderOperation(kind, operation string) {
	if !initialized {
		return
	}
	OrderOperationsCounter.WithLabelValues(kind, operation).Inc()
}

// RecordStockMovement increments the counter for applied stock deltas
func RecordStockMovement(kind string, delta int) {
	if !initialized {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
	}
	StockMovementsCounter.WithLabelValues(kind, direction).Inc()
}

// UpdateProductInventory updates the gauge for product inventory
func UpdateProductInventory(productID string, count float64) {
	if !initialized {
		return
	}
	ProductInventoryGauge.WithLabelValues(productID).Set(count)
}
