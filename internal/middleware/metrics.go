package middleware

import (
	"strconv"
	"time"

	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records the request counter and latency histogram for
// every route, labelled by method, route template and status code.
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		duration := time.Since(start).Seconds()
		method := c.Request().Method
		path := c.Path()
		status := strconv.Itoa(c.Response().Status)

		prometheus.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration)

		return err
	}
}
