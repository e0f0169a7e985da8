package middleware

import (
	"inventory-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an id and a request-scoped
// logger. An inbound X-Request-ID (the desktop client sends one per user
// action) is kept so its log lines correlate across retries; otherwise a
// fresh uuid is issued.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Response().Header().Set(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		log := logger.GetLogger().With(zap.String("request_id", requestID))
		c.Set("logger", log)

		return next(c)
	}
}
