package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/temperature-logger/internal/metrics"
)

// ErrorHandler is the centralized error response used by the Fiber app.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RequestMetrics records count and latency per route template.
func RequestMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		m.ObserveRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}

func statusOf(err error) int {
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fiber.StatusInternalServerError
}
