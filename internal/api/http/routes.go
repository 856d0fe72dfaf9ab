package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/temperature-logger/internal/metrics"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "temperature-logger"

// HealthChecker reports the outcome of the latest background integrity check.
type HealthChecker interface {
	Healthy() error
	LastRun() time.Time
}

// Options wires optional collaborators into the routes.
type Options struct {
	// PublicDir holds index.html and other static assets. Empty disables them.
	PublicDir string
	Health    HealthChecker
	Metrics   *metrics.Metrics
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *telemetry.Service, opts Options) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":   "ok",
			"service":  ServiceName,
			"readings": service.Count(),
		}
		if opts.Health != nil {
			if last := opts.Health.LastRun(); !last.IsZero() {
				body["lastCheck"] = telemetry.FormatTimestamp(last)
			}
			if err := opts.Health.Healthy(); err != nil {
				body["status"] = "degraded"
				body["error"] = err.Error()
			}
		}
		return c.JSON(body)
	})

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	api := app.Group("/api")

	api.Get("/temperature", func(c *fiber.Ctx) error {
		return c.JSON(service.All())
	})

	api.Post("/temperature", func(c *fiber.Ctx) error {
		// Bodies that are not declared as JSON are ignored, as with an empty body.
		var body []byte
		if c.Is("json") {
			body = c.Body()
		}
		fields, err := decodeFields(body)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := service.Record(c.UserContext(), fields)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save reading")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Data saved successfully",
			"reading": reading,
		})
	})

	api.Post("/reset", func(c *fiber.Ctx) error {
		if _, err := service.Reset(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to reset data")
		}
		return c.JSON(fiber.Map{
			"message": "Data reset successfully",
		})
	})

	api.Get("/export", func(c *fiber.Ctx) error {
		csv, err := service.Export()
		if err != nil {
			if errors.Is(err, telemetry.ErrNoData) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"message": "No data to export",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export data")
		}

		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename="+telemetry.ExportFilename)
		return c.Send(csv)
	})

	if opts.PublicDir != "" {
		index := filepath.Join(opts.PublicDir, "index.html")
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(index)
		})
		app.Static("/", opts.PublicDir)
	}
}

var errNotObject = errors.New("request body must be a JSON object")

// decodeFields parses a reading body. An empty body is an empty object;
// anything other than a JSON object is rejected.
func decodeFields(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, errNotObject
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return fields, nil
}
