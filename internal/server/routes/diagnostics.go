package routes

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/any-hub/image-hub/internal/metrics"
	"github.com/any-hub/image-hub/internal/version"
)

// DiagnosticsOptions 描述 /-/healthz 中展示的运行信息。
type DiagnosticsOptions struct {
	CacheBackend string
}

// RegisterDiagnosticsRoutes 暴露 /-/healthz 与 /-/metrics，供探活与 Prometheus 抓取。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) error {
	if app == nil {
		return errors.New("fiber app is required")
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"cache_backend": opts.CacheBackend,
			"version":       version.Full(),
		})
	})
	app.Get("/-/metrics", adaptor.HTTPHandler(metrics.Handler()))
	return nil
}
