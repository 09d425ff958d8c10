package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/version"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger *logrus.Logger

	// BodyLimit caps request bodies, chiefly multipart uploads. Zero keeps
	// the Fiber default.
	BodyLimit int

	// AllowOrigins feeds the CORS middleware; empty means "*".
	AllowOrigins []string
}

const contextKeyRequestID = "_imagehub_request_id"

// NewApp builds a Fiber application with request ID, CORS, panic recovery and
// JSON error rendering. Routes are attached by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		AppName:       version.Name,
		CaseSensitive: true,
		UnescapePath:  true,
		BodyLimit:     opts.BodyLimit,
		ErrorHandler:  errorHandler(opts.Logger),
	})

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	app.Use(recover.New())
	app.Use(requestIDMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodHead, fiber.MethodOptions},
		ExposeHeaders: []string{HeaderRequestID, HeaderCacheHit},
	}))

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID 并回写到响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set(HeaderRequestID, reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// IsDiagnosticsPath reports whether path belongs to the /-/ namespace.
func IsDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
