package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/apperr"
)

// 响应头名称，外部客户端与测试共用。
const (
	HeaderRequestID = "X-Request-ID"
	HeaderCacheHit  = "X-Image-Hub-Cache-Hit"
)

// StatusFor 将错误类别映射为 HTTP 状态码。
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError 以 {"error": code, "message": msg} 输出错误，状态码由错误类别决定。
func WriteError(c fiber.Ctx, err error) error {
	status := StatusFor(apperr.KindOf(err))
	return c.Status(status).JSON(fiber.Map{
		"error":   apperr.CodeOf(err),
		"message": apperr.MessageOf(err),
	})
}

// errorHandler 兜底处理 handler 未渲染的错误，包括 Fiber 自身的 404/413。
func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error":   fiberErrorCode(fiberErr.Code),
				"message": fiberErr.Message,
			})
		}

		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Kind == apperr.KindServer {
			logger.WithFields(logrus.Fields{
				"action":     "request_failed",
				"path":       c.Path(),
				"request_id": RequestID(c),
			}).WithError(err).Error("unhandled error")
		}
		return WriteError(c, err)
	}
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "route_not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusBadRequest:
		return "bad_request"
	default:
		return "internal_error"
	}
}
