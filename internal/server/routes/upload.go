package routes

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/apperr"
	"github.com/any-hub/image-hub/internal/ingest"
	"github.com/any-hub/image-hub/internal/logging"
	"github.com/any-hub/image-hub/internal/metrics"
	"github.com/any-hub/image-hub/internal/server"
)

const (
	uploadFileField   = "image"
	uploadFolderField = "folder"
)

// OriginResolver 返回用于可信来源校验的客户端地址。
type OriginResolver func(fiber.Ctx) string

// UploadOptions 汇总上传路由依赖。
type UploadOptions struct {
	Logger   *logrus.Logger
	Pipeline *ingest.Pipeline

	// Origin 默认为 c.IP()。
	Origin OriginResolver
}

// RegisterUploadRoutes 挂载 POST /upload。
func RegisterUploadRoutes(app *fiber.App, opts UploadOptions) error {
	if app == nil {
		return errors.New("fiber app is required")
	}
	if opts.Logger == nil || opts.Pipeline == nil {
		return errors.New("logger and pipeline are required")
	}
	if opts.Origin == nil {
		opts.Origin = func(c fiber.Ctx) string { return c.IP() }
	}
	app.Post("/upload", func(c fiber.Ctx) error {
		return handleUpload(c, opts)
	})
	return nil
}

func handleUpload(c fiber.Ctx, opts UploadOptions) error {
	started := time.Now()
	origin := opts.Origin(c)
	folder := c.FormValue(uploadFolderField)

	upload := ingest.Upload{Origin: origin, Folder: folder}
	if header, err := c.FormFile(uploadFileField); err == nil {
		upload.FileName = header.Filename
		body, readErr := readFormFile(header)
		if readErr != nil {
			return respondUploadError(c, opts.Logger, upload, started,
				apperr.Server("upload_read_failed", "Failed to read upload.", readErr))
		}
		upload.Body = body
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	artifact, err := opts.Pipeline.Ingest(ctx, upload)
	if err != nil {
		return respondUploadError(c, opts.Logger, upload, started, err)
	}

	metrics.RecordUpload("ok")
	fields := logging.UploadFields(origin, artifact.Folder, artifact.FileName, int(artifact.SizeBytes))
	fields["action"] = "upload"
	fields["request_id"] = server.RequestID(c)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	opts.Logger.WithFields(fields).Info("upload_complete")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Image uploaded and converted successfully.",
		"path":    artifact.PublicPath,
	})
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func respondUploadError(c fiber.Ctx, logger *logrus.Logger, upload ingest.Upload, started time.Time, err error) error {
	kind := apperr.KindOf(err)
	metrics.RecordUpload(kind.String())

	fields := logging.UploadFields(upload.Origin, upload.Folder, upload.FileName, len(upload.Body))
	fields["action"] = "upload"
	fields["request_id"] = server.RequestID(c)
	fields["error_code"] = apperr.CodeOf(err)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	entry := logger.WithFields(fields).WithError(err)
	if kind == apperr.KindServer {
		entry.Error("upload_failed")
	} else {
		entry.Warn("upload_rejected")
	}
	return server.WriteError(c, err)
}
