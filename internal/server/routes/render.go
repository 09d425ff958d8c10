package routes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/apperr"
	"github.com/any-hub/image-hub/internal/cache"
	"github.com/any-hub/image-hub/internal/logging"
	"github.com/any-hub/image-hub/internal/metrics"
	"github.com/any-hub/image-hub/internal/safepath"
	"github.com/any-hub/image-hub/internal/server"
	"github.com/any-hub/image-hub/internal/transform"
)

// RenderOptions 汇总渲染路由依赖。
type RenderOptions struct {
	Logger   *logrus.Logger
	Loader   *cache.Loader
	Renderer transform.Renderer
	CacheTTL time.Duration
}

// RegisterRenderRoutes 挂载 GET /{folder...}/{file}。通配路由会吞掉其它 GET 路径，
// 必须在诊断与上传路由之后注册。
func RegisterRenderRoutes(app *fiber.App, opts RenderOptions) error {
	if app == nil {
		return errors.New("fiber app is required")
	}
	if opts.Logger == nil || opts.Loader == nil || opts.Renderer == nil {
		return errors.New("logger, loader and renderer are required")
	}
	h := &renderHandler{opts: opts, cacheControl: cacheControlValue(opts.CacheTTL)}
	app.Get("/*", h.handle)
	return nil
}

type renderHandler struct {
	opts         RenderOptions
	cacheControl string
}

func (h *renderHandler) handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)

	folder, file, ok := splitImagePath(c.Params("*"))
	if !ok {
		return server.WriteError(c, apperr.NotFound("route_not_found", "Not found.", nil))
	}

	query := parseRenderQuery(c)
	format := transform.ParseFormat(query.Format.Value)
	fields := logging.RenderFields(folder, file, string(format), "", false)
	fields["action"] = "render"
	fields["request_id"] = requestID

	if err := safepath.Check(folder, file); err != nil {
		return h.fail(c, fields, format, started, err)
	}

	req := transform.RenderRequest{
		Folder:   folder,
		FileName: file,
		Width:    dimension(query.Width),
		Height:   dimension(query.Height),
		Format:   format,
	}
	key := cache.Key(folder, file, query)
	fields["cache_key"] = key

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	artifact, hit, err := h.opts.Loader.GetOrCompute(ctx, key, func(ctx context.Context) (transform.Artifact, error) {
		return h.opts.Renderer.Render(ctx, req)
	})
	fields["cache_hit"] = hit
	if err != nil {
		return h.fail(c, fields, format, started, err)
	}

	metrics.RecordRender(string(format), "ok", hit, time.Since(started).Seconds())
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	fields["size_bytes"] = len(artifact.Body)
	h.opts.Logger.WithFields(fields).Debug("render_complete")

	c.Set(fiber.HeaderContentType, artifact.MIMEType)
	c.Set(fiber.HeaderCacheControl, h.cacheControl)
	c.Set(server.HeaderCacheHit, strconv.FormatBool(hit))
	return c.Status(fiber.StatusOK).Send(artifact.Body)
}

func (h *renderHandler) fail(c fiber.Ctx, fields logrus.Fields, format transform.Format, started time.Time, err error) error {
	kind := apperr.KindOf(err)
	metrics.RecordRender(string(format), kind.String(), false, time.Since(started).Seconds())

	fields["error_code"] = apperr.CodeOf(err)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	entry := h.opts.Logger.WithFields(fields).WithError(err)
	if kind == apperr.KindServer {
		entry.Error("render_failed")
	} else {
		entry.Info("render_rejected")
	}
	return server.WriteError(c, err)
}

// splitImagePath 以最后一个 "/" 切分目录与文件名，目录部分为空视为路由不存在。
func splitImagePath(raw string) (folder, file string, ok bool) {
	idx := strings.LastIndex(raw, "/")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	return raw[:idx], raw[idx+1:], true
}

func parseRenderQuery(c fiber.Ctx) cache.Query {
	args := c.Request().URI().QueryArgs()
	param := func(name string) cache.Param {
		if !args.Has(name) {
			return cache.Param{}
		}
		return cache.Param{Value: string(args.Peek(name)), Present: true}
	}
	return cache.Query{
		Width:  param("w"),
		Height: param("h"),
		Format: param("format"),
	}
}

// dimension 将查询参数转为整数，缺失或无法解析都视为未提供。
func dimension(p cache.Param) *int {
	if !p.Present {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return nil
	}
	return &n
}

func cacheControlValue(ttl time.Duration) string {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d", seconds)
}
