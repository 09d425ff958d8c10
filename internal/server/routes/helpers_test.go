package routes

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/cache"
	"github.com/any-hub/image-hub/internal/ingest"
	"github.com/any-hub/image-hub/internal/server"
	"github.com/any-hub/image-hub/internal/storage"
	"github.com/any-hub/image-hub/internal/transform"
)

const (
	testTrustedOrigin = "127.0.0.1"
	testOriginHeader  = "X-Test-Origin"
	testCacheTTL      = time.Minute
)

// countingRenderer 记录实际渲染次数，用于断言缓存命中。
type countingRenderer struct {
	inner transform.Renderer
	calls int32
}

func (r *countingRenderer) Render(ctx context.Context, req transform.RenderRequest) (transform.Artifact, error) {
	atomic.AddInt32(&r.calls, 1)
	return r.inner.Render(ctx, req)
}

func (r *countingRenderer) count() int32 {
	return atomic.LoadInt32(&r.calls)
}

type testStack struct {
	app      *fiber.App
	root     string
	renderer *countingRenderer
}

// stackOptions 覆盖测试栈的默认依赖；零值字段使用默认实现。
type stackOptions struct {
	backend       cache.Backend
	trustedOrigin string

	// defaultOrigin 为 true 时不注入来源解析，走路由默认的 c.IP()。
	defaultOrigin bool
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	return newTestStackWith(t, stackOptions{})
}

func newTestStackWithBackend(t *testing.T, backend cache.Backend) *testStack {
	t.Helper()
	return newTestStackWith(t, stackOptions{backend: backend})
}

func newTestStackWith(t *testing.T, opts stackOptions) *testStack {
	t.Helper()

	backend := opts.backend
	if backend == nil {
		memory, err := cache.NewMemoryBackend(cache.Options{TTL: testCacheTTL, Capacity: 64})
		if err != nil {
			t.Fatalf("cache backend error: %v", err)
		}
		backend = memory
	}
	trusted := opts.trustedOrigin
	if trusted == "" {
		trusted = testTrustedOrigin
	}
	var origin OriginResolver
	if !opts.defaultOrigin {
		origin = func(c fiber.Ctx) string { return c.Get(testOriginHeader) }
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	loader, err := cache.NewLoader(backend, logger)
	if err != nil {
		t.Fatalf("loader error: %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })

	pipeline, err := ingest.NewPipeline(store, ingest.Options{TrustedOrigin: trusted})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger, BodyLimit: 4 << 20})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}

	renderer := &countingRenderer{inner: transform.NewEngine(store, 2)}
	if err := RegisterDiagnosticsRoutes(app, DiagnosticsOptions{CacheBackend: backend.Name()}); err != nil {
		t.Fatalf("register diagnostics: %v", err)
	}
	if err := RegisterUploadRoutes(app, UploadOptions{
		Logger:   logger,
		Pipeline: pipeline,
		Origin:   origin,
	}); err != nil {
		t.Fatalf("register upload: %v", err)
	}
	if err := RegisterRenderRoutes(app, RenderOptions{
		Logger:   logger,
		Loader:   loader,
		Renderer: renderer,
		CacheTTL: testCacheTTL,
	}); err != nil {
		t.Fatalf("register render: %v", err)
	}

	return &testStack{app: app, root: store.Root(), renderer: renderer}
}

func (s *testStack) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

func (s *testStack) get(t *testing.T, target string) *http.Response {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func writeSourceImage(t *testing.T, root, rel string, width, height int) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, pngBytes(t, width, height), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// uploadRequest 构造 multipart 上传请求，fileName 为空时不附带文件字段。
func uploadRequest(t *testing.T, origin, folder, fileName string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if folder != "" {
		if err := writer.WriteField("folder", folder); err != nil {
			t.Fatalf("write folder field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("image", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(body); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(testOriginHeader, origin)
	return req
}
