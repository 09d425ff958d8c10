// Package transform 实现渲染核心：读取源图、解析目标尺寸、Lanczos 重采样并按请求格式编码。
package transform

import (
	"context"
	"errors"

	"github.com/disintegration/imaging"

	"github.com/any-hub/image-hub/internal/apperr"
	"github.com/any-hub/image-hub/internal/storage"
)

// RenderRequest 描述一次渲染所需的全部输入，Width/Height 为 nil 表示请求未携带。
type RenderRequest struct {
	Folder   string
	FileName string
	Width    *int
	Height   *int
	Format   Format
}

// Artifact 是一次渲染的编码结果，创建后不可修改。
type Artifact struct {
	Body     []byte
	MIMEType string
}

// Renderer 抽象渲染能力，便于路由层在测试中注入计数实现。
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (Artifact, error)
}

// Engine 是默认 Renderer，仅读取文件，不产生任何写入。
type Engine struct {
	store storage.Store
	slots chan struct{}
}

// NewEngine 构建渲染引擎；concurrency > 0 时限制同时进行的解码/缩放/编码数量。
func NewEngine(store storage.Store, concurrency int) *Engine {
	engine := &Engine{store: store}
	if concurrency > 0 {
		engine.slots = make(chan struct{}, concurrency)
	}
	return engine
}

// Render 执行“打开 → 解码 → 尺寸解析 → 重采样 → 编码”流程。
func (e *Engine) Render(ctx context.Context, req RenderRequest) (Artifact, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return Artifact{}, apperr.Server("render_cancelled", "Render was cancelled.", err)
	}
	defer release()

	src, err := e.store.Open(ctx, storage.Locator{Folder: req.Folder, Name: req.FileName})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Artifact{}, apperr.NotFound("image_not_found", "Image not found.", err)
		}
		return Artifact{}, apperr.Server("source_open_failed", "Internal server error.", err)
	}
	defer src.Reader.Close()

	img, err := Decode(src.Reader)
	if err != nil {
		return Artifact{}, apperr.Server("decode_failed", "Internal server error.", err)
	}

	width, height := ResolveSize(img.Bounds().Size(), req.Width, req.Height)
	if width < 1 || height < 1 {
		return Artifact{}, apperr.InvalidInput("invalid_dimensions", "Width and height must be greater than 0.", nil)
	}

	if err := ctx.Err(); err != nil {
		return Artifact{}, apperr.Server("render_cancelled", "Render was cancelled.", err)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	format := req.Format
	if format == "" {
		format = DefaultFormat
	}
	body, err := Encode(resized, format)
	if err != nil {
		return Artifact{}, apperr.Server("encode_failed", "Internal server error.", err)
	}

	return Artifact{Body: body, MIMEType: format.MIMEType()}, nil
}

func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if e.slots == nil {
		return func() {}, nil
	}
	select {
	case e.slots <- struct{}{}:
		return func() { <-e.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
