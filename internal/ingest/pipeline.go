// Package ingest 接收上传图片，统一转码为 WEBP 后写入存储目录。
package ingest

import (
	"bytes"
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/any-hub/image-hub/internal/apperr"
	"github.com/any-hub/image-hub/internal/safepath"
	"github.com/any-hub/image-hub/internal/storage"
	"github.com/any-hub/image-hub/internal/transform"
)

// CanonicalFormat 是所有上传落盘时使用的编码。
const CanonicalFormat = transform.FormatWEBP

const canonicalExt = ".webp"

// allowedExtensions 仅按扩展名白名单校验，不做内容嗅探。
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// Upload 描述一次上传请求，Body 为 nil 表示未携带文件字段。
type Upload struct {
	Origin   string
	Folder   string
	FileName string
	Body     []byte
}

// Artifact 是上传成功后的落盘结果。
type Artifact struct {
	Folder     string
	FileName   string
	StoredPath string
	PublicPath string
	SizeBytes  int64
}

// Options 控制 Pipeline 行为。
type Options struct {
	TrustedOrigin string
	Now           func() time.Time
}

// Pipeline 实现“来源校验 → 字段校验 → 扩展名白名单 → 解码 → WEBP 重编码 → 落盘”。
type Pipeline struct {
	store         storage.Store
	trustedOrigin string
	names         *nameGenerator
}

// NewPipeline 构造上传流水线，TrustedOrigin 不能为空。
func NewPipeline(store storage.Store, opts Options) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}
	origin := strings.TrimSpace(opts.TrustedOrigin)
	if origin == "" {
		return nil, errors.New("trusted origin is required")
	}
	return &Pipeline{
		store:         store,
		trustedOrigin: origin,
		names:         newNameGenerator(opts.Now),
	}, nil
}

// TrustedOrigin 返回允许调用上传接口的地址。
func (p *Pipeline) TrustedOrigin() string {
	return p.trustedOrigin
}

// Ingest 处理一次上传。来源不可信时无论载荷如何都返回 Unauthorized。
func (p *Pipeline) Ingest(ctx context.Context, upload Upload) (*Artifact, error) {
	if strings.TrimSpace(upload.Origin) != p.trustedOrigin {
		return nil, apperr.Unauthorized("origin_untrusted", "Unauthorized access.", nil)
	}

	folder := strings.Trim(strings.TrimSpace(upload.Folder), "/")
	if upload.Body == nil || folder == "" {
		return nil, apperr.InvalidInput("upload_field_missing", "Missing image or folder field.", nil)
	}
	if !safepath.Validate(folder) {
		return nil, apperr.InvalidInput("unsafe_path", "Invalid folder path.", nil)
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, apperr.InvalidInput("extension_unsupported", "Unsupported file type.", nil)
	}

	img, err := transform.Decode(bytes.NewReader(upload.Body))
	if err != nil {
		return nil, apperr.Server("decode_failed", "Failed to process image.", err)
	}

	encoded, err := transform.Encode(img, CanonicalFormat)
	if err != nil {
		return nil, apperr.Server("encode_failed", "Failed to process image.", err)
	}

	name := p.names.next(canonicalExt)
	entry, err := p.store.Put(ctx, storage.Locator{Folder: folder, Name: name}, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperr.Server("upload_write_failed", "Failed to store image.", err)
	}

	return &Artifact{
		Folder:     folder,
		FileName:   name,
		StoredPath: entry.FilePath,
		PublicPath: path.Join("/", folder, name),
		SizeBytes:  entry.SizeBytes,
	}, nil
}
