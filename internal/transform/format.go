package transform

import (
	"image"
	"strings"
)

// Format 是输出编码格式，取值统一为大写。
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWEBP Format = "WEBP"
)

// DefaultFormat 在 format 参数缺失或无法识别时使用。
const DefaultFormat = FormatWEBP

// ParseFormat 大小写不敏感地解析 format 参数，只识别 JPEG/PNG/WEBP，其余（含 JPG、带空白的值）回退到 WEBP。
func ParseFormat(raw string) Format {
	switch strings.ToUpper(raw) {
	case "JPEG":
		return FormatJPEG
	case "PNG":
		return FormatPNG
	default:
		return DefaultFormat
	}
}

// MIMEType 返回 image/<小写格式>。
func (f Format) MIMEType() string {
	return "image/" + strings.ToLower(string(f))
}

// ResolveSize 计算目标尺寸：宽高任一缺失时整体回退为原图尺寸，不支持只覆盖一边。
func ResolveSize(native image.Point, width, height *int) (int, int) {
	if width == nil || height == nil {
		return native.X, native.Y
	}
	return *width, *height
}
