// Package safepath 在 folder/filename 拼接为文件系统路径之前拦截目录穿越。
package safepath

import (
	"net/url"
	"strings"

	"github.com/any-hub/image-hub/internal/apperr"
)

// forbiddenTokens 覆盖正斜杠与反斜杠两种写法的 dot-segment。
var forbiddenTokens = []string{"..", "/.", "\\."}

// Validate 判断单个路径片段是否可安全拼接，纯函数，不访问文件系统。
// 原始值与一次百分号解码后的值都需要通过检查。
func Validate(segment string) bool {
	if !validateRaw(segment) {
		return false
	}
	if strings.Contains(segment, "%") {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return false
		}
		if decoded != segment && !validateRaw(decoded) {
			return false
		}
	}
	return true
}

func validateRaw(segment string) bool {
	if strings.ContainsRune(segment, 0) {
		return false
	}
	if strings.HasPrefix(segment, "/") || strings.HasPrefix(segment, "\\") {
		return false
	}
	for _, token := range forbiddenTokens {
		if strings.Contains(segment, token) {
			return false
		}
	}
	return true
}

// Check 分别校验 folder 与 filename，任一不通过即返回 InvalidInput。
func Check(folder, file string) error {
	if !Validate(folder) {
		return apperr.InvalidInput("unsafe_path", "Invalid folder path.", nil)
	}
	if !Validate(file) {
		return apperr.InvalidInput("unsafe_path", "Invalid file name.", nil)
	}
	return nil
}
