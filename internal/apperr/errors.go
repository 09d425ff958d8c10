// Package apperr 定义渲染与上传链路共享的错误分类，传输层据此映射 HTTP 状态码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 标识错误所属类别。零值为 KindServer，未分类错误一律按服务端错误处理。
type Kind int

const (
	KindServer Kind = iota
	KindInvalidInput
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "server_error"
	}
}

// Error 携带分类、机器可读的 code 以及面向调用方的提示信息。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput 表示调用方参数不合法（尺寸、路径、上传字段、扩展名）。
func InvalidInput(code, message string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Code: code, Message: message, Err: err}
}

// NotFound 表示源文件不存在。
func NotFound(code, message string, err error) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message, Err: err}
}

// Unauthorized 表示上传来源不在信任列表。
func Unauthorized(code, message string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message, Err: err}
}

// Server 表示解码/编码/文件系统等未细分的失败。
func Server(code, message string, err error) *Error {
	return &Error{Kind: KindServer, Code: code, Message: message, Err: err}
}

// KindOf 返回错误链上第一个 *Error 的分类，找不到时视为 KindServer。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServer
}

// CodeOf 返回错误 code；非 *Error 统一归为 internal_error。
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return "internal_error"
}

// MessageOf 返回可直接展示给客户端的提示，避免泄露底层错误细节。
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Internal server error."
}
