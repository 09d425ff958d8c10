package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责源图片的读取与上传结果的落盘。磁盘布局遵循：
//
//	<StoragePath>/<Folder>/<Name>
type Store interface {
	// Open 返回可流式读取的源文件。若不存在或为目录则返回 ErrNotFound。
	Open(ctx context.Context, locator Locator) (*ReadResult, error)

	// Put 将 body 写入 locator 对应位置，自动创建目录；实现需通过临时文件 + rename
	// 保证写入原子性，并在失败时清理临时文件。
	Put(ctx context.Context, locator Locator, body io.Reader) (*Entry, error)

	// Root 返回存储根目录的绝对路径。
	Root() string
}

// Locator 唯一定位一个文件（Folder + Name），Folder 使用 URL 路径风格的 / 分隔。
type Locator struct {
	Folder string
	Name   string
}

// Entry 描述落盘文件的绝对路径及文件信息。
type Entry struct {
	Locator   Locator
	FilePath  string
	SizeBytes int64
	ModTime   time.Time
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadCloser
}

var (
	// ErrNotFound 表示源文件不存在。
	ErrNotFound = errors.New("storage entry not found")
	// ErrInvalidPath 表示解析后的路径逃逸出存储根目录。
	ErrInvalidPath = errors.New("invalid storage path")
)
