package cache

import (
	"context"

	"github.com/any-hub/image-hub/internal/transform"
)

func init() {
	MustRegister(BackendNull, func(Options) (Backend, error) {
		return NullBackend{}, nil
	})
}

// NullBackend 关闭缓存：从不命中，写入直接丢弃。
type NullBackend struct{}

func (NullBackend) Get(context.Context, string) (transform.Artifact, bool, error) {
	return transform.Artifact{}, false, nil
}

func (NullBackend) Set(context.Context, string, transform.Artifact) error {
	return nil
}

func (NullBackend) Name() string {
	return BackendNull
}

func (NullBackend) Close() error {
	return nil
}
