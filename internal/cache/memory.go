package cache

import (
	"context"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/any-hub/image-hub/internal/transform"
)

func init() {
	MustRegister(BackendMemory, func(opts Options) (Backend, error) {
		return NewMemoryBackend(opts)
	})
}

// MemoryBackend 是进程内定容 TTL 缓存：读取时惰性判断过期，后台 goroutine 定期清扫，
// 容量满时淘汰最久未使用的条目。
type MemoryBackend struct {
	lru *expirable.LRU[string, transform.Artifact]
}

// NewMemoryBackend 构造内存后端，Capacity 与 TTL 必须为正数。
func NewMemoryBackend(opts Options) (*MemoryBackend, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("memory cache capacity must be positive, got %d", opts.Capacity)
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("memory cache ttl must be positive, got %s", opts.TTL)
	}
	return &MemoryBackend{
		lru: expirable.NewLRU[string, transform.Artifact](opts.Capacity, nil, opts.TTL),
	}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) (transform.Artifact, bool, error) {
	artifact, ok := m.lru.Get(key)
	return artifact, ok, nil
}

// Set 仅在 key 不存在时写入，已存在的条目保持首次写入的过期时间。
func (m *MemoryBackend) Set(_ context.Context, key string, artifact transform.Artifact) error {
	if _, ok := m.lru.Peek(key); ok {
		return nil
	}
	m.lru.Add(key, artifact)
	return nil
}

func (m *MemoryBackend) Name() string {
	return BackendMemory
}

// Len 返回当前条目数（包含尚未被清扫的过期条目）。
func (m *MemoryBackend) Len() int {
	return m.lru.Len()
}

func (m *MemoryBackend) Close() error {
	m.lru.Purge()
	return nil
}
