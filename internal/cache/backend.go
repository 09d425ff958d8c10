package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/any-hub/image-hub/internal/transform"
)

// Backend 是渲染缓存的存储实现，需自行保证并发安全。
type Backend interface {
	// Get 返回未过期的条目；过期或不存在时 ok=false。
	Get(ctx context.Context, key string) (artifact transform.Artifact, ok bool, err error)
	// Set 以固定 TTL 写入条目，过期时间从写入时刻开始计算。
	Set(ctx context.Context, key string, artifact transform.Artifact) error
	// Name 返回注册名，用于日志与指标标签。
	Name() string
	// Close 释放后台资源。
	Close() error
}

// Options 是构造 Backend 时的通用参数。
type Options struct {
	TTL      time.Duration
	Capacity int
	RedisURL string
}

// Factory 根据 Options 构造 Backend。
type Factory func(opts Options) (Backend, error)

// BackendNames 列出内置后端的注册名。
const (
	BackendMemory = "memory"
	BackendNull   = "null"
	BackendRedis  = "redis"
)

// aliases 兼容 CACHE_TYPE 的历史取值。
var aliases = map[string]string{
	"simplecache": BackendMemory,
	"simple":      BackendMemory,
	"nullcache":   BackendNull,
	"rediscache":  BackendRedis,
}

var globalRegistry = newRegistry()

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func newRegistry() *registry {
	return &registry{factories: make(map[string]Factory)}
}

// Register 将后端工厂加入全局注册表，重复名称会返回错误。
func Register(name string, factory Factory) error {
	return globalRegistry.register(name, factory)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve 按名称（大小写不敏感，支持别名）查找后端工厂。
func Resolve(name string) (Factory, bool) {
	return globalRegistry.resolve(name)
}

// Names 返回按名称排序的已注册后端。
func Names() []string {
	return globalRegistry.names()
}

// NormalizeName 将大小写/别名统一为注册名。
func NormalizeName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// New 按名称构造后端。
func New(name string, opts Options) (Backend, error) {
	factory, ok := Resolve(name)
	if !ok {
		return nil, fmt.Errorf("cache backend %q is not registered", name)
	}
	return factory(opts)
}

func (r *registry) register(name string, factory Factory) error {
	key := NormalizeName(name)
	if key == "" {
		return fmt.Errorf("cache backend name is required")
	}
	if factory == nil {
		return fmt.Errorf("cache backend %s requires a factory", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("cache backend %s already registered", key)
	}
	r.factories[key] = factory
	return nil
}

func (r *registry) resolve(name string) (Factory, bool) {
	key := NormalizeName(name)
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[key]
	return factory, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.factories))
	for key := range r.factories {
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}
