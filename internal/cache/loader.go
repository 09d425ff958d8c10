package cache

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/image-hub/internal/metrics"
	"github.com/any-hub/image-hub/internal/transform"
)

// ComputeFunc 在缓存未命中时生成条目。
type ComputeFunc func(ctx context.Context) (transform.Artifact, error)

// Loader 封装“查缓存 → 未命中时渲染 → 写缓存”，同一 key 的并发未命中只渲染一次。
type Loader struct {
	backend Backend
	logger  *logrus.Logger
	group   singleflight.Group
}

// NewLoader 构造 Loader，logger 为空时使用 logrus 标准 logger。
func NewLoader(backend Backend, logger *logrus.Logger) (*Loader, error) {
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{backend: backend, logger: logger}, nil
}

// Backend 返回底层后端。
func (l *Loader) Backend() Backend {
	return l.backend
}

// GetOrCompute 返回 key 对应的条目以及是否命中缓存。compute 失败时错误原样返回且不会写入缓存；
// 后端读写失败只记录告警，降级为未命中/不缓存。
func (l *Loader) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (transform.Artifact, bool, error) {
	if artifact, ok := l.lookup(ctx, key); ok {
		metrics.RecordCacheLookup(l.backend.Name(), true)
		return artifact, true, nil
	}
	metrics.RecordCacheLookup(l.backend.Name(), false)

	// 渲染结果由同一 key 的所有等待者共享，不随首个请求的取消而中断。
	shared := context.WithoutCancel(ctx)
	value, err, _ := l.group.Do(key, func() (interface{}, error) {
		if artifact, ok := l.lookup(shared, key); ok {
			return artifact, nil
		}
		metrics.RecordCacheCompute(l.backend.Name())
		artifact, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if err := l.backend.Set(shared, key, artifact); err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"action":  "cache_set",
				"backend": l.backend.Name(),
				"key":     key,
			}).Warn("cache_set_failed")
		}
		return artifact, nil
	})
	if err != nil {
		return transform.Artifact{}, false, err
	}
	return value.(transform.Artifact), false, nil
}

func (l *Loader) lookup(ctx context.Context, key string) (transform.Artifact, bool) {
	artifact, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"action":  "cache_get",
			"backend": l.backend.Name(),
			"key":     key,
		}).Warn("cache_get_failed")
		return transform.Artifact{}, false
	}
	return artifact, ok
}

// Close 关闭底层后端。
func (l *Loader) Close() error {
	return l.backend.Close()
}
