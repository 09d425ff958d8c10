package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError(globalField("ListenPort"), "必须在 1-65535")
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError(globalField("StoragePath"), "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError(globalField("CacheTTL"), "必须大于 0")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError(globalField("LogLevel"), "未知日志级别: "+g.LogLevel)
		}
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError(globalField("LogMaxSize"), "不能为负数")
	}

	if _, ok := cache.Resolve(g.CacheBackend); !ok {
		return newFieldError(globalField("CacheBackend"),
			fmt.Sprintf("未注册缓存后端 %q，可选: %s", g.CacheBackend, strings.Join(cache.Names(), "|")))
	}
	switch g.CacheBackend {
	case cache.BackendMemory:
		if g.CacheCapacity <= 0 {
			return newFieldError(globalField("CacheCapacity"), "必须大于 0")
		}
	case cache.BackendRedis:
		if err := validateRedisURL(g.RedisURL); err != nil {
			return fmt.Errorf("%s: %w", globalField("RedisURL"), err)
		}
	}

	if g.TrustedOrigin == "" {
		return newFieldError(globalField("TrustedOrigin"), "不能为空")
	}
	if g.MaxUploadSize <= 0 {
		return newFieldError(globalField("MaxUploadSize"), "必须大于 0")
	}
	if g.RenderConcurrency < 0 {
		return newFieldError(globalField("RenderConcurrency"), "不能为负数")
	}

	return nil
}

func validateRedisURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 Redis 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return fmt.Errorf("仅支持 redis/rediss: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
