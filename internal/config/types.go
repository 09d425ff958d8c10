package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级运行参数，启动时构造一次后只读传递给各组件。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	DebugMode     bool   `mapstructure:"DebugMode"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// StoragePath 是源图片与上传结果共用的根目录。
	StoragePath string `mapstructure:"StoragePath"`

	CacheTTL      Duration `mapstructure:"CacheTTL"`
	CacheBackend  string   `mapstructure:"CacheBackend"`
	CacheCapacity int      `mapstructure:"CacheCapacity"`
	RedisURL      string   `mapstructure:"RedisURL"`

	// TrustedOrigin 是唯一允许调用 /upload 的客户端地址。
	TrustedOrigin string `mapstructure:"TrustedOrigin"`
	MaxUploadSize int64  `mapstructure:"MaxUploadSize"`

	// RenderConcurrency 为 0 时不限制并发渲染数。
	RenderConcurrency int      `mapstructure:"RenderConcurrency"`
	CORSAllowOrigins  []string `mapstructure:"CORSAllowOrigins"`
}

// Config 是配置文件 + 环境变量合并后的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
}

// CacheTTLSeconds 返回 TTL 秒数，供 Cache-Control 头使用。
func (c *Config) CacheTTLSeconds() int64 {
	return int64(c.Global.CacheTTL.DurationValue() / time.Second)
}
