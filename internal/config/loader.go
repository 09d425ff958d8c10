package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/image-hub/internal/cache"
)

// envBindings 将配置键映射到部署时使用的环境变量名。
var envBindings = map[string]string{
	"StoragePath":       "DEFAULT_IMAGE_PATH",
	"CacheTTL":          "CACHE_TIMEOUT",
	"CacheBackend":      "CACHE_TYPE",
	"CacheCapacity":     "CACHE_CAPACITY",
	"RedisURL":          "CACHE_REDIS_URL",
	"ListenPort":        "PORT",
	"DebugMode":         "DEBUG_MODE",
	"LogLevel":          "LOG_LEVEL",
	"LogFilePath":       "LOG_FILE_PATH",
	"LogMaxSize":        "LOG_MAX_SIZE",
	"LogMaxBackups":     "LOG_MAX_BACKUPS",
	"LogCompress":       "LOG_COMPRESS",
	"TrustedOrigin":     "TRUSTED_ORIGIN",
	"MaxUploadSize":     "MAX_UPLOAD_SIZE",
	"RenderConcurrency": "RENDER_CONCURRENCY",
	"CORSAllowOrigins":  "CORS_ALLOW_ORIGINS",
}

// Load 合并默认值、可选的 TOML 配置文件与环境变量，环境变量优先级最高。
// path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析图片目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

// LoadDotEnv 将 .env 文件中的变量注入进程环境，已存在的变量不会被覆盖。
// 文件不存在时静默跳过。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("加载 %s 失败: %w", p, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("DebugMode", true)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("CacheTTL", 60)
	v.SetDefault("CacheBackend", "SimpleCache")
	v.SetDefault("CacheCapacity", 1024)
	v.SetDefault("RedisURL", "redis://localhost:6379/0")
	v.SetDefault("TrustedOrigin", "127.0.0.1")
	v.SetDefault("MaxUploadSize", 20*1024*1024)
	v.SetDefault("RenderConcurrency", 0)
	v.SetDefault("CORSAllowOrigins", []string{"*"})
}

func applyGlobalDefaults(g *GlobalConfig) {
	// ListenPort/CacheTTL 的默认值由 setDefaults 提供，显式写入的 0 交给 Validate 拒绝。
	g.CacheBackend = cache.NormalizeName(g.CacheBackend)
	g.TrustedOrigin = strings.TrimSpace(g.TrustedOrigin)
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
	if g.DebugMode {
		g.LogLevel = "debug"
	}

	origins := g.CORSAllowOrigins[:0]
	for _, origin := range g.CORSAllowOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	g.CORSAllowOrigins = origins
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
