package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// clearEnv 清空所有绑定的环境变量，避免宿主环境影响断言。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:       5000,
			LogLevel:         "info",
			StoragePath:      "./storage",
			CacheTTL:         Duration(time.Minute),
			CacheBackend:     "memory",
			CacheCapacity:    16,
			RedisURL:         "redis://localhost:6379/0",
			TrustedOrigin:    "127.0.0.1",
			MaxUploadSize:    1 << 20,
			CORSAllowOrigins: []string{"*"},
		},
	}
}
