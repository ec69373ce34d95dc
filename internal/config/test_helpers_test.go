package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mobipaper/mobicache/internal/cache"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

// writeTempConfig 将 content 写入临时目录下的 config.toml 并返回路径。
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// validConfig 返回一份通过校验的最小配置，供各用例按需修改。
func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:     5000,
			LogLevel:       "info",
			StoragePath:    "./data",
			CacheDirName:   cache.DefaultDirName,
			MaxCacheSizeMB: 15,
			PurgeInterval:  Duration(time.Minute),
		},
	}
}
