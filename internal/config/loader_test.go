package config

import (
	"testing"
	"time"
)

func TestLoadFailsWithUnknownArtifact(t *testing.T) {
	if _, err := Load(testConfigPath(t, "unknown_artifact.toml")); err == nil {
		t.Fatalf("未注册的产物类型应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
StoragePath = "./data"
PurgeInterval = "boom"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsIntegerSeconds(t *testing.T) {
	cfg := `
StoragePath = "./data"
PurgeInterval = 90
MaxCacheSizeMB = 2.5
`
	loaded, err := Load(writeTempConfig(t, cfg))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.PurgeInterval.DurationValue() != 90*time.Second {
		t.Fatalf("整数秒应被解析为 Duration，得到 %v", loaded.Global.PurgeInterval.DurationValue())
	}
	if loaded.Global.MaxCacheSizeMB != 2.5 {
		t.Fatalf("MaxCacheSizeMB 解析错误: %v", loaded.Global.MaxCacheSizeMB)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir() + "/nope.toml"); err == nil {
		t.Fatalf("配置文件不存在时应返回错误")
	}
}

func TestLoadParsesDurationStrings(t *testing.T) {
	testCases := []struct {
		raw  string
		want time.Duration
	}{
		{`"45s"`, 45 * time.Second},
		{`"120"`, 2 * time.Minute},
		{`"1.5"`, 1500 * time.Millisecond},
		{`"0"`, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			path := writeTempConfig(t, "StoragePath = \"./data\"\nPurgeInterval = "+tc.raw+"\n")
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load 返回错误: %v", err)
			}
			if got := loaded.Global.PurgeInterval.DurationValue(); got != tc.want {
				t.Fatalf("期望 %v，得到 %v", tc.want, got)
			}
		})
	}
}

func TestLoadKeepsZeroPurgeInterval(t *testing.T) {
	loaded, err := Load(writeTempConfig(t, "StoragePath = \"./data\"\nPurgeInterval = 0\n"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.PurgeInterval.DurationValue() != 0 {
		t.Fatalf("显式配置 0 时应关闭周期清理，得到 %v", loaded.Global.PurgeInterval.DurationValue())
	}
}

func TestLoadDefaultsPurgeIntervalWhenUnset(t *testing.T) {
	loaded, err := Load(writeTempConfig(t, "StoragePath = \"./data\"\n"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if loaded.Global.PurgeInterval.DurationValue() != 10*time.Minute {
		t.Fatalf("未配置时应使用 10m，得到 %v", loaded.Global.PurgeInterval.DurationValue())
	}
}
