package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mobipaper/mobicache/internal/artifact"
	"github.com/mobipaper/mobicache/internal/cache"
)

// Duration 是配置文件中的时长字段，支持 "5m" 这类 Go 写法，也支持纯秒数。
type Duration time.Duration

// UnmarshalText 解析字符串形式的时长；"90" 与 "1.5" 按秒处理，空串为 0。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("无法解析 Duration 字段: %s", raw)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// DurationValue 返回 time.Duration。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级运行参数：日志、管理端口与缓存预算。
type GlobalConfig struct {
	ListenPort     int      `mapstructure:"ListenPort"`
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	StoragePath    string   `mapstructure:"StoragePath"`
	CacheDirName   string   `mapstructure:"CacheDirName"`
	MaxCacheSizeMB float64  `mapstructure:"MaxCacheSizeMB"`
	PurgeInterval  Duration `mapstructure:"PurgeInterval"`
	PurgeOnStart   bool     `mapstructure:"PurgeOnStart"`
	Artifacts      []string `mapstructure:"Artifacts"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
}

// RecognizedTags 将 Artifacts 列表映射为缓存后缀；未配置时使用全部可淘汰类型。
// 假定 Validate 已经通过。
func (c *Config) RecognizedTags() []cache.Tag {
	if len(c.Global.Artifacts) == 0 {
		return artifact.EvictableTags()
	}
	tags := make([]cache.Tag, 0, len(c.Global.Artifacts))
	for _, name := range c.Global.Artifacts {
		if kind, ok := artifact.Resolve(name); ok {
			tags = append(tags, kind.Suffix)
		}
	}
	return tags
}
