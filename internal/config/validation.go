package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mobipaper/mobicache/internal/artifact"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别: "+g.LogLevel)
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if strings.ContainsAny(g.CacheDirName, `/\`) || g.CacheDirName == "." || g.CacheDirName == ".." {
		return newFieldError("Global.CacheDirName", "必须是单级目录名")
	}
	if g.MaxCacheSizeMB <= 0 {
		return newFieldError("Global.MaxCacheSizeMB", "必须大于 0")
	}
	if g.PurgeInterval.DurationValue() < 0 {
		return newFieldError("Global.PurgeInterval", "不能为负数")
	}

	seen := map[string]struct{}{}
	for i, name := range g.Artifacts {
		kind, ok := artifact.Resolve(name)
		if !ok {
			return newFieldError(artifactField(i), "未注册的产物类型: "+name)
		}
		if !kind.Evictable {
			return newFieldError(artifactField(i), kind.Name+" 不允许参与淘汰")
		}
		if _, dup := seen[kind.Name]; dup {
			return newFieldError(artifactField(i), "重复")
		}
		seen[kind.Name] = struct{}{}
	}

	return nil
}
