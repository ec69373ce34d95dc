package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/mobipaper/mobicache/internal/cache"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// EntryFields 提供 key/tag/命中状态字段，供缓存读写日志复用。
func EntryFields(key, tag string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"key":       key,
		"tag":       tag,
		"cache_hit": cacheHit,
	}
}

// BudgetFields 输出缓存目录、当前大小与预算（MB）。
func BudgetFields(dir string, sizeMB, maxSizeMB float64) logrus.Fields {
	return logrus.Fields{
		"dir":         dir,
		"size_mb":     sizeMB,
		"max_size_mb": maxSizeMB,
	}
}

// PurgeFields 在清理结果字段上附加 action=purge。
func PurgeFields(result cache.PurgeResult) logrus.Fields {
	fields := result.Fields()
	fields["action"] = "purge"
	return fields
}
