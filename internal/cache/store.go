package cache

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// 磁盘布局：
//
//	<root>/<DirName>/<key>.<tag>    # 条目正文
//
// 条目只有正文文件，新旧程度完全依赖文件 ModTime，不额外保存元数据。
const (
	// DefaultDirName 是 root 下的缓存子目录名。
	DefaultDirName = "mobipaper_cache"

	// BytesPerMegabyte 固定 1MB = 1024*1024 字节，Size/MaxSize 均按此换算。
	BytesPerMegabyte = 1024.0 * 1024.0

	// purgeTargetRatio 超出预算后，清理到预算的 25%。
	purgeTargetRatio = 0.25
)

// Key 是调用方提供的内容哈希（通常为 SHA-1 hex），与 Tag 一起唯一定位条目。
type Key string

// Tag 是条目类型后缀；缓存引擎只把它当作文件后缀处理，不关心业务含义。
type Tag string

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Entry 描述磁盘上的一个缓存条目。
type Entry struct {
	Key       Key       `json:"key"`
	Tag       Tag       `json:"tag"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// PurgeResult 汇总一次清理的统计信息，Err 聚合了单个文件删除失败的原因。
type PurgeResult struct {
	Scanned      int     `json:"scanned"`
	Removed      int     `json:"removed"`
	Failed       int     `json:"failed"`
	FreedMB      float64 `json:"freed_mb"`
	SizeBeforeMB float64 `json:"size_before_mb"`
	SizeAfterMB  float64 `json:"size_after_mb"`
	Err          error   `json:"-"`
}

// Fields 输出日志字段，供 Janitor 与诊断接口复用。
func (r PurgeResult) Fields() logrus.Fields {
	return logrus.Fields{
		"scanned":        r.Scanned,
		"removed":        r.Removed,
		"failed":         r.Failed,
		"freed_mb":       r.FreedMB,
		"size_before_mb": r.SizeBeforeMB,
		"size_after_mb":  r.SizeAfterMB,
	}
}

var (
	// ErrNotConfigured 表示 Store 尚未成功 Configure，所有操作都退化为未命中。
	ErrNotConfigured = errors.New("cache store not configured")
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidKey 表示 key 含有不安全字符或长度不合法。
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrInvalidTag 表示 tag 不是合法的后缀。
	ErrInvalidTag = errors.New("invalid cache tag")
)

func megabytes(n int64) float64 {
	return float64(n) / BytesPerMegabyte
}
