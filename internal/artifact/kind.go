package artifact

import "github.com/mobipaper/mobicache/internal/cache"

// Kind 描述一种产物类型的静态信息，供配置校验和诊断接口使用。
type Kind struct {
	Name        string    `json:"name"`
	Suffix      cache.Tag `json:"suffix"`
	Description string    `json:"description"`
	// Evictable 为 false 的类型仍可读写，但不计入容量，也不会被 Purge 删除。
	Evictable bool `json:"evictable"`
}

// Tag 返回写入缓存时使用的后缀。
func (k Kind) Tag() cache.Tag {
	return k.Suffix
}
