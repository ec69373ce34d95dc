package artifact

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/mobipaper/mobicache/internal/cache"
)

// KeyFor 返回 data 的小写 SHA-1 hex，作为 URL 等字符串标识的缓存 key。
func KeyFor(data string) cache.Key {
	return KeyForBytes([]byte(data))
}

// KeyForBytes 返回原始字节的小写 SHA-1 hex。
func KeyForBytes(data []byte) cache.Key {
	sum := sha1.Sum(data)
	return cache.Key(hex.EncodeToString(sum[:]))
}
