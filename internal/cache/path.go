package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	maxKeyLen = 128
	maxTagLen = 16
)

// BuildPath 将 (dir, key, tag) 映射为 <dir>/<key>.<tag>，拒绝任何可能逃逸目录的输入。
func BuildPath(dir string, key Key, tag Tag) (string, error) {
	if dir == "" {
		return "", errors.New("cache dir required")
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if err := ValidateTag(tag); err != nil {
		return "", err
	}
	return filepath.Join(dir, entryName(key, tag)), nil
}

// ValidateKey 要求 key 只包含 [A-Za-z0-9_-]，哈希字符串天然满足。
func ValidateKey(key Key) error {
	if len(key) == 0 || len(key) > maxKeyLen {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isLower(c) || isDigit(c) || (c >= 'A' && c <= 'Z') || c == '_' || c == '-' {
			continue
		}
		return fmt.Errorf("%w: %q", ErrInvalidKey, string(key))
	}
	return nil
}

// ValidateTag 要求 tag 只包含 [a-z0-9_-]。
func ValidateTag(tag Tag) error {
	if len(tag) == 0 || len(tag) > maxTagLen {
		return fmt.Errorf("%w: length %d", ErrInvalidTag, len(tag))
	}
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if isLower(c) || isDigit(c) || c == '_' || c == '-' {
			continue
		}
		return fmt.Errorf("%w: %q", ErrInvalidTag, string(tag))
	}
	return nil
}

func entryName(key Key, tag Tag) string {
	return string(key) + "." + string(tag)
}

// splitEntryName 解析 <key>.<tag>；临时文件（.cache-*）与其它格式返回 false。
func splitEntryName(name string) (Key, Tag, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	key, tag := Key(name[:idx]), Tag(name[idx+1:])
	if ValidateKey(key) != nil || ValidateTag(tag) != nil {
		return "", "", false
	}
	return key, tag, true
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
