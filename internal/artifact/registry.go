package artifact

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mobipaper/mobicache/internal/cache"
)

var globalRegistry = newRegistry()

type registry struct {
	mu       sync.RWMutex
	kinds    map[string]Kind
	suffixes map[cache.Tag]string
}

func newRegistry() *registry {
	return &registry{
		kinds:    make(map[string]Kind),
		suffixes: make(map[cache.Tag]string),
	}
}

// Register 将产物类型加入全局注册表，名称或后缀重复都会返回错误。
func Register(kind Kind) error {
	return globalRegistry.register(kind)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(kind Kind) {
	if err := Register(kind); err != nil {
		panic(err)
	}
}

// Resolve 按名称或后缀查找产物类型，名称大小写不敏感。
func Resolve(nameOrSuffix string) (Kind, bool) {
	return globalRegistry.resolve(nameOrSuffix)
}

// List 返回按名称排序的产物类型列表。
func List() []Kind {
	return globalRegistry.list()
}

// EvictableTags 返回所有可淘汰类型的后缀，作为缓存引擎的识别集合。
func EvictableTags() []cache.Tag {
	var tags []cache.Tag
	for _, kind := range List() {
		if kind.Evictable {
			tags = append(tags, kind.Suffix)
		}
	}
	return tags
}

func (r *registry) normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *registry) register(kind Kind) error {
	name := r.normalizeName(kind.Name)
	if name == "" {
		return fmt.Errorf("artifact name is required")
	}
	if err := cache.ValidateTag(kind.Suffix); err != nil {
		return fmt.Errorf("artifact %s: %w", name, err)
	}
	kind.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[name]; exists {
		return fmt.Errorf("artifact %s already registered", name)
	}
	if owner, exists := r.suffixes[kind.Suffix]; exists {
		return fmt.Errorf("suffix %s already used by artifact %s", kind.Suffix, owner)
	}
	r.kinds[name] = kind
	r.suffixes[kind.Suffix] = name
	return nil
}

func (r *registry) resolve(nameOrSuffix string) (Kind, bool) {
	normalized := r.normalizeName(nameOrSuffix)
	if normalized == "" {
		return Kind{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind, ok := r.kinds[normalized]; ok {
		return kind, true
	}
	if name, ok := r.suffixes[cache.Tag(normalized)]; ok {
		return r.kinds[name], true
	}
	return Kind{}, false
}

func (r *registry) list() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Kind, 0, len(names))
	for _, name := range names {
		result = append(result, r.kinds[name])
	}
	return result
}
