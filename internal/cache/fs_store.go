package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store 是整站共享的磁盘缓存实例，通过显式构造并注入调用方，而不是全局单例。
type Store struct {
	dirName    string
	recognized map[Tag]struct{}
	logger     logrus.FieldLogger
	now        func() time.Time
	chtimes    func(name string, atime, mtime time.Time) error

	// cfgMu 保护以下配置字段；Configure 持写锁，其余操作持读锁。
	cfgMu      sync.RWMutex
	dir        string
	maxSizeMB  float64
	configured bool

	mu    sync.Mutex
	locks map[string]*entryLock

	pruneMu    sync.Mutex
	purgeGroup singleflight.Group
}

// Option 配置 Store 的可选参数。
type Option func(*Store)

// WithDirName 覆盖 root 下的缓存子目录名。
func WithDirName(name string) Option {
	return func(s *Store) {
		s.dirName = name
	}
}

// WithRecognizedTags 注入参与容量统计与淘汰的后缀集合，非法 tag 会被忽略。
func WithRecognizedTags(tags ...Tag) Option {
	return func(s *Store) {
		for _, tag := range tags {
			if ValidateTag(tag) != nil {
				continue
			}
			s.recognized[tag] = struct{}{}
		}
	}
}

// WithLogger 注入日志实例，默认丢弃所有输出。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore 构建一个尚未配置的 Store；在 Configure 成功之前它表现为空缓存。
func NewStore(opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		dirName:    DefaultDirName,
		recognized: make(map[Tag]struct{}),
		logger:     discard,
		now:        time.Now,
		chtimes:    os.Chtimes,
		locks:      make(map[string]*entryLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open 等价于 NewStore + Configure，配置失败时返回错误。
func Open(root string, maxSizeMB float64, opts ...Option) (*Store, error) {
	s := NewStore(opts...)
	if err := s.Configure(root, maxSizeMB); err != nil {
		return nil, err
	}
	return s, nil
}

// Configure 确保 <root>/<dirName> 存在并记录预算。目录已存在时直接成功；
// 创建失败时 Store 退化为未配置状态并返回原因。重复调用会重置配置。
func (s *Store) Configure(root string, maxSizeMB float64) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.configured = false
	s.maxSizeMB = maxSizeMB
	s.dir = ""

	if root == "" {
		return errors.New("cache root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve cache root: %w", err)
	}
	s.dir = filepath.Join(abs, s.dirName)

	info, err := os.Stat(s.dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("cache path %s is not a directory", s.dir)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	default:
		return fmt.Errorf("stat cache dir: %w", err)
	}

	s.configured = true
	return nil
}

// Configured 返回最近一次 Configure 是否成功。
func (s *Store) Configured() bool {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.configured
}

// Dir 返回缓存目录的绝对路径，未配置时为空。
func (s *Store) Dir() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return ""
	}
	return s.dir
}

// MaxSize 返回配置的预算（MB）。
func (s *Store) MaxSize() float64 {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.maxSizeMB
}

// RecognizedTags 返回参与统计与淘汰的 tag，按字典序排列。
func (s *Store) RecognizedTags() []Tag {
	tags := make([]Tag, 0, len(s.recognized))
	for tag := range s.recognized {
		tags = append(tags, tag)
	}
	sortTags(tags)
	return tags
}

// Get 返回条目的完整内容。不存在时返回 ErrNotFound，读错误会被包装返回。
func (s *Store) Get(ctx context.Context, key Key, tag Tag) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return nil, ErrNotConfigured
	}

	filePath, err := BuildPath(s.dir, key, tag)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat cache entry: %w", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return data, nil
}

// Put 通过临时文件 + rename 原子替换条目内容，并把 ModTime 更新为当前时间
// （或 opts.ModTime），作为后续淘汰的新旧依据。
func (s *Store) Put(ctx context.Context, key Key, tag Tag, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return ErrNotConfigured
	}

	filePath, err := BuildPath(s.dir, key, tag)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(entryName(key, tag))
	defer unlock()

	tempFile, err := os.CreateTemp(s.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, bytes.NewReader(data))
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return fmt.Errorf("write cache entry: %w", err)
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("commit cache entry: %w", err)
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = s.now()
	}
	// rename 之后条目已经落盘；mtime 设置失败只影响淘汰顺序，不视为写入失败。
	if err := s.chtimes(filePath, modTime, modTime); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"key": string(key),
			"tag": string(tag),
		}).Warn("cache_touch_failed")
	}
	return nil
}

// Remove 删除条目；条目不存在时返回 ErrNotFound。
func (s *Store) Remove(ctx context.Context, key Key, tag Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return ErrNotConfigured
	}

	filePath, err := BuildPath(s.dir, key, tag)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(entryName(key, tag))
	defer unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// Stat 返回条目的文件信息。
func (s *Store) Stat(key Key, tag Tag) (Entry, error) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return Entry{}, ErrNotConfigured
	}

	filePath, err := BuildPath(s.dir, key, tag)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("stat cache entry: %w", err)
	}
	if info.IsDir() {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Key:       key,
		Tag:       tag,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// Exists 判断条目是否存在；未配置时恒为 false。
func (s *Store) Exists(key Key, tag Tag) bool {
	_, err := s.Stat(key, tag)
	return err == nil
}

// CreatedAt 返回条目的最后修改时间；条目不存在或未配置时返回 Unix 纪元。
func (s *Store) CreatedAt(key Key, tag Tag) time.Time {
	entry, err := s.Stat(key, tag)
	if err != nil {
		return time.Unix(0, 0)
	}
	return entry.ModTime
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
