package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type fileEntry struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

// Size 返回已识别条目的总大小（MB）。每次调用都会扫描目录，不维护增量计数。
func (s *Store) Size() float64 {
	return megabytes(s.SizeBytes())
}

// SizeBytes 返回已识别条目的总字节数；未配置或目录不可读时为 0。
func (s *Store) SizeBytes() int64 {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return 0
	}

	_, total, err := s.scan(s.dir)
	if err != nil {
		s.logger.WithError(err).WithField("dir", s.dir).Warn("cache_size_scan_failed")
		return 0
	}
	return total
}

// scan 列出 dir 下直接包含的已识别文件。os.ReadDir 按文件名排序，
// 调用方依赖这一顺序作为同 ModTime 条目的稳定次序。
func (s *Store) scan(dir string) ([]fileEntry, int64, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("list cache dir: %w", err)
	}

	entries := make([]fileEntry, 0, len(dirEntries))
	var total int64
	for _, d := range dirEntries {
		if !d.Type().IsRegular() || !s.recognizes(d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// 与并发删除竞争时文件可能已消失。
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, 0, fmt.Errorf("stat %s: %w", d.Name(), err)
		}
		total += info.Size()
		entries = append(entries, fileEntry{
			name:    d.Name(),
			path:    filepath.Join(dir, d.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return entries, total, nil
}

func (s *Store) recognizes(name string) bool {
	_, tag, ok := splitEntryName(name)
	if !ok {
		return false
	}
	_, known := s.recognized[tag]
	return known
}

func sortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
}
