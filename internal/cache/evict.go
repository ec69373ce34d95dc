package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

const purgeFlightKey = "purge"

// Purge 在总大小超过预算时，按 ModTime 从旧到新淘汰已识别条目，直到释放
// size - 0.25*budget MB。并发调用共享同一次执行结果。
func (s *Store) Purge(ctx context.Context) (PurgeResult, error) {
	v, err, _ := s.purgeGroup.Do(purgeFlightKey, func() (any, error) {
		return s.purge(ctx)
	})
	result, _ := v.(PurgeResult)
	return result, err
}

func (s *Store) purge(ctx context.Context) (PurgeResult, error) {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return PurgeResult{}, ErrNotConfigured
	}

	entries, total, err := s.scan(s.dir)
	if err != nil {
		return PurgeResult{}, err
	}

	actual := megabytes(total)
	result := PurgeResult{
		Scanned:      len(entries),
		SizeBeforeMB: actual,
		SizeAfterMB:  actual,
	}
	if actual <= s.maxSizeMB {
		return result, nil
	}

	toFree := actual - s.maxSizeMB*purgeTargetRatio
	return s.shrink(ctx, entries, toFree, result)
}

// Shrink 直接按 ModTime 从旧到新淘汰已识别条目，直到释放 toFreeMB。
// toFreeMB <= 0 时不做任何事。
func (s *Store) Shrink(ctx context.Context, toFreeMB float64) (PurgeResult, error) {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if !s.configured {
		return PurgeResult{}, ErrNotConfigured
	}
	if toFreeMB <= 0 {
		return PurgeResult{}, nil
	}

	entries, total, err := s.scan(s.dir)
	if err != nil {
		return PurgeResult{}, err
	}
	result := PurgeResult{
		Scanned:      len(entries),
		SizeBeforeMB: megabytes(total),
		SizeAfterMB:  megabytes(total),
	}
	return s.shrink(ctx, entries, toFreeMB, result)
}

type evictOutcome int

const (
	evictRemoved evictOutcome = iota
	// evictVanished 表示文件在扫描后已被其他调用删除，空间同样已释放。
	evictVanished
	// evictSkipped 表示文件在扫描后被重新写入，保留最新内容。
	evictSkipped
)

// shrink 删除到 toFree <= 0 为止；最后一个文件可能让释放量超出目标，
// 但绝不会少于目标（候选耗尽除外）。单个文件失败只计数，不中断。
func (s *Store) shrink(ctx context.Context, entries []fileEntry, toFree float64, result PurgeResult) (PurgeResult, error) {
	if toFree <= 0 {
		return result, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	var failures []error
	for _, entry := range entries {
		if toFree <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			result.Err = errors.Join(failures...)
			return result, err
		}

		outcome, err := s.evictEntry(entry)
		if err != nil {
			result.Failed++
			failures = append(failures, err)
			continue
		}
		if outcome == evictSkipped {
			continue
		}

		freed := megabytes(entry.size)
		toFree -= freed
		result.SizeAfterMB -= freed
		if outcome == evictRemoved {
			result.Removed++
			result.FreedMB += freed
		}
	}
	result.Err = errors.Join(failures...)

	fields := result.Fields()
	fields["dir"] = s.dir
	log := s.logger.WithFields(fields)
	if result.Err != nil {
		log = log.WithError(result.Err)
	}
	log.Info("cache_purged")

	return result, nil
}

func (s *Store) evictEntry(entry fileEntry) (evictOutcome, error) {
	unlock := s.lockEntry(entry.name)
	defer unlock()

	info, err := os.Stat(entry.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return evictVanished, nil
		}
		return evictSkipped, fmt.Errorf("stat %s: %w", entry.name, err)
	}
	if !info.ModTime().Equal(entry.modTime) {
		return evictSkipped, nil
	}

	if err := os.Remove(entry.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return evictVanished, nil
		}
		return evictSkipped, fmt.Errorf("remove %s: %w", entry.name, err)
	}
	return evictRemoved, nil
}
