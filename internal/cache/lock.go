package cache

import "sync"

// entryLock 按条目文件名串行化 Put/Remove/淘汰，引用计数归零后从表中移除。
type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) lockEntry(name string) func() {
	s.mu.Lock()
	lock := s.locks[name]
	if lock == nil {
		lock = &entryLock{}
		s.locks[name] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}
}
