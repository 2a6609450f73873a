package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a mutex-map Locker for single-process deployments and
// tests. Expired holds are reclaimed lazily on the next Acquire.
type MemoryLocker struct {
	mu    sync.Mutex
	holds map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{holds: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.holds[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.holds[key] = time.Now().Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holds, key)
	return nil
}

var _ Locker = (*MemoryLocker)(nil)
