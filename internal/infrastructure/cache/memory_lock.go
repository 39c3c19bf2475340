package cache

import (
	"context"
	"sync"
	"time"

	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

// MemoryLocker is an in-process Locker for single-instance deployments
// and tests. Expired entries are reaped lazily on the next Acquire.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker creates an in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if deadline, held := l.locks[key]; held && time.Now().Before(deadline) {
		return false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}

var _ appmailbox.Locker = (*MemoryLocker)(nil)
