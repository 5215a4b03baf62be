package beds

import (
	"context"
	"sync"
)

// Locker serialises submissions per bed.
type Locker interface {
	WithBedLock(ctx context.Context, bedID string, fn func(ctx context.Context) error) error
}

// LocalLocker guards beds within one process. It never blocks: a second
// caller for a bed already in flight gets ErrLockNotAcquired.
type LocalLocker struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{inFlight: make(map[string]struct{})}
}

func (l *LocalLocker) WithBedLock(ctx context.Context, bedID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.inFlight[bedID]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.inFlight[bedID] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inFlight, bedID)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
