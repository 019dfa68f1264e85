package posting

import (
	"context"
	"sync"

	"pharmaledger/internal/core/apperror"
)

// Locker serialises void operations on one record across processes.
// Acquire fails with ConcurrentModification when the key is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(ctx context.Context) error, err error)
}

// LocalLocker is an in-process Locker for single-instance deployments and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, apperror.NewConcurrentModification("lock", key)
	}
	l.held[key] = struct{}{}

	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, nil
}
