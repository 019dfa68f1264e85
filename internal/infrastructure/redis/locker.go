package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/posting"
)

// DefaultLockTTL bounds how long a crashed holder can block a void.
const DefaultLockTTL = 30 * time.Second

// Locker implements posting.Locker with redislock, so two API instances
// cannot void the same transaction or payment at once.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
}

var _ posting.Locker = (*Locker)(nil)

// NewLocker creates a Locker. Keys are stored as "pharmaledger:lock:<key>".
func NewLocker(client redislock.RedisClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: redislock.New(client), ttl: ttl, prefix: "pharmaledger:lock:"}
}

// Acquire implements posting.Locker. It does not wait: a held key fails
// immediately with ConcurrentModification.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperror.NewConcurrentModification("lock", key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
