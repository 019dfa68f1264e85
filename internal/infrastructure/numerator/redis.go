package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	corenumerator "pharmaledger/internal/core/numerator"
)

// RedisCounter is the subset of the go-redis client used by RedisService.
type RedisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisService allocates numbers with INCR on seq:PREFIX:YYYYMMDD.
// Keys never expire: documents can be backdated to any day, and a counter that
// restarted at 1 would hand out numbers already stored.
type RedisService struct {
	client RedisCounter
}

var _ corenumerator.Generator = (*RedisService)(nil)

// NewRedis creates a Redis-backed generator.
func NewRedis(client RedisCounter) *RedisService {
	return &RedisService{client: client}
}

// NextNumber implements corenumerator.Generator.
func (s *RedisService) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	if err := corenumerator.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	key := "seq:" + corenumerator.Key(prefix, date)

	num, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("incr %s: %w", key, err)
	}

	return corenumerator.Checked(prefix, date, num)
}
