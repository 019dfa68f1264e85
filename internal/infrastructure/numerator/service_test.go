package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	corenumerator "pharmaledger/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: one counter per key,
// incremented under a lock like the row lock Postgres takes.
type mockQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{counters: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string)
	if len(args) == 2 {
		m.counters[key] = args[1].(int64)
	} else {
		m.counters[key]++
	}
	return &mockRow{val: m.counters[key]}
}

var day = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func TestNextNumber_Sequential(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()

	num, err := svc.NextNumber(ctx, "SALE", day)
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261016-0001", num)

	num, err = svc.NextNumber(ctx, "SALE", day)
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261016-0002", num)

	num, err = svc.NextNumber(ctx, "PUR", day)
	require.NoError(t, err)
	assert.Equal(t, "PUR-20261016-0001", num)
}

func TestNextNumber_Concurrent(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.NextNumber(ctx, "SALE", day)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[num] {
				t.Errorf("duplicate number %s", num)
			}
			seen[num] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.True(t, seen[corenumerator.Format("SALE", day, n)])
}

func TestNextNumber_SetNextNumber(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()

	require.NoError(t, svc.SetNextNumber(ctx, "JV", day, 500))
	num, err := svc.NextNumber(ctx, "JV", day)
	require.NoError(t, err)
	assert.Equal(t, "JV-20261016-0500", num)
}

func TestNextNumber_Exhausted(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := context.Background()

	require.NoError(t, svc.SetNextNumber(ctx, "JV", day, corenumerator.MaxSequence+1))
	_, err := svc.NextNumber(ctx, "JV", day)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSequenceExhausted))
}

func TestNextNumber_DatabaseError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := New(q)

	_, err := svc.NextNumber(context.Background(), "SALE", day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SALE:20261016")
}

func TestNextNumber_InvalidPrefix(t *testing.T) {
	svc := New(newMockQuerier())
	_, err := svc.NextNumber(context.Background(), "sale", day)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

// fakeRedis follows Redis expiry rules: a key whose deadline has passed is gone
// before the next command sees it, and EXPIREAT in the past deletes at once.
type fakeRedis struct {
	mu       sync.Mutex
	now      time.Time
	counters map[string]int64
	expiries map[string]time.Time
}

func newFakeRedis(now time.Time) *fakeRedis {
	return &fakeRedis{now: now, counters: map[string]int64{}, expiries: map[string]time.Time{}}
}

func (f *fakeRedis) evict(key string) {
	if exp, ok := f.expiries[key]; ok && !exp.After(f.now) {
		delete(f.counters, key)
		delete(f.expiries, key)
	}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evict(key)
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeRedis) ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.counters[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	f.expiries[key] = tm
	f.evict(key)
	return redis.NewBoolResult(true, nil)
}

func TestRedisService_NextNumber(t *testing.T) {
	client := newFakeRedis(day)
	svc := NewRedis(client)
	ctx := context.Background()

	first, err := svc.NextNumber(ctx, "RCPT", day)
	require.NoError(t, err)
	second, err := svc.NextNumber(ctx, "RCPT", day)
	require.NoError(t, err)

	assert.Equal(t, "RCPT-20261016-0001", first)
	assert.Equal(t, "RCPT-20261016-0002", second)
	assert.Empty(t, client.expiries)
}

func TestRedisService_NextNumber_BackdatedDay(t *testing.T) {
	client := newFakeRedis(day)
	svc := NewRedis(client)
	ctx := context.Background()
	past := day.AddDate(0, 0, -30)

	seen := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		number, err := svc.NextNumber(ctx, "SALE", past)
		require.NoError(t, err)
		_, dup := seen[number]
		require.False(t, dup, "duplicate number %s", number)
		seen[number] = struct{}{}
	}

	assert.Contains(t, seen, "SALE-20260916-0003")
	assert.Empty(t, client.expiries)
}
