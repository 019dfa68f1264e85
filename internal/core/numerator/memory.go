package numerator

import (
	"context"
	"sync"
	"time"
)

// MemoryGenerator is a single-process Generator guarded by a mutex.
// Used by the in-memory store, the demo command and unit tests.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryGenerator creates an empty in-process generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int64)}
}

// NextNumber implements Generator.
func (g *MemoryGenerator) NextNumber(_ context.Context, prefix string, date time.Time) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}

	key := Key(prefix, date)

	g.mu.Lock()
	next := g.counters[key] + 1
	if next <= MaxSequence {
		g.counters[key] = next
	}
	g.mu.Unlock()

	return Checked(prefix, date, next)
}

// Set positions the counter so that the next call returns value. Used for data migration.
func (g *MemoryGenerator) Set(prefix string, date time.Time, value int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[Key(prefix, date)] = value - 1
}

var _ Generator = (*MemoryGenerator)(nil)
