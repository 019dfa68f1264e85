// Package tx defines the unit-of-work boundary used by every ledger operation.
// Domain services depend on this interface; Postgres and memory stores implement it.
package tx

import (
	"context"
)

// Manager runs a business operation atomically.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every write made through ctx is rolled back.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
