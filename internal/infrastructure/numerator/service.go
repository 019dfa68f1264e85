// Package numerator provides the storage-backed sequence generators.
// Both implement core/numerator.Generator with an atomic increment per (prefix, day) key.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "pharmaledger/internal/core/numerator"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service allocates numbers from the sys_sequences counter table.
//
// The UPSERT below increments and returns the counter in one statement; the row lock
// it takes is held until the surrounding transaction ends, so same-key callers serialise
// and a rolled back business operation also rolls back its number.
type Service struct {
	querier func(ctx context.Context) Querier
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a service bound to a fixed querier. Use for tools and tests.
func New(querier Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return querier }}
}

// NewWithTxManager creates a service that joins the transaction carried by ctx, if any.
func NewWithTxManager(txm *postgres.TxManager) *Service {
	return &Service{querier: func(ctx context.Context) Querier { return txm.GetQuerier(ctx) }}
}

// NextNumber implements corenumerator.Generator.
func (s *Service) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if err := corenumerator.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	key := corenumerator.Key(prefix, date)

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next sequence value %s: %w", key, err)
	}

	number, err := corenumerator.Checked(prefix, date, num)
	if err != nil {
		return "", err
	}

	logger.Debug(ctx, "sequence allocated", "key", key, "number", number)
	return number, nil
}

// SetNextNumber positions the counter so that the next call returns value (data migration).
func (s *Service) SetNextNumber(ctx context.Context, prefix string, date time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be positive, got %d", value)
	}

	key := corenumerator.Key(prefix, date)

	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value-1).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}
