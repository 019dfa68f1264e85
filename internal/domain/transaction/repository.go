package transaction

import (
	"context"
	"time"

	"pharmaledger/internal/core/id"
)

// OutstandingFilter selects open transactions for aging.
type OutstandingFilter struct {
	Kinds   []Kind
	AsOf    time.Time
	PartyID *id.ID
}

// Repository persists transactions and their lines.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, transactionID id.ID) (*Transaction, error)
	// GetByIDForUpdate locks the header row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, transactionID id.ID) (*Transaction, error)
	// Update writes header fields and line ReturnedQuantity, checking Version
	// (optimistic lock) and incrementing it.
	Update(ctx context.Context, t *Transaction) error
	// ListReturns returns non-void returns referencing the original.
	ListReturns(ctx context.Context, originalID id.ID) ([]Transaction, error)
	// ListOutstanding returns non-void, non-draft transactions dated on or before AsOf
	// with a positive balance.
	ListOutstanding(ctx context.Context, f OutstandingFilter) ([]Transaction, error)
}

// PaymentRepository persists payments and allocation rows.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)
	// ListByTransaction returns non-voided payments with an allocation to the transaction.
	ListByTransaction(ctx context.Context, transactionID id.ID) ([]Payment, error)
	MarkVoided(ctx context.Context, paymentID id.ID, reason string, at time.Time) error
	DeleteAllocations(ctx context.Context, paymentID id.ID) error
}
