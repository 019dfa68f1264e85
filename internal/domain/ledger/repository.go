package ledger

import (
	"context"
	"time"

	"pharmaledger/internal/core/id"
)

// Repository persists vouchers. Vouchers are insert-only apart from the reversal link.
type Repository interface {
	// Create inserts the voucher and its lines, assigning line IDs in order.
	Create(ctx context.Context, v *Voucher) error

	// GetByID returns the voucher with its lines, NotFound if missing.
	GetByID(ctx context.Context, voucherID id.ID) (*Voucher, error)

	// GetByIDForUpdate is GetByID with a row lock held until the transaction ends.
	GetByIDForUpdate(ctx context.Context, voucherID id.ID) (*Voucher, error)

	// MarkReversed links the original to its reversal and sets it Reversed.
	// It only touches a voucher that is not reversed yet and returns
	// ConcurrentModification when no such row exists.
	MarkReversed(ctx context.Context, originalID, reversalID id.ID, reason string, at time.Time) error

	// ListBySource returns every voucher posted for a business record, oldest first.
	ListBySource(ctx context.Context, ref SourceRef) ([]Voucher, error)
}
