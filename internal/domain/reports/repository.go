package reports

import (
	"context"

	"pharmaledger/internal/core/id"
)

// Repository reads committed voucher lines. Lines of posted and reversed
// vouchers both count; a reversal nets its original out.
type Repository interface {
	// SumByAccount returns debit/credit sums per account for lines whose voucher date
	// falls inside the filter. Accounts without lines are absent.
	SumByAccount(ctx context.Context, f LineFilter) ([]AccountTotals, error)

	// ListLines returns one account's lines inside the filter,
	// ordered by voucher date then line id.
	ListLines(ctx context.Context, accountID id.ID, f LineFilter) ([]LedgerRow, error)
}
