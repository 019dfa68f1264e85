package coa

import (
	"context"

	"pharmaledger/internal/core/id"
)

// Repository persists the chart of accounts.
// Get* methods return apperror NotFound when the row does not exist.
type Repository interface {
	CreateHead(ctx context.Context, h *Head) error
	GetHead(ctx context.Context, headID id.ID) (*Head, error)

	CreateSubhead(ctx context.Context, s *Subhead) error
	GetSubhead(ctx context.Context, subheadID id.ID) (*Subhead, error)

	CreateAccountType(ctx context.Context, t *AccountType) error
	GetAccountType(ctx context.Context, typeID id.ID) (*AccountType, error)

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, accountID id.ID) (*Account, error)
	// GetAccounts returns the accounts that exist among ids; missing ids are simply absent.
	GetAccounts(ctx context.Context, ids []id.ID) ([]Account, error)
	SetAccountActive(ctx context.Context, accountID id.ID, active bool) error
	// ListAccountInfo returns every account joined with kind and family, ordered by code.
	ListAccountInfo(ctx context.Context) ([]AccountInfo, error)

	UpsertCategoryMapping(ctx context.Context, m *CategoryMapping) error
	GetCategoryMapping(ctx context.Context, categoryID id.ID) (*CategoryMapping, error)

	CreateParty(ctx context.Context, p *Party) error
	GetParty(ctx context.Context, partyID id.ID) (*Party, error)
}
