package coa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/pkg/logger"
)

// Service answers chart-of-accounts questions for the ledger and posting engine.
type Service struct {
	repo Repository
}

// NewService creates a new chart-of-accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveFamily walks Account -> Subhead -> Head and returns the Head's family.
func (s *Service) ResolveFamily(ctx context.Context, accountID id.ID) (Family, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return s.familyOf(ctx, acc)
}

func (s *Service) familyOf(ctx context.Context, acc *Account) (Family, error) {
	sub, err := s.repo.GetSubhead(ctx, acc.SubheadID)
	if err != nil {
		return "", fmt.Errorf("account %s subhead: %w", acc.Code, err)
	}
	head, err := s.repo.GetHead(ctx, sub.HeadID)
	if err != nil {
		return "", fmt.Errorf("subhead %s head: %w", sub.Code, err)
	}
	if !head.Family.Valid() {
		return "", apperror.NewValidation(fmt.Sprintf("head %s has no valid family", head.Code)).
			WithDetail("head_id", head.ID)
	}
	return head.Family, nil
}

// Describe returns the account with its resolved kind and family.
func (s *Service) Describe(ctx context.Context, accountID id.ID) (*AccountInfo, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	family, err := s.familyOf(ctx, acc)
	if err != nil {
		return nil, err
	}
	typ, err := s.repo.GetAccountType(ctx, acc.TypeID)
	if err != nil {
		return nil, fmt.Errorf("account %s type: %w", acc.Code, err)
	}
	return &AccountInfo{Account: *acc, Kind: typ.Kind, Family: family}, nil
}

// IsDebitNormal is exposed on the service for callers holding only the service.
func (s *Service) IsDebitNormal(f Family) bool {
	return IsDebitNormal(f)
}

// GetAccountsByCategory resolves the Sales, COGS and Stock accounts of a product category.
// A category without a complete mapping is a validation error naming the category.
func (s *Service) GetAccountsByCategory(ctx context.Context, categoryID id.ID) (CategoryAccounts, error) {
	m, err := s.repo.GetCategoryMapping(ctx, categoryID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return CategoryAccounts{}, apperror.NewMissingAccountMapping(categoryID, []string{"sales", "cogs", "stock"})
		}
		return CategoryAccounts{}, err
	}
	if missing := m.Missing(); len(missing) > 0 {
		return CategoryAccounts{}, apperror.NewMissingAccountMapping(categoryID, missing)
	}
	return CategoryAccounts{
		CategoryID:   categoryID,
		SalesAccount: *m.SalesAccountID,
		COGSAccount:  *m.COGSAccountID,
		StockAccount: *m.StockAccountID,
	}, nil
}

// LinkedAccount returns the receivable (customer) or payable (supplier) account of a party.
func (s *Service) LinkedAccount(ctx context.Context, partyID id.ID, kind PartyKind) (id.ID, error) {
	p, err := s.repo.GetParty(ctx, partyID)
	if err != nil {
		return id.ID{}, err
	}
	if p.Kind != kind {
		return id.ID{}, apperror.NewValidation(fmt.Sprintf("party %s is a %s, expected %s", p.Name, p.Kind, kind)).
			WithDetail("party_id", partyID)
	}
	if p.AccountID == nil || id.IsNil(*p.AccountID) {
		return id.ID{}, apperror.NewMissingLinkedAccount(string(kind), partyID)
	}
	return *p.AccountID, nil
}

// GetParty returns a customer or supplier.
func (s *Service) GetParty(ctx context.Context, partyID id.ID) (*Party, error) {
	return s.repo.GetParty(ctx, partyID)
}

// Postable verifies that every id names an existing, active account.
func (s *Service) Postable(ctx context.Context, accountIDs []id.ID) (map[id.ID]*Account, error) {
	unique := make([]id.ID, 0, len(accountIDs))
	seen := make(map[id.ID]struct{}, len(accountIDs))
	for _, aid := range accountIDs {
		if _, ok := seen[aid]; ok {
			continue
		}
		seen[aid] = struct{}{}
		unique = append(unique, aid)
	}

	accounts, err := s.repo.GetAccounts(ctx, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[id.ID]*Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}

	for _, aid := range unique {
		acc, ok := byID[aid]
		if !ok {
			return nil, apperror.NewNotFound("account", aid)
		}
		if !acc.IsActive {
			return nil, apperror.NewInactiveAccount(aid, acc.Code)
		}
	}
	return byID, nil
}

// RequireKind checks that an account is active and of one of the given kinds.
func (s *Service) RequireKind(ctx context.Context, accountID id.ID, kinds ...AccountKind) error {
	info, err := s.Describe(ctx, accountID)
	if err != nil {
		return err
	}
	if !info.IsActive {
		return apperror.NewInactiveAccount(accountID, info.Code)
	}
	for _, k := range kinds {
		if info.Kind == k {
			return nil
		}
	}
	return apperror.NewValidation(fmt.Sprintf("account %s is of kind %s", info.Code, info.Kind)).
		WithDetail("account_id", accountID).
		WithDetail("expected", kinds)
}

// ListAccounts returns every account with kind and family.
func (s *Service) ListAccounts(ctx context.Context) ([]AccountInfo, error) {
	return s.repo.ListAccountInfo(ctx)
}

// --- Maintenance ---

// CreateHead adds a top-level head.
func (s *Service) CreateHead(ctx context.Context, code, name string, family Family) (*Head, error) {
	if !family.Valid() {
		return nil, apperror.NewInvalidInput("family", fmt.Sprintf("unknown account family %q", family))
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.NewInvalidInput("code", "head code is required")
	}
	h := &Head{ID: id.New(), Code: code, Name: name, Family: family}
	if err := s.repo.CreateHead(ctx, h); err != nil {
		return nil, fmt.Errorf("create head: %w", err)
	}
	return h, nil
}

// CreateSubhead adds a subhead under an existing head.
func (s *Service) CreateSubhead(ctx context.Context, headID id.ID, code, name string) (*Subhead, error) {
	if _, err := s.repo.GetHead(ctx, headID); err != nil {
		return nil, err
	}
	sub := &Subhead{ID: id.New(), HeadID: headID, Code: code, Name: name}
	if err := s.repo.CreateSubhead(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subhead: %w", err)
	}
	return sub, nil
}

// CreateAccountType adds an account type.
func (s *Service) CreateAccountType(ctx context.Context, kind AccountKind, name string) (*AccountType, error) {
	if !kind.Valid() {
		return nil, apperror.NewInvalidInput("kind", fmt.Sprintf("unknown account kind %q", kind))
	}
	t := &AccountType{ID: id.New(), Kind: kind, Name: name}
	if err := s.repo.CreateAccountType(ctx, t); err != nil {
		return nil, fmt.Errorf("create account type: %w", err)
	}
	return t, nil
}

// CreateAccount adds an active posting account.
func (s *Service) CreateAccount(ctx context.Context, code, name string, typeID, subheadID id.ID) (*Account, error) {
	acc := &Account{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		TypeID:    typeID,
		SubheadID: subheadID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAccountType(ctx, typeID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSubhead(ctx, subheadID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	logger.Info(ctx, "account created", "account_id", acc.ID, "code", acc.Code)
	return acc, nil
}

// SetAccountActive toggles whether an account accepts postings.
func (s *Service) SetAccountActive(ctx context.Context, accountID id.ID, active bool) error {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return s.repo.SetAccountActive(ctx, accountID, active)
}

// MapCategory stores the account mapping of a product category.
// Every referenced account must exist and be of the matching kind.
func (s *Service) MapCategory(ctx context.Context, m CategoryMapping) error {
	check := []struct {
		ref  *id.ID
		kind AccountKind
	}{
		{m.SalesAccountID, KindSales},
		{m.COGSAccountID, KindCOGS},
		{m.StockAccountID, KindStock},
	}
	for _, c := range check {
		if c.ref == nil {
			continue
		}
		if err := s.RequireKind(ctx, *c.ref, c.kind); err != nil {
			return err
		}
	}
	return s.repo.UpsertCategoryMapping(ctx, &m)
}

// CreateParty adds a customer or supplier. The linked account, when given, must be
// a customer or supplier account matching the party kind.
func (s *Service) CreateParty(ctx context.Context, kind PartyKind, name string, accountID *id.ID) (*Party, error) {
	if !kind.Valid() {
		return nil, apperror.NewInvalidInput("kind", fmt.Sprintf("unknown party kind %q", kind))
	}
	if accountID != nil {
		want := KindCustomer
		if kind == PartySupplier {
			want = KindSupplier
		}
		if err := s.RequireKind(ctx, *accountID, want); err != nil {
			return nil, err
		}
	}
	p := &Party{ID: id.New(), Kind: kind, Name: name, AccountID: accountID}
	if err := s.repo.CreateParty(ctx, p); err != nil {
		return nil, fmt.Errorf("create party: %w", err)
	}
	return p, nil
}
