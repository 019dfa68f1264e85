// Package coa_repo is the PostgreSQL implementation of coa.Repository.
package coa_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	tableHeads    = "coa_heads"
	tableSubheads = "coa_subheads"
	tableTypes    = "coa_account_types"
	tableAccounts = "coa_accounts"
	tableMappings = "coa_category_mappings"
	tableParties  = "parties"
)

var (
	headCols    = postgres.ExtractDBColumns[coa.Head]()
	subheadCols = postgres.ExtractDBColumns[coa.Subhead]()
	typeCols    = postgres.ExtractDBColumns[coa.AccountType]()
	accountCols = postgres.ExtractDBColumns[coa.Account]()
	mappingCols = postgres.ExtractDBColumns[coa.CategoryMapping]()
	partyCols   = postgres.ExtractDBColumns[coa.Party]()
)

// Repo implements coa.Repository.
type Repo struct {
	txm *postgres.TxManager
}

var _ coa.Repository = (*Repo)(nil)

// New creates the repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) insert(ctx context.Context, table, entity string, v any, cols []string) error {
	sql, args, err := postgres.Builder.Insert(table).SetMap(postgres.ColumnMap(v, cols)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", table, err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewValidation(fmt.Sprintf("%s already exists", entity)).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func get[T any](ctx context.Context, r *Repo, table, entity string, cols []string, where squirrel.Sqlizer, key any) (*T, error) {
	sql, args, err := postgres.Builder.Select(cols...).From(table).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", table, err)
	}
	var out T
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.MapError("get "+entity, entity, key, err)
	}
	return &out, nil
}

func (r *Repo) CreateHead(ctx context.Context, h *coa.Head) error {
	return r.insert(ctx, tableHeads, "head code "+h.Code, h, headCols)
}

func (r *Repo) GetHead(ctx context.Context, headID id.ID) (*coa.Head, error) {
	return get[coa.Head](ctx, r, tableHeads, "head", headCols, squirrel.Eq{"id": headID}, headID)
}

func (r *Repo) CreateSubhead(ctx context.Context, s *coa.Subhead) error {
	return r.insert(ctx, tableSubheads, "subhead code "+s.Code, s, subheadCols)
}

func (r *Repo) GetSubhead(ctx context.Context, subheadID id.ID) (*coa.Subhead, error) {
	return get[coa.Subhead](ctx, r, tableSubheads, "subhead", subheadCols, squirrel.Eq{"id": subheadID}, subheadID)
}

// CreateAccountType reuses the stored type when the kind already exists, so
// seeding the same chart twice does not fail on the kind's unique key.
func (r *Repo) CreateAccountType(ctx context.Context, t *coa.AccountType) error {
	sql, args, err := postgres.Builder.Insert(tableTypes).
		SetMap(postgres.ColumnMap(t, typeCols)).
		Suffix("ON CONFLICT (kind) DO UPDATE SET name = coa_account_types.name RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account type: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert account type %s: %w", t.Kind, err)
	}
	return nil
}

func (r *Repo) GetAccountType(ctx context.Context, typeID id.ID) (*coa.AccountType, error) {
	return get[coa.AccountType](ctx, r, tableTypes, "account type", typeCols, squirrel.Eq{"id": typeID}, typeID)
}

func (r *Repo) CreateAccount(ctx context.Context, a *coa.Account) error {
	return r.insert(ctx, tableAccounts, "account code "+a.Code, a, accountCols)
}

func (r *Repo) GetAccount(ctx context.Context, accountID id.ID) (*coa.Account, error) {
	return get[coa.Account](ctx, r, tableAccounts, "account", accountCols, squirrel.Eq{"id": accountID}, accountID)
}

func (r *Repo) GetAccounts(ctx context.Context, ids []id.ID) ([]coa.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := postgres.Builder.Select(accountCols...).From(tableAccounts).
		Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select accounts: %w", err)
	}
	var out []coa.Account
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	return out, nil
}

func (r *Repo) SetAccountActive(ctx context.Context, accountID id.ID, active bool) error {
	sql, args, err := postgres.Builder.Update(tableAccounts).
		Set("is_active", active).
		Where(squirrel.Eq{"id": accountID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update account: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID)
	}
	return nil
}

func (r *Repo) ListAccountInfo(ctx context.Context) ([]coa.AccountInfo, error) {
	cols := append(postgres.Prefixed("a", accountCols), "t.kind", "h.family")
	sql, args, err := postgres.Builder.Select(cols...).
		From(tableAccounts + " a").
		Join(tableTypes + " t ON t.id = a.type_id").
		Join(tableSubheads + " s ON s.id = a.subhead_id").
		Join(tableHeads + " h ON h.id = s.head_id").
		OrderBy("a.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts: %w", err)
	}
	var out []coa.AccountInfo
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r *Repo) UpsertCategoryMapping(ctx context.Context, m *coa.CategoryMapping) error {
	sql, args, err := postgres.Builder.Insert(tableMappings).
		SetMap(postgres.ColumnMap(m, mappingCols)).
		Suffix(`ON CONFLICT (category_id) DO UPDATE SET
			sales_account_id = EXCLUDED.sales_account_id,
			cogs_account_id = EXCLUDED.cogs_account_id,
			stock_account_id = EXCLUDED.stock_account_id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert mapping: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert mapping %s: %w", m.CategoryID, err)
	}
	return nil
}

func (r *Repo) GetCategoryMapping(ctx context.Context, categoryID id.ID) (*coa.CategoryMapping, error) {
	return get[coa.CategoryMapping](ctx, r, tableMappings, "category mapping", mappingCols,
		squirrel.Eq{"category_id": categoryID}, categoryID)
}

func (r *Repo) CreateParty(ctx context.Context, p *coa.Party) error {
	return r.insert(ctx, tableParties, "party "+p.Name, p, partyCols)
}

func (r *Repo) GetParty(ctx context.Context, partyID id.ID) (*coa.Party, error) {
	return get[coa.Party](ctx, r, tableParties, "party", partyCols, squirrel.Eq{"id": partyID}, partyID)
}
