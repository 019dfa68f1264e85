// Package report_repo is the PostgreSQL implementation of reports.Repository.
// Balances are aggregated in SQL over voucher_lines joined to their voucher.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm *postgres.TxManager
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

// countedStatuses are the voucher statuses whose lines make up balances.
var countedStatuses = []ledger.VoucherStatus{ledger.StatusPosted, ledger.StatusReversed}

func filtered(b squirrel.SelectBuilder, f reports.LineFilter) squirrel.SelectBuilder {
	b = b.Where(squirrel.Eq{"v.status": countedStatuses})
	if len(f.AccountIDs) > 0 {
		b = b.Where(squirrel.Eq{"l.account_id": f.AccountIDs})
	}
	if f.From != nil {
		b = b.Where(squirrel.GtOrEq{"v.date": *f.From})
	}
	if f.Until != nil {
		b = b.Where(squirrel.Lt{"v.date": *f.Until})
	}
	return b
}

// SumByAccount implements reports.Repository.
func (r *ReportRepo) SumByAccount(ctx context.Context, f reports.LineFilter) ([]reports.AccountTotals, error) {
	b := postgres.Builder.
		Select("l.account_id", "COALESCE(SUM(l.debit), 0) AS debit", "COALESCE(SUM(l.credit), 0) AS credit").
		From("voucher_lines l").
		Join("vouchers v ON v.id = l.voucher_id").
		GroupBy("l.account_id").
		OrderBy("l.account_id")

	sql, args, err := filtered(b, f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account totals: %w", err)
	}
	var out []reports.AccountTotals
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("account totals: %w", err)
	}
	return out, nil
}

// ListLines implements reports.Repository.
func (r *ReportRepo) ListLines(ctx context.Context, accountID id.ID, f reports.LineFilter) ([]reports.LedgerRow, error) {
	f.AccountIDs = []id.ID{accountID}
	b := postgres.Builder.
		Select(
			"l.id AS line_id", "v.id AS voucher_id", "v.number AS voucher_number", "v.date",
			"v.narration", "l.description", "l.party_id", "l.debit", "l.credit",
		).
		From("voucher_lines l").
		Join("vouchers v ON v.id = l.voucher_id").
		OrderBy("v.date", "l.id")

	sql, args, err := filtered(b, f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ledger lines: %w", err)
	}
	var out []reports.LedgerRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("ledger lines of %s: %w", accountID, err)
	}
	return out, nil
}
