// Package transaction_repo is the PostgreSQL implementation of the transaction
// and payment repositories.
package transaction_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	tableTransactions = "transactions"
	tableLines        = "transaction_lines"
)

var (
	transactionCols = postgres.ExtractDBColumns[transaction.Transaction]()
	lineCols        = postgres.ExtractDBColumns[transaction.Line]()

	// immutable after Create; Update never writes them.
	fixedCols = []string{"id", "number", "kind", "store_id", "original_transaction_id", "created_by", "created_at", "version"}
)

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct {
	txm *postgres.TxManager
}

var _ transaction.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates the repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{txm: txm}
}

func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	if t.Version == 0 {
		t.Version = 1
	}
	q := r.txm.GetQuerier(ctx)

	sql, args, err := postgres.Builder.Insert(tableTransactions).
		SetMap(postgres.ColumnMap(t, transactionCols)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert transaction: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("insert transaction", "transaction", t.ID, err)
	}

	if len(t.Lines) == 0 {
		return nil
	}
	ins := postgres.Builder.Insert(tableLines).Columns(lineCols...)
	for i := range t.Lines {
		l := &t.Lines[i]
		l.TransactionID = t.ID
		m := postgres.StructToMap(l)
		row := make([]any, len(lineCols))
		for j, c := range lineCols {
			row[j] = m[c]
		}
		ins = ins.Values(row...)
	}
	if sql, args, err = ins.ToSql(); err != nil {
		return fmt.Errorf("build insert transaction lines: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines of %s: %w", t.Number, err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, transactionID id.ID) (*transaction.Transaction, error) {
	return r.get(ctx, transactionID, false)
}

func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, transactionID id.ID) (*transaction.Transaction, error) {
	return r.get(ctx, transactionID, true)
}

func (r *TransactionRepo) get(ctx context.Context, transactionID id.ID, lock bool) (*transaction.Transaction, error) {
	b := postgres.Builder.Select(transactionCols...).From(tableTransactions).
		Where(squirrel.Eq{"id": transactionID})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select transaction: %w", err)
	}

	out := make([]transaction.Transaction, 1)
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out[0], sql, args...); err != nil {
		return nil, postgres.MapError("get transaction", "transaction", transactionID, err)
	}
	if err := r.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Update writes the mutable header fields under the optimistic lock and the
// returned quantity and value of every line, in one round-trip.
func (r *TransactionRepo) Update(ctx context.Context, t *transaction.Transaction) error {
	sql, args, err := postgres.Builder.Update(tableTransactions).
		SetMap(postgres.ColumnMap(t, postgres.Without(transactionCols, fixedCols...))).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update transaction: %w", err)
	}

	queries := []postgres.BatchQuery{{SQL: sql, Args: args}}
	for _, l := range t.Lines {
		lsql, largs, err := postgres.Builder.Update(tableLines).
			Set("returned_quantity", l.ReturnedQuantity).
			Set("returned_net_amount", l.ReturnedNet).
			Set("returned_cost_amount", l.ReturnedCost).
			Where(squirrel.Eq{"id": l.ID, "transaction_id": t.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update line: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: lsql, Args: largs})
	}

	if err := postgres.ExecBatch(ctx, r.txm.GetQuerier(ctx), queries, true); err != nil {
		if errors.Is(err, postgres.ErrNoRowsAffected) {
			return apperror.NewConcurrentModification("transaction", t.ID).WithCause(err)
		}
		return fmt.Errorf("update transaction %s: %w", t.Number, err)
	}
	t.Version++
	return nil
}

func (r *TransactionRepo) ListReturns(ctx context.Context, originalID id.ID) ([]transaction.Transaction, error) {
	return r.list(ctx, postgres.Builder.Select(transactionCols...).From(tableTransactions).
		Where(squirrel.Eq{
			"original_transaction_id": originalID,
			"kind":                    []transaction.Kind{transaction.KindSaleReturn, transaction.KindPurchaseReturn},
		}).
		Where(squirrel.NotEq{"status": transaction.StatusVoid}))
}

func (r *TransactionRepo) ListOutstanding(ctx context.Context, f transaction.OutstandingFilter) ([]transaction.Transaction, error) {
	b := postgres.Builder.Select(transactionCols...).From(tableTransactions).
		Where(squirrel.Eq{"status": []transaction.Status{transaction.StatusApproved, transaction.StatusCompleted}}).
		Where(squirrel.LtOrEq{"date": f.AsOf}).
		Where(squirrel.Gt{"balance_amount": 0})
	if len(f.Kinds) > 0 {
		b = b.Where(squirrel.Eq{"kind": f.Kinds})
	}
	if f.PartyID != nil {
		b = b.Where(squirrel.Eq{"party_id": *f.PartyID})
	}
	return r.list(ctx, b)
}

func (r *TransactionRepo) list(ctx context.Context, b squirrel.SelectBuilder) ([]transaction.Transaction, error) {
	sql, args, err := b.OrderBy("date", "number").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list transactions: %w", err)
	}
	var out []transaction.Transaction
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if err := r.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TransactionRepo) loadLines(ctx context.Context, ts []transaction.Transaction) error {
	if len(ts) == 0 {
		return nil
	}
	ids := make([]id.ID, len(ts))
	index := make(map[id.ID]int, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
		index[t.ID] = i
	}

	sql, args, err := postgres.Builder.Select(lineCols...).From(tableLines).
		Where(squirrel.Eq{"transaction_id": ids}).
		OrderBy("transaction_id", "line_no").ToSql()
	if err != nil {
		return fmt.Errorf("build select transaction lines: %w", err)
	}
	var lines []transaction.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return fmt.Errorf("select transaction lines: %w", err)
	}
	for _, l := range lines {
		i := index[l.TransactionID]
		ts[i].Lines = append(ts[i].Lines, l)
	}
	return nil
}
