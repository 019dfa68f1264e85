package transaction_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	tablePayments    = "payments"
	tableAllocations = "payment_allocations"
)

var (
	paymentCols    = postgres.ExtractDBColumns[transaction.Payment]()
	allocationCols = postgres.ExtractDBColumns[transaction.Allocation]()
)

// PaymentRepo implements transaction.PaymentRepository.
type PaymentRepo struct {
	txm *postgres.TxManager
}

var _ transaction.PaymentRepository = (*PaymentRepo)(nil)

// NewPaymentRepo creates the repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{txm: txm}
}

func (r *PaymentRepo) Create(ctx context.Context, p *transaction.Payment) error {
	sql, args, err := postgres.Builder.Insert(tablePayments).
		SetMap(postgres.ColumnMap(p, paymentCols)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert payment: %w", err)
	}
	queries := []postgres.BatchQuery{{SQL: sql, Args: args}}
	for i := range p.Allocations {
		a := &p.Allocations[i]
		a.PaymentID = p.ID
		if id.IsNil(a.ID) {
			a.ID = id.New()
		}
		asql, aargs, err := postgres.Builder.Insert(tableAllocations).
			SetMap(postgres.ColumnMap(a, allocationCols)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert allocation: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: asql, Args: aargs})
	}
	if err := postgres.ExecBatch(ctx, r.txm.GetQuerier(ctx), queries, true); err != nil {
		return fmt.Errorf("insert payment %s: %w", p.Number, err)
	}
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*transaction.Payment, error) {
	sql, args, err := postgres.Builder.Select(paymentCols...).From(tablePayments).
		Where(squirrel.Eq{"id": paymentID}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select payment: %w", err)
	}
	out := make([]transaction.Payment, 1)
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out[0], sql, args...); err != nil {
		return nil, postgres.MapError("get payment", "payment", paymentID, err)
	}
	if err := r.loadAllocations(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *PaymentRepo) ListByTransaction(ctx context.Context, transactionID id.ID) ([]transaction.Payment, error) {
	sql, args, err := postgres.Builder.Select(postgres.Prefixed("p", paymentCols)...).
		From(tablePayments + " p").
		Where(squirrel.Eq{"p.is_voided": false}).
		Where(squirrel.Expr("EXISTS (SELECT 1 FROM "+tableAllocations+" a WHERE a.payment_id = p.id AND a.transaction_id = ?)", transactionID)).
		OrderBy("p.number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list payments: %w", err)
	}
	var out []transaction.Payment
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", transactionID, err)
	}
	if err := r.loadAllocations(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepo) MarkVoided(ctx context.Context, paymentID id.ID, reason string, at time.Time) error {
	sql, args, err := postgres.Builder.Update(tablePayments).
		Set("is_voided", true).
		Set("void_reason", reason).
		Set("voided_at", at).
		Where(squirrel.Eq{"id": paymentID, "is_voided": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build void payment: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("void payment %s: %w", paymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("payment", paymentID)
	}
	return nil
}

func (r *PaymentRepo) DeleteAllocations(ctx context.Context, paymentID id.ID) error {
	sql, args, err := postgres.Builder.Delete(tableAllocations).
		Where(squirrel.Eq{"payment_id": paymentID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete allocations: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete allocations of %s: %w", paymentID, err)
	}
	return nil
}

func (r *PaymentRepo) loadAllocations(ctx context.Context, ps []transaction.Payment) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]id.ID, len(ps))
	index := make(map[id.ID]int, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
		index[p.ID] = i
	}
	sql, args, err := postgres.Builder.Select(allocationCols...).From(tableAllocations).
		Where(squirrel.Eq{"payment_id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build select allocations: %w", err)
	}
	var rows []transaction.Allocation
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("select allocations: %w", err)
	}
	for _, a := range rows {
		i := index[a.PaymentID]
		ps[i].Allocations = append(ps[i].Allocations, a)
	}
	return nil
}
