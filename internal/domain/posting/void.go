package posting

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/pkg/logger"
)

// VoidTransaction reverses the primary voucher and every payment voucher
// allocated to the transaction, voids those payments, and marks the
// transaction Void. All of it commits together or not at all.
func (e *Engine) VoidTransaction(ctx context.Context, req VoidRequest) (*VoidResult, error) {
	ctx, span := tracer.Start(ctx, "posting.VoidTransaction")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", req.TransactionID.String()))

	release, err := e.locker.Acquire(ctx, "void:transaction:"+req.TransactionID.String())
	if err != nil {
		return nil, err
	}
	defer e.release(ctx, release)

	var result *VoidResult
	err = e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		res, err := e.void(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := result.Transaction
	logger.Info(ctx, "transaction voided",
		"transaction_id", t.ID,
		"number", t.Number,
		"reversals", len(result.Reversals),
		"payments", len(result.VoidedPayments),
		"user_id", req.UserID,
	)
	return result, nil
}

func (e *Engine) void(ctx context.Context, req VoidRequest) (*VoidResult, error) {
	t, err := e.transactions.GetByIDForUpdate(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if t.Status == transaction.StatusVoid {
		return nil, apperror.NewAlreadyVoid(t.ID, t.Number)
	}

	if !t.Kind.IsReturn() {
		returns, err := e.transactions.ListReturns(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list returns of %s: %w", t.Number, err)
		}
		if len(returns) > 0 {
			numbers := make([]string, len(returns))
			for i, r := range returns {
				numbers[i] = r.Number
			}
			return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
				fmt.Sprintf("%s has returns that must be voided first: %s", t.Number, strings.Join(numbers, ", "))).
				WithDetail("transaction_id", t.ID).
				WithDetail("returns", numbers)
		}
	}

	before := *t
	result := &VoidResult{Transaction: t}

	if t.VoucherID != nil {
		rev, err := e.ledger.ReverseVoucher(ctx, *t.VoucherID, req.Reason, req.UserID)
		if err != nil {
			return nil, err
		}
		result.Reversals = append(result.Reversals, rev)
	}

	payments, err := e.payments.ListByTransaction(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", t.Number, err)
	}
	for i := range payments {
		p := &payments[i]
		rev, err := e.voidPayment(ctx, p, req.Reason, req.UserID, t.ID)
		if err != nil {
			return nil, err
		}
		if rev != nil {
			result.Reversals = append(result.Reversals, rev)
		}
		for _, a := range p.Allocations {
			if a.TransactionID == t.ID {
				t.PaidAmount = types.ClampZero(t.PaidAmount.Sub(a.Amount))
			}
		}
		result.VoidedPayments = append(result.VoidedPayments, *p)
	}

	if t.Kind.IsReturn() && t.OriginalTransactionID != nil {
		original, err := e.transactions.GetByIDForUpdate(ctx, *t.OriginalTransactionID)
		if err != nil {
			return nil, err
		}
		if err := e.applyReturn(ctx, original, t, -1); err != nil {
			return nil, err
		}
	}

	if err := t.Transition(transaction.StatusVoid); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	t.VoidReason = req.Reason
	t.VoidedBy = &req.UserID
	t.VoidedAt = &now
	t.Recalculate()
	if err := e.transactions.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update %s: %w", t.Number, err)
	}

	if err := e.audit.Record(ctx, audit.Entry{
		EntityType: "transaction",
		EntityID:   t.ID,
		Action:     audit.ActionVoid,
		UserID:     req.UserID,
		Reason:     req.Reason,
		Before:     before,
		After:      t,
	}); err != nil {
		return nil, fmt.Errorf("audit void: %w", err)
	}

	if err := e.events.Publish(ctx, events.Event{
		AggregateType: "transaction",
		AggregateID:   t.ID,
		EventType:     events.TransactionVoided,
		Payload:       t,
	}); err != nil {
		return nil, fmt.Errorf("publish void event: %w", err)
	}
	return result, nil
}
