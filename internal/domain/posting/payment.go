package posting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/pkg/logger"
)

type paymentSpec struct {
	Direction    transaction.Direction
	PartyID      id.ID
	PartyAccount id.ID
	MoneyAccount id.ID
	Amount       types.Money
	Date         time.Time
	StoreID      id.ID
	UserID       id.ID
	Allocations  []AllocationRequest
}

// recordPayment posts the payment voucher and stores the payment with its allocations.
// Callers adjust the allocated transactions.
func (e *Engine) recordPayment(ctx context.Context, spec paymentSpec) (*transaction.Payment, *ledger.Voucher, error) {
	number, err := e.numerator.NextNumber(ctx, spec.Direction.Prefix(), spec.Date)
	if err != nil {
		return nil, nil, fmt.Errorf("payment number: %w", err)
	}

	p := &transaction.Payment{
		ID:        id.New(),
		Number:    number,
		Direction: spec.Direction,
		PartyID:   spec.PartyID,
		AccountID: spec.MoneyAccount,
		Date:      spec.Date,
		Amount:    spec.Amount,
		StoreID:   spec.StoreID,
		CreatedBy: spec.UserID,
		CreatedAt: e.now().UTC(),
	}

	lines, err := BuildPayment(PaymentInput{
		Direction:    spec.Direction,
		MoneyAccount: spec.MoneyAccount,
		PartyAccount: spec.PartyAccount,
		PartyID:      spec.PartyID,
		Amount:       spec.Amount,
		Reference:    number,
	})
	if err != nil {
		return nil, nil, err
	}

	v, err := e.ledger.PostVoucher(ctx, ledger.PostRequest{
		Lines:     lines,
		Source:    ledger.SourceRef{Table: ledger.SourcePayment, ID: p.ID},
		Date:      spec.Date,
		Narration: fmt.Sprintf("Payment %s", number),
		StoreID:   spec.StoreID,
		UserID:    spec.UserID,
		Prefix:    numerator.PrefixPaymentVoucher,
	})
	if err != nil {
		return nil, nil, err
	}
	p.VoucherID = id.Ptr(v.ID)

	for _, a := range spec.Allocations {
		p.Allocations = append(p.Allocations, transaction.Allocation{
			ID:            id.New(),
			PaymentID:     p.ID,
			TransactionID: a.TransactionID,
			Amount:        a.Amount,
		})
	}

	if err := e.payments.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}

	if err := e.events.Publish(ctx, events.Event{
		AggregateType: "payment",
		AggregateID:   p.ID,
		EventType:     events.PaymentRecorded,
		Payload:       p,
	}); err != nil {
		return nil, nil, fmt.Errorf("publish payment event: %w", err)
	}
	return p, v, nil
}

// settles reports whether a payment in direction d can be allocated to kind k.
func settles(d transaction.Direction, k transaction.Kind) bool {
	switch d {
	case transaction.DirectionReceived:
		return k == transaction.KindSale || k == transaction.KindPurchaseReturn
	case transaction.DirectionMade:
		return k == transaction.KindPurchase || k == transaction.KindExpense || k == transaction.KindSaleReturn
	}
	return false
}

// CreatePayment records a standalone receipt or payment and applies its allocations.
// Unallocated remainder stays on the party account as an advance.
func (e *Engine) CreatePayment(ctx context.Context, req PaymentRequest) (*PostingResult, error) {
	ctx, span := tracer.Start(ctx, "posting.CreatePayment")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		pay *transaction.Payment
		v   *ledger.Voucher
	)
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		party, err := e.chart.GetParty(ctx, req.PartyID)
		if err != nil {
			return err
		}
		partyAccount, err := e.chart.LinkedAccount(ctx, party.ID, party.Kind)
		if err != nil {
			return err
		}
		if err := e.chart.RequireKind(ctx, req.AccountID, coa.KindCash, coa.KindBank); err != nil {
			return err
		}

		targets := make([]*transaction.Transaction, len(req.Allocations))
		for i, a := range req.Allocations {
			t, err := e.transactions.GetByIDForUpdate(ctx, a.TransactionID)
			if err != nil {
				return err
			}
			if err := checkAllocation(req, a, t); err != nil {
				return err
			}
			targets[i] = t
		}

		pay, v, err = e.recordPayment(ctx, paymentSpec{
			Direction:    req.Direction,
			PartyID:      party.ID,
			PartyAccount: partyAccount,
			MoneyAccount: req.AccountID,
			Amount:       req.Amount,
			Date:         req.Date,
			StoreID:      req.StoreID,
			UserID:       req.UserID,
			Allocations:  req.Allocations,
		})
		if err != nil {
			return err
		}

		for i, t := range targets {
			t.PaidAmount = t.PaidAmount.Add(req.Allocations[i].Amount)
			t.Recalculate()
			if err := e.transactions.Update(ctx, t); err != nil {
				return fmt.Errorf("update %s: %w", t.Number, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"payment_id", pay.ID,
		"number", pay.Number,
		"direction", pay.Direction,
		"amount", types.FormatMoney(pay.Amount),
		"allocations", len(pay.Allocations),
	)
	return &PostingResult{Payment: pay, PaymentVoucher: v}, nil
}

func checkAllocation(req PaymentRequest, a AllocationRequest, t *transaction.Transaction) error {
	if t.PartyID == nil || *t.PartyID != req.PartyID {
		return apperror.NewValidation(fmt.Sprintf("%s belongs to a different party", t.Number)).
			WithDetail("transaction_id", t.ID)
	}
	if t.Status != transaction.StatusCompleted {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("%s is %s and cannot take payments", t.Number, t.Status)).
			WithDetail("transaction_id", t.ID)
	}
	if !settles(req.Direction, t.Kind) {
		return apperror.NewValidation(fmt.Sprintf("a %s payment cannot settle a %s", req.Direction, t.Kind)).
			WithDetail("transaction_id", t.ID)
	}
	if a.Amount.GreaterThan(t.BalanceAmount) {
		return apperror.NewValidation(fmt.Sprintf("allocation to %s exceeds its balance", t.Number)).
			WithDetail("transaction_id", t.ID).
			WithDetail("amount", types.FormatMoney(a.Amount)).
			WithDetail("balance", types.FormatMoney(t.BalanceAmount))
	}
	return nil
}

// VoidPayment reverses a payment voucher and rolls back its allocations.
func (e *Engine) VoidPayment(ctx context.Context, paymentID id.ID, reason string, userID id.ID) (*transaction.Payment, error) {
	ctx, span := tracer.Start(ctx, "posting.VoidPayment")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewInvalidInput("reason", "void reason is required")
	}
	if id.IsNil(userID) {
		return nil, apperror.NewInvalidInput("userId", "user is required")
	}

	release, err := e.locker.Acquire(ctx, "void:payment:"+paymentID.String())
	if err != nil {
		return nil, err
	}
	defer e.release(ctx, release)

	var pay *transaction.Payment
	err = e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.IsVoided {
			return apperror.NewAlreadyVoid(p.ID, p.Number)
		}
		if _, err := e.voidPayment(ctx, p, reason, userID, id.ID{}); err != nil {
			return err
		}
		pay = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment voided", "payment_id", pay.ID, "number", pay.Number, "user_id", userID)
	return pay, nil
}

// voidPayment reverses p's voucher, marks it voided and takes its allocations
// back off every transaction except skip, which the caller adjusts itself.
func (e *Engine) voidPayment(ctx context.Context, p *transaction.Payment, reason string, userID, skip id.ID) (*ledger.Voucher, error) {
	var reversal *ledger.Voucher
	if p.VoucherID != nil {
		rev, err := e.ledger.ReverseVoucher(ctx, *p.VoucherID, reason, userID)
		if err != nil {
			return nil, err
		}
		reversal = rev
	}

	now := e.now().UTC()
	if err := e.payments.MarkVoided(ctx, p.ID, reason, now); err != nil {
		return nil, fmt.Errorf("mark payment %s voided: %w", p.Number, err)
	}

	for _, a := range p.Allocations {
		if a.TransactionID == skip {
			continue
		}
		t, err := e.transactions.GetByIDForUpdate(ctx, a.TransactionID)
		if err != nil {
			return nil, err
		}
		t.PaidAmount = types.ClampZero(t.PaidAmount.Sub(a.Amount))
		t.Recalculate()
		if err := e.transactions.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("update %s: %w", t.Number, err)
		}
	}

	if err := e.payments.DeleteAllocations(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("delete allocations of %s: %w", p.Number, err)
	}

	before := *p
	p.IsVoided = true
	p.VoidReason = reason
	p.VoidedAt = &now

	if err := e.audit.Record(ctx, audit.Entry{
		EntityType: "payment",
		EntityID:   p.ID,
		Action:     audit.ActionVoid,
		UserID:     userID,
		Reason:     reason,
		Before:     before,
		After:      p,
	}); err != nil {
		return nil, fmt.Errorf("audit payment void: %w", err)
	}

	if err := e.events.Publish(ctx, events.Event{
		AggregateType: "payment",
		AggregateID:   p.ID,
		EventType:     events.PaymentVoided,
		Payload:       p,
	}); err != nil {
		return nil, fmt.Errorf("publish payment event: %w", err)
	}
	return reversal, nil
}

func (e *Engine) release(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		logger.Warn(ctx, "failed to release lock", "error", err)
	}
}
