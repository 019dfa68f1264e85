package posting

import (
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
)

// LineRequest is one detail line of a CreateTransactionRequest.
//
// Sales and purchases use ProductID, CategoryID, Quantity, UnitPrice (and UnitCost for sales).
// Returns use OriginalLineID and Quantity; amounts and cost come from the original line.
// Expenses use ExpenseAccountID and UnitPrice (Quantity defaults to 1).
type LineRequest struct {
	ProductID        *id.ID
	CategoryID       *id.ID
	BatchID          *id.ID
	ExpenseAccountID *id.ID
	OriginalLineID   *id.ID
	Description      string
	Quantity         types.Quantity
	UnitPrice        types.Money
	UnitCost         types.Money
}

// CreateTransactionRequest is the inbound contract for every business transaction.
// Store and user are explicit; nothing is read from ambient state.
type CreateTransactionRequest struct {
	Kind                  transaction.Kind
	Date                  time.Time
	StoreID               id.ID
	UserID                id.ID
	PartyID               *id.ID
	Lines                 []LineRequest
	DiscountAmount        types.Money
	PaidAmount            types.Money
	PaymentAccountID      *id.ID
	OriginalTransactionID *id.ID
	Notes                 string
}

func (r *CreateTransactionRequest) validate() error {
	if !r.Kind.Valid() {
		return apperror.NewInvalidInput("kind", fmt.Sprintf("unknown transaction kind %q", r.Kind))
	}
	if r.Date.IsZero() {
		return apperror.NewInvalidInput("date", "date is required")
	}
	if id.IsNil(r.StoreID) {
		return apperror.NewInvalidInput("storeId", "store is required")
	}
	if id.IsNil(r.UserID) {
		return apperror.NewInvalidInput("userId", "user is required")
	}
	if len(r.Lines) == 0 {
		return apperror.NewInvalidInput("lines", "at least one line is required")
	}
	if r.DiscountAmount.IsNegative() {
		return apperror.NewInvalidInput("discountAmount", "discount must not be negative")
	}
	if r.PaidAmount.IsNegative() {
		return apperror.NewInvalidInput("paidAmount", "paid amount must not be negative")
	}
	if !types.HasMoneyPrecision(r.DiscountAmount) || !types.HasMoneyPrecision(r.PaidAmount) {
		return apperror.NewInvalidInput("paidAmount", "amounts must have at most 2 decimal places")
	}
	if r.PaidAmount.IsPositive() && r.PaymentAccountID == nil {
		return apperror.NewInvalidInput("paymentAccountId", "payment account is required when an amount is paid")
	}
	if r.Kind != transaction.KindExpense && r.PartyID == nil && !r.Kind.IsReturn() {
		return apperror.NewInvalidInput("partyId", fmt.Sprintf("%s requires a party", r.Kind))
	}
	if r.Kind.IsReturn() && r.OriginalTransactionID == nil {
		return apperror.NewInvalidInput("originalTransactionId", "return requires the original transaction")
	}

	for i := range r.Lines {
		l := &r.Lines[i]
		n := i + 1
		if l.kind(r.Kind) == lineExpense && l.Quantity.IsZero() {
			l.Quantity = types.MoneyFromInt(1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewInvalidInput("quantity", fmt.Sprintf("line %d: quantity must be positive", n))
		}
		if l.UnitPrice.IsNegative() || l.UnitCost.IsNegative() {
			return apperror.NewInvalidInput("unitPrice", fmt.Sprintf("line %d: price and cost must not be negative", n))
		}
		switch l.kind(r.Kind) {
		case lineItem:
			if l.CategoryID == nil {
				return apperror.NewInvalidInput("categoryId", fmt.Sprintf("line %d: category is required", n))
			}
		case lineReturn:
			if l.OriginalLineID == nil {
				return apperror.NewInvalidInput("originalLineId", fmt.Sprintf("line %d: original line is required", n))
			}
		case lineExpense:
			if l.ExpenseAccountID == nil {
				return apperror.NewInvalidInput("expenseAccountId", fmt.Sprintf("line %d: expense account is required", n))
			}
		}
	}
	return nil
}

type lineKind int

const (
	lineItem lineKind = iota
	lineReturn
	lineExpense
)

// kind tells which fields the line must carry for a transaction kind.
func (l LineRequest) kind(k transaction.Kind) lineKind {
	switch {
	case k.IsReturn():
		return lineReturn
	case k == transaction.KindExpense:
		return lineExpense
	default:
		return lineItem
	}
}

// PostingResult is returned by every Create* operation.
type PostingResult struct {
	Transaction    *transaction.Transaction `json:"transaction"`
	Voucher        *ledger.Voucher          `json:"voucher"`
	PaymentVoucher *ledger.Voucher          `json:"paymentVoucher,omitempty"`
	Payment        *transaction.Payment     `json:"payment,omitempty"`
}

// AllocationRequest assigns part of a payment to a transaction.
type AllocationRequest struct {
	TransactionID id.ID
	Amount        types.Money
}

// PaymentRequest records a standalone receipt or payment.
type PaymentRequest struct {
	Direction   transaction.Direction
	PartyID     id.ID
	AccountID   id.ID
	Amount      types.Money
	Date        time.Time
	StoreID     id.ID
	UserID      id.ID
	Allocations []AllocationRequest
}

func (r *PaymentRequest) validate() error {
	if !r.Direction.Valid() {
		return apperror.NewInvalidInput("direction", fmt.Sprintf("unknown payment direction %q", r.Direction))
	}
	if id.IsNil(r.PartyID) {
		return apperror.NewInvalidInput("partyId", "party is required")
	}
	if id.IsNil(r.AccountID) {
		return apperror.NewInvalidInput("accountId", "payment account is required")
	}
	if !r.Amount.IsPositive() || !types.HasMoneyPrecision(r.Amount) {
		return apperror.NewInvalidInput("amount", "amount must be positive with at most 2 decimal places")
	}
	if r.Date.IsZero() {
		return apperror.NewInvalidInput("date", "date is required")
	}
	if id.IsNil(r.StoreID) || id.IsNil(r.UserID) {
		return apperror.NewInvalidInput("storeId", "store and user are required")
	}

	allocated := types.Zero()
	seen := make(map[id.ID]struct{}, len(r.Allocations))
	for _, a := range r.Allocations {
		if !a.Amount.IsPositive() || !types.HasMoneyPrecision(a.Amount) {
			return apperror.NewInvalidInput("allocations", "allocation amounts must be positive with at most 2 decimal places")
		}
		if _, dup := seen[a.TransactionID]; dup {
			return apperror.NewInvalidInput("allocations", fmt.Sprintf("transaction %s allocated twice", a.TransactionID))
		}
		seen[a.TransactionID] = struct{}{}
		allocated = allocated.Add(a.Amount)
	}
	if allocated.GreaterThan(r.Amount) {
		return apperror.NewValidation("allocations exceed the payment amount").
			WithDetail("amount", types.FormatMoney(r.Amount)).
			WithDetail("allocated", types.FormatMoney(allocated))
	}
	return nil
}

// VoidRequest voids a transaction with everything posted for it.
type VoidRequest struct {
	TransactionID id.ID
	Reason        string
	UserID        id.ID
}

func (r *VoidRequest) validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if id.IsNil(r.TransactionID) {
		return apperror.NewInvalidInput("transactionId", "transaction is required")
	}
	if r.Reason == "" {
		return apperror.NewInvalidInput("reason", "void reason is required")
	}
	if id.IsNil(r.UserID) {
		return apperror.NewInvalidInput("userId", "user is required")
	}
	return nil
}

// VoidResult lists what a void produced.
type VoidResult struct {
	Transaction    *transaction.Transaction `json:"transaction"`
	Reversals      []*ledger.Voucher        `json:"reversals"`
	VoidedPayments []transaction.Payment    `json:"voidedPayments"`
}
