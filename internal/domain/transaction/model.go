// Package transaction holds the business records that drive postings:
// sales, purchases, returns, expenses and the payments settling them.
package transaction

import (
	"fmt"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
)

// Kind is the business transaction type.
type Kind string

const (
	KindSale           Kind = "sale"
	KindPurchase       Kind = "purchase"
	KindSaleReturn     Kind = "sale_return"
	KindPurchaseReturn Kind = "purchase_return"
	KindExpense        Kind = "expense"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSale, KindPurchase, KindSaleReturn, KindPurchaseReturn, KindExpense:
		return true
	}
	return false
}

// Prefix is the numbering prefix of the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindSale:
		return numerator.PrefixSale
	case KindPurchase:
		return numerator.PrefixPurchase
	case KindSaleReturn:
		return numerator.PrefixSaleReturn
	case KindPurchaseReturn:
		return numerator.PrefixPurchaseReturn
	case KindExpense:
		return numerator.PrefixExpense
	}
	panic(fmt.Sprintf("transaction: unknown kind %q", string(k)))
}

// SourceTable is the voucher source of the kind.
func (k Kind) SourceTable() ledger.SourceTable {
	switch k {
	case KindSale:
		return ledger.SourceSale
	case KindPurchase:
		return ledger.SourcePurchase
	case KindSaleReturn:
		return ledger.SourceSaleReturn
	case KindPurchaseReturn:
		return ledger.SourcePurchaseReturn
	case KindExpense:
		return ledger.SourceExpense
	}
	panic(fmt.Sprintf("transaction: unknown kind %q", string(k)))
}

// PartyKind is the counterparty kind; expenses are settled with suppliers.
func (k Kind) PartyKind() coa.PartyKind {
	switch k {
	case KindSale, KindSaleReturn:
		return coa.PartyCustomer
	case KindPurchase, KindPurchaseReturn, KindExpense:
		return coa.PartySupplier
	}
	panic(fmt.Sprintf("transaction: unknown kind %q", string(k)))
}

// IsReturn is true for both return kinds.
func (k Kind) IsReturn() bool {
	return k == KindSaleReturn || k == KindPurchaseReturn
}

// OriginalKind is the kind a return refers back to.
func (k Kind) OriginalKind() (Kind, bool) {
	switch k {
	case KindSaleReturn:
		return KindSale, true
	case KindPurchaseReturn:
		return KindPurchase, true
	}
	return "", false
}

// Status is the transaction lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusVoid      Status = "void"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusCompleted, StatusVoid:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> to.
// Draft -> Approved -> Completed; any non-void state -> Void; Void is terminal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusDraft:
		return to == StatusApproved || to == StatusVoid
	case StatusApproved:
		return to == StatusCompleted || to == StatusVoid
	case StatusCompleted:
		return to == StatusVoid
	case StatusVoid:
		return false
	}
	return false
}

// PaymentStatus is derived from the header amounts, never set directly.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// DerivePaymentStatus maps the header amounts onto a PaymentStatus.
// A zero total counts as paid; otherwise no balance left means paid, a
// balance with something settled means partial.
func DerivePaymentStatus(total, paid, balance types.Money) PaymentStatus {
	switch {
	case !total.IsPositive(), !balance.IsPositive():
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// Transaction is the business-level record behind a primary voucher.
type Transaction struct {
	ID                    id.ID         `db:"id" json:"id"`
	Number                string        `db:"number" json:"number"`
	Kind                  Kind          `db:"kind" json:"kind"`
	Date                  time.Time     `db:"date" json:"date"`
	StoreID               id.ID         `db:"store_id" json:"storeId"`
	PartyID               *id.ID        `db:"party_id" json:"partyId,omitempty"`
	OriginalTransactionID *id.ID        `db:"original_transaction_id" json:"originalTransactionId,omitempty"`
	SubTotal              types.Money   `db:"sub_total" json:"subTotal"`
	DiscountAmount        types.Money   `db:"discount_amount" json:"discountAmount"`
	TotalAmount           types.Money   `db:"total_amount" json:"totalAmount"`
	PaidAmount            types.Money   `db:"paid_amount" json:"paidAmount"`
	ReturnedAmount        types.Money   `db:"returned_amount" json:"returnedAmount"`
	OffsetAmount          types.Money   `db:"offset_amount" json:"offsetAmount"`
	BalanceAmount         types.Money   `db:"balance_amount" json:"balanceAmount"`
	Status                Status        `db:"status" json:"status"`
	PaymentStatus         PaymentStatus `db:"payment_status" json:"paymentStatus"`
	VoucherID             *id.ID        `db:"voucher_id" json:"voucherId,omitempty"`
	PaymentAccountID      *id.ID        `db:"payment_account_id" json:"paymentAccountId,omitempty"`
	Notes                 string        `db:"notes" json:"notes,omitempty"`
	VoidReason            string        `db:"void_reason" json:"voidReason,omitempty"`
	VoidedBy              *id.ID        `db:"voided_by" json:"voidedBy,omitempty"`
	VoidedAt              *time.Time    `db:"voided_at" json:"voidedAt,omitempty"`
	CreatedBy             id.ID         `db:"created_by" json:"createdBy"`
	CreatedAt             time.Time     `db:"created_at" json:"createdAt"`
	Version               int           `db:"version" json:"version"`

	Lines []Line `db:"-" json:"lines"`
}

// Recalculate enforces BalanceAmount = max(0, Total - Paid - Returned - Offset) and derives PaymentStatus.
// OffsetAmount is only set on returns: the part of the return absorbed by the
// original's open balance, which is never refunded.
func (t *Transaction) Recalculate() {
	t.BalanceAmount = types.ClampZero(t.TotalAmount.Sub(t.PaidAmount).Sub(t.ReturnedAmount).Sub(t.OffsetAmount))
	t.PaymentStatus = DerivePaymentStatus(t.TotalAmount, t.PaidAmount, t.BalanceAmount)
}

// Transition moves the transaction through the state machine.
func (t *Transaction) Transition(to Status) error {
	if t.Status == StatusVoid && to == StatusVoid {
		return apperror.NewAlreadyVoid(t.ID, t.Number)
	}
	if !t.Status.CanTransition(to) {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("%s cannot move from %s to %s", t.Number, t.Status, to)).
			WithDetail("transaction_id", t.ID).
			WithDetail("from", t.Status).
			WithDetail("to", to)
	}
	t.Status = to
	return nil
}

// SourceRef is the voucher source pointing at this transaction.
func (t *Transaction) SourceRef() ledger.SourceRef {
	return ledger.SourceRef{Table: t.Kind.SourceTable(), ID: t.ID}
}

// Line is a transaction detail row.
type Line struct {
	ID               id.ID          `db:"id" json:"id"`
	TransactionID    id.ID          `db:"transaction_id" json:"transactionId"`
	LineNo           int            `db:"line_no" json:"lineNo"`
	ProductID        *id.ID         `db:"product_id" json:"productId,omitempty"`
	CategoryID       *id.ID         `db:"category_id" json:"categoryId,omitempty"`
	BatchID          *id.ID         `db:"batch_id" json:"batchId,omitempty"`
	ExpenseAccountID *id.ID         `db:"expense_account_id" json:"expenseAccountId,omitempty"`
	OriginalLineID   *id.ID         `db:"original_line_id" json:"originalLineId,omitempty"`
	Description      string         `db:"description" json:"description,omitempty"`
	Quantity         types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice        types.Money    `db:"unit_price" json:"unitPrice"`
	UnitCost         types.Money    `db:"unit_cost" json:"unitCost"`
	GrossAmount      types.Money    `db:"gross_amount" json:"grossAmount"`
	NetAmount        types.Money    `db:"net_amount" json:"netAmount"`
	CostAmount       types.Money    `db:"cost_amount" json:"costAmount"`
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
	ReturnedNet      types.Money    `db:"returned_net_amount" json:"returnedNetAmount"`
	ReturnedCost     types.Money    `db:"returned_cost_amount" json:"returnedCostAmount"`
}

// RemainingQuantity is what can still be returned against this line.
func (l *Line) RemainingQuantity() types.Quantity {
	return l.Quantity.Sub(l.ReturnedQuantity)
}

// ReturnShare is the net and cost value of returning qty from this line.
// The return that takes the last unit gets whatever value is left, so a line
// returned in several parts reverses exactly its NetAmount and CostAmount.
func (l *Line) ReturnShare(qty types.Quantity) (net, cost types.Money) {
	remainingNet := l.NetAmount.Sub(l.ReturnedNet)
	remainingCost := l.CostAmount.Sub(l.ReturnedCost)
	if !qty.LessThan(l.RemainingQuantity()) {
		return remainingNet, remainingCost
	}
	net = types.RoundMoney(l.NetAmount.Mul(qty).Div(l.Quantity))
	cost = types.RoundMoney(l.CostAmount.Mul(qty).Div(l.Quantity))
	if net.GreaterThan(remainingNet) {
		net = remainingNet
	}
	if cost.GreaterThan(remainingCost) {
		cost = remainingCost
	}
	return net, cost
}

// AddReturn records qty returned at the given value; a negative sign rolls it back.
func (l *Line) AddReturn(qty types.Quantity, net, cost types.Money, sign int64) {
	factor := types.MoneyFromInt(sign)
	l.ReturnedQuantity = types.ClampZero(l.ReturnedQuantity.Add(qty.Mul(factor)))
	l.ReturnedNet = types.ClampZero(l.ReturnedNet.Add(net.Mul(factor)))
	l.ReturnedCost = types.ClampZero(l.ReturnedCost.Add(cost.Mul(factor)))
}

// Direction tells whether money came in or went out.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionMade     Direction = "made"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionReceived || d == DirectionMade
}

// Prefix is the numbering prefix of the direction.
func (d Direction) Prefix() string {
	if d == DirectionReceived {
		return numerator.PrefixReceipt
	}
	return numerator.PrefixPaymentMade
}

// Payment is a receipt from a customer or a payment to a supplier.
type Payment struct {
	ID         id.ID       `db:"id" json:"id"`
	Number     string      `db:"number" json:"number"`
	Direction  Direction   `db:"direction" json:"direction"`
	PartyID    id.ID       `db:"party_id" json:"partyId"`
	AccountID  id.ID       `db:"account_id" json:"accountId"`
	Date       time.Time   `db:"date" json:"date"`
	Amount     types.Money `db:"amount" json:"amount"`
	StoreID    id.ID       `db:"store_id" json:"storeId"`
	VoucherID  *id.ID      `db:"voucher_id" json:"voucherId,omitempty"`
	IsVoided   bool        `db:"is_voided" json:"isVoided"`
	VoidReason string      `db:"void_reason" json:"voidReason,omitempty"`
	VoidedAt   *time.Time  `db:"voided_at" json:"voidedAt,omitempty"`
	CreatedBy  id.ID       `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`

	Allocations []Allocation `db:"-" json:"allocations"`
}

// Allocated sums the allocation rows.
func (p *Payment) Allocated() types.Money {
	total := types.Zero()
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Allocation links part of a payment to the transaction it settles.
type Allocation struct {
	ID            id.ID       `db:"id" json:"id"`
	PaymentID     id.ID       `db:"payment_id" json:"paymentId"`
	TransactionID id.ID       `db:"transaction_id" json:"transactionId"`
	Amount        types.Money `db:"amount" json:"amount"`
}
