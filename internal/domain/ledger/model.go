// Package ledger is the double-entry core: balanced vouchers, posting and reversal.
package ledger

import (
	"fmt"
	"time"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// VoucherStatus is the voucher lifecycle state.
//
// Posted is the state of every new voucher. Reversed is terminal and set on the
// original when a reversal voucher is created. Both statuses are committed ledger
// data: a reversed voucher and its reversal together net to zero.
type VoucherStatus string

const (
	StatusPosted   VoucherStatus = "posted"
	StatusReversed VoucherStatus = "reversed"
)

// Valid reports whether s is a known status.
func (s VoucherStatus) Valid() bool {
	switch s {
	case StatusPosted, StatusReversed:
		return true
	}
	return false
}

// CountsInBalance reports whether lines of a voucher in this status are summed by balances.
func (s VoucherStatus) CountsInBalance() bool {
	switch s {
	case StatusPosted, StatusReversed:
		return true
	}
	panic(fmt.Sprintf("ledger: unknown voucher status %q", string(s)))
}

// SourceTable names the business record type that caused a voucher.
type SourceTable string

const (
	SourceSale           SourceTable = "sale"
	SourcePurchase       SourceTable = "purchase"
	SourceSaleReturn     SourceTable = "sale_return"
	SourcePurchaseReturn SourceTable = "purchase_return"
	SourceExpense        SourceTable = "expense"
	SourcePayment        SourceTable = "payment"
	SourceManual         SourceTable = "manual"
)

// Valid reports whether t is a known source table.
func (t SourceTable) Valid() bool {
	switch t {
	case SourceSale, SourcePurchase, SourceSaleReturn, SourcePurchaseReturn,
		SourceExpense, SourcePayment, SourceManual:
		return true
	}
	return false
}

// SourceRef points back at the business record a voucher was posted for.
type SourceRef struct {
	Table SourceTable `db:"source_table" json:"table"`
	ID    id.ID       `db:"source_id" json:"id"`
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s/%s", r.Table, r.ID)
}

// Voucher is an immutable, balanced accounting document.
type Voucher struct {
	ID                  id.ID         `db:"id" json:"id"`
	Number              string        `db:"number" json:"number"`
	Date                time.Time     `db:"date" json:"date"`
	Status              VoucherStatus `db:"status" json:"status"`
	Narration           string        `db:"narration" json:"narration"`
	Source              SourceRef     `db:"-" json:"source"`
	StoreID             id.ID         `db:"store_id" json:"storeId"`
	CreatedBy           id.ID         `db:"created_by" json:"createdBy"`
	IsReversed          bool          `db:"is_reversed" json:"isReversed"`
	ReversesVoucherID   *id.ID        `db:"reverses_voucher_id" json:"reversesVoucherId,omitempty"`
	ReversedByVoucherID *id.ID        `db:"reversed_by_voucher_id" json:"reversedByVoucherId,omitempty"`
	ReversalReason      string        `db:"reversal_reason" json:"reversalReason,omitempty"`
	ReversedAt          *time.Time    `db:"reversed_at" json:"reversedAt,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"createdAt"`

	Lines []Line `db:"-" json:"lines"`
}

// IsReversal reports whether v was created by ReverseVoucher.
func (v *Voucher) IsReversal() bool {
	return v.ReversesVoucherID != nil
}

// Totals sums the voucher lines.
func (v *Voucher) Totals() (debit, credit types.Money) {
	return LineSet{Lines: v.Lines}.Totals()
}

// Line is one account posting. Exactly one of Debit and Credit is positive.
type Line struct {
	// ID is assigned by storage and strictly increases in insertion order.
	ID          int64       `db:"id" json:"id"`
	VoucherID   id.ID       `db:"voucher_id" json:"voucherId"`
	LineNo      int         `db:"line_no" json:"lineNo"`
	AccountID   id.ID       `db:"account_id" json:"accountId"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
	Description string      `db:"description" json:"description"`
	PartyID     *id.ID      `db:"party_id" json:"partyId,omitempty"`
	ProductID   *id.ID      `db:"product_id" json:"productId,omitempty"`
}

// Signed returns debit minus credit.
func (l Line) Signed() types.Money {
	return l.Debit.Sub(l.Credit)
}

// PostRequest is the input of PostVoucher.
type PostRequest struct {
	Lines     LineSet
	Source    SourceRef
	Date      time.Time
	Narration string
	StoreID   id.ID
	UserID    id.ID
	// Prefix overrides the default JV numbering prefix.
	Prefix string
}
