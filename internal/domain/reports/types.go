// Package reports answers balance questions from committed voucher lines:
// account balances, general ledger, trial balance and receivable/payable aging.
package reports

import (
	"time"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
)

// LineFilter bounds a voucher line query. From is inclusive, Until exclusive;
// nil bounds are open.
type LineFilter struct {
	AccountIDs []id.ID
	From       *time.Time
	Until      *time.Time
}

// AccountTotals is the debit and credit sum of one account.
type AccountTotals struct {
	AccountID id.ID       `db:"account_id"`
	Debit     types.Money `db:"debit"`
	Credit    types.Money `db:"credit"`
}

// Net is debit minus credit.
func (t AccountTotals) Net() types.Money {
	return t.Debit.Sub(t.Credit)
}

// AccountBalance is the balance of one account, signed by its normal side.
type AccountBalance struct {
	AccountID   id.ID       `json:"accountId"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Family      coa.Family  `json:"family"`
	DebitNormal bool        `json:"debitNormal"`
	AsOf        *time.Time  `json:"asOf,omitempty"`
	TotalDebit  types.Money `json:"totalDebit"`
	TotalCredit types.Money `json:"totalCredit"`
	Balance     types.Money `json:"balance"`
}

// LedgerRow is one voucher line in a general ledger.
type LedgerRow struct {
	LineID        int64       `db:"line_id" json:"lineId"`
	VoucherID     id.ID       `db:"voucher_id" json:"voucherId"`
	VoucherNumber string      `db:"voucher_number" json:"voucherNumber"`
	Date          time.Time   `db:"date" json:"date"`
	Narration     string      `db:"narration" json:"narration"`
	Description   string      `db:"description" json:"description,omitempty"`
	PartyID       *id.ID      `db:"party_id" json:"partyId,omitempty"`
	Debit         types.Money `db:"debit" json:"debit"`
	Credit        types.Money `db:"credit" json:"credit"`
	Balance       types.Money `db:"-" json:"balance"`
}

// GeneralLedger lists an account's lines in a period with a running balance.
// Closing = Opening + the signed movement of Rows.
type GeneralLedger struct {
	AccountID   id.ID       `json:"accountId"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Family      coa.Family  `json:"family"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	Opening     types.Money `json:"opening"`
	Rows        []LedgerRow `json:"rows"`
	TotalDebit  types.Money `json:"totalDebit"`
	TotalCredit types.Money `json:"totalCredit"`
	Closing     types.Money `json:"closing"`
}

// TrialBalanceRow places an account's net in the debit or credit column.
type TrialBalanceRow struct {
	AccountID id.ID       `json:"accountId"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Family    coa.Family  `json:"family"`
	Debit     types.Money `json:"debit"`
	Credit    types.Money `json:"credit"`
}

// TrialBalance is the list of accounts with a nonzero net as of a date.
type TrialBalance struct {
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  types.Money       `json:"totalDebit"`
	TotalCredit types.Money       `json:"totalCredit"`
}

// Balanced reports whether the debit and credit columns agree.
func (tb *TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// AgingKind selects customer or supplier balances.
type AgingKind string

const (
	AgingReceivable AgingKind = "receivable"
	AgingPayable    AgingKind = "payable"
)

// Valid reports whether k is a known aging kind.
func (k AgingKind) Valid() bool {
	return k == AgingReceivable || k == AgingPayable
}

// AgingRequest parameterises Aging.
type AgingRequest struct {
	Kind    AgingKind
	AsOf    time.Time
	PartyID *id.ID
}

// Bucket is an age band in days.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	BucketOver90  Bucket = "90+"
)

// BucketFor places an age in days into its band. Ages up to 30 days are current.
func BucketFor(days int) Bucket {
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingAmounts holds one amount per bucket.
type AgingAmounts struct {
	Current    types.Money `json:"current"`
	Days31To60 types.Money `json:"days31To60"`
	Days61To90 types.Money `json:"days61To90"`
	Over90     types.Money `json:"over90"`
	Total      types.Money `json:"total"`
}

func newAgingAmounts() AgingAmounts {
	return AgingAmounts{
		Current:    types.Zero(),
		Days31To60: types.Zero(),
		Days61To90: types.Zero(),
		Over90:     types.Zero(),
		Total:      types.Zero(),
	}
}

func (a *AgingAmounts) add(b Bucket, amount types.Money) {
	switch b {
	case BucketCurrent:
		a.Current = a.Current.Add(amount)
	case Bucket31To60:
		a.Days31To60 = a.Days31To60.Add(amount)
	case Bucket61To90:
		a.Days61To90 = a.Days61To90.Add(amount)
	case BucketOver90:
		a.Over90 = a.Over90.Add(amount)
	}
	a.Total = a.Total.Add(amount)
}

// AgingRow is one party's outstanding balance by age.
type AgingRow struct {
	PartyID   id.ID  `json:"partyId"`
	PartyName string `json:"partyName"`
	AgingAmounts
}

// Aging is the outstanding balance report.
type Aging struct {
	Kind   AgingKind    `json:"kind"`
	AsOf   time.Time    `json:"asOf"`
	Rows   []AgingRow   `json:"rows"`
	Totals AgingAmounts `json:"totals"`
}
