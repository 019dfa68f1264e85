package posting

import (
	"fmt"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
)

// ItemLine is a priced product line with its category accounts resolved.
type ItemLine struct {
	Accounts  coa.CategoryAccounts
	ProductID *id.ID
	// Net is the line's share of the header total.
	Net types.Money
	// Cost is the inventory value moved by the line.
	Cost types.Money
}

// ItemInput feeds the product builders.
type ItemInput struct {
	PartyAccount id.ID
	PartyID      id.ID
	Total        types.Money
	Reference    string
	Lines        []ItemLine
}

func (in ItemInput) check() error {
	if len(in.Lines) == 0 {
		return apperror.NewValidation(fmt.Sprintf("%s: no lines to post", in.Reference))
	}
	sum := types.Zero()
	for _, l := range in.Lines {
		sum = sum.Add(l.Net)
	}
	if !sum.Equal(in.Total) {
		return apperror.NewValidation(fmt.Sprintf("%s: line amounts %s do not add up to total %s",
			in.Reference, types.FormatMoney(sum), types.FormatMoney(in.Total)))
	}
	return nil
}

func productOpt(p *id.ID) []ledger.LineOption {
	if p == nil {
		return nil
	}
	return []ledger.LineOption{ledger.WithProduct(*p)}
}

// finish aggregates per account and validates the result.
func finish(set ledger.LineSet) (ledger.LineSet, error) {
	out := set.Aggregate()
	if err := out.Validate(); err != nil {
		return ledger.LineSet{}, err
	}
	return out, nil
}

// BuildSale: Dr customer (total), Cr Sales per account (net),
// and for lines with cost, Dr COGS / Cr Stock per account.
func BuildSale(in ItemInput) (ledger.LineSet, error) {
	if err := in.check(); err != nil {
		return ledger.LineSet{}, err
	}

	var set ledger.LineSet
	set.Debit(in.PartyAccount, in.Total, "Sale "+in.Reference, ledger.WithParty(in.PartyID))
	for _, l := range in.Lines {
		set.Credit(l.Accounts.SalesAccount, l.Net, "Sales "+in.Reference)
	}
	for _, l := range in.Lines {
		if !l.Cost.IsPositive() {
			continue
		}
		set.Debit(l.Accounts.COGSAccount, l.Cost, "Cost of sales "+in.Reference, productOpt(l.ProductID)...)
		set.Credit(l.Accounts.StockAccount, l.Cost, "Stock issued "+in.Reference, productOpt(l.ProductID)...)
	}
	return finish(set)
}

// BuildPurchase: Dr Stock per account (net) / Cr supplier (total).
func BuildPurchase(in ItemInput) (ledger.LineSet, error) {
	if err := in.check(); err != nil {
		return ledger.LineSet{}, err
	}

	var set ledger.LineSet
	for _, l := range in.Lines {
		set.Debit(l.Accounts.StockAccount, l.Net, "Stock received "+in.Reference, productOpt(l.ProductID)...)
	}
	set.Credit(in.PartyAccount, in.Total, "Purchase "+in.Reference, ledger.WithParty(in.PartyID))
	return finish(set)
}

// BuildSaleReturn: Dr Sales (net) / Cr customer (total), and Dr Stock / Cr COGS
// at the cost stored on the original sale line.
func BuildSaleReturn(in ItemInput) (ledger.LineSet, error) {
	if err := in.check(); err != nil {
		return ledger.LineSet{}, err
	}

	var set ledger.LineSet
	for _, l := range in.Lines {
		set.Debit(l.Accounts.SalesAccount, l.Net, "Sales returned "+in.Reference)
	}
	set.Credit(in.PartyAccount, in.Total, "Sale return "+in.Reference, ledger.WithParty(in.PartyID))
	for _, l := range in.Lines {
		if !l.Cost.IsPositive() {
			continue
		}
		set.Debit(l.Accounts.StockAccount, l.Cost, "Stock returned "+in.Reference, productOpt(l.ProductID)...)
		set.Credit(l.Accounts.COGSAccount, l.Cost, "Cost of sales returned "+in.Reference, productOpt(l.ProductID)...)
	}
	return finish(set)
}

// BuildPurchaseReturn: Dr supplier (total) / Cr Stock per account at the original net cost.
func BuildPurchaseReturn(in ItemInput) (ledger.LineSet, error) {
	if err := in.check(); err != nil {
		return ledger.LineSet{}, err
	}

	var set ledger.LineSet
	set.Debit(in.PartyAccount, in.Total, "Purchase return "+in.Reference, ledger.WithParty(in.PartyID))
	for _, l := range in.Lines {
		set.Credit(l.Accounts.StockAccount, l.Net, "Stock returned "+in.Reference, productOpt(l.ProductID)...)
	}
	return finish(set)
}

// ExpenseLine is one expense account and its net amount.
type ExpenseLine struct {
	AccountID   id.ID
	Net         types.Money
	Description string
}

// ExpenseInput feeds BuildExpense. CreditAccount is the supplier payable
// (PartyID set) or the cash/bank account paying directly.
type ExpenseInput struct {
	CreditAccount id.ID
	PartyID       *id.ID
	Total         types.Money
	Reference     string
	Lines         []ExpenseLine
}

// BuildExpense: Dr expense accounts / Cr payable or cash.
func BuildExpense(in ExpenseInput) (ledger.LineSet, error) {
	if len(in.Lines) == 0 {
		return ledger.LineSet{}, apperror.NewValidation(fmt.Sprintf("%s: no lines to post", in.Reference))
	}

	var set ledger.LineSet
	sum := types.Zero()
	for _, l := range in.Lines {
		desc := l.Description
		if desc == "" {
			desc = "Expense " + in.Reference
		}
		set.Debit(l.AccountID, l.Net, desc)
		sum = sum.Add(l.Net)
	}
	if !sum.Equal(in.Total) {
		return ledger.LineSet{}, apperror.NewValidation(fmt.Sprintf("%s: line amounts %s do not add up to total %s",
			in.Reference, types.FormatMoney(sum), types.FormatMoney(in.Total)))
	}

	var opts []ledger.LineOption
	if in.PartyID != nil {
		opts = append(opts, ledger.WithParty(*in.PartyID))
	}
	set.Credit(in.CreditAccount, in.Total, "Expense "+in.Reference, opts...)
	return finish(set)
}

// PaymentInput feeds BuildPayment.
type PaymentInput struct {
	Direction    transaction.Direction
	MoneyAccount id.ID
	PartyAccount id.ID
	PartyID      id.ID
	Amount       types.Money
	Reference    string
}

// BuildPayment: received is Dr cash/bank / Cr party; made is Dr party / Cr cash/bank.
func BuildPayment(in PaymentInput) (ledger.LineSet, error) {
	if !in.Amount.IsPositive() {
		return ledger.LineSet{}, apperror.NewInvalidInput("amount", "payment amount must be positive")
	}

	var set ledger.LineSet
	switch in.Direction {
	case transaction.DirectionReceived:
		set.Debit(in.MoneyAccount, in.Amount, "Received "+in.Reference)
		set.Credit(in.PartyAccount, in.Amount, "Received "+in.Reference, ledger.WithParty(in.PartyID))
	case transaction.DirectionMade:
		set.Debit(in.PartyAccount, in.Amount, "Paid "+in.Reference, ledger.WithParty(in.PartyID))
		set.Credit(in.MoneyAccount, in.Amount, "Paid "+in.Reference)
	default:
		return ledger.LineSet{}, apperror.NewInvalidInput("direction", fmt.Sprintf("unknown payment direction %q", in.Direction))
	}
	return finish(set)
}
