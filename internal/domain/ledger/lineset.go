package ledger

import (
	"fmt"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// LineSet is the balanced voucher line set every posting builder produces.
// It is a plain value; builders append to it and the ledger validates it.
type LineSet struct {
	Lines []Line
}

// LineOption sets optional line references.
type LineOption func(*Line)

// WithParty tags the line with a customer or supplier.
func WithParty(partyID id.ID) LineOption {
	return func(l *Line) { l.PartyID = id.Ptr(partyID) }
}

// WithProduct tags the line with a product.
func WithProduct(productID id.ID) LineOption {
	return func(l *Line) { l.ProductID = id.Ptr(productID) }
}

// Debit appends a debit line. Zero amounts are skipped.
func (s *LineSet) Debit(accountID id.ID, amount types.Money, description string, opts ...LineOption) {
	s.add(accountID, amount, types.Zero(), description, opts)
}

// Credit appends a credit line. Zero amounts are skipped.
func (s *LineSet) Credit(accountID id.ID, amount types.Money, description string, opts ...LineOption) {
	s.add(accountID, types.Zero(), amount, description, opts)
}

func (s *LineSet) add(accountID id.ID, debit, credit types.Money, description string, opts []LineOption) {
	if debit.IsZero() && credit.IsZero() {
		return
	}
	l := Line{
		AccountID:   accountID,
		Debit:       debit,
		Credit:      credit,
		Description: description,
	}
	for _, opt := range opts {
		opt(&l)
	}
	s.Lines = append(s.Lines, l)
}

// Append adds every line of other.
func (s *LineSet) Append(other LineSet) {
	s.Lines = append(s.Lines, other.Lines...)
}

// Len is the number of lines.
func (s LineSet) Len() int { return len(s.Lines) }

// Totals sums debits and credits.
func (s LineSet) Totals() (debit, credit types.Money) {
	debit, credit = types.Zero(), types.Zero()
	for _, l := range s.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// AccountIDs returns the distinct accounts referenced, in first-use order.
func (s LineSet) AccountIDs() []id.ID {
	seen := make(map[id.ID]struct{}, len(s.Lines))
	out := make([]id.ID, 0, len(s.Lines))
	for _, l := range s.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		out = append(out, l.AccountID)
	}
	return out
}

type aggKey struct {
	account id.ID
	debit   bool
	party   id.ID
}

// Aggregate merges lines with the same account, side and party into one line.
// The first line of each group keeps its position and description.
func (s LineSet) Aggregate() LineSet {
	index := make(map[aggKey]int, len(s.Lines))
	out := make([]Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		k := aggKey{account: l.AccountID, debit: l.Debit.IsPositive()}
		if l.PartyID != nil {
			k.party = *l.PartyID
		}
		if i, ok := index[k]; ok {
			out[i].Debit = out[i].Debit.Add(l.Debit)
			out[i].Credit = out[i].Credit.Add(l.Credit)
			if !id.Equal(out[i].ProductID, l.ProductID) {
				out[i].ProductID = nil
			}
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return LineSet{Lines: out}
}

// Swapped returns a copy with debit and credit exchanged on every line.
func (s LineSet) Swapped() LineSet {
	out := make([]Line, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = Line{
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
			PartyID:     l.PartyID,
			ProductID:   l.ProductID,
		}
	}
	return LineSet{Lines: out}
}

// NetByAccount returns debit minus credit per account.
func (s LineSet) NetByAccount() map[id.ID]types.Money {
	net := make(map[id.ID]types.Money)
	for _, l := range s.Lines {
		net[l.AccountID] = net[l.AccountID].Add(l.Signed())
	}
	return net
}

// Validate checks the line invariants and the balance:
// at least one line, non-negative amounts, debit XOR credit, at most two decimals,
// and total debit equal to total credit within types.BalanceTolerance.
func (s LineSet) Validate() error {
	if len(s.Lines) == 0 {
		return apperror.NewValidation("voucher has no lines")
	}

	for i, l := range s.Lines {
		if id.IsNil(l.AccountID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: account is required", i+1)).
				WithDetail("line", i+1)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: amounts must not be negative", i+1)).
				WithDetail("line", i+1).
				WithDetail("debit", types.FormatMoney(l.Debit)).
				WithDetail("credit", types.FormatMoney(l.Credit))
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: exactly one of debit or credit must be set", i+1)).
				WithDetail("line", i+1).
				WithDetail("account_id", l.AccountID)
		}
		if !types.HasMoneyPrecision(l.Debit) || !types.HasMoneyPrecision(l.Credit) {
			return apperror.NewValidation(fmt.Sprintf("line %d: amount has more than 2 decimal places", i+1)).
				WithDetail("line", i+1)
		}
	}

	debit, credit := s.Totals()
	if !types.WithinTolerance(debit, credit) {
		return apperror.NewUnbalancedVoucher(
			types.FormatMoney(debit),
			types.FormatMoney(credit),
			types.FormatMoney(debit.Sub(credit)),
		)
	}
	return nil
}
