package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/transaction"
)

// Chart is the part of the chart-of-accounts service the reports need.
type Chart interface {
	Describe(ctx context.Context, accountID id.ID) (*coa.AccountInfo, error)
	ListAccounts(ctx context.Context) ([]coa.AccountInfo, error)
	GetParty(ctx context.Context, partyID id.ID) (*coa.Party, error)
}

// Outstanding lists open transactions for aging.
type Outstanding interface {
	ListOutstanding(ctx context.Context, f transaction.OutstandingFilter) ([]transaction.Transaction, error)
}

// Service provides the read side of the ledger.
type Service struct {
	repo         Repository
	chart        Chart
	transactions Outstanding
}

// NewService creates a new reports service.
func NewService(repo Repository, chart Chart, transactions Outstanding) *Service {
	return &Service{repo: repo, chart: chart, transactions: transactions}
}

// day truncates t to midnight UTC; report bounds are whole days.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// endOf returns the exclusive upper bound of t's day.
func endOf(t time.Time) *time.Time {
	e := day(t).AddDate(0, 0, 1)
	return &e
}

// signed returns net by the account's normal side.
func signed(f coa.Family, debit, credit types.Money) types.Money {
	if coa.IsDebitNormal(f) {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountBalance sums all committed lines of the account with voucher date on or
// before asOf (all dates when nil), signed by the account's normal balance.
func (s *Service) AccountBalance(ctx context.Context, accountID id.ID, asOf *time.Time) (*AccountBalance, error) {
	info, err := s.chart.Describe(ctx, accountID)
	if err != nil {
		return nil, err
	}

	f := LineFilter{AccountIDs: []id.ID{accountID}}
	if asOf != nil {
		f.Until = endOf(*asOf)
	}
	totals, err := s.repo.SumByAccount(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("sum account %s: %w", info.Code, err)
	}

	debit, credit := types.Zero(), types.Zero()
	for _, t := range totals {
		if t.AccountID == accountID {
			debit, credit = t.Debit, t.Credit
		}
	}

	return &AccountBalance{
		AccountID:   accountID,
		Code:        info.Code,
		Name:        info.Name,
		Family:      info.Family,
		DebitNormal: coa.IsDebitNormal(info.Family),
		AsOf:        asOf,
		TotalDebit:  debit,
		TotalCredit: credit,
		Balance:     signed(info.Family, debit, credit),
	}, nil
}

// GeneralLedger lists the account's lines from..to inclusive. The opening balance
// covers every line dated strictly before from.
func (s *Service) GeneralLedger(ctx context.Context, accountID id.ID, from, to time.Time) (*GeneralLedger, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperror.NewInvalidInput("from", "from and to are required")
	}
	if day(from).After(day(to)) {
		return nil, apperror.NewInvalidInput("from", "from must not be after to")
	}

	info, err := s.chart.Describe(ctx, accountID)
	if err != nil {
		return nil, err
	}

	start := day(from)
	opening, err := s.repo.SumByAccount(ctx, LineFilter{AccountIDs: []id.ID{accountID}, Until: &start})
	if err != nil {
		return nil, fmt.Errorf("opening balance of %s: %w", info.Code, err)
	}
	gl := &GeneralLedger{
		AccountID:   accountID,
		Code:        info.Code,
		Name:        info.Name,
		Family:      info.Family,
		From:        start,
		To:          day(to),
		Opening:     types.Zero(),
		TotalDebit:  types.Zero(),
		TotalCredit: types.Zero(),
	}
	for _, t := range opening {
		if t.AccountID == accountID {
			gl.Opening = signed(info.Family, t.Debit, t.Credit)
		}
	}

	rows, err := s.repo.ListLines(ctx, accountID, LineFilter{From: &start, Until: endOf(to)})
	if err != nil {
		return nil, fmt.Errorf("ledger lines of %s: %w", info.Code, err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].LineID < rows[j].LineID
	})

	running := gl.Opening
	for i := range rows {
		r := &rows[i]
		running = running.Add(signed(info.Family, r.Debit, r.Credit))
		r.Balance = running
		gl.TotalDebit = gl.TotalDebit.Add(r.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(r.Credit)
	}
	gl.Rows = rows
	gl.Closing = running
	return gl, nil
}

// TrialBalance lists every account with a nonzero net as of asOf. A positive
// net (debit minus credit) goes in the debit column, a negative one in credit.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (*TrialBalance, error) {
	if asOf.IsZero() {
		return nil, apperror.NewInvalidInput("asOf", "as-of date is required")
	}

	accounts, err := s.chart.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	totals, err := s.repo.SumByAccount(ctx, LineFilter{Until: endOf(asOf)})
	if err != nil {
		return nil, fmt.Errorf("sum accounts: %w", err)
	}
	byAccount := make(map[id.ID]AccountTotals, len(totals))
	for _, t := range totals {
		byAccount[t.AccountID] = t
	}

	tb := &TrialBalance{AsOf: day(asOf), TotalDebit: types.Zero(), TotalCredit: types.Zero()}
	for _, a := range accounts {
		t, ok := byAccount[a.ID]
		if !ok {
			continue
		}
		delete(byAccount, a.ID)
		net := t.Net()
		if net.IsZero() {
			continue
		}
		row := TrialBalanceRow{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Family:    a.Family,
			Debit:     types.Zero(),
			Credit:    types.Zero(),
		}
		if net.IsPositive() {
			row.Debit = net
		} else {
			row.Credit = net.Neg()
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
	}
	if len(byAccount) > 0 {
		return nil, apperror.NewInternal(fmt.Errorf("%d accounts with postings are missing from the chart", len(byAccount)))
	}
	return tb, nil
}

// agingKinds are the transaction kinds whose balances age under each report kind.
var agingKinds = map[AgingKind][]transaction.Kind{
	AgingReceivable: {transaction.KindSale},
	AgingPayable:    {transaction.KindPurchase, transaction.KindExpense},
}

// Aging buckets the outstanding balances of transactions dated on or before
// asOf by their age in days.
func (s *Service) Aging(ctx context.Context, req AgingRequest) (*Aging, error) {
	if !req.Kind.Valid() {
		return nil, apperror.NewInvalidInput("kind", fmt.Sprintf("unknown aging kind %q", req.Kind))
	}
	if req.AsOf.IsZero() {
		return nil, apperror.NewInvalidInput("asOf", "as-of date is required")
	}
	asOf := day(req.AsOf)

	open, err := s.transactions.ListOutstanding(ctx, transaction.OutstandingFilter{
		Kinds:   agingKinds[req.Kind],
		AsOf:    asOf,
		PartyID: req.PartyID,
	})
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}

	report := &Aging{Kind: req.Kind, AsOf: asOf, Totals: newAgingAmounts()}
	rows := make(map[id.ID]*AgingRow)
	var order []id.ID
	for _, t := range open {
		if t.PartyID == nil || !t.BalanceAmount.IsPositive() {
			continue
		}
		row, ok := rows[*t.PartyID]
		if !ok {
			party, err := s.chart.GetParty(ctx, *t.PartyID)
			if err != nil {
				return nil, err
			}
			row = &AgingRow{PartyID: party.ID, PartyName: party.Name, AgingAmounts: newAgingAmounts()}
			rows[party.ID] = row
			order = append(order, party.ID)
		}
		days := int(asOf.Sub(day(t.Date)).Hours() / 24)
		b := BucketFor(days)
		row.add(b, t.BalanceAmount)
		report.Totals.add(b, t.BalanceAmount)
	}

	for _, pid := range order {
		report.Rows = append(report.Rows, *rows[pid])
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].PartyName < report.Rows[j].PartyName
	})
	return report, nil
}
