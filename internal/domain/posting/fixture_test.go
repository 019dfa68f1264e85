package posting_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/seed"
)

var (
	today   = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	storeID = id.MustParse("01929a3e-0000-7000-8000-000000000001")
	userID  = id.MustParse("01929a3e-0000-7000-8000-000000000002")
)

func clock() time.Time { return time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC) }

type fixture struct {
	ctx    context.Context
	svc    *app.Services
	chart  *seed.Result
	events *events.Collector
}

func newFixture(t *testing.T, opts ...func(*app.Options)) *fixture {
	t.Helper()
	collector := &events.Collector{}
	o := app.Options{Events: collector, Now: clock}
	for _, opt := range opts {
		opt(&o)
	}
	svc, res, err := app.Demo(context.Background(), o)
	require.NoError(t, err)
	return &fixture{ctx: context.Background(), svc: svc, chart: res, events: collector}
}

func (f *fixture) account(code string) id.ID { return f.chart.Account(code) }

func (f *fixture) party(name string) *id.ID {
	v := f.chart.Parties[name]
	return &v
}

func (f *fixture) category(name string) *id.ID {
	v := f.chart.Categories[name]
	return &v
}

func (f *fixture) balance(t *testing.T, code string) string {
	t.Helper()
	b, err := f.svc.Reports.AccountBalance(f.ctx, f.account(code), nil)
	require.NoError(t, err)
	return types.FormatMoney(b.Balance)
}

// sale is 2 x 100 at cost 60 to the walk-in customer.
func (f *fixture) sale(paid string) posting.CreateTransactionRequest {
	cash := f.account("1101")
	return posting.CreateTransactionRequest{
		Date:    today,
		StoreID: storeID,
		UserID:  userID,
		PartyID: f.party("Walk-in Customer"),
		Lines: []posting.LineRequest{{
			CategoryID: f.category("Medicines"),
			Quantity:   types.MoneyFromInt(2),
			UnitPrice:  types.MoneyFromInt(100),
			UnitCost:   types.MoneyFromInt(60),
		}},
		PaidAmount:       types.MustMoney(paid),
		PaymentAccountID: &cash,
	}
}

// purchase is 10 x 25 from the distributor.
func (f *fixture) purchase(paid string) posting.CreateTransactionRequest {
	cash := f.account("1101")
	return posting.CreateTransactionRequest{
		Date:    today,
		StoreID: storeID,
		UserID:  userID,
		PartyID: f.party("MedSupply Distributors"),
		Lines: []posting.LineRequest{{
			CategoryID: f.category("Medicines"),
			Quantity:   types.MoneyFromInt(10),
			UnitPrice:  types.MoneyFromInt(25),
		}},
		PaidAmount:       types.MustMoney(paid),
		PaymentAccountID: &cash,
	}
}

func assertMoney(t *testing.T, want string, got types.Money, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, types.FormatMoney(got), msgAndArgs...)
}

// assertLine finds the single line on account/side and checks its amount.
func assertLine(t *testing.T, v *ledger.Voucher, account id.ID, debit bool, amount string) ledger.Line {
	t.Helper()
	var found []ledger.Line
	for _, l := range v.Lines {
		if l.AccountID == account && l.Debit.IsPositive() == debit {
			found = append(found, l)
		}
	}
	require.Len(t, found, 1, "voucher %s: lines on %s (debit=%v)", v.Number, account, debit)
	if debit {
		assertMoney(t, amount, found[0].Debit)
	} else {
		assertMoney(t, amount, found[0].Credit)
	}
	return found[0]
}
