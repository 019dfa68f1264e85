package reports_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/seed"
)

var (
	today   = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	storeID = id.MustParse("01929a3e-0000-7000-8000-000000000001")
	userID  = id.MustParse("01929a3e-0000-7000-8000-000000000002")
)

type env struct {
	ctx   context.Context
	svc   *app.Services
	chart *seed.Result
}

func setup(t *testing.T) *env {
	t.Helper()
	svc, res, err := app.Demo(context.Background(), app.Options{
		Now: func() time.Time { return today.Add(12 * time.Hour) },
	})
	require.NoError(t, err)
	return &env{ctx: context.Background(), svc: svc, chart: res}
}

func (e *env) sale(t *testing.T, date time.Time, party string, qty, price, cost int64, paid string) *transaction.Transaction {
	t.Helper()
	partyID := e.chart.Parties[party]
	category := e.chart.Categories["Medicines"]
	cash := e.chart.Account("1101")
	res, err := e.svc.Posting.CreateSale(e.ctx, posting.CreateTransactionRequest{
		Date:    date,
		StoreID: storeID,
		UserID:  userID,
		PartyID: &partyID,
		Lines: []posting.LineRequest{{
			CategoryID: &category,
			Quantity:   types.MoneyFromInt(qty),
			UnitPrice:  types.MoneyFromInt(price),
			UnitCost:   types.MoneyFromInt(cost),
		}},
		PaidAmount:       types.MustMoney(paid),
		PaymentAccountID: &cash,
	})
	require.NoError(t, err)
	return res.Transaction
}

func (e *env) purchase(t *testing.T, date time.Time, qty, price int64) *transaction.Transaction {
	t.Helper()
	partyID := e.chart.Parties["MedSupply Distributors"]
	category := e.chart.Categories["Medicines"]
	res, err := e.svc.Posting.CreatePurchase(e.ctx, posting.CreateTransactionRequest{
		Date:    date,
		StoreID: storeID,
		UserID:  userID,
		PartyID: &partyID,
		Lines: []posting.LineRequest{{
			CategoryID: &category,
			Quantity:   types.MoneyFromInt(qty),
			UnitPrice:  types.MoneyFromInt(price),
		}},
	})
	require.NoError(t, err)
	return res.Transaction
}

func TestAccountBalance_SignedByNormalSide(t *testing.T) {
	e := setup(t)
	e.sale(t, today, "Walk-in Customer", 2, 100, 60, "150")

	tests := map[string]string{
		"1101": "150.00",
		"1103": "50.00",
		"1201": "-120.00",
		"4101": "200.00",
		"5101": "120.00",
	}
	for code, want := range tests {
		b, err := e.svc.Reports.AccountBalance(e.ctx, e.chart.Account(code), nil)
		require.NoError(t, err)
		assert.Equal(t, want, types.FormatMoney(b.Balance), "account %s", code)
	}

	b, err := e.svc.Reports.AccountBalance(e.ctx, e.chart.Account("4101"), nil)
	require.NoError(t, err)
	assert.False(t, b.DebitNormal)
	assert.Equal(t, "200.00", types.FormatMoney(b.TotalCredit))
}

func TestAccountBalance_AsOf(t *testing.T) {
	e := setup(t)
	e.sale(t, today.AddDate(0, 0, -10), "Walk-in Customer", 1, 100, 0, "0")
	e.sale(t, today, "Walk-in Customer", 1, 50, 0, "0")

	cust := e.chart.Account("1103")
	earlier := today.AddDate(0, 0, -1)
	b, err := e.svc.Reports.AccountBalance(e.ctx, cust, &earlier)
	require.NoError(t, err)
	assert.Equal(t, "100.00", types.FormatMoney(b.Balance))

	b, err = e.svc.Reports.AccountBalance(e.ctx, cust, &today)
	require.NoError(t, err)
	assert.Equal(t, "150.00", types.FormatMoney(b.Balance))

	_, err = e.svc.Reports.AccountBalance(e.ctx, id.New(), nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGeneralLedger(t *testing.T) {
	e := setup(t)
	e.sale(t, today.AddDate(0, 0, -20), "Walk-in Customer", 1, 100, 0, "0")
	e.sale(t, today.AddDate(0, 0, -5), "Walk-in Customer", 2, 100, 0, "50")
	e.sale(t, today, "City Clinic", 1, 30, 0, "0")

	cust := e.chart.Account("1103")
	gl, err := e.svc.Reports.GeneralLedger(e.ctx, cust, today.AddDate(0, 0, -10), today)
	require.NoError(t, err)

	assert.Equal(t, "100.00", types.FormatMoney(gl.Opening))
	require.Len(t, gl.Rows, 3)
	want := []string{"300.00", "250.00", "280.00"}
	for i, r := range gl.Rows {
		assert.Equal(t, want[i], types.FormatMoney(r.Balance), "row %d", i)
		if i > 0 {
			assert.False(t, r.Date.Before(gl.Rows[i-1].Date))
		}
	}
	assert.Equal(t, "230.00", types.FormatMoney(gl.TotalDebit))
	assert.Equal(t, "50.00", types.FormatMoney(gl.TotalCredit))
	assert.Equal(t, "280.00", types.FormatMoney(gl.Closing))

	_, err = e.svc.Reports.GeneralLedger(e.ctx, cust, today, today.AddDate(0, 0, -1))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestAging(t *testing.T) {
	e := setup(t)
	e.sale(t, today.AddDate(0, 0, -10), "Walk-in Customer", 1, 100, 0, "0")
	e.sale(t, today.AddDate(0, 0, -30), "Walk-in Customer", 1, 40, 0, "0")
	e.sale(t, today.AddDate(0, 0, -45), "Walk-in Customer", 1, 200, 0, "50")
	e.sale(t, today.AddDate(0, 0, -75), "City Clinic", 1, 300, 0, "0")
	e.sale(t, today.AddDate(0, 0, -120), "City Clinic", 1, 400, 0, "0")
	e.sale(t, today.AddDate(0, 0, -100), "City Clinic", 1, 500, 0, "500")
	e.sale(t, today.AddDate(0, 0, 3), "City Clinic", 1, 999, 0, "0")
	e.purchase(t, today.AddDate(0, 0, -61), 2, 50)

	rep, err := e.svc.Reports.Aging(e.ctx, reports.AgingRequest{Kind: reports.AgingReceivable, AsOf: today})
	require.NoError(t, err)

	require.Len(t, rep.Rows, 2)
	clinic, walkIn := rep.Rows[0], rep.Rows[1]
	assert.Equal(t, "City Clinic", clinic.PartyName)
	assert.Equal(t, "0.00", types.FormatMoney(clinic.Current))
	assert.Equal(t, "300.00", types.FormatMoney(clinic.Days61To90))
	assert.Equal(t, "400.00", types.FormatMoney(clinic.Over90))
	assert.Equal(t, "700.00", types.FormatMoney(clinic.Total))

	assert.Equal(t, "140.00", types.FormatMoney(walkIn.Current))
	assert.Equal(t, "150.00", types.FormatMoney(walkIn.Days31To60))
	assert.Equal(t, "290.00", types.FormatMoney(walkIn.Total))

	assert.Equal(t, "990.00", types.FormatMoney(rep.Totals.Total))

	payable, err := e.svc.Reports.Aging(e.ctx, reports.AgingRequest{Kind: reports.AgingPayable, AsOf: today})
	require.NoError(t, err)
	require.Len(t, payable.Rows, 1)
	assert.Equal(t, "100.00", types.FormatMoney(payable.Rows[0].Days61To90))

	walkInID := e.chart.Parties["Walk-in Customer"]
	one, err := e.svc.Reports.Aging(e.ctx, reports.AgingRequest{Kind: reports.AgingReceivable, AsOf: today, PartyID: &walkInID})
	require.NoError(t, err)
	require.Len(t, one.Rows, 1)
	assert.Equal(t, "290.00", types.FormatMoney(one.Totals.Total))
}

func TestBucketFor(t *testing.T) {
	tests := map[int]reports.Bucket{
		0:   reports.BucketCurrent,
		30:  reports.BucketCurrent,
		31:  reports.Bucket31To60,
		60:  reports.Bucket31To60,
		61:  reports.Bucket61To90,
		90:  reports.Bucket61To90,
		91:  reports.BucketOver90,
		365: reports.BucketOver90,
	}
	for days, want := range tests {
		assert.Equal(t, want, reports.BucketFor(days), "%d days", days)
	}
}

// TestTrialBalance_RandomHistory replays a random mix of sales, purchases,
// returns, payments and voids and checks that the books still balance.
func TestTrialBalance_RandomHistory(t *testing.T) {
	e := setup(t)
	r := rand.New(rand.NewSource(42))

	customers := []string{"Walk-in Customer", "City Clinic"}
	categories := []string{"Medicines", "Surgical"}
	cash, bank := e.chart.Account("1101"), e.chart.Account("1102")
	supplier := e.chart.Parties["MedSupply Distributors"]

	var posted []*transaction.Transaction
	money := func(cents int) types.Money { return decimal.New(int64(r.Intn(cents)+1), -2) }
	check := func(err error) {
		if err != nil {
			_, ok := apperror.AsAppError(err)
			require.True(t, ok, "unexpected error: %v", err)
		}
	}

	for i := 0; i < 150; i++ {
		date := today.AddDate(0, 0, -r.Intn(90))
		account := cash
		if r.Intn(2) == 0 {
			account = bank
		}

		switch op := r.Intn(10); {
		case op < 4:
			partyID := e.chart.Parties[customers[r.Intn(len(customers))]]
			req := posting.CreateTransactionRequest{
				Date: date, StoreID: storeID, UserID: userID, PartyID: &partyID,
				PaymentAccountID: &account,
			}
			for n := 1 + r.Intn(3); n > 0; n-- {
				cat := e.chart.Categories[categories[r.Intn(2)]]
				req.Lines = append(req.Lines, posting.LineRequest{
					CategoryID: &cat,
					Quantity:   types.MoneyFromInt(int64(1 + r.Intn(5))),
					UnitPrice:  money(20000),
					UnitCost:   money(10000),
				})
			}
			if r.Intn(3) == 0 {
				req.DiscountAmount = money(500)
			}
			res, err := e.svc.Posting.CreateSale(e.ctx, req)
			check(err)
			if err == nil {
				posted = append(posted, res.Transaction)
			}
		case op < 6:
			cat := e.chart.Categories[categories[r.Intn(2)]]
			res, err := e.svc.Posting.CreatePurchase(e.ctx, posting.CreateTransactionRequest{
				Date: date, StoreID: storeID, UserID: userID, PartyID: &supplier,
				Lines: []posting.LineRequest{{
					CategoryID: &cat,
					Quantity:   types.MoneyFromInt(int64(1 + r.Intn(20))),
					UnitPrice:  money(5000),
				}},
			})
			check(err)
			if err == nil {
				posted = append(posted, res.Transaction)
			}
		case op < 7 && len(posted) > 0:
			orig := posted[r.Intn(len(posted))]
			if orig.Kind.IsReturn() {
				continue
			}
			kind := transaction.KindSaleReturn
			if orig.Kind == transaction.KindPurchase {
				kind = transaction.KindPurchaseReturn
			}
			res, err := e.svc.Posting.Create(e.ctx, posting.CreateTransactionRequest{
				Kind: kind, Date: today, StoreID: storeID, UserID: userID,
				OriginalTransactionID: &orig.ID,
				Lines: []posting.LineRequest{{
					OriginalLineID: &orig.Lines[0].ID,
					Quantity:       types.MoneyFromInt(1),
				}},
			})
			check(err)
			if err == nil {
				posted = append(posted, res.Transaction)
			}
		case op < 9 && len(posted) > 0:
			target, err := e.svc.Posting.GetTransaction(e.ctx, posted[r.Intn(len(posted))].ID)
			require.NoError(t, err)
			if !target.BalanceAmount.IsPositive() || target.Status != transaction.StatusCompleted {
				continue
			}
			direction := transaction.DirectionReceived
			if target.Kind == transaction.KindPurchase || target.Kind == transaction.KindSaleReturn {
				direction = transaction.DirectionMade
			}
			amount := types.RoundMoney(target.BalanceAmount.Div(types.MoneyFromInt(int64(1 + r.Intn(2)))))
			_, err = e.svc.Posting.CreatePayment(e.ctx, posting.PaymentRequest{
				Direction: direction, PartyID: *target.PartyID, AccountID: account,
				Amount: amount, Date: today, StoreID: storeID, UserID: userID,
				Allocations: []posting.AllocationRequest{{TransactionID: target.ID, Amount: amount}},
			})
			check(err)
		case len(posted) > 0:
			victim := posted[r.Intn(len(posted))]
			_, err := e.svc.Posting.VoidTransaction(e.ctx, posting.VoidRequest{
				TransactionID: victim.ID, Reason: "random void", UserID: userID,
			})
			check(err)
		}
	}
	require.NotEmpty(t, posted)

	tb, err := e.svc.Reports.TrialBalance(e.ctx, today)
	require.NoError(t, err)
	assert.True(t, tb.Balanced(), "debit %s credit %s", tb.TotalDebit, tb.TotalCredit)
	require.NotEmpty(t, tb.Rows)

	for _, row := range tb.Rows {
		bal, err := e.svc.Reports.AccountBalance(e.ctx, row.AccountID, &today)
		require.NoError(t, err)
		net := row.Debit.Sub(row.Credit)
		if !bal.DebitNormal {
			net = net.Neg()
		}
		assert.True(t, net.Equal(bal.Balance), "account %s: tb %s balance %s", row.Code, net, bal.Balance)

		gl, err := e.svc.Reports.GeneralLedger(e.ctx, row.AccountID, today.AddDate(0, 0, -30), today)
		require.NoError(t, err)
		assert.True(t, gl.Closing.Equal(bal.Balance), "account %s: ledger closing %s balance %s", row.Code, gl.Closing, bal.Balance)
	}

	// Receivable and payable control accounts agree with the open transactions
	// only up to advances, so check the sign of the totals instead.
	rec, err := e.svc.Reports.Aging(e.ctx, reports.AgingRequest{Kind: reports.AgingReceivable, AsOf: today})
	require.NoError(t, err)
	assert.False(t, rec.Totals.Total.IsNegative())
}
