package posting_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/domain/transaction"
)

func TestCreateSale_PartialPayment(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("150"))
	require.NoError(t, err)

	txn := res.Transaction
	assert.Equal(t, "SALE-20261016-0001", txn.Number)
	assert.Equal(t, transaction.StatusCompleted, txn.Status)
	assert.Equal(t, transaction.PaymentPartial, txn.PaymentStatus)
	assertMoney(t, "200.00", txn.TotalAmount)
	assertMoney(t, "150.00", txn.PaidAmount)
	assertMoney(t, "50.00", txn.BalanceAmount)
	require.NotNil(t, txn.VoucherID)
	assert.Equal(t, res.Voucher.ID, *txn.VoucherID)

	v := res.Voucher
	assert.Equal(t, "JV-20261016-0001", v.Number)
	assert.Equal(t, ledger.SourceRef{Table: ledger.SourceSale, ID: txn.ID}, v.Source)
	require.Len(t, v.Lines, 4)
	cust := assertLine(t, v, f.account("1103"), true, "200.00")
	require.NotNil(t, cust.PartyID)
	assert.Equal(t, *f.party("Walk-in Customer"), *cust.PartyID)
	assertLine(t, v, f.account("4101"), false, "200.00")
	assertLine(t, v, f.account("5101"), true, "120.00")
	assertLine(t, v, f.account("1201"), false, "120.00")

	pv := res.PaymentVoucher
	require.NotNil(t, pv)
	assert.Equal(t, "PMV-20261016-0001", pv.Number)
	require.Len(t, pv.Lines, 2)
	assertLine(t, pv, f.account("1101"), true, "150.00")
	assertLine(t, pv, f.account("1103"), false, "150.00")

	require.NotNil(t, res.Payment)
	assert.Equal(t, "RCPT-20261016-0001", res.Payment.Number)
	assert.Equal(t, transaction.DirectionReceived, res.Payment.Direction)
	require.Len(t, res.Payment.Allocations, 1)
	assert.Equal(t, txn.ID, res.Payment.Allocations[0].TransactionID)

	assert.Equal(t, "50.00", f.balance(t, "1103"))
	assert.Equal(t, "150.00", f.balance(t, "1101"))
	assert.Equal(t, "200.00", f.balance(t, "4101"))
	assert.Equal(t, "120.00", f.balance(t, "5101"))
	assert.Equal(t, "-120.00", f.balance(t, "1201"))

	assert.Equal(t, []string{
		events.VoucherPosted,
		events.VoucherPosted,
		events.PaymentRecorded,
		events.TransactionPosted,
	}, f.events.Types())

	stored, err := f.svc.Posting.GetTransaction(f.ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.PaymentPartial, stored.PaymentStatus)
	require.Len(t, stored.Lines, 1)
	assertMoney(t, "120.00", stored.Lines[0].CostAmount)
}

func TestVoidTransaction_ReversesSaleAndPayment(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("150"))
	require.NoError(t, err)

	out, err := f.svc.Posting.VoidTransaction(f.ctx, posting.VoidRequest{
		TransactionID: res.Transaction.ID,
		Reason:        "entered twice",
		UserID:        userID,
	})
	require.NoError(t, err)

	require.Len(t, out.Reversals, 2)
	primary := out.Reversals[0]
	assert.Equal(t, "REV-20261016-0001", primary.Number)
	assert.Equal(t, "Reversal of JV-20261016-0001: entered twice", primary.Narration)
	require.NotNil(t, primary.ReversesVoucherID)
	assert.Equal(t, res.Voucher.ID, *primary.ReversesVoucherID)
	assertLine(t, primary, f.account("1103"), false, "200.00")
	assertLine(t, primary, f.account("4101"), true, "200.00")

	payRev := out.Reversals[1]
	require.NotNil(t, payRev.ReversesVoucherID)
	assert.Equal(t, res.PaymentVoucher.ID, *payRev.ReversesVoucherID)

	assert.Equal(t, transaction.StatusVoid, out.Transaction.Status)
	assert.Equal(t, "entered twice", out.Transaction.VoidReason)
	require.Len(t, out.VoidedPayments, 1)
	assert.True(t, out.VoidedPayments[0].IsVoided)

	for _, code := range []string{"1101", "1103", "1201", "4101", "5101"} {
		assert.Equal(t, "0.00", f.balance(t, code), "account %s", code)
	}

	orig, err := f.svc.Ledger.GetVoucher(f.ctx, res.Voucher.ID)
	require.NoError(t, err)
	assert.True(t, orig.IsReversed)
	assert.Equal(t, ledger.StatusReversed, orig.Status)
	require.NotNil(t, orig.ReversedByVoucherID)
	assert.Equal(t, primary.ID, *orig.ReversedByVoucherID)

	live, err := f.svc.Posting.ListPayments(f.ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Empty(t, live)

	stored, err := f.svc.Posting.GetTransaction(f.ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusVoid, stored.Status)

	tb, err := f.svc.Reports.TrialBalance(f.ctx, today)
	require.NoError(t, err)
	assert.Empty(t, tb.Rows)
	assert.True(t, tb.Balanced())

	assert.Contains(t, f.events.Types(), events.TransactionVoided)
	assert.Contains(t, f.events.Types(), events.PaymentVoided)
}

func TestVoidTransaction_Twice(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("0"))
	require.NoError(t, err)

	req := posting.VoidRequest{TransactionID: res.Transaction.ID, Reason: "wrong customer", UserID: userID}
	_, err = f.svc.Posting.VoidTransaction(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Posting.VoidTransaction(f.ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsAlreadyVoid(err))

	_, err = f.svc.Ledger.ReverseVoucher(f.ctx, res.Voucher.ID, "again", userID)
	assert.True(t, apperror.IsAlreadyReversed(err))
}

func TestVoidTransaction_Locked(t *testing.T) {
	locker := posting.NewLocalLocker()
	f := newFixture(t, func(o *app.Options) { o.Locker = locker })
	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("0"))
	require.NoError(t, err)

	release, err := locker.Acquire(f.ctx, "void:transaction:"+res.Transaction.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Posting.VoidTransaction(f.ctx, posting.VoidRequest{
		TransactionID: res.Transaction.ID, Reason: "race", UserID: userID,
	})
	assert.True(t, apperror.IsConcurrentModification(err))

	require.NoError(t, release(f.ctx))
	_, err = f.svc.Posting.VoidTransaction(f.ctx, posting.VoidRequest{
		TransactionID: res.Transaction.ID, Reason: "race", UserID: userID,
	})
	assert.NoError(t, err)
}

func TestCreateSale_MissingCOGSMapping(t *testing.T) {
	f := newFixture(t)
	categoryID := id.New()
	sales, stock := f.account("4101"), f.account("1201")
	require.NoError(t, f.svc.Chart.MapCategory(f.ctx, coa.CategoryMapping{
		CategoryID:     categoryID,
		SalesAccountID: &sales,
		StockAccountID: &stock,
	}))

	req := f.sale("150")
	req.Lines[0].CategoryID = &categoryID
	_, err := f.svc.Posting.CreateSale(f.ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingAccountMapping, appErr.Code)
	assert.Equal(t, categoryID, appErr.Details["category_id"])
	assert.Equal(t, []string{"cogs"}, appErr.Details["missing"])

	tb, err := f.svc.Reports.TrialBalance(f.ctx, today)
	require.NoError(t, err)
	assert.Empty(t, tb.Rows)
	assert.Empty(t, f.events.Events())

	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("0"))
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261016-0001", res.Transaction.Number)
	assert.Equal(t, "JV-20261016-0001", res.Voucher.Number)
}

func TestCreateSale_RollsBackOnPostingFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Chart.SetAccountActive(f.ctx, f.account("5101"), false))

	_, err := f.svc.Posting.CreateSale(f.ctx, f.sale("150"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInactiveAccount))

	outstanding, err := f.svc.Reports.Aging(f.ctx, reportsReceivable())
	require.NoError(t, err)
	assert.Empty(t, outstanding.Rows)

	require.NoError(t, f.svc.Chart.SetAccountActive(f.ctx, f.account("5101"), true))
	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("150"))
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261016-0001", res.Transaction.Number)
	assert.Equal(t, "JV-20261016-0001", res.Voucher.Number)
	assert.Equal(t, "RCPT-20261016-0001", res.Payment.Number)
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(t)

	noAccount, err := f.svc.Chart.CreateParty(f.ctx, coa.PartyCustomer, "Unlinked", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(r *posting.CreateTransactionRequest)
		code   string
	}{
		{
			name:   "customer without linked account",
			modify: func(r *posting.CreateTransactionRequest) { r.PartyID = &noAccount.ID },
			code:   apperror.CodeMissingLinkedAccount,
		},
		{
			name:   "supplier as customer",
			modify: func(r *posting.CreateTransactionRequest) { r.PartyID = f.party("MedSupply Distributors") },
			code:   apperror.CodeValidation,
		},
		{
			name:   "paid more than total",
			modify: func(r *posting.CreateTransactionRequest) { r.PaidAmount = types.MoneyFromInt(250) },
			code:   apperror.CodeValidation,
		},
		{
			name: "paid into a non-cash account",
			modify: func(r *posting.CreateTransactionRequest) {
				sales := f.account("4101")
				r.PaymentAccountID = &sales
			},
			code: apperror.CodeValidation,
		},
		{
			name:   "discount above subtotal",
			modify: func(r *posting.CreateTransactionRequest) { r.DiscountAmount = types.MoneyFromInt(201) },
			code:   apperror.CodeValidation,
		},
		{
			name:   "no lines",
			modify: func(r *posting.CreateTransactionRequest) { r.Lines = nil },
			code:   apperror.CodeInvalidInput,
		},
		{
			name:   "no party",
			modify: func(r *posting.CreateTransactionRequest) { r.PartyID = nil },
			code:   apperror.CodeInvalidInput,
		},
		{
			name:   "zero quantity",
			modify: func(r *posting.CreateTransactionRequest) { r.Lines[0].Quantity = types.Zero() },
			code:   apperror.CodeInvalidInput,
		},
		{
			name:   "missing store",
			modify: func(r *posting.CreateTransactionRequest) { r.StoreID = id.ID{} },
			code:   apperror.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.sale("150")
			tt.modify(&req)
			_, err := f.svc.Posting.CreateSale(f.ctx, req)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCreateSale_DiscountAllocation(t *testing.T) {
	f := newFixture(t)
	req := f.sale("0")
	req.Lines = append(req.Lines, posting.LineRequest{
		CategoryID: f.category("Surgical"),
		Quantity:   types.MoneyFromInt(1),
		UnitPrice:  types.MoneyFromInt(100),
	})
	req.DiscountAmount = types.MoneyFromInt(10)

	res, err := f.svc.Posting.CreateSale(f.ctx, req)
	require.NoError(t, err)

	txn := res.Transaction
	assertMoney(t, "300.00", txn.SubTotal)
	assertMoney(t, "290.00", txn.TotalAmount)
	assertMoney(t, "193.33", txn.Lines[0].NetAmount)
	assertMoney(t, "96.67", txn.Lines[1].NetAmount)
	assert.Equal(t, transaction.PaymentUnpaid, txn.PaymentStatus)
	assert.Nil(t, res.Payment)
	assert.Nil(t, res.PaymentVoucher)

	assertLine(t, res.Voucher, f.account("1103"), true, "290.00")
	assertLine(t, res.Voucher, f.account("4101"), false, "193.33")
	assertLine(t, res.Voucher, f.account("4102"), false, "96.67")
	assertLine(t, res.Voucher, f.account("5101"), true, "120.00")
	for _, l := range res.Voucher.Lines {
		assert.NotEqual(t, f.account("5102"), l.AccountID, "zero-cost line must not post COGS")
	}
}

func TestCreateSale_FullyPaid(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("200"))
	require.NoError(t, err)
	assert.Equal(t, transaction.PaymentPaid, res.Transaction.PaymentStatus)
	assertMoney(t, "0.00", res.Transaction.BalanceAmount)
	assert.Equal(t, "0.00", f.balance(t, "1103"))
}

func TestCreateSale_ConcurrentNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 25

	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Posting.CreateSale(f.ctx, f.sale("0"))
			errs[i] = err
			if err == nil {
				numbers[i] = res.Transaction.Number
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "duplicate %s", numbers[i])
		seen[numbers[i]] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("SALE-20261016-%04d", i)])
	}
	assert.Equal(t, fmt.Sprintf("%d.00", n*200), f.balance(t, "1103"))
}

func TestCreatePurchase(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Posting.CreatePurchase(f.ctx, f.purchase("100"))
	require.NoError(t, err)

	assert.Equal(t, "PUR-20261016-0001", res.Transaction.Number)
	require.Len(t, res.Voucher.Lines, 2)
	assertLine(t, res.Voucher, f.account("1201"), true, "250.00")
	assertLine(t, res.Voucher, f.account("2101"), false, "250.00")

	assert.Equal(t, "PAY-20261016-0001", res.Payment.Number)
	assertLine(t, res.PaymentVoucher, f.account("2101"), true, "100.00")
	assertLine(t, res.PaymentVoucher, f.account("1101"), false, "100.00")

	assert.Equal(t, transaction.PaymentPartial, res.Transaction.PaymentStatus)
	assert.Equal(t, "150.00", f.balance(t, "2101"))
	assert.Equal(t, "250.00", f.balance(t, "1201"))
	assert.Equal(t, "-100.00", f.balance(t, "1101"))
}

func TestCreateExpense(t *testing.T) {
	f := newFixture(t)
	cash := f.account("1101")
	rent := f.account("5201")

	t.Run("paid directly", func(t *testing.T) {
		res, err := f.svc.Posting.CreateExpense(f.ctx, posting.CreateTransactionRequest{
			Date:             today,
			StoreID:          storeID,
			UserID:           userID,
			Lines:            []posting.LineRequest{{ExpenseAccountID: &rent, UnitPrice: types.MoneyFromInt(500), Description: "October rent"}},
			PaymentAccountID: &cash,
		})
		require.NoError(t, err)
		assert.Equal(t, "EXP-20261016-0001", res.Transaction.Number)
		assert.Equal(t, transaction.PaymentPaid, res.Transaction.PaymentStatus)
		assert.Nil(t, res.Payment)
		assertLine(t, res.Voucher, rent, true, "500.00")
		assertLine(t, res.Voucher, cash, false, "500.00")
	})

	t.Run("on supplier credit", func(t *testing.T) {
		res, err := f.svc.Posting.CreateExpense(f.ctx, posting.CreateTransactionRequest{
			Date:    today,
			StoreID: storeID,
			UserID:  userID,
			PartyID: f.party("MedSupply Distributors"),
			Lines:   []posting.LineRequest{{ExpenseAccountID: &rent, UnitPrice: types.MoneyFromInt(80)}},
		})
		require.NoError(t, err)
		assert.Equal(t, transaction.PaymentUnpaid, res.Transaction.PaymentStatus)
		line := assertLine(t, res.Voucher, f.account("2101"), false, "80.00")
		require.NotNil(t, line.PartyID)
	})

	t.Run("partly paid without supplier", func(t *testing.T) {
		_, err := f.svc.Posting.CreateExpense(f.ctx, posting.CreateTransactionRequest{
			Date:             today,
			StoreID:          storeID,
			UserID:           userID,
			Lines:            []posting.LineRequest{{ExpenseAccountID: &rent, UnitPrice: types.MoneyFromInt(80)}},
			PaidAmount:       types.MoneyFromInt(40),
			PaymentAccountID: &cash,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("non-expense account", func(t *testing.T) {
		_, err := f.svc.Posting.CreateExpense(f.ctx, posting.CreateTransactionRequest{
			Date:             today,
			StoreID:          storeID,
			UserID:           userID,
			Lines:            []posting.LineRequest{{ExpenseAccountID: &cash, UnitPrice: types.MoneyFromInt(80)}},
			PaymentAccountID: &cash,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	assert.Equal(t, "-500.00", f.balance(t, "1101"))
	assert.Equal(t, "580.00", f.balance(t, "5201"))
}

func reportsReceivable() reports.AgingRequest {
	return reports.AgingRequest{Kind: reports.AgingReceivable, AsOf: today}
}
