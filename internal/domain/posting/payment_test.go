package posting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/transaction"
)

func TestCreatePayment_AllocatesAndVoids(t *testing.T) {
	f := newFixture(t)
	purchase, err := f.svc.Posting.CreatePurchase(f.ctx, f.purchase("0"))
	require.NoError(t, err)

	req := posting.PaymentRequest{
		Direction: transaction.DirectionMade,
		PartyID:   *f.party("MedSupply Distributors"),
		AccountID: f.account("1102"),
		Amount:    types.MoneyFromInt(100),
		Date:      today,
		StoreID:   storeID,
		UserID:    userID,
		Allocations: []posting.AllocationRequest{
			{TransactionID: purchase.Transaction.ID, Amount: types.MoneyFromInt(100)},
		},
	}
	res, err := f.svc.Posting.CreatePayment(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "PAY-20261016-0001", res.Payment.Number)
	assert.Equal(t, "PMV-20261016-0001", res.PaymentVoucher.Number)
	assertLine(t, res.PaymentVoucher, f.account("2101"), true, "100.00")
	assertLine(t, res.PaymentVoucher, f.account("1102"), false, "100.00")

	txn, err := f.svc.Posting.GetTransaction(f.ctx, purchase.Transaction.ID)
	require.NoError(t, err)
	assertMoney(t, "150.00", txn.BalanceAmount)
	assert.Equal(t, transaction.PaymentPartial, txn.PaymentStatus)

	voided, err := f.svc.Posting.VoidPayment(f.ctx, res.Payment.ID, "bounced", userID)
	require.NoError(t, err)
	assert.True(t, voided.IsVoided)

	txn, err = f.svc.Posting.GetTransaction(f.ctx, purchase.Transaction.ID)
	require.NoError(t, err)
	assertMoney(t, "250.00", txn.BalanceAmount)
	assert.Equal(t, transaction.PaymentUnpaid, txn.PaymentStatus)
	assert.Equal(t, "250.00", f.balance(t, "2101"))
	assert.Equal(t, "0.00", f.balance(t, "1102"))

	_, err = f.svc.Posting.VoidPayment(f.ctx, res.Payment.ID, "bounced", userID)
	assert.True(t, apperror.IsAlreadyVoid(err))
}

func TestCreatePayment_Advance(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Posting.CreatePayment(f.ctx, posting.PaymentRequest{
		Direction: transaction.DirectionReceived,
		PartyID:   *f.party("City Clinic"),
		AccountID: f.account("1101"),
		Amount:    types.MoneyFromInt(75),
		Date:      today,
		StoreID:   storeID,
		UserID:    userID,
	})
	require.NoError(t, err)
	assert.Equal(t, "RCPT-20261016-0001", res.Payment.Number)
	assert.Empty(t, res.Payment.Allocations)
	assert.Equal(t, "-75.00", f.balance(t, "1103"))
}

func TestCreatePayment_Rejections(t *testing.T) {
	f := newFixture(t)
	sale, err := f.svc.Posting.CreateSale(f.ctx, f.sale("0"))
	require.NoError(t, err)

	base := func() posting.PaymentRequest {
		return posting.PaymentRequest{
			Direction: transaction.DirectionReceived,
			PartyID:   *f.party("Walk-in Customer"),
			AccountID: f.account("1101"),
			Amount:    types.MoneyFromInt(300),
			Date:      today,
			StoreID:   storeID,
			UserID:    userID,
			Allocations: []posting.AllocationRequest{
				{TransactionID: sale.Transaction.ID, Amount: types.MoneyFromInt(100)},
			},
		}
	}

	tests := []struct {
		name   string
		modify func(r *posting.PaymentRequest)
		code   string
	}{
		{
			name:   "allocation above balance",
			modify: func(r *posting.PaymentRequest) { r.Allocations[0].Amount = types.MoneyFromInt(250) },
			code:   apperror.CodeValidation,
		},
		{
			name:   "allocations above amount",
			modify: func(r *posting.PaymentRequest) { r.Amount = types.MoneyFromInt(50) },
			code:   apperror.CodeValidation,
		},
		{
			name:   "wrong direction",
			modify: func(r *posting.PaymentRequest) { r.Direction = transaction.DirectionMade },
			code:   apperror.CodeValidation,
		},
		{
			name:   "other party",
			modify: func(r *posting.PaymentRequest) { r.PartyID = *f.party("City Clinic") },
			code:   apperror.CodeValidation,
		},
		{
			name:   "unknown transaction",
			modify: func(r *posting.PaymentRequest) { r.Allocations[0].TransactionID = id.New() },
			code:   apperror.CodeNotFound,
		},
		{
			name:   "non-money account",
			modify: func(r *posting.PaymentRequest) { r.AccountID = f.account("4101") },
			code:   apperror.CodeValidation,
		},
		{
			name:   "zero amount",
			modify: func(r *posting.PaymentRequest) { r.Amount = types.Zero() },
			code:   apperror.CodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.modify(&req)
			_, err := f.svc.Posting.CreatePayment(f.ctx, req)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.Equal(t, "200.00", f.balance(t, "1103"))
}
