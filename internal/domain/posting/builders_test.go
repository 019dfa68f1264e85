package posting

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
)

var (
	medicines = coa.CategoryAccounts{CategoryID: id.New(), SalesAccount: id.New(), COGSAccount: id.New(), StockAccount: id.New()}
	surgical  = coa.CategoryAccounts{CategoryID: id.New(), SalesAccount: id.New(), COGSAccount: id.New(), StockAccount: id.New()}
)

func randomItems(r *rand.Rand) ItemInput {
	n := 1 + r.Intn(6)
	grosses := make([]types.Money, n)
	subTotal := types.Zero()
	for i := range grosses {
		grosses[i] = decimal.New(int64(r.Intn(100000)+1), -2)
		subTotal = subTotal.Add(grosses[i])
	}
	discount := types.RoundMoney(subTotal.Mul(decimal.New(int64(r.Intn(30)), -2)))
	total := subTotal.Sub(discount)
	nets := AllocateProportional(total, grosses)

	in := ItemInput{PartyAccount: id.New(), PartyID: id.New(), Total: total, Reference: "T"}
	for i := range nets {
		acc := medicines
		if r.Intn(2) == 0 {
			acc = surgical
		}
		cost := types.Zero()
		if r.Intn(4) > 0 {
			cost = decimal.New(int64(r.Intn(50000)), -2)
		}
		in.Lines = append(in.Lines, ItemLine{Accounts: acc, Net: nets[i], Cost: cost})
	}
	return in
}

func assertBalanced(t *testing.T, set ledger.LineSet) {
	t.Helper()
	debit, credit := set.Totals()
	assert.True(t, debit.Equal(credit), "debit %s credit %s", debit, credit)
	require.NoError(t, set.Validate())
}

func TestBuilders_AlwaysBalance(t *testing.T) {
	r := rand.New(rand.NewSource(20261016))
	builders := map[string]func(ItemInput) (ledger.LineSet, error){
		"sale":            BuildSale,
		"purchase":        BuildPurchase,
		"sale return":     BuildSaleReturn,
		"purchase return": BuildPurchaseReturn,
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				in := randomItems(r)
				set, err := build(in)
				require.NoError(t, err)
				assertBalanced(t, set)

				seen := make(map[string]bool)
				for _, l := range set.Lines {
					key := l.AccountID.String()
					if l.Debit.IsPositive() {
						key += "/dr"
					} else {
						key += "/cr"
					}
					assert.False(t, seen[key], "account posted twice on one side")
					seen[key] = true
				}
			}
		})
	}
}

func TestBuildSale_CostLinesOnlyWhenCostPositive(t *testing.T) {
	in := ItemInput{
		PartyAccount: id.New(),
		PartyID:      id.New(),
		Total:        types.MoneyFromInt(150),
		Reference:    "SALE-20261016-0001",
		Lines: []ItemLine{
			{Accounts: medicines, Net: types.MoneyFromInt(100), Cost: types.MoneyFromInt(60)},
			{Accounts: surgical, Net: types.MoneyFromInt(50), Cost: types.Zero()},
		},
	}
	set, err := BuildSale(in)
	require.NoError(t, err)
	assertBalanced(t, set)

	for _, l := range set.Lines {
		assert.NotEqual(t, surgical.COGSAccount, l.AccountID)
		assert.NotEqual(t, surgical.StockAccount, l.AccountID)
	}
	assert.Len(t, set.Lines, 5)
}

func TestBuildSale_TotalMismatch(t *testing.T) {
	in := ItemInput{
		PartyAccount: id.New(),
		Total:        types.MoneyFromInt(150),
		Lines:        []ItemLine{{Accounts: medicines, Net: types.MoneyFromInt(100)}},
	}
	_, err := BuildSale(in)
	assert.True(t, apperror.IsValidation(err))
}

func TestBuildExpense(t *testing.T) {
	supplier := id.New()
	set, err := BuildExpense(ExpenseInput{
		CreditAccount: id.New(),
		PartyID:       &supplier,
		Total:         types.MustMoney("120.50"),
		Reference:     "EXP-20261016-0001",
		Lines: []ExpenseLine{
			{AccountID: id.New(), Net: types.MustMoney("100.25")},
			{AccountID: id.New(), Net: types.MustMoney("20.25")},
		},
	})
	require.NoError(t, err)
	assertBalanced(t, set)
	assert.Len(t, set.Lines, 3)
}

func TestBuildPayment(t *testing.T) {
	cash, party := id.New(), id.New()

	received, err := BuildPayment(PaymentInput{
		Direction: transaction.DirectionReceived, MoneyAccount: cash, PartyAccount: party,
		PartyID: id.New(), Amount: types.MoneyFromInt(150), Reference: "RCPT-20261016-0001",
	})
	require.NoError(t, err)
	assertBalanced(t, received)
	assert.Equal(t, cash, received.Lines[0].AccountID)
	assert.True(t, received.Lines[0].Debit.IsPositive())

	made, err := BuildPayment(PaymentInput{
		Direction: transaction.DirectionMade, MoneyAccount: cash, PartyAccount: party,
		PartyID: id.New(), Amount: types.MoneyFromInt(150), Reference: "PAY-20261016-0001",
	})
	require.NoError(t, err)
	assert.Equal(t, party, made.Lines[0].AccountID)
	assert.True(t, made.Lines[0].Debit.IsPositive())

	_, err = BuildPayment(PaymentInput{Direction: transaction.DirectionMade, Amount: types.Zero()})
	assert.True(t, apperror.IsValidation(err))
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(t.Context(), "void:transaction:1")
	require.NoError(t, err)

	_, err = l.Acquire(t.Context(), "void:transaction:1")
	assert.True(t, apperror.IsConcurrentModification(err))

	_, err = l.Acquire(t.Context(), "void:transaction:2")
	assert.NoError(t, err)

	require.NoError(t, release(t.Context()))
	_, err = l.Acquire(t.Context(), "void:transaction:1")
	assert.NoError(t, err)
}
