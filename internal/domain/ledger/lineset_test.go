package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

func m(s string) types.Money { return types.MustMoney(s) }

func TestLineSet_Validate(t *testing.T) {
	a, b := id.New(), id.New()

	tests := []struct {
		name  string
		lines []Line
		code  string
	}{
		{"empty", nil, apperror.CodeValidation},
		{"nil account", []Line{{Debit: m("1")}, {AccountID: b, Credit: m("1")}}, apperror.CodeValidation},
		{"negative", []Line{{AccountID: a, Debit: m("-1")}, {AccountID: b, Credit: m("-1")}}, apperror.CodeValidation},
		{"both sides", []Line{{AccountID: a, Debit: m("1"), Credit: m("1")}}, apperror.CodeValidation},
		{"neither side", []Line{{AccountID: a}, {AccountID: b, Credit: m("0")}}, apperror.CodeValidation},
		{"three decimals", []Line{{AccountID: a, Debit: m("1.005")}, {AccountID: b, Credit: m("1.005")}}, apperror.CodeValidation},
		{"unbalanced", []Line{{AccountID: a, Debit: m("100")}, {AccountID: b, Credit: m("99.98")}}, apperror.CodeUnbalancedVoucher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LineSet{Lines: tt.lines}.Validate()
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
			assert.True(t, apperror.IsValidation(err))
		})
	}

	t.Run("within tolerance", func(t *testing.T) {
		set := LineSet{Lines: []Line{{AccountID: a, Debit: m("100")}, {AccountID: b, Credit: m("99.99")}}}
		assert.NoError(t, set.Validate())
	})

	t.Run("unbalanced details", func(t *testing.T) {
		err := LineSet{Lines: []Line{{AccountID: a, Debit: m("100")}, {AccountID: b, Credit: m("90")}}}.Validate()
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "100.00", appErr.Details["total_debit"])
		assert.Equal(t, "90.00", appErr.Details["total_credit"])
		assert.Equal(t, "10.00", appErr.Details["difference"])
	})
}

func TestLineSet_DebitCreditSkipZero(t *testing.T) {
	var set LineSet
	set.Debit(id.New(), types.Zero(), "nothing")
	set.Credit(id.New(), m("5"), "five")
	assert.Equal(t, 1, set.Len())
}

func TestLineSet_Aggregate(t *testing.T) {
	cust, sales, party := id.New(), id.New(), id.New()
	p1, p2 := id.New(), id.New()

	var set LineSet
	set.Debit(cust, m("100"), "a", WithParty(party))
	set.Debit(cust, m("50"), "b", WithParty(party))
	set.Credit(sales, m("100"), "c", WithProduct(p1))
	set.Credit(sales, m("50"), "d", WithProduct(p2))

	out := set.Aggregate()
	require.Len(t, out.Lines, 2)
	assert.Equal(t, "150.00", types.FormatMoney(out.Lines[0].Debit))
	assert.Equal(t, party, *out.Lines[0].PartyID)
	assert.Equal(t, "150.00", types.FormatMoney(out.Lines[1].Credit))
	assert.Nil(t, out.Lines[1].ProductID, "mixed products collapse to none")
	assert.NoError(t, out.Validate())
}

func TestLineSet_Swapped(t *testing.T) {
	a, b := id.New(), id.New()
	var set LineSet
	set.Debit(a, m("120"), "x")
	set.Credit(b, m("120"), "y")

	rev := set.Swapped()
	require.Len(t, rev.Lines, 2)
	assert.True(t, rev.Lines[0].Credit.Equal(m("120")))
	assert.True(t, rev.Lines[0].Debit.IsZero())
	assert.True(t, rev.Lines[1].Debit.Equal(m("120")))

	net := set.NetByAccount()
	for acc, v := range rev.NetByAccount() {
		assert.True(t, v.Add(net[acc]).IsZero(), "reversal nets %s to zero", acc)
	}
}
