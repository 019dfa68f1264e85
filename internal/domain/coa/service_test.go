package coa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/seed"
)

func setup(t *testing.T) (*coa.Service, *seed.Result) {
	t.Helper()
	svc, res, err := app.Demo(context.Background(), app.Options{})
	require.NoError(t, err)
	return svc.Chart, res
}

func TestIsDebitNormal(t *testing.T) {
	tests := []struct {
		family coa.Family
		want   bool
	}{
		{coa.FamilyAssets, true},
		{coa.FamilyExpense, true},
		{coa.FamilyLiability, false},
		{coa.FamilyCapital, false},
		{coa.FamilyRevenue, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			assert.Equal(t, tt.want, coa.IsDebitNormal(tt.family))
		})
	}
	assert.Panics(t, func() { coa.IsDebitNormal("equity") })
}

func TestResolveFamily(t *testing.T) {
	ctx := context.Background()
	chart, res := setup(t)

	tests := map[string]coa.Family{
		"1101": coa.FamilyAssets,
		"1103": coa.FamilyAssets,
		"2101": coa.FamilyLiability,
		"3101": coa.FamilyCapital,
		"4101": coa.FamilyRevenue,
		"5101": coa.FamilyExpense,
	}
	for code, want := range tests {
		got, err := chart.ResolveFamily(ctx, res.Account(code))
		require.NoError(t, err)
		assert.Equal(t, want, got, "account %s", code)
	}

	_, err := chart.ResolveFamily(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetAccountsByCategory(t *testing.T) {
	ctx := context.Background()
	chart, res := setup(t)

	acc, err := chart.GetAccountsByCategory(ctx, res.Categories["Medicines"])
	require.NoError(t, err)
	assert.Equal(t, res.Account("4101"), acc.SalesAccount)
	assert.Equal(t, res.Account("5101"), acc.COGSAccount)
	assert.Equal(t, res.Account("1201"), acc.StockAccount)

	unknown := id.New()
	_, err = chart.GetAccountsByCategory(ctx, unknown)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingAccountMapping))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Message, unknown.String())

	partial := id.New()
	stock := res.Account("1201")
	require.NoError(t, chart.MapCategory(ctx, coa.CategoryMapping{CategoryID: partial, StockAccountID: &stock}))
	_, err = chart.GetAccountsByCategory(ctx, partial)
	appErr, _ = apperror.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, []string{"sales", "cogs"}, appErr.Details["missing"])
}

func TestMapCategory_WrongKind(t *testing.T) {
	ctx := context.Background()
	chart, res := setup(t)

	cash := res.Account("1101")
	err := chart.MapCategory(ctx, coa.CategoryMapping{CategoryID: id.New(), SalesAccountID: &cash})
	assert.True(t, apperror.IsValidation(err))
}

func TestLinkedAccount(t *testing.T) {
	ctx := context.Background()
	chart, res := setup(t)

	got, err := chart.LinkedAccount(ctx, res.Parties["Walk-in Customer"], coa.PartyCustomer)
	require.NoError(t, err)
	assert.Equal(t, res.Account("1103"), got)

	_, err = chart.LinkedAccount(ctx, res.Parties["Walk-in Customer"], coa.PartySupplier)
	assert.True(t, apperror.IsValidation(err))

	p, err := chart.CreateParty(ctx, coa.PartySupplier, "New Supplier", nil)
	require.NoError(t, err)
	_, err = chart.LinkedAccount(ctx, p.ID, coa.PartySupplier)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingLinkedAccount))

	payable := res.Account("2101")
	_, err = chart.CreateParty(ctx, coa.PartyCustomer, "Mislinked", &payable)
	assert.True(t, apperror.IsValidation(err))
}

func TestPostable(t *testing.T) {
	ctx := context.Background()
	chart, res := setup(t)

	cash := res.Account("1101")
	got, err := chart.Postable(ctx, []id.ID{cash, cash, res.Account("4101")})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, chart.SetAccountActive(ctx, cash, false))
	_, err = chart.Postable(ctx, []id.ID{cash})
	assert.True(t, apperror.HasCode(err, apperror.CodeInactiveAccount))

	_, err = chart.Postable(ctx, []id.ID{id.New()})
	assert.True(t, apperror.IsNotFound(err))
}

func TestListAccounts(t *testing.T) {
	chart, _ := setup(t)
	accounts, err := chart.ListAccounts(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, accounts)
	assert.Equal(t, "1101", accounts[0].Code)
	assert.Equal(t, coa.KindCash, accounts[0].Kind)
	assert.Equal(t, coa.FamilyAssets, accounts[0].Family)
}
