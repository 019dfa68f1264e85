package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/infrastructure/storage/memory"
	"pharmaledger/internal/seed"
)

func TestDefaultChart(t *testing.T) {
	c, err := seed.Default()
	require.NoError(t, err)

	store := memory.New()
	svc := coa.NewService(store.Chart())
	res, err := seed.Apply(context.Background(), store, svc, c)
	require.NoError(t, err)

	assert.Len(t, res.Accounts, len(c.Accounts))
	assert.Equal(t, seed.CategoryID("Medicines"), res.Categories["Medicines"])

	acc, err := svc.GetAccountsByCategory(context.Background(), res.Categories["Surgical"])
	require.NoError(t, err)
	assert.Equal(t, res.Account("4102"), acc.SalesAccount)

	linked, err := svc.LinkedAccount(context.Background(), res.Parties["City Clinic"], coa.PartyCustomer)
	require.NoError(t, err)
	assert.Equal(t, res.Account("1103"), linked)

	assert.Panics(t, func() { res.Account("9999") })
}

func TestLoad(t *testing.T) {
	doc := `
heads:
  - code: "1"
    name: Assets
    family: assets
    subheads:
      - {code: "11", name: Current}
accounts:
  - {code: "1101", name: Cash, kind: cash, subhead: "11"}
  - {code: "1102", name: Old Till, kind: cash, subhead: "11", inactive: true}
`
	c, err := seed.Load(strings.NewReader(doc))
	require.NoError(t, err)

	store := memory.New()
	svc := coa.NewService(store.Chart())
	res, err := seed.Apply(context.Background(), store, svc, c)
	require.NoError(t, err)

	_, err = svc.Postable(context.Background(), []id.ID{res.Account("1102")})
	assert.Error(t, err)

	_, err = seed.Load(strings.NewReader("heads: []\nledgers: []\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestApply_UnknownReferenceRollsBack(t *testing.T) {
	doc := `
heads:
  - {code: "1", name: Assets, family: assets, subheads: [{code: "11", name: Current}]}
accounts:
  - {code: "1101", name: Cash, kind: cash, subhead: "11"}
parties:
  - {name: Ghost, kind: customer, account: "1999"}
`
	c, err := seed.Load(strings.NewReader(doc))
	require.NoError(t, err)

	store := memory.New()
	svc := coa.NewService(store.Chart())
	_, err = seed.Apply(context.Background(), store, svc, c)
	require.ErrorContains(t, err, "unknown account 1999")

	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
