package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
)

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[coa.Account]()
	assert.Equal(t, []string{"id", "code", "name", "type_id", "subhead_id", "is_active", "created_at"}, cols)

	// AccountInfo embeds Account and adds the joined columns.
	info := ExtractDBColumns[coa.AccountInfo]()
	assert.Contains(t, info, "kind")
	assert.Contains(t, info, "family")
	assert.Contains(t, info, "subhead_id")

	// Lines and the source ref are not columns of vouchers.
	v := ExtractDBColumns[ledger.Voucher]()
	assert.NotContains(t, v, "lines")
	assert.NotContains(t, v, "source_table")
	assert.Contains(t, v, "reverses_voucher_id")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	acc := coa.AccountInfo{
		Account: coa.Account{
			ID:        id.New(),
			Code:      "1101",
			Name:      "Cash in Hand",
			IsActive:  true,
			CreatedAt: now,
		},
		Kind:   coa.KindCash,
		Family: coa.FamilyAssets,
	}

	m := StructToMap(&acc)
	assert.Equal(t, acc.ID, m["id"])
	assert.Equal(t, "1101", m["code"])
	assert.Equal(t, true, m["is_active"])
	assert.Equal(t, coa.KindCash, m["kind"])
	assert.Equal(t, now, m["created_at"])

	assert.Nil(t, StructToMap(42))
}

func TestColumnMap(t *testing.T) {
	line := ledger.Line{
		ID:        7,
		AccountID: id.New(),
		Debit:     types.MoneyFromInt(10),
		Credit:    types.Zero(),
	}
	cols := Without(ExtractDBColumns[ledger.Line](), "id")
	m := ColumnMap(line, cols)

	require.NotContains(t, m, "id")
	assert.Equal(t, line.AccountID, m["account_id"])
	assert.True(t, types.MoneyFromInt(10).Equal(m["debit"].(types.Money)))
	assert.Equal(t, []string{"v.id", "v.number"}, Prefixed("v", []string{"id", "number"}))
}
