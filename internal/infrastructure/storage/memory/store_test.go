package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/reports"
)

var day = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func voucher(number string, account id.ID, amount int64) *ledger.Voucher {
	vid := id.New()
	other := id.New()
	return &ledger.Voucher{
		ID:     vid,
		Number: number,
		Date:   day,
		Status: ledger.StatusPosted,
		Lines: []ledger.Line{
			{LineNo: 1, AccountID: account, Debit: types.MoneyFromInt(amount), Credit: types.Zero()},
			{LineNo: 2, AccountID: other, Debit: types.Zero(), Credit: types.MoneyFromInt(amount)},
		},
	}
}

func TestRunInTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	account := id.New()

	require.NoError(t, s.Vouchers().Create(ctx, voucher("JV-20261016-0001", account, 10)))

	boom := errors.New("boom")
	var inner id.ID
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		v := voucher("JV-20261016-0002", account, 5)
		inner = v.ID
		require.NoError(t, s.Vouchers().Create(ctx, v))
		n, err := s.NextNumber(ctx, "SALE", day)
		require.NoError(t, err)
		assert.Equal(t, "SALE-20261016-0001", n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Vouchers().GetByID(ctx, inner)
	assert.True(t, apperror.IsNotFound(err))

	n, err := s.NextNumber(ctx, "SALE", day)
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261016-0001", n, "rolled back numbers are reused")

	totals, err := s.Reports().SumByAccount(ctx, reports.LineFilter{AccountIDs: []id.ID{account}})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "10.00", types.FormatMoney(totals[0].Debit))
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("outer failed")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		err := s.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := s.NextNumber(ctx, "JV", day)
			return err
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.NextNumber(ctx, "JV", day)
	require.NoError(t, err)
	assert.Equal(t, "JV-20261016-0001", n)
}

func TestNextNumber(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.NextNumber(ctx, "sale", day)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	n, err := s.NextNumber(ctx, "SALE", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261017-0001", n)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextNumber(ctx, "SALE", day)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.Contains(t, seen, "SALE-20261016-0050")
}

func TestVoucherRepo(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Vouchers()
	account := id.New()

	first := voucher("JV-20261016-0001", account, 10)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, int64(1), first.Lines[0].ID)
	assert.Equal(t, int64(2), first.Lines[1].ID)
	assert.Equal(t, first.ID, first.Lines[1].VoucherID)

	dup := voucher("JV-20261016-0001", account, 3)
	assert.Error(t, repo.Create(ctx, dup))

	// Callers get copies; mutating them does not touch the store.
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	got.Lines[0].Debit = types.MoneyFromInt(999)
	again, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", types.FormatMoney(again.Lines[0].Debit))

	rev := id.New()
	require.NoError(t, repo.MarkReversed(ctx, first.ID, rev, "typo", day))
	err = repo.MarkReversed(ctx, first.ID, id.New(), "again", day)
	assert.True(t, apperror.IsConcurrentModification(err))

	marked, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, marked.IsReversed)
	require.NotNil(t, marked.ReversedByVoucherID)
	assert.Equal(t, rev, *marked.ReversedByVoucherID)
}
