package memory

import (
	"context"
	"sort"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/reports"
)

// ReportRepo implements reports.Repository over the stored vouchers.
type ReportRepo struct{ s *Store }

func inRange(v ledger.Voucher, f reports.LineFilter) bool {
	if !v.Status.CountsInBalance() {
		return false
	}
	if f.From != nil && v.Date.Before(*f.From) {
		return false
	}
	if f.Until != nil && !v.Date.Before(*f.Until) {
		return false
	}
	return true
}

// SumByAccount implements reports.Repository.
func (r *ReportRepo) SumByAccount(_ context.Context, f reports.LineFilter) ([]reports.AccountTotals, error) {
	want := make(map[id.ID]struct{}, len(f.AccountIDs))
	for _, a := range f.AccountIDs {
		want[a] = struct{}{}
	}

	sums := make(map[id.ID]*reports.AccountTotals)
	err := r.s.read(func(d *state) error {
		for _, v := range d.vouchers {
			if !inRange(v, f) {
				continue
			}
			for _, l := range v.Lines {
				if _, ok := want[l.AccountID]; len(want) > 0 && !ok {
					continue
				}
				t, ok := sums[l.AccountID]
				if !ok {
					t = &reports.AccountTotals{AccountID: l.AccountID, Debit: types.Zero(), Credit: types.Zero()}
					sums[l.AccountID] = t
				}
				t.Debit = t.Debit.Add(l.Debit)
				t.Credit = t.Credit.Add(l.Credit)
			}
		}
		return nil
	})

	out := make([]reports.AccountTotals, 0, len(sums))
	for _, t := range sums {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID.String() < out[j].AccountID.String() })
	return out, err
}

// ListLines implements reports.Repository.
func (r *ReportRepo) ListLines(_ context.Context, accountID id.ID, f reports.LineFilter) ([]reports.LedgerRow, error) {
	var out []reports.LedgerRow
	err := r.s.read(func(d *state) error {
		for _, v := range d.vouchers {
			if !inRange(v, f) {
				continue
			}
			for _, l := range v.Lines {
				if l.AccountID != accountID {
					continue
				}
				out = append(out, reports.LedgerRow{
					LineID:        l.ID,
					VoucherID:     v.ID,
					VoucherNumber: v.Number,
					Date:          v.Date,
					Narration:     v.Narration,
					Description:   l.Description,
					PartyID:       l.PartyID,
					Debit:         l.Debit,
					Credit:        l.Credit,
				})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].LineID < out[j].LineID
	})
	return out, err
}
