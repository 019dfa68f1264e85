package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/ledger"
)

type voucherRepo struct{ s *Store }

func copyVoucher(v ledger.Voucher) *ledger.Voucher {
	v.Lines = append([]ledger.Line(nil), v.Lines...)
	return &v
}

func (r *voucherRepo) Create(_ context.Context, v *ledger.Voucher) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.vouchers[v.ID]; ok {
			return apperror.NewConcurrentModification("voucher", v.ID)
		}
		for _, x := range d.vouchers {
			if x.Number == v.Number {
				return fmt.Errorf("voucher number %s already used", v.Number)
			}
		}
		for i := range v.Lines {
			d.lineSeq++
			v.Lines[i].ID = d.lineSeq
			v.Lines[i].VoucherID = v.ID
		}
		d.vouchers[v.ID] = *copyVoucher(*v)
		return nil
	})
}

func (r *voucherRepo) GetByID(_ context.Context, voucherID id.ID) (*ledger.Voucher, error) {
	var out *ledger.Voucher
	err := r.s.read(func(d *state) error {
		v, ok := d.vouchers[voucherID]
		if !ok {
			return apperror.NewNotFound("voucher", voucherID)
		}
		out = copyVoucher(v)
		return nil
	})
	return out, err
}

func (r *voucherRepo) GetByIDForUpdate(ctx context.Context, voucherID id.ID) (*ledger.Voucher, error) {
	return r.GetByID(ctx, voucherID)
}

func (r *voucherRepo) MarkReversed(_ context.Context, originalID, reversalID id.ID, reason string, at time.Time) error {
	return r.s.write(func(d *state) error {
		v, ok := d.vouchers[originalID]
		if !ok || v.IsReversed {
			return apperror.NewConcurrentModification("voucher", originalID)
		}
		v.IsReversed = true
		v.Status = ledger.StatusReversed
		v.ReversedByVoucherID = id.Ptr(reversalID)
		v.ReversalReason = reason
		v.ReversedAt = &at
		d.vouchers[originalID] = v
		return nil
	})
}

func (r *voucherRepo) ListBySource(_ context.Context, ref ledger.SourceRef) ([]ledger.Voucher, error) {
	var out []ledger.Voucher
	err := r.s.read(func(d *state) error {
		for _, v := range d.vouchers {
			if v.Source == ref {
				out = append(out, *copyVoucher(v))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return firstLine(out[i]) < firstLine(out[j])
	})
	return out, err
}

func firstLine(v ledger.Voucher) int64 {
	if len(v.Lines) == 0 {
		return 0
	}
	return v.Lines[0].ID
}
