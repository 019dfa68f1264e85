package memory

import (
	"context"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/transaction"
)

type paymentRepo struct{ s *Store }

func copyPayment(p transaction.Payment) *transaction.Payment {
	p.Allocations = append([]transaction.Allocation(nil), p.Allocations...)
	return &p
}

func (r *paymentRepo) Create(_ context.Context, p *transaction.Payment) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.payments[p.ID]; ok {
			return apperror.NewConcurrentModification("payment", p.ID)
		}
		d.payments[p.ID] = *copyPayment(*p)
		return nil
	})
}

func (r *paymentRepo) GetByID(_ context.Context, paymentID id.ID) (*transaction.Payment, error) {
	var out *transaction.Payment
	err := r.s.read(func(d *state) error {
		p, ok := d.payments[paymentID]
		if !ok {
			return apperror.NewNotFound("payment", paymentID)
		}
		out = copyPayment(p)
		return nil
	})
	return out, err
}

func (r *paymentRepo) ListByTransaction(_ context.Context, transactionID id.ID) ([]transaction.Payment, error) {
	var out []transaction.Payment
	err := r.s.read(func(d *state) error {
		for _, p := range d.payments {
			if p.IsVoided {
				continue
			}
			for _, a := range p.Allocations {
				if a.TransactionID == transactionID {
					out = append(out, *copyPayment(p))
					break
				}
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, err
}

func (r *paymentRepo) MarkVoided(_ context.Context, paymentID id.ID, reason string, at time.Time) error {
	return r.s.write(func(d *state) error {
		p, ok := d.payments[paymentID]
		if !ok || p.IsVoided {
			return apperror.NewConcurrentModification("payment", paymentID)
		}
		p.IsVoided = true
		p.VoidReason = reason
		p.VoidedAt = &at
		d.payments[paymentID] = p
		return nil
	})
}

func (r *paymentRepo) DeleteAllocations(_ context.Context, paymentID id.ID) error {
	return r.s.write(func(d *state) error {
		p, ok := d.payments[paymentID]
		if !ok {
			return apperror.NewNotFound("payment", paymentID)
		}
		p.Allocations = nil
		d.payments[paymentID] = p
		return nil
	})
}
