package memory

import (
	"context"
	"sort"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/transaction"
)

type transactionRepo struct{ s *Store }

func copyTransaction(t transaction.Transaction) *transaction.Transaction {
	t.Lines = append([]transaction.Line(nil), t.Lines...)
	return &t
}

func (r *transactionRepo) Create(_ context.Context, t *transaction.Transaction) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.transactions[t.ID]; ok {
			return apperror.NewConcurrentModification("transaction", t.ID)
		}
		if t.Version == 0 {
			t.Version = 1
		}
		d.transactions[t.ID] = *copyTransaction(*t)
		return nil
	})
}

func (r *transactionRepo) GetByID(_ context.Context, transactionID id.ID) (*transaction.Transaction, error) {
	var out *transaction.Transaction
	err := r.s.read(func(d *state) error {
		t, ok := d.transactions[transactionID]
		if !ok {
			return apperror.NewNotFound("transaction", transactionID)
		}
		out = copyTransaction(t)
		return nil
	})
	return out, err
}

func (r *transactionRepo) GetByIDForUpdate(ctx context.Context, transactionID id.ID) (*transaction.Transaction, error) {
	return r.GetByID(ctx, transactionID)
}

func (r *transactionRepo) Update(_ context.Context, t *transaction.Transaction) error {
	return r.s.write(func(d *state) error {
		cur, ok := d.transactions[t.ID]
		if !ok {
			return apperror.NewNotFound("transaction", t.ID)
		}
		if cur.Version != t.Version {
			return apperror.NewConcurrentModification("transaction", t.ID)
		}
		t.Version++
		d.transactions[t.ID] = *copyTransaction(*t)
		return nil
	})
}

func (r *transactionRepo) ListReturns(_ context.Context, originalID id.ID) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	err := r.s.read(func(d *state) error {
		for _, t := range d.transactions {
			if t.Kind.IsReturn() && t.Status != transaction.StatusVoid && id.Equal(t.OriginalTransactionID, &originalID) {
				out = append(out, *copyTransaction(t))
			}
		}
		return nil
	})
	sortTransactions(out)
	return out, err
}

func (r *transactionRepo) ListOutstanding(_ context.Context, f transaction.OutstandingFilter) ([]transaction.Transaction, error) {
	kinds := make(map[transaction.Kind]struct{}, len(f.Kinds))
	for _, k := range f.Kinds {
		kinds[k] = struct{}{}
	}
	until := f.AsOf.AddDate(0, 0, 1)

	var out []transaction.Transaction
	err := r.s.read(func(d *state) error {
		for _, t := range d.transactions {
			if _, ok := kinds[t.Kind]; !ok && len(kinds) > 0 {
				continue
			}
			if t.Status != transaction.StatusApproved && t.Status != transaction.StatusCompleted {
				continue
			}
			if !t.Date.Before(until) || !t.BalanceAmount.IsPositive() {
				continue
			}
			if f.PartyID != nil && !id.Equal(t.PartyID, f.PartyID) {
				continue
			}
			out = append(out, *copyTransaction(t))
		}
		return nil
	})
	sortTransactions(out)
	return out, err
}

func sortTransactions(ts []transaction.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Date.Before(ts[j].Date)
		}
		return ts[i].Number < ts[j].Number
	})
}
