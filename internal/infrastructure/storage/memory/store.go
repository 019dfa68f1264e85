// Package memory keeps the whole ledger in process memory.
//
// Transactions are serialised: RunInTransaction holds a store-wide lock, takes
// a snapshot and restores it when fn fails, so a failed operation leaves no trace.
// Stored slices are never mutated in place, which keeps the snapshot shallow.
package memory

import (
	"context"
	"sync"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
)

type state struct {
	heads        map[id.ID]coa.Head
	subheads     map[id.ID]coa.Subhead
	accountTypes map[id.ID]coa.AccountType
	accounts     map[id.ID]coa.Account
	mappings     map[id.ID]coa.CategoryMapping
	parties      map[id.ID]coa.Party
	vouchers     map[id.ID]ledger.Voucher
	transactions map[id.ID]transaction.Transaction
	payments     map[id.ID]transaction.Payment
	sequences    map[string]int64
	lineSeq      int64
}

func newState() *state {
	return &state{
		heads:        make(map[id.ID]coa.Head),
		subheads:     make(map[id.ID]coa.Subhead),
		accountTypes: make(map[id.ID]coa.AccountType),
		accounts:     make(map[id.ID]coa.Account),
		mappings:     make(map[id.ID]coa.CategoryMapping),
		parties:      make(map[id.ID]coa.Party),
		vouchers:     make(map[id.ID]ledger.Voucher),
		transactions: make(map[id.ID]transaction.Transaction),
		payments:     make(map[id.ID]transaction.Payment),
		sequences:    make(map[string]int64),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		heads:        cloneMap(s.heads),
		subheads:     cloneMap(s.subheads),
		accountTypes: cloneMap(s.accountTypes),
		accounts:     cloneMap(s.accounts),
		mappings:     cloneMap(s.mappings),
		parties:      cloneMap(s.parties),
		vouchers:     cloneMap(s.vouchers),
		transactions: cloneMap(s.transactions),
		payments:     cloneMap(s.payments),
		sequences:    cloneMap(s.sequences),
		lineSeq:      s.lineSeq,
	}
}

// Store is an in-memory implementation of every repository, tx.Manager and
// numerator.Generator.
type Store struct {
	txMu sync.Mutex // one unit of work at a time
	mu   sync.RWMutex
	data *state
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// RunInTransaction implements tx.Manager. Nested calls join the outer unit of work.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	err := fn(context.WithValue(ctx, txKey{}, true))
	if err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	return err
}

// read runs fn under the read lock.
func (s *Store) read(fn func(d *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write runs fn under the write lock.
func (s *Store) write(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Chart returns the chart-of-accounts repository.
func (s *Store) Chart() coa.Repository { return &chartRepo{s} }

// Vouchers returns the voucher repository.
func (s *Store) Vouchers() ledger.Repository { return &voucherRepo{s} }

// Transactions returns the transaction repository.
func (s *Store) Transactions() transaction.Repository { return &transactionRepo{s} }

// Payments returns the payment repository.
func (s *Store) Payments() transaction.PaymentRepository { return &paymentRepo{s} }

// Reports returns the report repository.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s} }
