// Package app assembles the ledger services over a storage backend.
package app

import (
	"context"
	"fmt"
	"time"

	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/infrastructure/storage/memory"
	"pharmaledger/internal/seed"
)

// Storage is everything the services persist through.
type Storage struct {
	Chart        coa.Repository
	Vouchers     ledger.Repository
	Transactions transaction.Repository
	Payments     transaction.PaymentRepository
	Reports      reports.Repository
	TxManager    tx.Manager
	Numerator    numerator.Generator
}

// Options are optional collaborators.
type Options struct {
	Locker posting.Locker
	Events events.Publisher
	Audit  audit.Recorder
	Now    func() time.Time
}

// Services is the assembled ledger.
type Services struct {
	Chart     *coa.Service
	Ledger    *ledger.Service
	Posting   *posting.Engine
	Reports   *reports.Service
	TxManager tx.Manager
}

// New wires the services.
func New(st Storage, opts Options) *Services {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	chart := coa.NewService(st.Chart)
	ledgerSvc := ledger.NewService(st.Vouchers, chart, st.Numerator, st.TxManager,
		ledger.WithEvents(opts.Events),
		ledger.WithAudit(opts.Audit),
		ledger.WithClock(opts.Now),
	)
	engine := posting.NewEngine(posting.Deps{
		Chart:        chart,
		Ledger:       ledgerSvc,
		Transactions: st.Transactions,
		Payments:     st.Payments,
		Numerator:    st.Numerator,
		TxManager:    st.TxManager,
		Locker:       opts.Locker,
		Events:       opts.Events,
		Audit:        opts.Audit,
		Now:          opts.Now,
	})

	return &Services{
		Chart:     chart,
		Ledger:    ledgerSvc,
		Posting:   engine,
		Reports:   reports.NewService(st.Reports, chart, st.Transactions),
		TxManager: st.TxManager,
	}
}

// NewMemory wires the services over a fresh in-memory store.
func NewMemory(opts Options) (*Services, *memory.Store) {
	store := memory.New()
	return New(MemoryStorage(store), opts), store
}

// MemoryStorage exposes a memory store as Storage.
func MemoryStorage(store *memory.Store) Storage {
	return Storage{
		Chart:        store.Chart(),
		Vouchers:     store.Vouchers(),
		Transactions: store.Transactions(),
		Payments:     store.Payments(),
		Reports:      store.Reports(),
		TxManager:    store,
		Numerator:    store,
	}
}

// Demo returns in-memory services seeded with the default pharmacy chart.
func Demo(ctx context.Context, opts Options) (*Services, *seed.Result, error) {
	svc, _ := NewMemory(opts)
	chart, err := seed.Default()
	if err != nil {
		return nil, nil, err
	}
	res, err := seed.Apply(ctx, svc.TxManager, svc.Chart, chart)
	if err != nil {
		return nil, nil, fmt.Errorf("seed chart: %w", err)
	}
	return svc, res, nil
}
