package app

import (
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/internal/infrastructure/storage/postgres/coa_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/ledger_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/report_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/transaction_repo"
)

// PostgresStorage exposes the Postgres repositories as Storage. gen is the
// sequence backend picked by configuration.
func PostgresStorage(txm *postgres.TxManager, gen numerator.Generator) Storage {
	return Storage{
		Chart:        coa_repo.New(txm),
		Vouchers:     ledger_repo.New(txm),
		Transactions: transaction_repo.NewTransactionRepo(txm),
		Payments:     transaction_repo.NewPaymentRepo(txm),
		Reports:      report_repo.NewReportRepo(txm),
		TxManager:    txm,
		Numerator:    gen,
	}
}
