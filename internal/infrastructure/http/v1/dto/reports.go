package dto

// BalanceQuery is the query of GET /accounts/:id/balance.
type BalanceQuery struct {
	AsOf string `form:"asOf"`
}

// LedgerQuery is the query of GET /accounts/:id/ledger.
type LedgerQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// TrialBalanceQuery is the query of GET /reports/trial-balance.
type TrialBalanceQuery struct {
	AsOf string `form:"asOf"`
}

// AgingQuery is the query of GET /reports/aging.
type AgingQuery struct {
	Kind    string `form:"kind" binding:"required,oneof=receivable payable"`
	AsOf    string `form:"asOf"`
	PartyID string `form:"partyId"`
}

// VoucherListQuery is the query of GET /vouchers.
type VoucherListQuery struct {
	SourceTable string `form:"sourceTable" binding:"required"`
	SourceID    string `form:"sourceId" binding:"required"`
}
