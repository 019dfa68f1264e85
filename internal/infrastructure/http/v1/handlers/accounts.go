package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// AccountHandler serves the chart of accounts and per-account queries.
type AccountHandler struct {
	*BaseHandler
	chart   *coa.Service
	reports *reports.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, chart *coa.Service, reportService *reports.Service) *AccountHandler {
	return &AccountHandler{BaseHandler: base, chart: chart, reports: reportService}
}

// List handles GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.chart.ListAccounts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(accounts))
}

// Balance handles GET /accounts/:id/balance?asOf=YYYY-MM-DD
func (h *AccountHandler) Balance(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}
	var q dto.BalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf, err := dto.ParseOptionalDate("asOf", q.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.reports.AccountBalance(c.Request.Context(), accountID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, balance)
}

// Ledger handles GET /accounts/:id/ledger?from=...&to=...
func (h *AccountHandler) Ledger(c *gin.Context) {
	accountID, ok := h.PathID(c)
	if !ok {
		return
	}
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, err := dto.ParseDate(q.From)
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("from", err.Error()))
		return
	}
	to, err := dto.ParseDate(q.To)
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("to", err.Error()))
		return
	}

	gl, err := h.reports.GeneralLedger(c.Request.Context(), accountID, from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gl)
}
