package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/reports"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
	now     func() time.Time
}

// NewReportsHandler creates a new reports handler. asOf defaults to now().
func NewReportsHandler(base *BaseHandler, service *reports.Service, now func() time.Time) *ReportsHandler {
	if now == nil {
		now = time.Now
	}
	return &ReportsHandler{BaseHandler: base, service: service, now: now}
}

func (h *ReportsHandler) asOf(s string) (time.Time, error) {
	t, err := dto.ParseOptionalDate("asOf", s)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return h.now().UTC(), nil
	}
	return *t, nil
}

// TrialBalance handles GET /reports/trial-balance?asOf=YYYY-MM-DD
func (h *ReportsHandler) TrialBalance(c *gin.Context) {
	var q dto.TrialBalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf, err := h.asOf(q.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	tb, err := h.service.TrialBalance(c.Request.Context(), asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tb)
}

// Aging handles GET /reports/aging?kind=receivable&asOf=...&partyId=...
func (h *ReportsHandler) Aging(c *gin.Context) {
	var q dto.AgingQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf, err := h.asOf(q.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	req := reports.AgingRequest{Kind: reports.AgingKind(q.Kind), AsOf: asOf}
	if q.PartyID != "" {
		partyID, err := dto.ParseID("partyId", q.PartyID)
		if err != nil {
			h.Error(c, err)
			return
		}
		req.PartyID = id.Ptr(partyID)
	}

	aging, err := h.service.Aging(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, aging)
}
