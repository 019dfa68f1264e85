package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// VoucherHandler serves manual journals, voucher lookup and reversal.
type VoucherHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewVoucherHandler creates a new voucher handler.
func NewVoucherHandler(base *BaseHandler, service *ledger.Service) *VoucherHandler {
	return &VoucherHandler{BaseHandler: base, ledger: service}
}

// Post handles POST /vouchers
func (h *VoucherHandler) Post(c *gin.Context) {
	var req dto.VoucherRequest
	if !h.BindJSON(c, &req) {
		return
	}
	postReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	v, err := h.ledger.PostVoucher(c.Request.Context(), postReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, v)
}

// Get handles GET /vouchers/:id
func (h *VoucherHandler) Get(c *gin.Context) {
	voucherID, ok := h.PathID(c)
	if !ok {
		return
	}
	v, err := h.ledger.GetVoucher(c.Request.Context(), voucherID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// List handles GET /vouchers?sourceTable=sale&sourceId=...
func (h *VoucherHandler) List(c *gin.Context) {
	var q dto.VoucherListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	sourceID, err := dto.ParseID("sourceId", q.SourceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	vouchers, err := h.ledger.ListBySource(c.Request.Context(), ledger.SourceRef{
		Table: ledger.SourceTable(q.SourceTable),
		ID:    sourceID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(vouchers))
}

// Reverse handles POST /vouchers/:id/reverse
func (h *VoucherHandler) Reverse(c *gin.Context) {
	voucherID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	userID, err := dto.ParseID("userId", req.UserID)
	if err != nil {
		h.Error(c, err)
		return
	}

	reversal, err := h.ledger.ReverseVoucher(c.Request.Context(), voucherID, req.Reason, userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, reversal)
}
