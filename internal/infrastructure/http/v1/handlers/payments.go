package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// PaymentHandler serves standalone receipts and payments.
type PaymentHandler struct {
	*BaseHandler
	engine *posting.Engine
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, engine *posting.Engine) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, engine: engine}
}

// Create handles POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	domainReq, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.CreatePayment(c.Request.Context(), domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Void handles POST /payments/:id/void
func (h *PaymentHandler) Void(c *gin.Context) {
	paymentID, ok := h.PathID(c)
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

	payment, err := h.engine.VoidPayment(c.Request.Context(), paymentID, req.Reason, userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, payment)
}
