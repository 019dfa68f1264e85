package handlers

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/internal/infrastructure/http/v1/dto"
)

// TransactionHandler serves the business transaction endpoints.
type TransactionHandler struct {
	*BaseHandler
	engine *posting.Engine
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(base *BaseHandler, engine *posting.Engine) *TransactionHandler {
	return &TransactionHandler{BaseHandler: base, engine: engine}
}

// Create returns the handler posting one transaction kind.
// POST /sales, /purchases, /sale-returns, /purchase-returns, /expenses
func (h *TransactionHandler) Create(kind transaction.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CreateTransactionRequest
		if !h.BindJSON(c, &req) {
			return
		}
		domainReq, err := req.ToDomain(kind)
		if err != nil {
			h.Error(c, err)
			return
		}

		result, err := h.engine.Create(c.Request.Context(), domainReq)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.Created(c, result)
	}
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	transactionID, ok := h.PathID(c)
	if !ok {
		return
	}
	t, err := h.engine.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// Payments handles GET /transactions/:id/payments
func (h *TransactionHandler) Payments(c *gin.Context) {
	transactionID, ok := h.PathID(c)
	if !ok {
		return
	}
	payments, err := h.engine.ListPayments(c.Request.Context(), transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(payments))
}

// Void handles POST /transactions/:id/void
func (h *TransactionHandler) Void(c *gin.Context) {
	var req dto.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	voidReq, err := req.VoidRequest(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.VoidTransaction(c.Request.Context(), voidReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
