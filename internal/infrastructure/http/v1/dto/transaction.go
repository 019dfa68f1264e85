package dto

import (
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/transaction"
)

// TransactionLineRequest is one line of a create request.
type TransactionLineRequest struct {
	ProductID        *string `json:"productId"`
	CategoryID       *string `json:"categoryId"`
	BatchID          *string `json:"batchId"`
	ExpenseAccountID *string `json:"expenseAccountId"`
	OriginalLineID   *string `json:"originalLineId"`
	Description      string  `json:"description"`
	Quantity         string  `json:"quantity"`
	UnitPrice        string  `json:"unitPrice"`
	UnitCost         string  `json:"unitCost"`
}

// CreateTransactionRequest is the body of the sale, purchase, return and expense endpoints.
type CreateTransactionRequest struct {
	Date                  string                   `json:"date" binding:"required"`
	StoreID               string                   `json:"storeId" binding:"required"`
	UserID                string                   `json:"userId" binding:"required"`
	PartyID               *string                  `json:"partyId"`
	Lines                 []TransactionLineRequest `json:"lines" binding:"required,min=1"`
	DiscountAmount        string                   `json:"discountAmount"`
	PaidAmount            string                   `json:"paidAmount"`
	PaymentAccountID      *string                  `json:"paymentAccountId"`
	OriginalTransactionID *string                  `json:"originalTransactionId"`
	Notes                 string                   `json:"notes"`
}

// ToDomain converts the request for the given kind.
func (r *CreateTransactionRequest) ToDomain(kind transaction.Kind) (posting.CreateTransactionRequest, error) {
	var p parser
	req := posting.CreateTransactionRequest{
		Kind:                  kind,
		Date:                  p.date("date", r.Date),
		StoreID:               p.id("storeId", r.StoreID),
		UserID:                p.id("userId", r.UserID),
		PartyID:               p.optID("partyId", r.PartyID),
		DiscountAmount:        p.money("discountAmount", r.DiscountAmount),
		PaidAmount:            p.money("paidAmount", r.PaidAmount),
		PaymentAccountID:      p.optID("paymentAccountId", r.PaymentAccountID),
		OriginalTransactionID: p.optID("originalTransactionId", r.OriginalTransactionID),
		Notes:                 r.Notes,
		Lines:                 make([]posting.LineRequest, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, posting.LineRequest{
			ProductID:        p.optID("productId", l.ProductID),
			CategoryID:       p.optID("categoryId", l.CategoryID),
			BatchID:          p.optID("batchId", l.BatchID),
			ExpenseAccountID: p.optID("expenseAccountId", l.ExpenseAccountID),
			OriginalLineID:   p.optID("originalLineId", l.OriginalLineID),
			Description:      l.Description,
			Quantity:         p.money("quantity", l.Quantity),
			UnitPrice:        p.money("unitPrice", l.UnitPrice),
			UnitCost:         p.money("unitCost", l.UnitCost),
		})
	}
	return req, p.err
}

// VoidRequest converts a ReasonRequest into a transaction void.
func (r *ReasonRequest) VoidRequest(transactionID string) (posting.VoidRequest, error) {
	var p parser
	req := posting.VoidRequest{
		TransactionID: p.id("id", transactionID),
		Reason:        r.Reason,
		UserID:        p.id("userId", r.UserID),
	}
	return req, p.err
}
