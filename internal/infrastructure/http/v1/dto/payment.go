package dto

import (
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/domain/transaction"
)

// AllocationRequest assigns part of a payment to one transaction.
type AllocationRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
}

// PaymentRequest is the body of POST /payments.
type PaymentRequest struct {
	Direction   string              `json:"direction" binding:"required,oneof=received made"`
	PartyID     string              `json:"partyId" binding:"required"`
	AccountID   string              `json:"accountId" binding:"required"`
	Amount      string              `json:"amount" binding:"required"`
	Date        string              `json:"date" binding:"required"`
	StoreID     string              `json:"storeId" binding:"required"`
	UserID      string              `json:"userId" binding:"required"`
	Allocations []AllocationRequest `json:"allocations"`
}

// ToDomain converts the request.
func (r *PaymentRequest) ToDomain() (posting.PaymentRequest, error) {
	var p parser
	req := posting.PaymentRequest{
		Direction: transaction.Direction(r.Direction),
		PartyID:   p.id("partyId", r.PartyID),
		AccountID: p.id("accountId", r.AccountID),
		Amount:    p.money("amount", r.Amount),
		Date:      p.date("date", r.Date),
		StoreID:   p.id("storeId", r.StoreID),
		UserID:    p.id("userId", r.UserID),
	}
	for _, a := range r.Allocations {
		req.Allocations = append(req.Allocations, posting.AllocationRequest{
			TransactionID: p.id("transactionId", a.TransactionID),
			Amount:        p.money("amount", a.Amount),
		})
	}
	return req, p.err
}
