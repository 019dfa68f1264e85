package dto

import (
	"fmt"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/ledger"
)

// VoucherLineRequest is one line of a manual journal. Exactly one of Debit
// and Credit is set.
type VoucherLineRequest struct {
	AccountID   string  `json:"accountId" binding:"required"`
	Debit       string  `json:"debit"`
	Credit      string  `json:"credit"`
	Description string  `json:"description"`
	PartyID     *string `json:"partyId"`
}

// VoucherRequest is the body of POST /vouchers.
type VoucherRequest struct {
	Date      string               `json:"date" binding:"required"`
	Narration string               `json:"narration" binding:"required"`
	StoreID   string               `json:"storeId" binding:"required"`
	UserID    string               `json:"userId" binding:"required"`
	Lines     []VoucherLineRequest `json:"lines" binding:"required,min=2"`
}

// ToDomain converts the request into a manual journal posting.
func (r *VoucherRequest) ToDomain() (ledger.PostRequest, error) {
	var p parser
	req := ledger.PostRequest{
		Source:    ledger.SourceRef{Table: ledger.SourceManual, ID: id.New()},
		Date:      p.date("date", r.Date),
		Narration: r.Narration,
		StoreID:   p.id("storeId", r.StoreID),
		UserID:    p.id("userId", r.UserID),
	}
	for i, l := range r.Lines {
		accountID := p.id("accountId", l.AccountID)
		debit := p.money("debit", l.Debit)
		credit := p.money("credit", l.Credit)
		var opts []ledger.LineOption
		if party := p.optID("partyId", l.PartyID); party != nil {
			opts = append(opts, ledger.WithParty(*party))
		}
		if p.err != nil {
			return req, p.err
		}

		switch {
		case debit.IsPositive() && credit.IsZero():
			req.Lines.Debit(accountID, debit, l.Description, opts...)
		case credit.IsPositive() && debit.IsZero():
			req.Lines.Credit(accountID, credit, l.Description, opts...)
		default:
			return req, apperror.NewInvalidInput("lines",
				fmt.Sprintf("line %d: exactly one of debit and credit must be positive", i+1))
		}
	}
	return req, p.err
}
