package posting

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/coa"
	"pharmaledger/internal/domain/events"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/domain/transaction"
	"pharmaledger/pkg/logger"
)

var tracer = otel.Tracer("pharmaledger/posting")

// Chart resolves posting accounts.
type Chart interface {
	GetAccountsByCategory(ctx context.Context, categoryID id.ID) (coa.CategoryAccounts, error)
	LinkedAccount(ctx context.Context, partyID id.ID, kind coa.PartyKind) (id.ID, error)
	GetParty(ctx context.Context, partyID id.ID) (*coa.Party, error)
	RequireKind(ctx context.Context, accountID id.ID, kinds ...coa.AccountKind) error
}

// Ledger posts and reverses vouchers.
type Ledger interface {
	PostVoucher(ctx context.Context, req ledger.PostRequest) (*ledger.Voucher, error)
	ReverseVoucher(ctx context.Context, voucherID id.ID, reason string, userID id.ID) (*ledger.Voucher, error)
}

// Deps are the collaborators of the Engine.
type Deps struct {
	Chart        Chart
	Ledger       Ledger
	Transactions transaction.Repository
	Payments     transaction.PaymentRepository
	Numerator    numerator.Generator
	TxManager    tx.Manager
	Locker       Locker
	Events       events.Publisher
	Audit        audit.Recorder
	Now          func() time.Time
}

// Engine maps business transactions onto vouchers. Every public operation is one unit of work.
type Engine struct {
	chart        Chart
	ledger       Ledger
	transactions transaction.Repository
	payments     transaction.PaymentRepository
	numerator    numerator.Generator
	txm          tx.Manager
	locker       Locker
	events       events.Publisher
	audit        audit.Recorder
	now          func() time.Time
}

// NewEngine creates the posting engine. Locker, Events, Audit and Now are optional.
func NewEngine(d Deps) *Engine {
	e := &Engine{
		chart:        d.Chart,
		ledger:       d.Ledger,
		transactions: d.Transactions,
		payments:     d.Payments,
		numerator:    d.Numerator,
		txm:          d.TxManager,
		locker:       d.Locker,
		events:       d.Events,
		audit:        d.Audit,
		now:          d.Now,
	}
	if e.locker == nil {
		e.locker = NewLocalLocker()
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	if e.audit == nil {
		e.audit = audit.Nop{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

var kindLabels = map[transaction.Kind]string{
	transaction.KindSale:           "Sale",
	transaction.KindPurchase:       "Purchase",
	transaction.KindSaleReturn:     "Sale return",
	transaction.KindPurchaseReturn: "Purchase return",
	transaction.KindExpense:        "Expense",
}

// plan is everything resolved before anything is written.
type plan struct {
	txn          *transaction.Transaction
	partyAccount id.ID
	// settle is paid through a payment voucher after the primary voucher.
	settle    types.Money
	direction transaction.Direction
	original  *transaction.Transaction
	build     func(t *transaction.Transaction) (ledger.LineSet, error)
}

// CreateSale records and posts a sale, with an optional immediate receipt.
func (e *Engine) CreateSale(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	req.Kind = transaction.KindSale
	return e.create(ctx, req)
}

// CreatePurchase records and posts a purchase, with an optional immediate payment.
func (e *Engine) CreatePurchase(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	req.Kind = transaction.KindPurchase
	return e.create(ctx, req)
}

// CreateSaleReturn records a customer return against a completed sale.
func (e *Engine) CreateSaleReturn(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	req.Kind = transaction.KindSaleReturn
	return e.create(ctx, req)
}

// CreatePurchaseReturn records a return to the supplier against a completed purchase.
func (e *Engine) CreatePurchaseReturn(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	req.Kind = transaction.KindPurchaseReturn
	return e.create(ctx, req)
}

// CreateExpense records an expense, either on supplier credit or paid directly.
func (e *Engine) CreateExpense(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	req.Kind = transaction.KindExpense
	return e.create(ctx, req)
}

// Create dispatches on req.Kind.
func (e *Engine) Create(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	return e.create(ctx, req)
}

func (e *Engine) create(ctx context.Context, req CreateTransactionRequest) (*PostingResult, error) {
	ctx, span := tracer.Start(ctx, "posting.Create")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.kind", string(req.Kind)))

	if err := req.validate(); err != nil {
		return nil, err
	}

	var result *PostingResult
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.plan(ctx, &req)
		if err != nil {
			return err
		}
		result, err = e.execute(ctx, &req, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	t := result.Transaction
	logger.Info(ctx, "transaction posted",
		"transaction_id", t.ID,
		"number", t.Number,
		"kind", t.Kind,
		"total", types.FormatMoney(t.TotalAmount),
		"paid", types.FormatMoney(t.PaidAmount),
		"voucher", result.Voucher.Number,
	)
	return result, nil
}

func (e *Engine) plan(ctx context.Context, req *CreateTransactionRequest) (*plan, error) {
	switch req.Kind {
	case transaction.KindSale, transaction.KindPurchase:
		return e.planItems(ctx, req)
	case transaction.KindSaleReturn, transaction.KindPurchaseReturn:
		return e.planReturn(ctx, req)
	case transaction.KindExpense:
		return e.planExpense(ctx, req)
	}
	return nil, apperror.NewInvalidInput("kind", fmt.Sprintf("unknown transaction kind %q", req.Kind))
}

func (e *Engine) newTransaction(req *CreateTransactionRequest) *transaction.Transaction {
	return &transaction.Transaction{
		ID:                    id.New(),
		Kind:                  req.Kind,
		Date:                  req.Date,
		StoreID:               req.StoreID,
		PartyID:               req.PartyID,
		OriginalTransactionID: req.OriginalTransactionID,
		PaidAmount:            types.Zero(),
		ReturnedAmount:        types.Zero(),
		OffsetAmount:          types.Zero(),
		DiscountAmount:        req.DiscountAmount,
		Status:                transaction.StatusDraft,
		Notes:                 req.Notes,
		CreatedBy:             req.UserID,
		CreatedAt:             e.now().UTC(),
		Version:               1,
	}
}

// categoryAccounts memoises mapping lookups within one request; the first
// category without a complete mapping aborts the request.
type categoryAccounts struct {
	chart Chart
	cache map[id.ID]coa.CategoryAccounts
}

func (c *categoryAccounts) get(ctx context.Context, categoryID id.ID) (coa.CategoryAccounts, error) {
	if acc, ok := c.cache[categoryID]; ok {
		return acc, nil
	}
	acc, err := c.chart.GetAccountsByCategory(ctx, categoryID)
	if err != nil {
		return coa.CategoryAccounts{}, err
	}
	c.cache[categoryID] = acc
	return acc, nil
}

func (e *Engine) checkPaid(ctx context.Context, req *CreateTransactionRequest, total types.Money) error {
	if req.PaidAmount.GreaterThan(total) {
		return apperror.NewValidation("paid amount exceeds the transaction total").
			WithDetail("paid", types.FormatMoney(req.PaidAmount)).
			WithDetail("total", types.FormatMoney(total))
	}
	if req.PaidAmount.IsPositive() {
		return e.chart.RequireKind(ctx, *req.PaymentAccountID, coa.KindCash, coa.KindBank)
	}
	return nil
}

func (e *Engine) planItems(ctx context.Context, req *CreateTransactionRequest) (*plan, error) {
	partyAccount, err := e.chart.LinkedAccount(ctx, *req.PartyID, req.Kind.PartyKind())
	if err != nil {
		return nil, err
	}

	cats := &categoryAccounts{chart: e.chart, cache: make(map[id.ID]coa.CategoryAccounts)}
	accounts := make([]coa.CategoryAccounts, len(req.Lines))
	grosses := make([]types.Money, len(req.Lines))
	subTotal := types.Zero()
	for i, l := range req.Lines {
		acc, err := cats.get(ctx, *l.CategoryID)
		if err != nil {
			return nil, err
		}
		accounts[i] = acc
		grosses[i] = types.RoundMoney(l.Quantity.Mul(l.UnitPrice))
		subTotal = subTotal.Add(grosses[i])
	}

	if req.DiscountAmount.GreaterThan(subTotal) {
		return nil, apperror.NewValidation("discount exceeds the subtotal").
			WithDetail("discount", types.FormatMoney(req.DiscountAmount)).
			WithDetail("subtotal", types.FormatMoney(subTotal))
	}
	total := subTotal.Sub(req.DiscountAmount)
	if err := e.checkPaid(ctx, req, total); err != nil {
		return nil, err
	}

	nets := AllocateProportional(total, grosses)

	t := e.newTransaction(req)
	t.SubTotal = subTotal
	t.TotalAmount = total

	items := make([]ItemLine, len(req.Lines))
	for i, l := range req.Lines {
		cost := types.RoundMoney(l.Quantity.Mul(l.UnitCost))
		if req.Kind == transaction.KindPurchase {
			cost = nets[i]
		}
		t.Lines = append(t.Lines, transaction.Line{
			ID:               id.New(),
			TransactionID:    t.ID,
			LineNo:           i + 1,
			ProductID:        l.ProductID,
			CategoryID:       l.CategoryID,
			BatchID:          l.BatchID,
			Description:      l.Description,
			Quantity:         types.RoundQuantity(l.Quantity),
			UnitPrice:        l.UnitPrice,
			UnitCost:         l.UnitCost,
			GrossAmount:      grosses[i],
			NetAmount:        nets[i],
			CostAmount:       cost,
			ReturnedQuantity: types.Zero(),
		})
		items[i] = ItemLine{Accounts: accounts[i], ProductID: l.ProductID, Net: nets[i], Cost: cost}
	}

	p := &plan{txn: t, partyAccount: partyAccount, settle: req.PaidAmount}
	builder := BuildSale
	p.direction = transaction.DirectionReceived
	if req.Kind == transaction.KindPurchase {
		builder = BuildPurchase
		p.direction = transaction.DirectionMade
	}
	p.build = func(t *transaction.Transaction) (ledger.LineSet, error) {
		return builder(ItemInput{
			PartyAccount: partyAccount,
			PartyID:      *t.PartyID,
			Total:        t.TotalAmount,
			Reference:    t.Number,
			Lines:        items,
		})
	}
	return p, nil
}

func (e *Engine) planReturn(ctx context.Context, req *CreateTransactionRequest) (*plan, error) {
	original, err := e.transactions.GetByIDForUpdate(ctx, *req.OriginalTransactionID)
	if err != nil {
		return nil, err
	}

	wantKind, _ := req.Kind.OriginalKind()
	if original.Kind != wantKind {
		return nil, apperror.NewValidation(fmt.Sprintf("%s can only reference a %s, got %s", req.Kind, wantKind, original.Kind)).
			WithDetail("original_transaction_id", original.ID)
	}
	if original.Status != transaction.StatusCompleted {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("%s is %s and cannot take returns", original.Number, original.Status)).
			WithDetail("original_transaction_id", original.ID)
	}
	if original.PartyID == nil {
		return nil, apperror.NewValidation(fmt.Sprintf("%s has no party", original.Number))
	}
	if req.PartyID != nil && *req.PartyID != *original.PartyID {
		return nil, apperror.NewValidation("return party differs from the original transaction's party").
			WithDetail("party_id", *req.PartyID)
	}
	if req.DiscountAmount.IsPositive() {
		return nil, apperror.NewInvalidInput("discountAmount", "returns take their value from the original lines and cannot carry a discount")
	}
	req.PartyID = original.PartyID

	partyAccount, err := e.chart.LinkedAccount(ctx, *original.PartyID, req.Kind.PartyKind())
	if err != nil {
		return nil, err
	}

	// Working copies: a line listed twice in one request is priced against what
	// the earlier entries already took.
	origLines := make(map[id.ID]*transaction.Line, len(original.Lines))
	for i := range original.Lines {
		ol := original.Lines[i]
		origLines[ol.ID] = &ol
	}

	cats := &categoryAccounts{chart: e.chart, cache: make(map[id.ID]coa.CategoryAccounts)}
	requested := make(map[id.ID]types.Quantity)
	t := e.newTransaction(req)
	t.Status = transaction.StatusApproved
	total := types.Zero()
	items := make([]ItemLine, 0, len(req.Lines))

	for i, l := range req.Lines {
		ol, ok := origLines[*l.OriginalLineID]
		if !ok {
			return nil, apperror.NewNotFound("transaction line", *l.OriginalLineID).
				WithDetail("original_transaction_id", original.ID)
		}
		qty := types.RoundQuantity(l.Quantity)
		if qty.GreaterThan(ol.RemainingQuantity()) {
			return nil, apperror.NewQuantityExceeded(ol.ID, requested[ol.ID].Add(qty).String(),
				ol.RemainingQuantity().Add(requested[ol.ID]).String())
		}
		requested[ol.ID] = requested[ol.ID].Add(qty)
		if ol.CategoryID == nil {
			return nil, apperror.NewValidation(fmt.Sprintf("original line %d has no category", ol.LineNo))
		}
		acc, err := cats.get(ctx, *ol.CategoryID)
		if err != nil {
			return nil, err
		}

		net, cost := ol.ReturnShare(qty)
		ol.AddReturn(qty, net, cost, 1)
		total = total.Add(net)

		t.Lines = append(t.Lines, transaction.Line{
			ID:               id.New(),
			TransactionID:    t.ID,
			LineNo:           i + 1,
			ProductID:        ol.ProductID,
			CategoryID:       ol.CategoryID,
			BatchID:          ol.BatchID,
			OriginalLineID:   id.Ptr(ol.ID),
			Description:      l.Description,
			Quantity:         qty,
			UnitPrice:        ol.UnitPrice,
			UnitCost:         ol.UnitCost,
			GrossAmount:      net,
			NetAmount:        net,
			CostAmount:       cost,
			ReturnedQuantity: types.Zero(),
		})
		items = append(items, ItemLine{Accounts: acc, ProductID: ol.ProductID, Net: net, Cost: cost})
	}

	t.SubTotal = total
	t.DiscountAmount = types.Zero()
	t.TotalAmount = total
	t.OffsetAmount = original.BalanceAmount
	if total.LessThan(t.OffsetAmount) {
		t.OffsetAmount = total
	}
	if err := e.checkPaid(ctx, req, total); err != nil {
		return nil, err
	}
	if due := total.Sub(t.OffsetAmount); req.PaidAmount.GreaterThan(due) {
		return nil, apperror.NewValidation("refund exceeds the amount due back after offsetting the original's balance").
			WithDetail("paid", types.FormatMoney(req.PaidAmount)).
			WithDetail("due", types.FormatMoney(due)).
			WithDetail("offset", types.FormatMoney(t.OffsetAmount))
	}

	p := &plan{txn: t, partyAccount: partyAccount, settle: req.PaidAmount, original: original}
	builder := BuildSaleReturn
	p.direction = transaction.DirectionMade
	if req.Kind == transaction.KindPurchaseReturn {
		builder = BuildPurchaseReturn
		p.direction = transaction.DirectionReceived
	}
	p.build = func(t *transaction.Transaction) (ledger.LineSet, error) {
		return builder(ItemInput{
			PartyAccount: partyAccount,
			PartyID:      *t.PartyID,
			Total:        t.TotalAmount,
			Reference:    t.Number,
			Lines:        items,
		})
	}
	return p, nil
}

func (e *Engine) planExpense(ctx context.Context, req *CreateTransactionRequest) (*plan, error) {
	grosses := make([]types.Money, len(req.Lines))
	subTotal := types.Zero()
	for i, l := range req.Lines {
		if err := e.chart.RequireKind(ctx, *l.ExpenseAccountID, coa.KindExpense); err != nil {
			return nil, err
		}
		grosses[i] = types.RoundMoney(l.Quantity.Mul(l.UnitPrice))
		subTotal = subTotal.Add(grosses[i])
	}
	if req.DiscountAmount.GreaterThan(subTotal) {
		return nil, apperror.NewValidation("discount exceeds the subtotal").
			WithDetail("discount", types.FormatMoney(req.DiscountAmount)).
			WithDetail("subtotal", types.FormatMoney(subTotal))
	}
	total := subTotal.Sub(req.DiscountAmount)
	nets := AllocateProportional(total, grosses)

	t := e.newTransaction(req)
	t.SubTotal = subTotal
	t.TotalAmount = total

	lines := make([]ExpenseLine, len(req.Lines))
	for i, l := range req.Lines {
		t.Lines = append(t.Lines, transaction.Line{
			ID:               id.New(),
			TransactionID:    t.ID,
			LineNo:           i + 1,
			ExpenseAccountID: l.ExpenseAccountID,
			Description:      l.Description,
			Quantity:         types.RoundQuantity(l.Quantity),
			UnitPrice:        l.UnitPrice,
			GrossAmount:      grosses[i],
			NetAmount:        nets[i],
			CostAmount:       types.Zero(),
			ReturnedQuantity: types.Zero(),
		})
		lines[i] = ExpenseLine{AccountID: *l.ExpenseAccountID, Net: nets[i], Description: l.Description}
	}

	p := &plan{txn: t, direction: transaction.DirectionMade}

	var credit id.ID
	if req.PartyID != nil {
		acc, err := e.chart.LinkedAccount(ctx, *req.PartyID, coa.PartySupplier)
		if err != nil {
			return nil, err
		}
		if err := e.checkPaid(ctx, req, total); err != nil {
			return nil, err
		}
		credit = acc
		p.partyAccount = acc
		p.settle = req.PaidAmount
	} else {
		if req.PaymentAccountID == nil {
			return nil, apperror.NewInvalidInput("paymentAccountId", "an expense without a supplier must name the paying account")
		}
		if req.PaidAmount.IsPositive() && !req.PaidAmount.Equal(total) {
			return nil, apperror.NewValidation("an expense without a supplier must be paid in full").
				WithDetail("paid", types.FormatMoney(req.PaidAmount)).
				WithDetail("total", types.FormatMoney(total))
		}
		if err := e.chart.RequireKind(ctx, *req.PaymentAccountID, coa.KindCash, coa.KindBank); err != nil {
			return nil, err
		}
		credit = *req.PaymentAccountID
		t.PaymentAccountID = req.PaymentAccountID
		t.PaidAmount = total
	}

	p.build = func(t *transaction.Transaction) (ledger.LineSet, error) {
		return BuildExpense(ExpenseInput{
			CreditAccount: credit,
			PartyID:       t.PartyID,
			Total:         t.TotalAmount,
			Reference:     t.Number,
			Lines:         lines,
		})
	}
	return p, nil
}

func (e *Engine) execute(ctx context.Context, req *CreateTransactionRequest, p *plan) (*PostingResult, error) {
	t := p.txn

	number, err := e.numerator.NextNumber(ctx, t.Kind.Prefix(), t.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction number: %w", err)
	}
	t.Number = number
	t.Recalculate()

	if err := e.transactions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if t.Status == transaction.StatusDraft {
		if err := t.Transition(transaction.StatusApproved); err != nil {
			return nil, err
		}
	}

	lines, err := p.build(t)
	if err != nil {
		return nil, err
	}
	v, err := e.ledger.PostVoucher(ctx, ledger.PostRequest{
		Lines:     lines,
		Source:    t.SourceRef(),
		Date:      t.Date,
		Narration: fmt.Sprintf("%s %s", kindLabels[t.Kind], t.Number),
		StoreID:   t.StoreID,
		UserID:    t.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	t.VoucherID = id.Ptr(v.ID)
	if err := t.Transition(transaction.StatusCompleted); err != nil {
		return nil, err
	}

	result := &PostingResult{Transaction: t, Voucher: v}

	if p.settle.IsPositive() {
		pay, pv, err := e.recordPayment(ctx, paymentSpec{
			Direction:    p.direction,
			PartyID:      *t.PartyID,
			PartyAccount: p.partyAccount,
			MoneyAccount: *req.PaymentAccountID,
			Amount:       p.settle,
			Date:         t.Date,
			StoreID:      t.StoreID,
			UserID:       t.CreatedBy,
			Allocations:  []AllocationRequest{{TransactionID: t.ID, Amount: p.settle}},
		})
		if err != nil {
			return nil, err
		}
		t.PaidAmount = t.PaidAmount.Add(p.settle)
		result.Payment = pay
		result.PaymentVoucher = pv
	}

	t.Recalculate()
	if err := e.transactions.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if p.original != nil {
		if err := e.applyReturn(ctx, p.original, t, 1); err != nil {
			return nil, err
		}
	}

	if err := e.events.Publish(ctx, events.Event{
		AggregateType: "transaction",
		AggregateID:   t.ID,
		EventType:     events.TransactionPosted,
		Payload:       t,
	}); err != nil {
		return nil, fmt.Errorf("publish transaction event: %w", err)
	}

	return result, nil
}

// applyReturn adds (sign 1) or removes (sign -1) a return's effect on its original.
func (e *Engine) applyReturn(ctx context.Context, original, ret *transaction.Transaction, sign int64) error {
	factor := types.MoneyFromInt(sign)

	original.ReturnedAmount = types.ClampZero(original.ReturnedAmount.Add(ret.TotalAmount.Mul(factor)))
	for _, rl := range ret.Lines {
		if rl.OriginalLineID == nil {
			continue
		}
		for i := range original.Lines {
			ol := &original.Lines[i]
			if ol.ID == *rl.OriginalLineID {
				ol.AddReturn(rl.Quantity, rl.NetAmount, rl.CostAmount, sign)
			}
		}
	}
	original.Recalculate()

	if err := e.transactions.Update(ctx, original); err != nil {
		return fmt.Errorf("update original %s: %w", original.Number, err)
	}
	return nil
}

// GetTransaction returns a transaction with its lines.
func (e *Engine) GetTransaction(ctx context.Context, transactionID id.ID) (*transaction.Transaction, error) {
	return e.transactions.GetByID(ctx, transactionID)
}

// ListPayments returns live payments allocated to a transaction.
func (e *Engine) ListPayments(ctx context.Context, transactionID id.ID) ([]transaction.Payment, error) {
	return e.payments.ListByTransaction(ctx, transactionID)
}
