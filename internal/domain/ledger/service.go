package ledger

import (
	"context"
	"fmt"
	"strings"
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
	"pharmaledger/pkg/logger"
)

var tracer = otel.Tracer("pharmaledger/ledger")

// AccountChecker verifies posting targets.
type AccountChecker interface {
	Postable(ctx context.Context, accountIDs []id.ID) (map[id.ID]*coa.Account, error)
}

// Service posts and reverses vouchers.
type Service struct {
	repo      Repository
	accounts  AccountChecker
	numerator numerator.Generator
	txm       tx.Manager
	events    events.Publisher
	audit     audit.Recorder
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithEvents sets the outbox publisher.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithAudit sets the audit recorder.
func WithAudit(r audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the ledger service.
func NewService(repo Repository, accounts AccountChecker, gen numerator.Generator, txm tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		accounts:  accounts,
		numerator: gen,
		txm:       txm,
		events:    events.Nop{},
		audit:     audit.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostVoucher validates a line set and persists it as a Posted voucher.
//
// Rejected: no lines, negative amounts, lines with both or neither side set,
// debit/credit totals more than 0.01 apart, unknown or inactive accounts.
func (s *Service) PostVoucher(ctx context.Context, req PostRequest) (*Voucher, error) {
	ctx, span := tracer.Start(ctx, "ledger.PostVoucher")
	defer span.End()

	if err := req.Lines.Validate(); err != nil {
		return nil, err
	}
	if !req.Source.Table.Valid() {
		return nil, apperror.NewInvalidInput("source", fmt.Sprintf("unknown source table %q", req.Source.Table))
	}
	if req.Date.IsZero() {
		return nil, apperror.NewInvalidInput("date", "voucher date is required")
	}
	prefix := req.Prefix
	if prefix == "" {
		prefix = numerator.PrefixJournal
	}

	var posted *Voucher
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.Postable(ctx, req.Lines.AccountIDs()); err != nil {
			return err
		}

		number, err := s.numerator.NextNumber(ctx, prefix, req.Date)
		if err != nil {
			return fmt.Errorf("voucher number: %w", err)
		}

		v := s.newVoucher(number, req.Date, req.Narration, req.Source, req.StoreID, req.UserID, req.Lines)
		if err := s.repo.Create(ctx, v); err != nil {
			return fmt.Errorf("create voucher: %w", err)
		}

		if err := s.events.Publish(ctx, events.Event{
			AggregateType: "voucher",
			AggregateID:   v.ID,
			EventType:     events.VoucherPosted,
			Payload:       v,
		}); err != nil {
			return fmt.Errorf("publish voucher event: %w", err)
		}

		posted = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	debit, _ := posted.Totals()
	span.SetAttributes(attribute.String("voucher.number", posted.Number))
	logger.Info(ctx, "voucher posted",
		"voucher_id", posted.ID,
		"number", posted.Number,
		"source", posted.Source.String(),
		"lines", len(posted.Lines),
		"amount", types.FormatMoney(debit),
	)
	return posted, nil
}

func (s *Service) newVoucher(number string, date time.Time, narration string, src SourceRef, storeID, userID id.ID, set LineSet) *Voucher {
	v := &Voucher{
		ID:        id.New(),
		Number:    number,
		Date:      date,
		Status:    StatusPosted,
		Narration: narration,
		Source:    src,
		StoreID:   storeID,
		CreatedBy: userID,
		CreatedAt: s.now().UTC(),
		Lines:     make([]Line, len(set.Lines)),
	}
	for i, l := range set.Lines {
		l.ID = 0
		l.VoucherID = v.ID
		l.LineNo = i + 1
		v.Lines[i] = l
	}
	return v
}

// ReverseVoucher creates the mirror image of a posted voucher and links the pair.
//
// The reversal is numbered with the REV prefix, dated today (or the original's date
// when that is later) and narrated "Reversal of {number}: {reason}". A voucher can be
// reversed once; a reversal voucher cannot be reversed at all.
func (s *Service) ReverseVoucher(ctx context.Context, voucherID id.ID, reason string, userID id.ID) (*Voucher, error) {
	ctx, span := tracer.Start(ctx, "ledger.ReverseVoucher")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewInvalidInput("reason", "reversal reason is required")
	}

	var reversal *Voucher
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		original, err := s.repo.GetByIDForUpdate(ctx, voucherID)
		if err != nil {
			return err
		}
		if original.IsReversed {
			e := apperror.NewAlreadyReversed(original.ID, original.Number)
			if original.ReversedByVoucherID != nil {
				e.WithDetail("reversed_by", *original.ReversedByVoucherID)
			}
			return e
		}
		if original.IsReversal() {
			return apperror.NewAlreadyReversed(original.ID, original.Number).
				WithDetail("reverses", *original.ReversesVoucherID)
		}

		now := s.now().UTC()
		date := now
		if original.Date.After(date) {
			date = original.Date
		}

		number, err := s.numerator.NextNumber(ctx, numerator.PrefixReversal, date)
		if err != nil {
			return fmt.Errorf("reversal number: %w", err)
		}

		narration := fmt.Sprintf("Reversal of %s: %s", original.Number, reason)
		swapped := LineSet{Lines: original.Lines}.Swapped()
		if err := swapped.Validate(); err != nil {
			return fmt.Errorf("reversal of %s: %w", original.Number, err)
		}

		rev := s.newVoucher(number, date, narration, original.Source, original.StoreID, userID, swapped)
		rev.ReversesVoucherID = id.Ptr(original.ID)
		if err := s.repo.Create(ctx, rev); err != nil {
			return fmt.Errorf("create reversal: %w", err)
		}

		if err := s.repo.MarkReversed(ctx, original.ID, rev.ID, reason, now); err != nil {
			return err
		}

		before := *original
		original.IsReversed = true
		original.Status = StatusReversed
		original.ReversedByVoucherID = id.Ptr(rev.ID)
		original.ReversalReason = reason
		original.ReversedAt = &now

		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: "voucher",
			EntityID:   original.ID,
			Action:     audit.ActionReverse,
			UserID:     userID,
			Reason:     reason,
			Before:     before,
			After:      original,
		}); err != nil {
			return fmt.Errorf("audit reversal: %w", err)
		}

		if err := s.events.Publish(ctx, events.Event{
			AggregateType: "voucher",
			AggregateID:   original.ID,
			EventType:     events.VoucherReversed,
			Payload: map[string]any{
				"voucherId":  original.ID,
				"number":     original.Number,
				"reversalId": rev.ID,
				"reversal":   rev.Number,
				"reason":     reason,
			},
		}); err != nil {
			return fmt.Errorf("publish reversal event: %w", err)
		}

		reversal = rev
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "voucher reversed",
		"voucher_id", voucherID,
		"reversal_id", reversal.ID,
		"reversal_number", reversal.Number,
		"reason", reason,
	)
	return reversal, nil
}

// GetVoucher returns a voucher with its lines.
func (s *Service) GetVoucher(ctx context.Context, voucherID id.ID) (*Voucher, error) {
	return s.repo.GetByID(ctx, voucherID)
}

// ListBySource returns the vouchers of a business record.
func (s *Service) ListBySource(ctx context.Context, ref SourceRef) ([]Voucher, error) {
	return s.repo.ListBySource(ctx, ref)
}
