// Package ledger_repo is the PostgreSQL implementation of ledger.Repository.
// Voucher lines are insert-only; a trigger in the schema rejects updates and deletes.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/ledger"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	tableVouchers = "vouchers"
	tableLines    = "voucher_lines"
	lineSequence  = "voucher_lines_id_seq"
)

var (
	voucherCols = append(postgres.ExtractDBColumns[ledger.Voucher](), "source_table", "source_id")
	lineCols    = postgres.ExtractDBColumns[ledger.Line]()
)

// voucherRow flattens the source reference into columns.
type voucherRow struct {
	ledger.Voucher
	SourceTable ledger.SourceTable `db:"source_table"`
	SourceID    id.ID              `db:"source_id"`
}

func (r voucherRow) voucher() ledger.Voucher {
	v := r.Voucher
	v.Source = ledger.SourceRef{Table: r.SourceTable, ID: r.SourceID}
	return v
}

// Repo implements ledger.Repository.
type Repo struct {
	txm *postgres.TxManager
}

var _ ledger.Repository = (*Repo)(nil)

// New creates the repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Create inserts the header, reserves line ids in order and copies the lines in.
func (r *Repo) Create(ctx context.Context, v *ledger.Voucher) error {
	q := r.txm.GetQuerier(ctx)

	header := postgres.ColumnMap(v, voucherCols)
	header["source_table"] = v.Source.Table
	header["source_id"] = v.Source.ID

	sql, args, err := postgres.Builder.Insert(tableVouchers).SetMap(header).ToSql()
	if err != nil {
		return fmt.Errorf("build insert voucher: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "vouchers_single_reversal") {
			return apperror.NewConcurrentModification("voucher", v.ReversesVoucherID).WithCause(err)
		}
		if postgres.IsUniqueViolation(err, "vouchers_number_key") {
			return fmt.Errorf("voucher number %s already used: %w", v.Number, err)
		}
		return fmt.Errorf("insert voucher %s: %w", v.Number, err)
	}

	ids, err := postgres.ReserveIDs(ctx, q, lineSequence, len(v.Lines))
	if err != nil {
		return err
	}
	rows := make([][]any, len(v.Lines))
	for i := range v.Lines {
		l := &v.Lines[i]
		l.ID = ids[i]
		l.VoucherID = v.ID
		rows[i] = lineValues(l)
	}

	if r.txm.GetTx(ctx) != nil {
		_, err = postgres.CopyRows(ctx, r.txm, tableLines, lineCols, rows)
		return err
	}

	ins := postgres.Builder.Insert(tableLines).Columns(lineCols...)
	for _, row := range rows {
		ins = ins.Values(row...)
	}
	if sql, args, err = ins.ToSql(); err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines of %s: %w", v.Number, err)
	}
	return nil
}

// lineValues orders a line's fields like lineCols.
func lineValues(l *ledger.Line) []any {
	m := postgres.StructToMap(l)
	out := make([]any, len(lineCols))
	for i, c := range lineCols {
		out[i] = m[c]
	}
	return out
}

func (r *Repo) GetByID(ctx context.Context, voucherID id.ID) (*ledger.Voucher, error) {
	return r.get(ctx, voucherID, false)
}

func (r *Repo) GetByIDForUpdate(ctx context.Context, voucherID id.ID) (*ledger.Voucher, error) {
	return r.get(ctx, voucherID, true)
}

func (r *Repo) get(ctx context.Context, voucherID id.ID, lock bool) (*ledger.Voucher, error) {
	b := postgres.Builder.Select(voucherCols...).From(tableVouchers).Where(squirrel.Eq{"id": voucherID})
	if lock {
		b = b.Suffix("FOR UPDATE")
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select voucher: %w", err)
	}

	var row voucherRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		return nil, postgres.MapError("get voucher", "voucher", voucherID, err)
	}
	out := []ledger.Voucher{row.voucher()}
	if err := r.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *Repo) loadLines(ctx context.Context, vs []ledger.Voucher) error {
	if len(vs) == 0 {
		return nil
	}
	ids := make([]id.ID, len(vs))
	index := make(map[id.ID]int, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
		index[v.ID] = i
	}

	sql, args, err := postgres.Builder.Select(lineCols...).From(tableLines).
		Where(squirrel.Eq{"voucher_id": ids}).
		OrderBy("id").ToSql()
	if err != nil {
		return fmt.Errorf("build select lines: %w", err)
	}
	var lines []ledger.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return fmt.Errorf("select voucher lines: %w", err)
	}
	for _, l := range lines {
		i := index[l.VoucherID]
		vs[i].Lines = append(vs[i].Lines, l)
	}
	return nil
}

func (r *Repo) MarkReversed(ctx context.Context, originalID, reversalID id.ID, reason string, at time.Time) error {
	sql, args, err := postgres.Builder.Update(tableVouchers).
		SetMap(map[string]any{
			"is_reversed":            true,
			"status":                 ledger.StatusReversed,
			"reversed_by_voucher_id": reversalID,
			"reversal_reason":        reason,
			"reversed_at":            at,
		}).
		Where(squirrel.Eq{"id": originalID, "is_reversed": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark reversed: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark voucher %s reversed: %w", originalID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("voucher", originalID)
	}
	return nil
}

func (r *Repo) ListBySource(ctx context.Context, ref ledger.SourceRef) ([]ledger.Voucher, error) {
	sql, args, err := postgres.Builder.Select(voucherCols...).From(tableVouchers).
		Where(squirrel.Eq{"source_table": ref.Table, "source_id": ref.ID}).
		OrderBy("created_at", "number").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list vouchers: %w", err)
	}

	var rows []voucherRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list vouchers of %s: %w", ref, err)
	}
	out := make([]ledger.Voucher, len(rows))
	for i, row := range rows {
		out[i] = row.voucher()
	}
	if err := r.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}
