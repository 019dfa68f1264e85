package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReserveIDs draws n values from a BIGSERIAL sequence in ascending order, so
// rows written with COPY keep ids that follow insertion order.
func ReserveIDs(ctx context.Context, q Querier, sequence string, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `SELECT nextval($1::regclass) FROM generate_series(1, $2)`, sequence, n)
	if err != nil {
		return nil, fmt.Errorf("reserve %d ids from %s: %w", n, sequence, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("reserve %d ids from %s: %w", n, sequence, err)
	}
	return ids, nil
}

// CopyRows bulk inserts rows with the COPY protocol. It must run inside a
// transaction so a failed voucher leaves no orphan lines.
func CopyRows(ctx context.Context, txm *TxManager, table string, columns []string, rows [][]any) (int64, error) {
	t := txm.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("copy into %s requires transaction context", table)
	}
	n, err := t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return n, fmt.Errorf("copy into %s: wrote %d of %d rows", table, n, len(rows))
	}
	return n, nil
}

// ErrNoRowsAffected is returned by ExecBatch when expectOne is set and a statement matched nothing.
var ErrNoRowsAffected = errors.New("statement affected no rows")

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// ExecBatch runs queries in one round-trip. expectOne makes every statement
// that touches no row an error (used for versioned line updates).
func ExecBatch(ctx context.Context, q Querier, queries []BatchQuery, expectOne bool) error {
	if len(queries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bq := range queries {
		batch.Queue(bq.SQL, bq.Args...)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range queries {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("batch statement %d: %w", i+1, err)
		}
		if expectOne && tag.RowsAffected() == 0 {
			return fmt.Errorf("batch statement %d: %w", i+1, ErrNoRowsAffected)
		}
	}
	return nil
}
