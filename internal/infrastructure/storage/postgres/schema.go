package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"pharmaledger/pkg/logger"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string { return schema }

// Migrate applies the schema. Every statement is idempotent, so running it on
// an up-to-date database is a no-op.
func Migrate(ctx context.Context, pool *Pool) error {
	// Simple protocol: the file holds several statements and a plpgsql body.
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().PgConn().Exec(ctx, schema).ReadAll(); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "schema applied")
	return nil
}
