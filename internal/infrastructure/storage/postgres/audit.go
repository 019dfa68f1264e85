package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/audit"
)

// CompressionAlgo specifies how a snapshot is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is one row of sys_audit. Snapshot holds {"before": ..., "after": ...};
// large snapshots are kept zstd-compressed in SnapshotCompressed instead.
type AuditRow struct {
	ID                 id.ID           `db:"id"`
	EntityType         string          `db:"entity_type"`
	EntityID           id.ID           `db:"entity_id"`
	Action             audit.Action    `db:"action"`
	UserID             id.ID           `db:"user_id"`
	Reason             string          `db:"reason"`
	Snapshot           json.RawMessage `db:"snapshot"`
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
	CreatedAt          time.Time       `db:"created_at"`
}

// AuditStore implements audit.Recorder on sys_audit.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditStore)(nil)

// NewAuditStore creates the store. Snapshots above 4KB are compressed; a voided
// sale with its vouchers and payments crosses that quickly.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditStore) Record(ctx context.Context, e audit.Entry) error {
	snapshot, err := json.Marshal(map[string]any{"before": e.Before, "after": e.After})
	if err != nil {
		return fmt.Errorf("marshal audit snapshot: %w", err)
	}

	row := AuditRow{
		ID:              id.New(),
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          e.Action,
		UserID:          e.UserID,
		Reason:          e.Reason,
		Snapshot:        snapshot,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(snapshot) > s.compressThreshold {
		row.SnapshotCompressed = s.encoder.EncodeAll(snapshot, nil)
		row.Snapshot = nil
		row.CompressionAlgo = CompressionZstd
	}

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, reason,
			snapshot, snapshot_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		row.ID, row.EntityType, row.EntityID, row.Action, row.UserID, row.Reason,
		row.Snapshot, row.SnapshotCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit %s %s: %w", e.Action, e.EntityType, err)
	}
	return nil
}

// History returns the audit trail of an entity, newest first, with snapshots decompressed.
func (s *AuditStore) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	var rows []AuditRow
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, `
		SELECT id, entity_type, entity_id, action, user_id, reason,
		       snapshot, snapshot_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	for i := range rows {
		if err := s.inflate(&rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *AuditStore) inflate(r *AuditRow) error {
	if r.CompressionAlgo != CompressionZstd || len(r.SnapshotCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(r.SnapshotCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress audit %s: %w", r.ID, err)
	}
	r.Snapshot = raw
	r.SnapshotCompressed = nil
	return nil
}
