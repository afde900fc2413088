package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hollis-dev/loam/internal/op"
)

// AppendOperation writes one log record inside tx. The caller appends
// inside the same transaction as the mutation it describes, so commit
// makes both durable or neither.
func AppendOperation(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operations
		(operation_id, timestamp, device_id, operation_type, payload, synced)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		o.OperationID,
		o.Timestamp.UTC().Format(timeLayout),
		o.DeviceID,
		string(o.Type),
		string(o.Payload),
		boolInt(o.Synced),
	)
	if err != nil {
		return fmt.Errorf("append operation %s: %w", o.OperationID, err)
	}
	return nil
}

// ListOperations returns the whole log ordered by timestamp, then
// insertion order for same-timestamp records.
func (s *Store) ListOperations(ctx context.Context) ([]op.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation_id, timestamp, device_id, operation_type, payload, synced
		FROM operations
		ORDER BY timestamp ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var out []op.Operation
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}

	if out == nil {
		out = []op.Operation{}
	}
	return out, nil
}

// CountOperations returns the number of log records.
func (s *Store) CountOperations(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}

// PurgeOperations applies a retention strategy and returns the number of
// deleted records.
//
//   - op.LocalOnly keeps the KeepLast most recent records by timestamp
//     (insertion order breaks ties) and deletes the rest.
//   - op.WithSync deletes synced records older than RetentionDays and
//     keeps unsynced records indefinitely.
func (s *Store) PurgeOperations(ctx context.Context, strategy op.PurgeStrategy) (int, error) {
	switch st := strategy.(type) {
	case op.LocalOnly:
		keep := st.KeepLast
		if keep <= 0 {
			keep = op.DefaultKeepLast
		}
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM operations WHERE seq NOT IN (
				SELECT seq FROM operations
				ORDER BY timestamp DESC, seq DESC
				LIMIT ?
			)
		`, keep)
		if err != nil {
			return 0, fmt.Errorf("purge local-only: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("purge local-only: rows affected: %w", err)
		}
		return int(deleted), nil

	case op.WithSync:
		cutoff := time.Now().UTC().AddDate(0, 0, -st.RetentionDays).Format(timeLayout)
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM operations WHERE synced = 1 AND timestamp < ?
		`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("purge with-sync: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("purge with-sync: rows affected: %w", err)
		}
		return int(deleted), nil

	default:
		return 0, fmt.Errorf("unknown purge strategy %T", strategy)
	}
}

func scanOperation(rows *sql.Rows) (op.Operation, error) {
	var (
		o       op.Operation
		ts      string
		payload string
		synced  int
		typ     string
	)
	if err := rows.Scan(&o.OperationID, &ts, &o.DeviceID, &typ, &payload, &synced); err != nil {
		return op.Operation{}, fmt.Errorf("scan operation: %w", err)
	}
	var err error
	if o.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return op.Operation{}, fmt.Errorf("operation %s: parse timestamp: %w", o.OperationID, err)
	}
	o.Type = op.Type(typ)
	o.Payload = []byte(payload)
	o.Synced = synced != 0
	return o, nil
}
