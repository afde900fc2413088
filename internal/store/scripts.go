package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ScriptRecord is a persisted script row. Disabling a script keeps the
// row (and every note its schemas produced); only its schemas leave the
// active registry.
type ScriptRecord struct {
	ID          string
	Name        string
	Description string
	Source      string
	Position    int
	Enabled     bool
	System      bool
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// InsertScript writes a script row inside tx.
func InsertScript(ctx context.Context, tx *sql.Tx, r *ScriptRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scripts
		(id, name, description, source, position, enabled, system, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.Name, r.Description, r.Source, r.Position,
		boolInt(r.Enabled), boolInt(r.System),
		r.CreatedAt.UTC().Format(timeLayout),
		r.ModifiedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert script %s: %w", r.ID, err)
	}
	return nil
}

// UpdateScript rewrites a script row's mutable columns inside tx.
func UpdateScript(ctx context.Context, tx *sql.Tx, r *ScriptRecord) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE scripts
		SET name = ?, description = ?, source = ?, position = ?, enabled = ?, modified_at = ?
		WHERE id = ?
	`,
		r.Name, r.Description, r.Source, r.Position,
		boolInt(r.Enabled),
		r.ModifiedAt.UTC().Format(timeLayout),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update script %s: %w", r.ID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update script %s: no such row", r.ID)
	}
	return nil
}

// DeleteScript removes a script row inside tx.
func DeleteScript(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete script %s: %w", id, err)
	}
	return nil
}

// ListScripts returns all script rows: system scripts first, then user
// scripts, each group in persisted load order.
func (s *Store) ListScripts(ctx context.Context) ([]*ScriptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, source, position, enabled, system, created_at, modified_at
		FROM scripts
		ORDER BY system DESC, position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	var out []*ScriptRecord
	for rows.Next() {
		var (
			r          ScriptRecord
			enabled    int
			system     int
			createdAt  string
			modifiedAt string
		)
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description, &r.Source, &r.Position,
			&enabled, &system, &createdAt, &modifiedAt,
		); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		r.Enabled = enabled != 0
		r.System = system != 0
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("script %s: parse created_at: %w", r.ID, err)
		}
		if r.ModifiedAt, err = time.Parse(timeLayout, modifiedAt); err != nil {
			return nil, fmt.Errorf("script %s: parse modified_at: %w", r.ID, err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}

	if out == nil {
		out = []*ScriptRecord{}
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
