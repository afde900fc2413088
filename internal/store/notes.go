package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
)

// timeLayout is the storage form for timestamps.
const timeLayout = time.RFC3339Nano

// InsertNote writes a new note row and its tags inside tx.
func InsertNote(ctx context.Context, tx *sql.Tx, n *note.Note) error {
	fieldsJSON, err := field.MarshalMap(n.Fields)
	if err != nil {
		return fmt.Errorf("insert note %s: %w", n.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes
		(id, parent_id, type_name, title, position, fields, created_at, modified_at, created_by, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID,
		nullable(n.ParentRef()),
		n.TypeName,
		n.Title,
		n.Position,
		string(fieldsJSON),
		n.CreatedAt.UTC().Format(timeLayout),
		n.ModifiedAt.UTC().Format(timeLayout),
		n.CreatedBy,
		n.ModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("insert note %s: %w", n.ID, err)
	}

	return replaceTags(ctx, tx, n.ID, n.Tags)
}

// UpdateNote rewrites a note row's mutable columns and tags inside tx.
func UpdateNote(ctx context.Context, tx *sql.Tx, n *note.Note) error {
	fieldsJSON, err := field.MarshalMap(n.Fields)
	if err != nil {
		return fmt.Errorf("update note %s: %w", n.ID, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE notes
		SET parent_id = ?, title = ?, position = ?, fields = ?, modified_at = ?, modified_by = ?
		WHERE id = ?
	`,
		nullable(n.ParentRef()),
		n.Title,
		n.Position,
		string(fieldsJSON),
		n.ModifiedAt.UTC().Format(timeLayout),
		n.ModifiedBy,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("update note %s: %w", n.ID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update note %s: no such row", n.ID)
	}

	return replaceTags(ctx, tx, n.ID, n.Tags)
}

// UpdateNotePlacement rewrites only parent and position, for sibling
// renumbering during moves and deletes.
func UpdateNotePlacement(ctx context.Context, tx *sql.Tx, id, parentID string, position int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notes SET parent_id = ?, position = ? WHERE id = ?
	`, nullable(parentID), position, id)
	if err != nil {
		return fmt.Errorf("update placement of %s: %w", id, err)
	}
	return nil
}

// DeleteNote removes a note row. Tags cascade via foreign key.
// Children must be removed or reparented first.
func DeleteNote(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("clear tags of %s: %w", id, err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO note_tags (note_id, tag) VALUES (?, ?)
			ON CONFLICT(note_id, tag) DO NOTHING
		`, id, tag); err != nil {
			return fmt.Errorf("insert tag %q of %s: %w", tag, id, err)
		}
	}
	return nil
}

// LoadNotes reads the whole tree, ordered by parent then position so
// callers can rebuild sibling order directly.
func (s *Store) LoadNotes(ctx context.Context) ([]*note.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, type_name, title, position, fields, created_at, modified_at, created_by, modified_by
		FROM notes
		ORDER BY parent_id, position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []*note.Note
	var ids []string
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	tags, err := s.loadTags(ctx)
	if err != nil {
		return nil, err
	}
	for i, n := range notes {
		n.Tags = tags[ids[i]]
	}

	if notes == nil {
		notes = []*note.Note{}
	}
	return notes, nil
}

func (s *Store) loadTags(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT note_id, tag FROM note_tags ORDER BY note_id, tag
	`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out[id] = append(out[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

func scanNote(rows *sql.Rows) (*note.Note, error) {
	var (
		n          note.Note
		parentID   sql.NullString
		fieldsJSON string
		createdAt  string
		modifiedAt string
	)
	if err := rows.Scan(
		&n.ID, &parentID, &n.TypeName, &n.Title, &n.Position,
		&fieldsJSON, &createdAt, &modifiedAt, &n.CreatedBy, &n.ModifiedBy,
	); err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}

	if parentID.Valid {
		n.ParentID = note.Ref(parentID.String)
	}

	fields, err := field.UnmarshalMap([]byte(fieldsJSON))
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", n.ID, err)
	}
	n.Fields = fields

	if n.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("note %s: parse created_at: %w", n.ID, err)
	}
	if n.ModifiedAt, err = time.Parse(timeLayout, modifiedAt); err != nil {
		return nil, fmt.Errorf("note %s: parse modified_at: %w", n.ID, err)
	}

	return &n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
