package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/op"
	"github.com/hollis-dev/loam/internal/store"
)

// mutation is one apply -> append-log -> commit unit. It stages tree
// changes on a cloned state and writes rows through an open transaction
// as it goes; commit makes both durable together and swaps the staged
// state in, rollback discards both.
type mutation struct {
	e      *Engine
	ctx    context.Context
	tx     *sql.Tx
	staged *treeState
	logged int
}

// begin opens a mutation unit against the current state.
func (e *Engine) begin(ctx context.Context) (*mutation, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &mutation{
		e:      e,
		ctx:    ctx,
		tx:     tx,
		staged: e.state.clone(),
	}, nil
}

// commit makes the unit durable and publishes the staged state.
func (m *mutation) commit() error {
	if err := m.tx.Commit(); err != nil {
		return err
	}
	m.e.state = m.staged
	return nil
}

// rollback discards the unit. Safe to call after a failed commit.
func (m *mutation) rollback() {
	if err := m.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		slog.Error("mutation rollback failed", "error", err)
	}
}

// finish is the shared tail of every public mutating call: commit on
// success, roll back and classify on failure.
func (m *mutation) finish(err error) error {
	if err != nil {
		m.rollback()
		return classify(err)
	}
	if err := m.commit(); err != nil {
		m.rollback()
		return classify(err)
	}
	return nil
}

// insertNote stages a new note at position and writes its row plus the
// displaced siblings' placements.
func (m *mutation) insertNote(n *note.Note, position int) error {
	changed := m.staged.insert(n, position)
	if err := store.InsertNote(m.ctx, m.tx, n); err != nil {
		return err
	}
	return m.syncPlacements(changed)
}

// updateNote rewrites a staged note's row after hook or field changes.
// The staged indexes are refreshed because tags or links may have moved.
func (m *mutation) updateNote(n *note.Note) error {
	m.staged.notes[n.ID] = n
	m.staged.reindexNote(n)
	return store.UpdateNote(m.ctx, m.tx, n)
}

// deleteNote removes one staged note (children already handled) and its
// row, then syncs the old siblings' numbering.
func (m *mutation) deleteNote(id string) error {
	changed := m.staged.remove(id)
	if err := store.DeleteNote(m.ctx, m.tx, id); err != nil {
		return err
	}
	return m.syncPlacements(changed)
}

// syncPlacements writes the placement columns of the given notes.
func (m *mutation) syncPlacements(ids []string) error {
	for _, id := range ids {
		if err := m.syncPlacement(id); err != nil {
			return err
		}
	}
	return nil
}

// syncPlacement writes one note's placement row.
func (m *mutation) syncPlacement(id string) error {
	n := m.staged.notes[id]
	return store.UpdateNotePlacement(m.ctx, m.tx, id, n.ParentRef(), n.Position)
}

// append writes one operation record inside the unit's transaction.
func (m *mutation) append(t op.Type, payload any) error {
	o, err := op.New(m.e.newID(), m.e.now(), m.e.deviceID, t, payload)
	if err != nil {
		return err
	}
	if err := store.AppendOperation(m.ctx, m.tx, o); err != nil {
		return err
	}
	m.logged++
	return nil
}

// queryContext returns the write-capable façade over this unit's staged
// state. Writes are read-your-writes visible within the unit.
func (m *mutation) queryContext() *queryContext {
	return &queryContext{e: m.e, m: m}
}
