// Package document ties the store, the script host, and the engine into
// one handle. A document is a single file; the handle serialises all
// calls with one mutex, so exactly one operation is in flight per
// document. Handles of different documents share nothing.
package document

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hollis-dev/loam/internal/engine"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/op"
	"github.com/hollis-dev/loam/internal/schema"
	"github.com/hollis-dev/loam/internal/script"
	"github.com/hollis-dev/loam/internal/store"
)

// Document is an open loam file.
type Document struct {
	mu sync.Mutex

	store    *store.Store
	engine   *engine.Engine
	registry *schema.Registry
	deviceID string

	now   func() time.Time
	newID func() string

	// scriptErrs holds the diagnostics from the most recent script load.
	scriptErrs []schema.ScriptError
}

// Option configures a Document.
type Option func(*Document)

// WithClock overrides the wall clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(d *Document) {
		d.now = now
	}
}

// WithIDGenerator overrides id generation for deterministic tests.
func WithIDGenerator(newID func() string) Option {
	return func(d *Document) {
		d.newID = newID
	}
}

// Create makes a new document at path and installs the built-in starter
// scripts. Creating over an existing document is allowed and behaves
// like Open: built-ins are only installed into an empty script table.
func Create(ctx context.Context, path, deviceID string, opts ...Option) (*Document, error) {
	d, err := open(ctx, path, deviceID, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.installBuiltins(ctx); err != nil {
		d.store.Close()
		return nil, err
	}
	if err := d.start(ctx); err != nil {
		d.store.Close()
		return nil, err
	}
	return d, nil
}

// Open opens an existing document. Built-in scripts are never
// (re)installed here; a document's scripts belong to the document.
func Open(ctx context.Context, path, deviceID string, opts ...Option) (*Document, error) {
	d, err := open(ctx, path, deviceID, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.start(ctx); err != nil {
		d.store.Close()
		return nil, err
	}
	return d, nil
}

func open(ctx context.Context, path, deviceID string, opts ...Option) (*Document, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	d := &Document{
		store:    s,
		deviceID: deviceID,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// start loads the scripts and brings up the engine.
func (d *Document) start(ctx context.Context) error {
	if err := d.reload(ctx); err != nil {
		return err
	}
	e, err := engine.New(ctx, d.store, d.registry, d.deviceID,
		engine.WithClock(d.now), engine.WithIDGenerator(d.newID))
	if err != nil {
		return err
	}
	d.engine = e
	return nil
}

// installBuiltins seeds an empty script table with the embedded starter
// scripts as ordinary system records.
func (d *Document) installBuiltins(ctx context.Context) error {
	existing, err := d.store.ListScripts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for i, src := range script.Builtins() {
		meta := script.ParseMeta(src.Text)
		rec := &store.ScriptRecord{
			ID:          d.newID(),
			Name:        src.Name,
			Description: meta.Description,
			Source:      src.Text,
			Position:    i,
			Enabled:     true,
			System:      true,
			CreatedAt:   d.now(),
			ModifiedAt:  d.now(),
		}
		if err := d.writeScript(ctx, rec, op.TypeCreateUserScript, store.InsertScript); err != nil {
			return err
		}
	}
	slog.Info("built-in scripts installed", "count", len(script.Builtins()))
	return nil
}

// reload rebuilds the registry from the enabled script rows and records
// the per-script diagnostics. Callers hold the mutex (or are still
// single-threaded in construction).
func (d *Document) reload(ctx context.Context) error {
	records, err := d.store.ListScripts(ctx)
	if err != nil {
		return err
	}

	var sources []script.Source
	for _, rec := range records {
		if !rec.Enabled {
			continue
		}
		sources = append(sources, script.Source{Name: rec.Name, Text: rec.Source})
	}

	reg, errs := script.Load(sources)
	d.registry = reg
	d.scriptErrs = errs
	if d.engine != nil {
		d.engine.SetHost(reg)
	}
	for _, e := range errs {
		slog.Warn("script failed to load", "script", e.ScriptName, "error", e.Message)
	}
	return nil
}

// Close releases the underlying database.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Close()
}

// ScriptErrors returns the diagnostics collected by the most recent
// script load.
func (d *Document) ScriptErrors() []schema.ScriptError {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]schema.ScriptError(nil), d.scriptErrs...)
}

// Types returns the active note type names.
func (d *Document) Types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Types()
}

// Schema returns the active schema for a type name.
func (d *Document) Schema(typeName string) (*schema.Schema, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Lookup(typeName)
}

// ActionLabels returns the active mapping of type name to tree-action
// labels.
func (d *Document) ActionLabels() map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.ActionLabels()
}

// =============================================================================
// Note operations (engine pass-throughs under the document mutex)
// =============================================================================

func (d *Document) CreateNote(ctx context.Context, parentID, typeName string) (*note.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.CreateNote(ctx, parentID, typeName)
}

func (d *Document) UpdateNote(ctx context.Context, n *note.Note) (*note.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.UpdateNote(ctx, n)
}

func (d *Document) MoveNote(ctx context.Context, id, newParentID string, newPosition int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.MoveNote(ctx, id, newParentID, newPosition)
}

func (d *Document) DeleteNote(ctx context.Context, id string, strategy engine.DeleteStrategy) (engine.DeleteResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.DeleteNote(ctx, id, strategy)
}

func (d *Document) DeepCopyNote(ctx context.Context, sourceID, targetID string, placement engine.CopyPlacement) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.DeepCopyNote(ctx, sourceID, targetID, placement)
}

func (d *Document) InvokeTreeAction(ctx context.Context, id, label string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.InvokeTreeAction(ctx, id, label)
}

func (d *Document) GetNote(id string) (*note.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.GetNote(id)
}

func (d *Document) GetChildren(id string) ([]*note.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.GetChildren(id)
}

func (d *Document) GetNotesForTag(tags ...string) []*note.Note {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.GetNotesForTag(tags...)
}

func (d *Document) GetNotesWithLink(id string) []*note.Note {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.GetNotesWithLink(id)
}

func (d *Document) RenderView(id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.RenderView(id)
}

func (d *Document) RenderHover(id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.RenderHover(id)
}

func (d *Document) TreeActions(id string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.TreeActions(id)
}

// =============================================================================
// Operation log
// =============================================================================

func (d *Document) Operations(ctx context.Context) ([]op.Operation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.ListOperations(ctx)
}

func (d *Document) CountOperations(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.CountOperations(ctx)
}

// Purge removes old operation records per the given strategy and
// returns the number deleted.
func (d *Document) Purge(ctx context.Context, strategy op.PurgeStrategy) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.PurgeOperations(ctx, strategy)
}

// writeScript persists one script row plus its log record in a single
// transaction.
func (d *Document) writeScript(ctx context.Context, rec *store.ScriptRecord, t op.Type, apply func(context.Context, *sql.Tx, *store.ScriptRecord) error) error {
	tx, err := d.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := apply(ctx, tx, rec); err != nil {
		tx.Rollback()
		return err
	}
	o, err := op.New(d.newID(), d.now(), d.deviceID, t, op.ScriptPayload{ScriptID: rec.ID, Name: rec.Name})
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := store.AppendOperation(ctx, tx, o); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit script change: %w", err)
	}
	return nil
}
