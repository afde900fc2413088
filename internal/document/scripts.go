package document

import (
	"context"
	"fmt"

	"github.com/hollis-dev/loam/internal/op"
	"github.com/hollis-dev/loam/internal/schema"
	"github.com/hollis-dev/loam/internal/script"
	"github.com/hollis-dev/loam/internal/store"
)

// Scripts returns the script records, system scripts first, then by
// position.
func (d *Document) Scripts(ctx context.Context) ([]*store.ScriptRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.ListScripts(ctx)
}

// CreateScript adds a user script and rebuilds the registry. The name
// comes from the source's front-matter when present, the given name
// otherwise. Returns the new record plus the load diagnostics for the
// whole script set.
func (d *Document) CreateScript(ctx context.Context, name, source string) (*store.ScriptRecord, []schema.ScriptError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	meta := script.ParseMeta(source)
	if meta.Name != "" {
		name = meta.Name
	}
	if name == "" {
		return nil, nil, fmt.Errorf("script needs a name (argument or @name front-matter)")
	}

	records, err := d.store.ListScripts(ctx)
	if err != nil {
		return nil, nil, err
	}
	position := 0
	for _, rec := range records {
		if !rec.System && rec.Position >= position {
			position = rec.Position + 1
		}
	}

	rec := &store.ScriptRecord{
		ID:          d.newID(),
		Name:        name,
		Description: meta.Description,
		Source:      source,
		Position:    position,
		Enabled:     true,
		CreatedAt:   d.now(),
		ModifiedAt:  d.now(),
	}
	if err := d.writeScript(ctx, rec, op.TypeCreateUserScript, store.InsertScript); err != nil {
		return nil, nil, err
	}
	if err := d.reload(ctx); err != nil {
		return nil, nil, err
	}
	return rec, d.scriptErrs, nil
}

// UpdateScript replaces a script's source (front-matter refreshes the
// name and description) and rebuilds the registry.
func (d *Document) UpdateScript(ctx context.Context, id, source string) ([]schema.ScriptError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.findScript(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Source = source
	if meta := script.ParseMeta(source); meta.Name != "" {
		rec.Name = meta.Name
		rec.Description = meta.Description
	}
	rec.ModifiedAt = d.now()

	if err := d.writeScript(ctx, rec, op.TypeUpdateUserScript, store.UpdateScript); err != nil {
		return nil, err
	}
	if err := d.reload(ctx); err != nil {
		return nil, err
	}
	return d.scriptErrs, nil
}

// SetScriptEnabled toggles a script without touching its source.
// Disabling unregisters its types on the rebuild; existing notes of
// those types stay readable as legacy data.
func (d *Document) SetScriptEnabled(ctx context.Context, id string, enabled bool) ([]schema.ScriptError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.findScript(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Enabled == enabled {
		return d.scriptErrs, nil
	}
	rec.Enabled = enabled
	rec.ModifiedAt = d.now()

	if err := d.writeScript(ctx, rec, op.TypeUpdateUserScript, store.UpdateScript); err != nil {
		return nil, err
	}
	if err := d.reload(ctx); err != nil {
		return nil, err
	}
	return d.scriptErrs, nil
}

// ReorderScript changes a user script's load position. Load order
// matters: on a type collision the earlier script wins.
func (d *Document) ReorderScript(ctx context.Context, id string, position int) ([]schema.ScriptError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.findScript(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Position = position
	rec.ModifiedAt = d.now()

	if err := d.writeScript(ctx, rec, op.TypeUpdateUserScript, store.UpdateScript); err != nil {
		return nil, err
	}
	if err := d.reload(ctx); err != nil {
		return nil, err
	}
	return d.scriptErrs, nil
}

// DeleteScript removes a user script and rebuilds the registry. System
// scripts cannot be deleted, only disabled.
func (d *Document) DeleteScript(ctx context.Context, id string) ([]schema.ScriptError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.findScript(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.System {
		return nil, fmt.Errorf("script %q is a system script; disable it instead", rec.Name)
	}

	tx, err := d.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.DeleteScript(ctx, tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	o, err := op.New(d.newID(), d.now(), d.deviceID, op.TypeDeleteUserScript,
		op.ScriptPayload{ScriptID: rec.ID, Name: rec.Name})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := store.AppendOperation(ctx, tx, o); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := d.reload(ctx); err != nil {
		return nil, err
	}
	return d.scriptErrs, nil
}

func (d *Document) findScript(ctx context.Context, id string) (*store.ScriptRecord, error) {
	records, err := d.store.ListScripts(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("script %s not found", id)
}
