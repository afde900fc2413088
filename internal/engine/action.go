package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hollis-dev/loam/internal/schema"
)

// TreeActions lists the labels of the actions registered for a note's
// type, in registration order.
func (e *Engine) TreeActions(id string) ([]string, error) {
	n, ok := e.state.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	actions := e.host.Actions(n.TypeName)
	labels := make([]string, 0, len(actions))
	for _, a := range actions {
		labels = append(labels, a.Label)
	}
	return labels, nil
}

// InvokeTreeAction runs a script-registered action against a note. The
// action gets a write-capable query context; everything it creates or
// updates commits as one unit, or not at all if the action errors.
func (e *Engine) InvokeTreeAction(ctx context.Context, id, label string) error {
	n, ok := e.state.notes[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	action, ok := e.findAction(n.TypeName, label)
	if !ok {
		return fmt.Errorf("tree action %q for type %q: %w", label, n.TypeName, ErrNotFound)
	}

	m, err := e.begin(ctx)
	if err != nil {
		return classify(err)
	}
	err = e.runAction(m, action, id)
	if err := m.finish(err); err != nil {
		return err
	}
	slog.Info("tree action ran", "id", id, "label", label, "operations", m.logged)
	return nil
}

func (e *Engine) findAction(typeName, label string) (schema.TreeAction, bool) {
	for _, a := range e.host.Actions(typeName) {
		if a.Label == label {
			return a, true
		}
	}
	return schema.TreeAction{}, false
}

// runAction hands the action a snapshot of its target; changes to the
// snapshot only persist if the action writes them back via UpdateNote.
func (e *Engine) runAction(m *mutation, action schema.TreeAction, id string) error {
	target := m.staged.notes[id].Clone()
	if err := action.Run(m.queryContext(), target); err != nil {
		s := e.schemaFor(target.TypeName)
		if s != nil {
			return hookError(s, "tree_action", err)
		}
		return err
	}
	return nil
}
