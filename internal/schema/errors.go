package schema

import "fmt"

// ScriptError records a per-script load failure. Loading collects these
// instead of aborting: one broken script must not disable the others.
type ScriptError struct {
	ScriptName string
	Message    string
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %q: %s", e.ScriptName, e.Message)
}

// SchemaCollision reports two scripts registering the same type name.
// The first registration wins and stays active.
type SchemaCollision struct {
	TypeName          string
	ExistingScript    string
	ConflictingScript string
}

// Error implements the error interface.
func (e *SchemaCollision) Error() string {
	return fmt.Sprintf("type %q already registered by script %q (conflicting script %q)",
		e.TypeName, e.ExistingScript, e.ConflictingScript)
}

// HookError carries a hook runtime failure together with the name of the
// script that owns the hook, so the cause stays diagnosable. Hook errors
// abort the surrounding operation; they are never swallowed into a
// default fallback.
type HookError struct {
	ScriptName string
	Hook       string // "on_save", "on_view", "on_hover", "on_add_child"
	Message    string
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook in script %q: %s", e.Hook, e.ScriptName, e.Message)
}
