// Package script runs the user scripts that declare note types. Each
// document gets one interpreter; loading executes every script source
// against the host builtins (schema, tree_action, display helpers) and
// produces the registry the engine consults. Per-script failures are
// collected, never letting one broken script disable the rest.
package script

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/hollis-dev/loam/internal/schema"
)

// Source is one script to load. Name comes from the script record (or
// its front-matter) and shows up in every diagnostic for the script.
type Source struct {
	Name string
	Text string
}

// loader owns the interpreter while scripts load and afterwards while
// their hooks run. qc is the query context of the invocation currently
// on the stack; the document mutex keeps invocations serialised, and
// nested invocations (a hook fired by a write inside a tree action)
// save and restore it.
type loader struct {
	rt      *goja.Runtime
	reg     *schema.Registry
	current string // script being executed during load
	errs    []schema.ScriptError
	qc      schema.QueryContext
}

// Load executes the sources in order and returns the resulting registry
// plus the per-script errors. A script that throws keeps every
// registration it made before the throw; later scripts run regardless.
// On a type-name collision the first registration stays active and the
// collision is reported against the later script.
func Load(sources []Source) (*schema.Registry, []schema.ScriptError) {
	l := &loader{
		rt:  goja.New(),
		reg: schema.NewRegistry(),
	}
	l.installBuiltins()

	for _, src := range sources {
		l.current = src.Name
		if _, err := l.rt.RunString(src.Text); err != nil {
			l.errs = append(l.errs, schema.ScriptError{
				ScriptName: src.Name,
				Message:    exMessage(err),
			})
		}
	}
	l.current = ""
	return l.reg, l.errs
}

// withContext runs fn with the given query context installed for the
// query and write builtins.
func (l *loader) withContext(qc schema.QueryContext, fn func() error) error {
	prev := l.qc
	l.qc = qc
	defer func() { l.qc = prev }()
	return fn()
}

// context returns the active query context or an error when called
// outside any hook or action invocation.
func (l *loader) context() (schema.QueryContext, error) {
	if l.qc == nil {
		return nil, fmt.Errorf("no active operation")
	}
	return l.qc, nil
}

// exMessage extracts a terse message from an interpreter error.
func exMessage(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.Value().String()
	}
	return err.Error()
}
