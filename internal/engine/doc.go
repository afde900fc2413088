// Package engine applies tree mutations to one open document: create,
// update, move, delete, deep copy, and script-invoked tree actions.
//
// The engine holds the whole note tree in memory and writes through to
// the store inside one transaction per mutation, together with the
// operation log records describing it. Schema lookups go through the
// SchemaHost interface so the script runtime stays pluggable.
package engine
