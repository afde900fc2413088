// Package harness runs YAML tree scenarios against a scratch document.
//
// A scenario declares extra scripts, a sequence of tree operations
// (notes addressed by symbolic refs, never by generated ids), and
// assertions on the final tree. Scenarios back package tests and the
// `loam test` command; the resulting tree snapshots compare against
// golden files.
//
// Scenario format:
//
//	name: task_defaults
//	description: "on_save fills in the status field"
//	steps:
//	  - create: { ref: milk, type: task }
//	  - update: { ref: milk, title: "Buy milk" }
//	assert:
//	  - ref: milk
//	    fields: { status: "TODO" }
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML scenario file.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Scripts holds extra script sources loaded on top of the built-ins.
	Scripts []string `yaml:"scripts,omitempty"`

	// Steps run in order; any step error fails the scenario unless the
	// step declares `error: <substring>`.
	Steps []Step `yaml:"steps"`

	// Assert checks the final tree.
	Assert []Assertion `yaml:"assert,omitempty"`
}

// Step is a single tree operation. Exactly one member is set.
type Step struct {
	Create *CreateStep `yaml:"create,omitempty"`
	Update *UpdateStep `yaml:"update,omitempty"`
	Move   *MoveStep   `yaml:"move,omitempty"`
	Delete *DeleteStep `yaml:"delete,omitempty"`
	Copy   *CopyStep   `yaml:"copy,omitempty"`
	Action *ActionStep `yaml:"action,omitempty"`
}

// CreateStep creates a note and binds it to Ref.
type CreateStep struct {
	Ref    string `yaml:"ref"`
	Parent string `yaml:"parent,omitempty"` // parent ref, empty for roots
	Type   string `yaml:"type"`
	Error  string `yaml:"error,omitempty"` // expected failure substring
}

// UpdateStep edits a note's title, fields, or tags.
type UpdateStep struct {
	Ref    string         `yaml:"ref"`
	Title  *string        `yaml:"title,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
	Tags   []string       `yaml:"tags,omitempty"`
	Error  string         `yaml:"error,omitempty"`
}

// MoveStep reparents and/or repositions a note.
type MoveStep struct {
	Ref      string `yaml:"ref"`
	Parent   string `yaml:"parent,omitempty"`
	Position int    `yaml:"position"`
	Error    string `yaml:"error,omitempty"`
}

// DeleteStep removes a note. Strategy is "all" or "promote".
type DeleteStep struct {
	Ref      string `yaml:"ref"`
	Strategy string `yaml:"strategy"`
	Error    string `yaml:"error,omitempty"`
}

// CopyStep deep-copies Ref relative to Target and binds the clone root
// to As. Placement is "child" or "sibling".
type CopyStep struct {
	Ref       string `yaml:"ref"`
	Target    string `yaml:"target"`
	Placement string `yaml:"placement"`
	As        string `yaml:"as"`
	Error     string `yaml:"error,omitempty"`
}

// ActionStep invokes a tree action by label.
type ActionStep struct {
	Ref   string `yaml:"ref"`
	Label string `yaml:"label"`
	Error string `yaml:"error,omitempty"`
}

// Assertion checks one note of the final tree.
type Assertion struct {
	Ref      string            `yaml:"ref"`
	Gone     bool              `yaml:"gone,omitempty"`
	Title    *string           `yaml:"title,omitempty"`
	Parent   *string           `yaml:"parent,omitempty"` // parent ref, "" for roots
	Position *int              `yaml:"position,omitempty"`
	Fields   map[string]string `yaml:"fields,omitempty"` // display form
	Tags     []string          `yaml:"tags,omitempty"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	for i, step := range s.Steps {
		set := 0
		for _, present := range []bool{
			step.Create != nil, step.Update != nil, step.Move != nil,
			step.Delete != nil, step.Copy != nil, step.Action != nil,
		} {
			if present {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("step %d: exactly one operation per step", i)
		}
	}
	return nil
}
