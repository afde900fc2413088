package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hollis-dev/loam/internal/document"
	"github.com/hollis-dev/loam/internal/engine"
	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/script"
	"github.com/hollis-dev/loam/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	Scenario *Scenario
	Snapshot *TreeSnapshot

	// Failures lists assertion failures; empty means the scenario passed.
	Failures []string
}

// Passed reports whether every step and assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Runner executes scenarios, each against a fresh document in dir.
type Runner struct {
	dir      string
	deviceID string
}

// NewRunner creates a runner placing its scratch documents in dir.
func NewRunner(dir string) *Runner {
	return &Runner{dir: dir, deviceID: "harness"}
}

// Run executes one scenario and evaluates its assertions. Step errors
// fail fast (they poison everything after them); assertion failures
// collect.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	path := filepath.Join(r.dir, s.Name+".loam")
	clock := testutil.NewClock()
	ids := testutil.NewIDSequence(s.Name)
	doc, err := document.Create(ctx, path, r.deviceID,
		document.WithClock(clock.Now),
		document.WithIDGenerator(ids.Next))
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	for i, src := range s.Scripts {
		name := script.ParseMeta(src).Name
		if name == "" {
			name = fmt.Sprintf("scenario-script-%d", i+1)
		}
		if _, errs, err := doc.CreateScript(ctx, name, src); err != nil {
			return nil, err
		} else if len(errs) > 0 {
			return nil, fmt.Errorf("scenario script %q: %s", name, errs[0].Message)
		}
	}

	run := &scenarioRun{doc: doc, refs: make(map[string]string)}
	for i, step := range s.Steps {
		if err := run.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	result := &Result{Scenario: s}
	for _, a := range s.Assert {
		result.Failures = append(result.Failures, run.check(a)...)
	}
	result.Snapshot, err = run.snapshot(s.Name)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scenarioRun tracks the ref bindings of one execution.
type scenarioRun struct {
	doc  *document.Document
	refs map[string]string // ref -> note id
}

func (r *scenarioRun) id(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	id, ok := r.refs[ref]
	if !ok {
		return "", fmt.Errorf("unknown ref %q", ref)
	}
	return id, nil
}

// execute runs one step, honouring its expected-error clause.
func (r *scenarioRun) execute(ctx context.Context, step Step) error {
	switch {
	case step.Create != nil:
		st := step.Create
		parent, err := r.id(st.Parent)
		if err != nil {
			return err
		}
		n, err := r.doc.CreateNote(ctx, parent, st.Type)
		if err == nil && st.Ref != "" {
			r.refs[st.Ref] = n.ID
		}
		return expectError(st.Error, err)

	case step.Update != nil:
		st := step.Update
		id, err := r.id(st.Ref)
		if err != nil {
			return err
		}
		err = r.update(ctx, id, st)
		return expectError(st.Error, err)

	case step.Move != nil:
		st := step.Move
		id, err := r.id(st.Ref)
		if err != nil {
			return err
		}
		parent, err := r.id(st.Parent)
		if err != nil {
			return err
		}
		return expectError(st.Error, r.doc.MoveNote(ctx, id, parent, st.Position))

	case step.Delete != nil:
		st := step.Delete
		id, err := r.id(st.Ref)
		if err != nil {
			return err
		}
		strategy, err := deleteStrategy(st.Strategy)
		if err != nil {
			return err
		}
		_, err = r.doc.DeleteNote(ctx, id, strategy)
		return expectError(st.Error, err)

	case step.Copy != nil:
		st := step.Copy
		id, err := r.id(st.Ref)
		if err != nil {
			return err
		}
		target, err := r.id(st.Target)
		if err != nil {
			return err
		}
		placement, err := copyPlacement(st.Placement)
		if err != nil {
			return err
		}
		rootID, err := r.doc.DeepCopyNote(ctx, id, target, placement)
		if err == nil && st.As != "" {
			r.refs[st.As] = rootID
		}
		return expectError(st.Error, err)

	case step.Action != nil:
		st := step.Action
		id, err := r.id(st.Ref)
		if err != nil {
			return err
		}
		return expectError(st.Error, r.doc.InvokeTreeAction(ctx, id, st.Label))
	}
	return fmt.Errorf("empty step")
}

func (r *scenarioRun) update(ctx context.Context, id string, st *UpdateStep) error {
	n, err := r.doc.GetNote(id)
	if err != nil {
		return err
	}
	if st.Title != nil {
		n.Title = *st.Title
	}
	if st.Tags != nil {
		n.Tags = st.Tags
	}
	for name, raw := range st.Fields {
		v, err := r.fieldValue(n.TypeName, name, raw)
		if err != nil {
			return err
		}
		if v == nil {
			delete(n.Fields, name)
			continue
		}
		n.Fields[name] = v
	}
	_, err = r.doc.UpdateNote(ctx, n)
	return err
}

// fieldValue coerces a YAML scalar through the declared field type.
func (r *scenarioRun) fieldValue(typeName, name string, raw any) (field.Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := r.doc.Schema(typeName)
	if !ok {
		return nil, fmt.Errorf("no active schema for type %q", typeName)
	}
	def, ok := s.FieldDef(name)
	if !ok {
		return nil, fmt.Errorf("field %q not declared for type %q", name, typeName)
	}
	return field.Coerce(def.Type, raw)
}

// check evaluates one assertion against the final tree.
func (r *scenarioRun) check(a Assertion) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf("%s: ", a.Ref)+fmt.Sprintf(format, args...))
	}

	id, ok := r.refs[a.Ref]
	if !ok {
		return []string{fmt.Sprintf("%s: ref never bound", a.Ref)}
	}
	n, err := r.doc.GetNote(id)
	if a.Gone {
		if err == nil {
			fail("expected note to be gone")
		}
		return failures
	}
	if err != nil {
		return []string{fmt.Sprintf("%s: %v", a.Ref, err)}
	}

	if a.Title != nil && n.Title != *a.Title {
		fail("title %q, want %q", n.Title, *a.Title)
	}
	if a.Parent != nil {
		wantID := ""
		if *a.Parent != "" {
			wantID = r.refs[*a.Parent]
		}
		if n.ParentRef() != wantID {
			fail("parent %q, want ref %q", n.ParentRef(), *a.Parent)
		}
	}
	if a.Position != nil && n.Position != *a.Position {
		fail("position %d, want %d", n.Position, *a.Position)
	}
	for name, want := range a.Fields {
		got := ""
		if v, ok := n.Fields[name]; ok {
			got = field.Display(v)
		}
		if got != want {
			fail("field %s = %q, want %q", name, got, want)
		}
	}
	if a.Tags != nil && !equalStrings(n.Tags, a.Tags) {
		fail("tags %v, want %v", n.Tags, a.Tags)
	}
	return failures
}

func expectError(want string, err error) error {
	if want == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("expected error containing %q, got none", want)
	}
	if !strings.Contains(err.Error(), want) {
		return fmt.Errorf("expected error containing %q, got %q", want, err.Error())
	}
	return nil
}

func deleteStrategy(s string) (engine.DeleteStrategy, error) {
	switch s {
	case "all", "":
		return engine.DeleteAll, nil
	case "promote":
		return engine.PromoteChildren, nil
	default:
		return "", fmt.Errorf("unknown delete strategy %q", s)
	}
}

func copyPlacement(s string) (engine.CopyPlacement, error) {
	switch s {
	case "child", "":
		return engine.CopyAsChild, nil
	case "sibling":
		return engine.CopyAsSibling, nil
	default:
		return "", fmt.Errorf("unknown copy placement %q", s)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
