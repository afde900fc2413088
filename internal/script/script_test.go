package script

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
	"github.com/hollis-dev/loam/internal/schema"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// fakeQC is an in-memory query context for exercising hooks without an
// engine behind them.
type fakeQC struct {
	notes   map[string]*note.Note
	updated []*note.Note
	seq     int
}

func newFakeQC(notes ...*note.Note) *fakeQC {
	qc := &fakeQC{notes: make(map[string]*note.Note)}
	for _, n := range notes {
		qc.notes[n.ID] = n
	}
	return qc
}

func (q *fakeQC) GetNote(id string) (*note.Note, error) {
	n, ok := q.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s not found", id)
	}
	return n.Clone(), nil
}

func (q *fakeQC) GetChildren(id string) ([]*note.Note, error) { return nil, nil }
func (q *fakeQC) GetNotesForTag(tags ...string) []*note.Note  { return nil }
func (q *fakeQC) GetNotesWithLink(id string) []*note.Note     { return nil }

func (q *fakeQC) CreateNote(parentID *string, typeName string) (*note.Note, error) {
	q.seq++
	n := &note.Note{
		ID:       fmt.Sprintf("created-%d", q.seq),
		TypeName: typeName,
		ParentID: parentID,
		Fields:   map[string]field.Value{},
	}
	q.notes[n.ID] = n
	return n.Clone(), nil
}

func (q *fakeQC) UpdateNote(n *note.Note) error {
	q.notes[n.ID] = n.Clone()
	q.updated = append(q.updated, n.Clone())
	return nil
}

func taskNote(id string) *note.Note {
	return &note.Note{ID: id, TypeName: "task", Fields: map[string]field.Value{}}
}

// =============================================================================
// Loading
// =============================================================================

func TestLoad_Builtins(t *testing.T) {
	reg, errs := Load(Builtins())

	assert.Empty(t, errs)
	assert.Equal(t, []string{"note", "task"}, reg.Types())

	task, ok := reg.Lookup("task")
	require.True(t, ok)
	assert.Equal(t, "Task", task.ScriptName)
	assert.NotNil(t, task.Hooks.OnSave)
	assert.NotNil(t, task.Hooks.OnHover)
	assert.Nil(t, task.Hooks.OnView)

	labels := reg.ActionLabels()
	assert.Equal(t, []string{"Mark done"}, labels["task"])
}

func TestLoad_SyntaxErrorDoesNotDisableSiblings(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Broken", Text: `schema("oops", {`},
		{Name: "Fine", Text: `schema("fine", { fields: [] });`},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "Broken", errs[0].ScriptName)

	_, ok := reg.Lookup("fine")
	assert.True(t, ok)
}

func TestLoad_ThrowKeepsEarlierRegistrations(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Partial", Text: `
			schema("first", {});
			throw new Error("halfway");
			schema("second", {});
		`},
	})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "halfway")

	_, ok := reg.Lookup("first")
	assert.True(t, ok)
	_, ok = reg.Lookup("second")
	assert.False(t, ok)
}

func TestLoad_CollisionFirstWins(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Alpha", Text: `schema("thing", { fields: [{ name: "a", type: "text" }] });`},
		{Name: "Beta", Text: `schema("thing", { fields: [{ name: "b", type: "text" }] });`},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "Beta", errs[0].ScriptName)
	assert.Contains(t, errs[0].Message, `"Alpha"`)

	s, ok := reg.Lookup("thing")
	require.True(t, ok)
	assert.Equal(t, "Alpha", s.ScriptName)
	_, declared := s.FieldDef("a")
	assert.True(t, declared)
}

func TestLoad_InvalidFieldDefReported(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "BadSelect", Text: `schema("pick", { fields: [{ name: "choice", type: "select" }] });`},
	})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "select requires options")
	assert.Zero(t, reg.Len())
}

func TestLoad_QueryBuiltinsDeadOutsideInvocation(t *testing.T) {
	_, errs := Load([]Source{
		{Name: "Eager", Text: `get_note("some-id");`},
	})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "no active operation")
}

func TestLoad_SchemaDeclarations(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Library", Text: `
			schema("book", {
				fields: [
					{ name: "rating", type: "rating", max: 5 },
					{ name: "author", type: "text", show_on_hover: true },
					{ name: "shelf", type: "note_link", target_type: "shelf" },
				],
				title: { can_view: true, can_edit: false },
				children_sort: "asc",
				allowed_parent_types: ["shelf"],
			});
		`},
	})

	require.Empty(t, errs)
	s, ok := reg.Lookup("book")
	require.True(t, ok)
	assert.False(t, s.TitleCanEdit)
	assert.Equal(t, schema.SortAscending, s.ChildrenSort)
	assert.Equal(t, []string{"shelf"}, s.AllowedParentTypes)

	rating, _ := s.FieldDef("rating")
	assert.Equal(t, 5, rating.Max)
	shelf, _ := s.FieldDef("shelf")
	assert.Equal(t, "shelf", shelf.TargetType)
	require.Len(t, s.HoverFields(), 1)
	assert.Equal(t, "author", s.HoverFields()[0].Name)
}

// =============================================================================
// Hooks
// =============================================================================

func TestOnSave_MergesScriptChanges(t *testing.T) {
	reg, errs := Load(Builtins())
	require.Empty(t, errs)
	task, _ := reg.Lookup("task")

	n := taskNote("n1")
	require.NoError(t, task.Hooks.OnSave(newFakeQC(), n))

	assert.Equal(t, field.Text("TODO"), n.Fields["status"])
}

func TestOnSave_ExistingStatusKept(t *testing.T) {
	reg, _ := Load(Builtins())
	task, _ := reg.Lookup("task")

	n := taskNote("n1")
	n.Fields["status"] = field.Text("DOING")
	require.NoError(t, task.Hooks.OnSave(newFakeQC(), n))

	assert.Equal(t, field.Text("DOING"), n.Fields["status"])
}

func TestOnSave_ThrowSurfacesAsHookError(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Strict", Text: `
			schema("strict", {
				fields: [{ name: "val", type: "text" }],
				on_save: function (note) {
					throw new Error("no thanks");
				},
			});
		`},
	})
	require.Empty(t, errs)
	s, _ := reg.Lookup("strict")

	err := s.Hooks.OnSave(newFakeQC(), &note.Note{ID: "n1", TypeName: "strict", Fields: map[string]field.Value{}})
	require.Error(t, err)

	var hookErr *schema.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "Strict", hookErr.ScriptName)
	assert.Equal(t, "on_save", hookErr.Hook)
	assert.Contains(t, hookErr.Message, "no thanks")
}

func TestOnSave_UndeclaredFieldRejected(t *testing.T) {
	reg, _ := Load([]Source{
		{Name: "Sloppy", Text: `
			schema("sloppy", {
				fields: [{ name: "ok", type: "text" }],
				on_save: function (note) {
					note.fields.bogus = 42;
				},
			});
		`},
	})
	s, _ := reg.Lookup("sloppy")

	err := s.Hooks.OnSave(newFakeQC(), &note.Note{ID: "n1", TypeName: "sloppy", Fields: map[string]field.Value{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestOnSave_ValuesRetaggedFromSchema(t *testing.T) {
	reg, _ := Load([]Source{
		{Name: "Typed", Text: `
			schema("typed", {
				fields: [
					{ name: "count", type: "number" },
					{ name: "done", type: "boolean" },
					{ name: "when", type: "date" },
				],
				on_save: function (note) {
					note.fields.count = 3;
					note.fields.done = true;
					note.fields.when = "2026-05-01";
				},
			});
		`},
	})
	s, _ := reg.Lookup("typed")

	n := &note.Note{ID: "n1", TypeName: "typed", Fields: map[string]field.Value{}}
	require.NoError(t, s.Hooks.OnSave(newFakeQC(), n))

	assert.Equal(t, field.Number(3), n.Fields["count"])
	assert.Equal(t, field.Bool(true), n.Fields["done"])
	assert.Equal(t, field.Date{ISO: "2026-05-01"}, n.Fields["when"])
}

func TestOnHover_RendersMarkup(t *testing.T) {
	reg, _ := Load(Builtins())
	task, _ := reg.Lookup("task")

	n := taskNote("n1")
	n.Title = "Buy milk"
	n.Fields["status"] = field.Text("TODO")
	n.Fields["due"] = field.Date{ISO: "2026-03-20"}

	out, err := task.Hooks.OnHover(newFakeQC(), n)
	require.NoError(t, err)
	assert.Contains(t, out, "<h2>Buy milk</h2>")
	assert.Contains(t, out, "TODO")
	assert.Contains(t, out, "2026-03-20")
}

func TestOnView_UndefinedReturnIsError(t *testing.T) {
	reg, _ := Load([]Source{
		{Name: "Silent", Text: `
			schema("silent", {
				fields: [],
				on_view: function (note) {},
			});
		`},
	})
	s, _ := reg.Lookup("silent")

	_, err := s.Hooks.OnView(newFakeQC(), &note.Note{ID: "n1", TypeName: "silent", Fields: map[string]field.Value{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestOnAddChild_SeesBothSides(t *testing.T) {
	reg, _ := Load([]Source{
		{Name: "Nest", Text: `
			schema("nest", {
				fields: [],
				on_add_child: function (parent, child) {
					child.tags.push("in:" + parent.title);
				},
			});
		`},
	})
	s, _ := reg.Lookup("nest")

	parent := &note.Note{ID: "p", TypeName: "nest", Title: "Inbox", Fields: map[string]field.Value{}}
	child := &note.Note{ID: "c", TypeName: "nest", Fields: map[string]field.Value{}}
	require.NoError(t, s.Hooks.OnAddChild(newFakeQC(), parent, child))

	assert.Equal(t, []string{"in:Inbox"}, child.Tags)
}

// =============================================================================
// Tree Actions and Query Builtins
// =============================================================================

func TestTreeAction_MarkDone(t *testing.T) {
	reg, _ := Load(Builtins())
	actions := reg.Actions("task")
	require.Len(t, actions, 1)

	stored := taskNote("n1")
	stored.Fields["status"] = field.Text("TODO")
	qc := newFakeQC(stored)

	require.NoError(t, actions[0].Run(qc, stored.Clone()))

	require.Len(t, qc.updated, 1)
	assert.Equal(t, field.Text("DONE"), qc.updated[0].Fields["status"])
}

func TestTreeAction_CreateNoteBuiltin(t *testing.T) {
	reg, errs := Load([]Source{
		{Name: "Spawner", Text: `
			schema("spawner", { fields: [] });
			tree_action("spawner", "Spawn", function (note) {
				var child = create_note(note.id, "spawner");
				child.title = "spawned";
				update_note(child);
			});
		`},
	})
	require.Empty(t, errs)

	target := &note.Note{ID: "root", TypeName: "spawner", Fields: map[string]field.Value{}}
	qc := newFakeQC(target)
	require.NoError(t, reg.Actions("spawner")[0].Run(qc, target.Clone()))

	require.Len(t, qc.updated, 1)
	assert.Equal(t, "spawned", qc.updated[0].Title)
	created := qc.notes[qc.updated[0].ID]
	require.NotNil(t, created.ParentID)
	assert.Equal(t, "root", *created.ParentID)
}

func TestTreeAction_ErrorCarriesScriptName(t *testing.T) {
	reg, _ := Load([]Source{
		{Name: "Grump", Text: `
			schema("grump", { fields: [] });
			tree_action("grump", "Refuse", function (note) {
				throw new Error("not today");
			});
		`},
	})

	err := reg.Actions("grump")[0].Run(newFakeQC(), &note.Note{ID: "n", TypeName: "grump", Fields: map[string]field.Value{}})
	require.Error(t, err)

	var hookErr *schema.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "Grump", hookErr.ScriptName)
	assert.Contains(t, hookErr.Message, "not today")
}

// =============================================================================
// Front-Matter
// =============================================================================

func TestParseMeta_NameAndDescription(t *testing.T) {
	m := ParseMeta("// @name: Recipe\n// @description: Cooking notes.\n\nschema(\"recipe\", {});")
	assert.Equal(t, "Recipe", m.Name)
	assert.Equal(t, "Cooking notes.", m.Description)
}

func TestParseMeta_StopsAtCode(t *testing.T) {
	m := ParseMeta("var x = 1;\n// @name: Too Late")
	assert.Empty(t, m.Name)
}

func TestParseMeta_MissingIsEmpty(t *testing.T) {
	m := ParseMeta("schema(\"plain\", {});")
	assert.Empty(t, m.Name)
	assert.Empty(t, m.Description)
}
