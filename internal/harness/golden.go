package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
)

// TreeSnapshot is the deterministic form of a scenario's final tree.
// Notes carry their scenario refs instead of generated ids, field
// values appear in display form, and children follow sibling order, so
// two runs of the same scenario produce identical snapshots.
type TreeSnapshot struct {
	Scenario string         `json:"scenario"`
	Roots    []NoteSnapshot `json:"roots,omitempty"`
}

// NoteSnapshot is one node of a TreeSnapshot.
type NoteSnapshot struct {
	Ref      string            `json:"ref,omitempty"`
	Title    string            `json:"title,omitempty"`
	Type     string            `json:"type"`
	Tags     []string          `json:"tags,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Children []NoteSnapshot    `json:"children,omitempty"`
}

// AssertGolden compares a snapshot against testdata/<scenario>.golden.
func AssertGolden(t *testing.T, snap *TreeSnapshot) {
	t.Helper()
	g := goldie.New(t)
	g.AssertJson(t, snap.Scenario, snap)
}

// snapshot captures the document's final tree.
func (r *scenarioRun) snapshot(name string) (*TreeSnapshot, error) {
	byID := make(map[string]string, len(r.refs))
	for ref, id := range r.refs {
		byID[id] = ref
	}

	roots, err := r.doc.GetChildren("")
	if err != nil {
		return nil, err
	}
	nodes, err := r.snapshotNotes(roots, byID)
	if err != nil {
		return nil, err
	}
	return &TreeSnapshot{Scenario: name, Roots: nodes}, nil
}

func (r *scenarioRun) snapshotNotes(notes []*note.Note, byID map[string]string) ([]NoteSnapshot, error) {
	var out []NoteSnapshot
	for _, n := range notes {
		node := NoteSnapshot{
			Ref:   byID[n.ID],
			Title: n.Title,
			Type:  n.TypeName,
			Tags:  n.Tags,
		}
		if len(n.Fields) > 0 {
			node.Fields = make(map[string]string, len(n.Fields))
			for fname, v := range n.Fields {
				node.Fields[fname] = field.Display(v)
			}
		}
		children, err := r.doc.GetChildren(n.ID)
		if err != nil {
			return nil, err
		}
		node.Children, err = r.snapshotNotes(children, byID)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}
