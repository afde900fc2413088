package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loam/internal/document"
	"github.com/hollis-dev/loam/internal/engine"
	"github.com/hollis-dev/loam/internal/field"
	"github.com/hollis-dev/loam/internal/note"
)

// NoteJSON is the wire shape of a note in JSON output.
type NoteJSON struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Type       string            `json:"type"`
	ParentID   string            `json:"parent_id,omitempty"`
	Position   int               `json:"position"`
	Tags       []string          `json:"tags,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt time.Time         `json:"modified_at"`
}

func noteJSON(n *note.Note) NoteJSON {
	out := NoteJSON{
		ID:         n.ID,
		Title:      n.Title,
		Type:       n.TypeName,
		ParentID:   n.ParentRef(),
		Position:   n.Position,
		Tags:       n.Tags,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
	if len(n.Fields) > 0 {
		out.Fields = make(map[string]string, len(n.Fields))
		for name, v := range n.Fields {
			out.Fields[name] = field.Display(v)
		}
	}
	return out
}

// NewNoteCommand creates the note command group.
func NewNoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Create, edit, and inspect notes",
	}

	cmd.AddCommand(newNoteCreateCommand(rootOpts))
	cmd.AddCommand(newNoteUpdateCommand(rootOpts))
	cmd.AddCommand(newNoteMoveCommand(rootOpts))
	cmd.AddCommand(newNoteDeleteCommand(rootOpts))
	cmd.AddCommand(newNoteCopyCommand(rootOpts))
	cmd.AddCommand(newNoteShowCommand(rootOpts))
	cmd.AddCommand(newNoteTreeCommand(rootOpts))
	cmd.AddCommand(newNoteActionCommand(rootOpts))

	return cmd
}

func newNoteCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a note of a declared type",
		Long: `Create a note whose type is declared by an enabled script.
Placement constraints and on_save/on_add_child hooks run before the
note is committed.

Example:
  loam note create task --parent 0195f3c2
  loam note create note`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			n, err := doc.CreateNote(ctx, parent, args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "create failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(noteJSON(n))
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent note id (empty for a root note)")
	return cmd
}

func newNoteUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		title  string
		fields []string
		tags   []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a note's title, tags, or fields",
		Long: `Update a note. Fields are set with --field name=value and
coerced through the declared field type; an empty value clears the
field. Tags passed with --tag replace the tag list. The on_save hook
runs before the changes are committed.

Example:
  loam note update 0195f3c2 --title "Buy milk" --field due=2026-09-01
  loam note update 0195f3c2 --tag urgent --tag home
  loam note update 0195f3c2 --field notes=`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			n, err := doc.GetNote(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "note not found", err)
			}
			if cmd.Flags().Changed("title") {
				n.Title = title
			}
			if cmd.Flags().Changed("tag") {
				n.Tags = tags
			}
			for _, assignment := range fields {
				name, raw, ok := strings.Cut(assignment, "=")
				if !ok || name == "" {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid field assignment %q: want name=value", assignment))
				}
				if raw == "" {
					delete(n.Fields, name)
					continue
				}
				v, err := coerceFieldFlag(doc, n.TypeName, name, raw)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid field value", err)
				}
				n.Fields[name] = v
			}

			updated, err := doc.UpdateNote(ctx, n)
			if err != nil {
				return WrapExitError(ExitFailure, "update failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(noteJSON(updated))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "field assignment name=value (repeatable)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "replacement tag (repeatable)")
	return cmd
}

// coerceFieldFlag turns a flag string into a typed value for a declared
// field. Numbers and booleans are parsed first so Coerce sees the
// variant the type expects.
func coerceFieldFlag(doc *document.Document, typeName, name, raw string) (field.Value, error) {
	s, ok := doc.Schema(typeName)
	if !ok {
		return nil, fmt.Errorf("no active schema for type %q", typeName)
	}
	def, ok := s.FieldDef(name)
	if !ok {
		return nil, fmt.Errorf("field %q not declared for type %q", name, typeName)
	}
	switch field.KindFor(def.Type) {
	case field.KindNumber:
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return field.Coerce(def.Type, num)
	case field.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return field.Coerce(def.Type, b)
	default:
		return field.Coerce(def.Type, raw)
	}
}

func newNoteMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		parent   string
		position int
	)

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a note to a new parent or position",
		Long: `Move a note. Omitting --parent moves within the root level;
positions are clamped to the sibling range. Cycles are rejected.

Example:
  loam note move 0195f3c2 --parent 0195f3d1 --position 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			if err := doc.MoveNote(ctx, args[0], parent, position); err != nil {
				return WrapExitError(ExitFailure, "move failed", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "new parent id (empty for root level)")
	cmd.Flags().IntVar(&position, "position", 0, "position among the new siblings")
	return cmd
}

// DeleteJSON is the wire shape of a delete result.
type DeleteJSON struct {
	Deleted  []string `json:"deleted"`
	Promoted []string `json:"promoted,omitempty"`
}

func newNoteDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note and its subtree, or promote its children",
		Long: `Delete a note. The default strategy "all" removes the whole
subtree; "promote" re-parents the children into the deleted note's
place before removing it.

Example:
  loam note delete 0195f3c2
  loam note delete 0195f3c2 --strategy promote`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseDeleteStrategy(strategy)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}

			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			result, err := doc.DeleteNote(ctx, args[0], st)
			if err != nil {
				return WrapExitError(ExitFailure, "delete failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(DeleteJSON{Deleted: result.DeletedIDs, Promoted: result.PromotedIDs})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d note(s)\n", result.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "all", "delete strategy (all|promote)")
	return cmd
}

func parseDeleteStrategy(s string) (engine.DeleteStrategy, error) {
	switch s {
	case "all":
		return engine.DeleteAll, nil
	case "promote":
		return engine.PromoteChildren, nil
	default:
		return "", fmt.Errorf("unknown delete strategy %q: must be all or promote", s)
	}
}

func newNoteCopyCommand(rootOpts *RootOptions) *cobra.Command {
	var placement string

	cmd := &cobra.Command{
		Use:   "copy <id> <target>",
		Short: "Deep copy a subtree",
		Long: `Deep copy a note and its subtree. With --placement child the
copy becomes the target's last child; with sibling it lands directly
after the target.

Example:
  loam note copy 0195f3c2 0195f3d1 --placement sibling`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := parseCopyPlacement(placement)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}

			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			rootID, err := doc.DeepCopyNote(ctx, args[0], args[1], pl)
			if err != nil {
				return WrapExitError(ExitFailure, "copy failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": rootID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), rootID)
			return nil
		},
	}

	cmd.Flags().StringVar(&placement, "placement", "child", "copy placement (child|sibling)")
	return cmd
}

func parseCopyPlacement(s string) (engine.CopyPlacement, error) {
	switch s {
	case "child":
		return engine.CopyAsChild, nil
	case "sibling":
		return engine.CopyAsSibling, nil
	default:
		return "", fmt.Errorf("unknown copy placement %q: must be child or sibling", s)
	}
}

func newNoteShowCommand(rootOpts *RootOptions) *cobra.Command {
	var hover bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Render a note through its type's view hook",
		Long: `Render a note. The type's on_view hook produces the markup;
--hover renders the on_hover preview instead. Types without hooks get
the default tabular rendering.

Example:
  loam note show 0195f3c2
  loam note show 0195f3c2 --hover`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			render := doc.RenderView
			if hover {
				render = doc.RenderHover
			}
			markup, err := render(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "render failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": args[0], "markup": markup})
			}
			fmt.Fprintln(cmd.OutOrStdout(), markup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&hover, "hover", false, "render the hover preview")
	return cmd
}

func newNoteTreeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [id]",
		Short: "Print the note tree",
		Long: `Print the tree below a note, or the whole document when no id
is given. Children appear in their parent type's sort order.

Example:
  loam note tree
  loam note tree 0195f3c2`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			rootID := ""
			if len(args) == 1 {
				rootID = args[0]
			}

			if rootOpts.Format == "json" {
				tree, err := collectTree(doc, rootID)
				if err != nil {
					return WrapExitError(ExitCommandError, "tree failed", err)
				}
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(tree)
			}
			if err := printTree(cmd, doc, rootID, 0); err != nil {
				return WrapExitError(ExitCommandError, "tree failed", err)
			}
			return nil
		},
	}
	return cmd
}

// TreeNodeJSON is one node of the JSON tree rendering.
type TreeNodeJSON struct {
	NoteJSON
	Children []TreeNodeJSON `json:"children,omitempty"`
}

func collectTree(doc *document.Document, id string) ([]TreeNodeJSON, error) {
	children, err := doc.GetChildren(id)
	if err != nil {
		return nil, err
	}
	out := make([]TreeNodeJSON, 0, len(children))
	for _, child := range children {
		sub, err := collectTree(doc, child.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, TreeNodeJSON{NoteJSON: noteJSON(child), Children: sub})
	}
	return out, nil
}

func printTree(cmd *cobra.Command, doc *document.Document, id string, depth int) error {
	if id != "" && depth == 0 {
		n, err := doc.GetNote(id)
		if err != nil {
			return err
		}
		printTreeNode(cmd, n, 0)
		depth = 1
	}
	children, err := doc.GetChildren(id)
	if err != nil {
		return err
	}
	for _, child := range children {
		printTreeNode(cmd, child, depth)
		if err := printTree(cmd, doc, child.ID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func printTreeNode(cmd *cobra.Command, n *note.Note, depth int) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s [%s] %s\n", strings.Repeat("  ", depth), title, n.TypeName, n.ID)
}

func newNoteActionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action <id> [label]",
		Short: "List or invoke a note's tree actions",
		Long: `With only an id, list the tree actions the note's type offers.
With a label, invoke that action inside a single transaction; a failing
action rolls everything back.

Example:
  loam note action 0195f3c2
  loam note action 0195f3c2 "Mark done"`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if len(args) == 1 {
				labels, err := doc.TreeActions(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "note not found", err)
				}
				if rootOpts.Format == "json" {
					return f.Success(map[string]any{"id": args[0], "actions": labels})
				}
				for _, label := range labels {
					fmt.Fprintln(cmd.OutOrStdout(), label)
				}
				return nil
			}

			if err := doc.InvokeTreeAction(ctx, args[0], args[1]); err != nil {
				return WrapExitError(ExitFailure, "action failed", err)
			}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": args[0], "action": args[1]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ran %q on %s\n", args[1], args[0])
			return nil
		},
	}
	return cmd
}
