package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// runCommand executes one CLI invocation against a fresh root command.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func initDocument(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "doc.loam")
	out, err := runCommand(t, "init", "--db", db, "--device", "cli-test")
	require.NoError(t, err)
	require.Contains(t, out, "Initialised")
	return db
}

// ===== Init =====

func TestInit_InstallsBuiltinTypes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "doc.loam")

	out, err := runCommand(t, "init", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "note")
	assert.Contains(t, out, "task")
}

func TestInit_JSONOutput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "doc.loam")

	out, err := runCommand(t, "--format", "json", "init", "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCommands_MissingDocumentIsCommandError(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.loam")

	_, err := runCommand(t, "note", "tree", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// ===== Notes =====

func TestNote_CreateUpdateShowTree(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "note", "create", "note", "--db", db)
	require.NoError(t, err)
	parentID := strings.TrimSpace(out)
	require.NotEmpty(t, parentID)

	out, err = runCommand(t, "note", "create", "task", "--parent", parentID, "--db", db)
	require.NoError(t, err)
	taskID := strings.TrimSpace(out)

	_, err = runCommand(t, "note", "update", taskID,
		"--title", "Buy milk",
		"--field", "due=2026-09-01",
		"--tag", "errand",
		"--db", db)
	require.NoError(t, err)

	out, err = runCommand(t, "note", "show", taskID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "TODO") // on_save default

	out, err = runCommand(t, "note", "tree", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[task]")
	assert.Contains(t, out, "Buy milk")
}

func TestNote_CreateUnknownTypeFails(t *testing.T) {
	db := initDocument(t)

	_, err := runCommand(t, "note", "create", "widget", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown note type")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestNote_UpdateUndeclaredFieldRejected(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "note", "create", "task", "--db", db)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	_, err = runCommand(t, "note", "update", id, "--field", "priority=9", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestNote_DeleteRejectsUnknownStrategy(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "note", "create", "note", "--db", db)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	_, err = runCommand(t, "note", "delete", id, "--strategy", "bogus", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNote_DeleteReportsCount(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "note", "create", "note", "--db", db)
	require.NoError(t, err)
	parentID := strings.TrimSpace(out)
	_, err = runCommand(t, "note", "create", "task", "--parent", parentID, "--db", db)
	require.NoError(t, err)

	out, err = runCommand(t, "note", "delete", parentID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 note(s)")
}

func TestNote_ActionMarkDone(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "note", "create", "task", "--db", db)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, err = runCommand(t, "note", "action", id, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Mark done")

	_, err = runCommand(t, "note", "action", id, "Mark done", "--db", db)
	require.NoError(t, err)

	out, err = runCommand(t, "note", "show", id, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "DONE")
}

// ===== Scripts =====

func TestScript_ListShowsBuiltins(t *testing.T) {
	db := initDocument(t)

	out, err := runCommand(t, "script", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Note")
	assert.Contains(t, out, "Task")
	assert.Contains(t, out, "system")
}

func TestScript_AddFromFile(t *testing.T) {
	db := initDocument(t)
	path := filepath.Join(t.TempDir(), "recipe.js")
	source := `// @name: Recipes
schema("recipe", {
  fields: [{ name: "servings", type: "number" }],
});
`
	require.NoError(t, writeFile(path, source))

	out, err := runCommand(t, "script", "add", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `Installed "Recipes"`)

	_, err = runCommand(t, "note", "create", "recipe", "--db", db)
	require.NoError(t, err)
}

// ===== Log =====

func TestLog_ListAndPurge(t *testing.T) {
	db := initDocument(t)

	for i := 0; i < 3; i++ {
		_, err := runCommand(t, "note", "create", "note", "--db", db)
		require.NoError(t, err)
	}

	out, err := runCommand(t, "log", "list", "--db", db)
	require.NoError(t, err)
	// Two script installs plus three creates.
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)

	out, err = runCommand(t, "log", "purge", "--keep-last", "2", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 3 record(s), 2 kept")
}

func TestLog_ListFiltersByType(t *testing.T) {
	db := initDocument(t)

	_, err := runCommand(t, "note", "create", "note", "--db", db)
	require.NoError(t, err)

	out, err := runCommand(t, "log", "list", "--type", "create_note", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "create_note")
}

// ===== Test runner =====

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := runCommand(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_PassingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: cli_task_defaults
steps:
  - create: { ref: t, type: task }
assert:
  - ref: t
    fields: { status: TODO }
`
	require.NoError(t, writeFile(filepath.Join(dir, "cli_task_defaults.yaml"), scenario))

	out, err := runCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cli_task_defaults")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestTest_FailingScenarioExitsNonzero(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: cli_wrong_status
steps:
  - create: { ref: t, type: task }
assert:
  - ref: t
    fields: { status: DONE }
`
	require.NoError(t, writeFile(filepath.Join(dir, "cli_wrong_status.yaml"), scenario))

	_, err := runCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
