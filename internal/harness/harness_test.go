package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScenarioFile(t *testing.T, name string) *Result {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)

	r := NewRunner(t.TempDir())
	result, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	return result
}

func TestScenarios_AllPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			result := runScenarioFile(t, filepath.Base(path))
			assert.Empty(t, result.Failures)
			assert.True(t, result.Passed())
		})
	}
}

func TestScenario_TaskDefaults_Golden(t *testing.T) {
	result := runScenarioFile(t, "task_defaults.yaml")
	require.True(t, result.Passed(), "failures: %v", result.Failures)

	AssertGolden(t, result.Snapshot)
}

func TestScenario_FailedAssertionReported(t *testing.T) {
	s := &Scenario{
		Name: "wrong_title",
		Steps: []Step{
			{Create: &CreateStep{Ref: "n", Type: "note"}},
		},
		Assert: []Assertion{
			{Ref: "n", Title: strPtr("not what was written")},
		},
	}

	r := NewRunner(t.TempDir())
	result, err := r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "title")
}

func TestScenario_UnexpectedStepErrorFailsFast(t *testing.T) {
	s := &Scenario{
		Name: "bad_type",
		Steps: []Step{
			{Create: &CreateStep{Ref: "n", Type: "no_such_type"}},
		},
	}

	r := NewRunner(t.TempDir())
	_, err := r.Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}

func TestScenario_ExpectedErrorSatisfied(t *testing.T) {
	s := &Scenario{
		Name: "expected_unknown_type",
		Steps: []Step{
			{Create: &CreateStep{Ref: "n", Type: "no_such_type", Error: "unknown note type"}},
		},
	}

	r := NewRunner(t.TempDir())
	result, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestLoadScenario_RejectsMultiOperationStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad
steps:
  - create: { ref: a, type: note }
    move: { ref: a, position: 1 }
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one operation")
}

func TestLoadScenario_RequiresName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: []\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
}

func strPtr(s string) *string { return &s }
