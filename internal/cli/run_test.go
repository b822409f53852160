package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/store"
)

// execute runs the CLI with the given arguments and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCompletesWithoutViolation(t *testing.T) {
	out, err := execute(t,
		"run", "publication",
		"--iterations", "50",
		"--settle", "1ms",
		"--allow-unpinned",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "test:    publication")
	assert.Contains(t, out, "status:  Completed")
	assert.Contains(t, out, "trials:  50")
}

func TestRunUnknownTest(t *testing.T) {
	_, err := execute(t, "run", "no-such-test", "--allow-unpinned")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunPersistsReport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "litmus.db")
	_, err := execute(t,
		"run", "publication",
		"--iterations", "20",
		"--settle", "1ms",
		"--allow-unpinned",
		"--db", dbPath,
	)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "publication", runs[0].Test)
	assert.Equal(t, litmus.StatusCompleted, runs[0].Status)
	assert.Equal(t, 20, runs[0].Trials)

	report, err := st.GetReport(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, uint32(65), report.Seed)
}

func TestRunJSONOutput(t *testing.T) {
	out, err := execute(t,
		"run", "publication",
		"--iterations", "20",
		"--settle", "1ms",
		"--allow-unpinned",
		"--format", "json",
	)
	require.NoError(t, err)

	var report litmus.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, litmus.StatusCompleted, report.Status)
	assert.Equal(t, 20, report.Trials)
	assert.NotEmpty(t, report.RunID)
}

func TestRunConfigFileOverridesCatalog(t *testing.T) {
	cfgPath := writeConfig(t, "iterations: 15\nallow_unpinned: true\nsettle_delay: 1ms\n")
	out, err := execute(t, "run", "publication", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "trials:  15")
}

func TestRunInvalidFormat(t *testing.T) {
	_, err := execute(t, "run", "publication", "--format", "xml")
	assert.Error(t, err)
}

func TestListShowsCatalog(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "publication")
	assert.Contains(t, out, "store-buffering-sc")
	assert.Contains(t, out, "mutual-exclusion")
	assert.Contains(t, out, "reader-writer")
}

func TestListJSON(t *testing.T) {
	out, err := execute(t, "list", "--format", "json")
	require.NoError(t, err)

	var payload struct {
		Tests []testListing `json:"tests"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.NotEmpty(t, payload.Tests)
	for _, l := range payload.Tests {
		assert.NotEmpty(t, l.Name)
		assert.GreaterOrEqual(t, l.Workers, 1)
		assert.Greater(t, l.Iterations, 0)
	}
}

func TestListWithStoredRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "litmus.db")
	_, err := execute(t,
		"run", "publication",
		"--iterations", "10",
		"--settle", "1ms",
		"--allow-unpinned",
		"--db", dbPath,
	)
	require.NoError(t, err)

	out, err := execute(t, "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "runs:")
	assert.Contains(t, out, "Completed")
}

func TestReplayReportsOutcome(t *testing.T) {
	out, err := execute(t,
		"replay", "publication", "3",
		"--allow-unpinned",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "test:    publication")
	assert.Contains(t, out, "trial:   3")
	assert.Contains(t, out, "seed:    68")
	assert.Contains(t, out, "outcome: {")
}

func TestReplayNegativeTrial(t *testing.T) {
	_, err := execute(t, "replay", "publication", "-1", "--allow-unpinned")
	assert.Error(t, err)
}

func TestReplayRunRequiresDatabase(t *testing.T) {
	_, err := execute(t, "replay", "publication", "0", "--run", "some-id", "--allow-unpinned")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayUsesStoredSeed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "litmus.db")
	_, err := execute(t,
		"run", "publication",
		"--iterations", "10",
		"--seed", "500",
		"--settle", "1ms",
		"--allow-unpinned",
		"--db", dbPath,
	)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NoError(t, st.Close())

	out, err := execute(t,
		"replay", "publication", "2",
		"--db", dbPath,
		"--run", runs[0].RunID,
		"--allow-unpinned",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "seed:    502")
}
