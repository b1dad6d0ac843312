package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/config"
)

func newTestRun(t *testing.T) (*Run, string) {
	t.Helper()
	saveDir := t.TempDir()
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	run, err := NewRun(saveDir, start)
	require.NoError(t, err)
	t.Cleanup(func() { _ = run.Close() })
	return run, saveDir
}

func TestNewRun_Layout(t *testing.T) {
	run, saveDir := newTestRun(t)

	assert.Equal(t, filepath.Join(saveDir, "20260314_092653"), run.Dir())
	info, err := os.Stat(filepath.Join(run.Dir(), ScreenshotDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(run.Dir(), "trace.zip"), run.TracePath())
}

func TestNextScreenshotPath_Numbered(t *testing.T) {
	run, _ := newTestRun(t)

	for i, want := range []string{"screen_0.png", "screen_1.png", "screen_2.png"} {
		got := run.NextScreenshotPath()
		assert.Equal(t, filepath.Join(run.Dir(), ScreenshotDir, want), got, "step %d", i)
	}
}

func TestAppendAction(t *testing.T) {
	run, _ := newTestRun(t)

	require.NoError(t, run.AppendAction("[button[submit]] Search -> CLICK"))
	require.NoError(t, run.AppendAction("SAY: line one\nline two"))
	require.NoError(t, run.Close())

	data, err := os.ReadFile(filepath.Join(run.Dir(), ActionLogFile))
	require.NoError(t, err)
	assert.Equal(t, "[button[submit]] Search -> CLICK\nSAY: line one line two\n", string(data))

	assert.Error(t, run.AppendAction("late"))
	assert.NoError(t, run.Close())
}

func TestWriteResult(t *testing.T) {
	run, _ := newTestRun(t)
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	result := &Result{
		Task:      "find the opening hours",
		Website:   "https://example.com/",
		Steps:     2,
		Completed: true,
		History:   []string{"GOTO: https://example.com/hours", "TERMINATE"},
		StartTime: start,
		EndTime:   start.Add(3 * time.Second),
		Duration:  3 * time.Second,
	}
	require.NoError(t, run.WriteResult(result))

	data, err := os.ReadFile(filepath.Join(run.Dir(), ResultFile))
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.History, decoded.History)
	assert.True(t, decoded.Completed)
	assert.Empty(t, decoded.Error)

	summary, err := os.ReadFile(filepath.Join(run.Dir(), SummaryFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(summary), "Task completed"))
	assert.Contains(t, string(summary), "2. `TERMINATE`")
}

func TestSaveConfig(t *testing.T) {
	run, _ := newTestRun(t)
	cfg := config.Default()
	cfg.Agent.Task = "check the weather"

	require.NoError(t, run.SaveConfig(cfg))

	loaded, err := config.Load(filepath.Join(run.Dir(), ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, "check the weather", loaded.Agent.Task)
}
