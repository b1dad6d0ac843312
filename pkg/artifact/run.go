// Package artifact writes the files produced by one webpilot run.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/config"
)

// File names inside a run directory.
const (
	ScreenshotDir = "screenshots"
	ActionLogFile = "actions.log"
	ResultFile    = "result.json"
	SummaryFile   = "summary.md"
	ConfigFile    = "config.yaml"
	TraceFile     = "trace.zip"
)

// Run is the artifact directory of one run, keyed by its start time.
type Run struct {
	dir string

	mu        sync.Mutex
	nextShot  int
	actionLog *os.File
}

// Result is the final report of a run.
type Result struct {
	Task      string        `json:"task"`
	Website   string        `json:"website"`
	Steps     int           `json:"steps"`
	Completed bool          `json:"completed"`
	History   []string      `json:"history"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// NewRun creates <saveDir>/<YYYYMMDD_HHMMSS> with its screenshot directory
// and opens the action log.
func NewRun(saveDir string, start time.Time) (*Run, error) {
	dir := filepath.Join(saveDir, start.Format("20060102_150405"))
	if err := os.MkdirAll(filepath.Join(dir, ScreenshotDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, ActionLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open action log: %w", err)
	}

	return &Run{dir: dir, actionLog: f}, nil
}

// Dir returns the run directory.
func (r *Run) Dir() string {
	return r.dir
}

// TracePath returns where the browser trace is written.
func (r *Run) TracePath() string {
	return filepath.Join(r.dir, TraceFile)
}

// NextScreenshotPath returns screenshots/screen_<n>.png for the next step,
// counting from 0.
func (r *Run) NextScreenshotPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := filepath.Join(r.dir, ScreenshotDir, fmt.Sprintf("screen_%d.png", r.nextShot))
	r.nextShot++
	return path
}

// AppendAction writes one action record to the append-only action log.
func (r *Run) AppendAction(record string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actionLog == nil {
		return fmt.Errorf("action log is closed")
	}
	line := strings.ReplaceAll(record, "\n", " ")
	if _, err := r.actionLog.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return nil
}

// SaveConfig snapshots the resolved configuration into the run directory.
func (r *Run) SaveConfig(cfg *config.Config) error {
	return cfg.Save(filepath.Join(r.dir, ConfigFile))
}

// WriteResult writes result.json and a markdown summary.
func (r *Run) WriteResult(result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.dir, ResultFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write result JSON: %w", err)
	}

	if err := os.WriteFile(filepath.Join(r.dir, SummaryFile), []byte(summaryMarkdown(result)), 0600); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}

func summaryMarkdown(result *Result) string {
	var md strings.Builder

	md.WriteString("# Webpilot Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Task:** %s\n\n", result.Task))
	md.WriteString(fmt.Sprintf("**Website:** %s\n\n", result.Website))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", result.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", result.Duration))
	md.WriteString(fmt.Sprintf("**Steps:** %d\n\n", result.Steps))

	md.WriteString("## Result\n\n")
	switch {
	case result.Error != "":
		md.WriteString(fmt.Sprintf("**Error:** %s\n\n", result.Error))
	case result.Completed:
		md.WriteString("Task completed\n\n")
	default:
		md.WriteString("Task not completed\n\n")
	}

	if len(result.History) > 0 {
		md.WriteString("## Actions\n\n")
		for i, h := range result.History {
			md.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, h))
		}
	}
	return md.String()
}

// Close closes the action log. Safe to call multiple times.
func (r *Run) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actionLog == nil {
		return nil
	}
	err := r.actionLog.Close()
	r.actionLog = nil
	return err
}
