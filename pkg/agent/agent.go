// Package agent drives a browser session step by step: index the active
// page, ask a Decider for the next action, execute it, record it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/entrhq/webpilot/pkg/artifact"
	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
)

const (
	DefaultMaxSteps               = 30
	DefaultMaxConsecutiveFailures = 5
)

// Agent runs one task against a browser session.
type Agent struct {
	pages    browser.PageSource
	executor *browser.Executor
	indexer  *browser.Indexer
	decider  Decider

	run     *artifact.Run
	website string

	maxSteps    int
	maxFailures int
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxSteps caps the number of steps of a run.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithMaxConsecutiveFailures stops a run after n failed steps in a row.
func WithMaxConsecutiveFailures(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxFailures = n
		}
	}
}

// WithMinStepInterval spaces steps at least d apart.
func WithMinStepInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithRun stores screenshots, the action log and the result in run.
func WithRun(run *artifact.Run) Option {
	return func(a *Agent) {
		a.run = run
	}
}

// WithIndexer replaces the default indexer.
func WithIndexer(ix *browser.Indexer) Option {
	return func(a *Agent) {
		if ix != nil {
			a.indexer = ix
		}
	}
}

// WithWebsite records the starting website in the result.
func WithWebsite(url string) Option {
	return func(a *Agent) {
		a.website = url
	}
}

// New creates an agent. The executor must act on the same pages.
func New(pages browser.PageSource, executor *browser.Executor, decider Decider, opts ...Option) *Agent {
	a := &Agent{
		pages:       pages,
		executor:    executor,
		indexer:     browser.NewIndexer(nil, nil),
		decider:     decider,
		maxSteps:    DefaultMaxSteps,
		maxFailures: DefaultMaxConsecutiveFailures,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      logging.NewLogger("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes task until the decider terminates it, the step or failure
// limit is reached, the session becomes unavailable or ctx is done.
//
// The returned result is never nil. The error reports why the run ended
// early; reaching the step limit is not an error.
func (a *Agent) Run(ctx context.Context, task string) (*artifact.Result, error) {
	start := time.Now()
	result := &artifact.Result{
		Task:      task,
		Website:   a.website,
		StartTime: start,
		History:   []string{},
	}

	a.logger.Infof("Starting task: %s", task)

	var runErr error
	failures := 0
	for result.Steps < a.maxSteps {
		if err := a.limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		result.Steps++
		record, err := a.step(ctx, task, result.History)
		if record != nil {
			result.History = append(result.History, record.Text)
			a.appendAction(record.Text)
		}

		if err != nil {
			if ctx.Err() != nil || errors.Is(err, browser.ErrSessionUnavailable) {
				runErr = err
				break
			}

			failures++
			if browser.IsRetryable(err) {
				a.logger.Warnf("Step %d failed, re-indexing: %v", result.Steps, err)
			} else {
				a.logger.Errorf("Step %d failed: %v", result.Steps, err)
			}
			if failures >= a.maxFailures {
				runErr = fmt.Errorf("stopped after %d consecutive failures: %w", failures, err)
				break
			}
			continue
		}

		failures = 0
		if a.executor.Completed() {
			result.Completed = true
			break
		}
	}

	if !result.Completed && runErr == nil {
		a.logger.Warnf("Reached the step limit of %d", a.maxSteps)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	if runErr != nil {
		result.Error = runErr.Error()
	}
	if a.run != nil {
		if err := a.run.WriteResult(result); err != nil {
			a.logger.Errorf("Failed to write result: %v", err)
		}
	}

	a.logger.Infof("Task finished after %d steps (completed=%t)", result.Steps, result.Completed)
	return result, runErr
}

// step performs one observe-decide-act cycle. A record is returned whenever
// the action was executed, even if it then failed.
func (a *Agent) step(ctx context.Context, task string, history []string) (*browser.ActionRecord, error) {
	page, err := a.pages.ActivePage(ctx)
	if err != nil {
		return nil, err
	}

	obs := &Observation{
		Task:    task,
		URL:     page.URL(),
		History: history,
	}
	if title, err := page.Title(); err == nil {
		obs.Title = title
	}

	if a.run != nil {
		path := a.run.NextScreenshotPath()
		if err := page.Screenshot(path); err != nil {
			a.logger.Warnf("Failed to take screenshot: %v", err)
		} else {
			obs.ScreenshotPath = path
		}
	}

	options, err := a.indexer.Index(ctx, page)
	if err != nil {
		return nil, err
	}
	obs.Options = options

	decision, err := a.decider.Decide(ctx, obs)
	if err != nil {
		return nil, err
	}

	target := resolveLabel(options, decision.Label)
	if decision.Label != "" && target == nil {
		a.logger.Warnf("Label %q does not name an option of this step", decision.Label)
	}

	return a.executor.Execute(ctx, decision.Action, target, decision.Value)
}

func (a *Agent) appendAction(text string) {
	if a.run == nil {
		return
	}
	if err := a.run.AppendAction(text); err != nil {
		a.logger.Warnf("Failed to append to action log: %v", err)
	}
}

// resolveLabel maps a label to its option, or nil when it names none.
func resolveLabel(options []browser.ElementDescriptor, label string) *browser.ElementDescriptor {
	if label == "" {
		return nil
	}
	idx, err := browser.IndexOf(label)
	if err != nil || idx >= len(options) {
		return nil
	}
	return &options[idx]
}
