package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// PageSource supplies the page actions run against. SessionManager
// implements it.
type PageSource interface {
	ActivePage(ctx context.Context) (Page, error)
	NewPage() (Page, error)
}

// Executor performs actions from the vocabulary against the active page.
// It reads the session but never changes which page is active.
type Executor struct {
	pages    PageSource
	opts     ExecutorOptions
	logger   *logging.Logger
	metrics  *Metrics
	complete atomic.Bool
}

// NewExecutor creates an executor operating on pages from src.
func NewExecutor(src PageSource, opts ExecutorOptions) *Executor {
	opts.applyDefaults()
	return &Executor{
		pages:   src,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Completed reports whether TERMINATE has been executed.
func (e *Executor) Completed() bool {
	return e.complete.Load()
}

// Execute validates and performs one action.
//
// target is required for element-bearing actions and value for
// value-bearing ones; an empty value is still a value. On a
// NavigationFailure the record is returned together with the error since
// the navigation was issued and the session stays usable.
func (e *Executor) Execute(ctx context.Context, name string, target *ElementDescriptor, value *string) (*ActionRecord, error) {
	start := time.Now()

	action, ok := ParseAction(name)
	if !ok {
		err := newActionError(Action(name), target, ErrUnsupportedAction, nil)
		e.logger.Warnf("Unsupported action %q", name)
		e.metrics.RecordAction("UNSUPPORTED", false, time.Since(start))
		return nil, err
	}

	if err := validate(action, target, value); err != nil {
		e.logger.Warnf("Rejected %s: %v", action, err)
		e.metrics.RecordAction(action, false, time.Since(start))
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := newRecord(action, target, value)
	err := e.perform(ctx, action, target, value)
	e.metrics.RecordAction(action, err == nil, time.Since(start))
	if err != nil {
		e.logger.Errorf("Action %s failed (target: %q): %v", action, targetDescription(target), err)
		if errors.Is(err, ErrNavigationFailure) {
			return record, err
		}
		return nil, err
	}
	return record, nil
}

func validate(action Action, target *ElementDescriptor, value *string) error {
	if action.NeedsTarget() && (target == nil || target.Target == nil) {
		return newActionError(action, target, ErrInvalidAction, errors.New("a target element is required"))
	}
	if action.NeedsValue() && value == nil {
		return newActionError(action, target, ErrInvalidAction, errors.New("a value is required"))
	}
	return nil
}

//nolint:gocyclo
func (e *Executor) perform(ctx context.Context, action Action, target *ElementDescriptor, value *string) error {
	// Actions without a browser operation.
	switch action {
	case ActionTerminate:
		e.complete.Store(true)
		e.logger.Infof("Task has been marked as complete. Terminating...")
		return nil
	case ActionNone:
		e.logger.Infof("No action necessary at this stage. Skipped")
		return nil
	case ActionSay:
		e.logger.Infof("Say %q to the user", *value)
		return nil
	case ActionMemorize:
		e.logger.Infof("Keep %q in the action history", *value)
		return nil
	}

	page, err := e.pages.ActivePage(ctx)
	if err != nil {
		return newActionError(action, target, ErrSessionUnavailable, err)
	}

	desc := targetDescription(target)
	halfHeight := e.opts.Viewport.Height / 2

	switch action {
	case ActionClick:
		if err := e.onTarget(ctx, action, target, func(t Target) error { return t.Click(e.opts.ElementTimeout) }); err != nil {
			return err
		}
		e.logger.Infof("Clicked on element: %s", desc)

	case ActionHover:
		if err := e.onTarget(ctx, action, target, func(t Target) error { return t.Hover(e.opts.ElementTimeout) }); err != nil {
			return err
		}
		e.logger.Infof("Hovered over element: %s", desc)

	case ActionPressEnter:
		if target != nil && target.Target != nil {
			if err := e.onTarget(ctx, action, target, func(t Target) error { return t.Press("Enter", e.opts.ElementTimeout) }); err != nil {
				return err
			}
			e.logger.Infof("Pressed Enter on element: %s", desc)
			return nil
		}
		if err := page.PressKey("Enter"); err != nil {
			return e.pageFailure(page, action, target, err)
		}
		e.logger.Infof("Pressed Enter")

	case ActionType:
		// The value is filled twice; filling is idempotent and a second pass
		// settles inputs that reformat or clear themselves on first focus.
		for i := 0; i < 2; i++ {
			if err := e.onTarget(ctx, action, target, func(t Target) error { return t.Fill(*value, e.opts.ElementTimeout) }); err != nil {
				return err
			}
		}
		e.logger.Infof("Typed %q into element: %s", *value, desc)

	case ActionSelect:
		err := e.onTarget(ctx, action, target, func(t Target) error { return t.SelectOption(*value, e.opts.ElementTimeout) })
		if err != nil {
			return err
		}
		e.logger.Infof("Selected option %q from element: %s", *value, desc)

	case ActionScrollUp, ActionScrollDown:
		dy := halfHeight
		if action == ActionScrollUp {
			dy = -halfHeight
		}
		if err := page.ScrollBy(0, dy); err != nil {
			return e.pageFailure(page, action, target, err)
		}
		e.logger.Infof("Scrolled by %dpx", dy)

	case ActionPressHome, ActionPressEnd, ActionPressPageUp, ActionPressPageDown:
		key := pageKeys[action]
		if err := page.PressKey(key); err != nil {
			return e.pageFailure(page, action, target, err)
		}
		e.logger.Infof("Pressed %s key", key)

	case ActionNewTab:
		if _, err := e.pages.NewPage(); err != nil {
			return newActionError(action, target, ErrSessionUnavailable, err)
		}
		e.logger.Infof("Opened a new tab")

	case ActionCloseTab:
		if err := page.Close(); err != nil {
			return e.pageFailure(page, action, target, err)
		}
		e.logger.Infof("Closed the current tab")

	case ActionGoBack:
		if err := page.GoBack(e.opts.NavigationTimeout); err != nil {
			return newActionError(action, target, ErrNavigationFailure, err)
		}
		e.logger.Infof("Navigated back")

	case ActionGoForward:
		if err := page.GoForward(e.opts.NavigationTimeout); err != nil {
			return newActionError(action, target, ErrNavigationFailure, err)
		}
		e.logger.Infof("Navigated forward")

	case ActionGoto:
		dest := resolveURL(page.URL(), *value)
		if err := e.opts.Policy.Check(dest); err != nil {
			return newActionError(action, target, ErrInvalidAction, err)
		}
		if err := page.Goto(dest, e.opts.NavigationTimeout); err != nil {
			return newActionError(action, target, ErrNavigationFailure, err)
		}
		e.logger.Infof("Navigated to %s", dest)

	default:
		return newActionError(action, target, ErrUnsupportedAction, nil)
	}
	return nil
}

var pageKeys = map[Action]string{
	ActionPressHome:     "Home",
	ActionPressEnd:      "End",
	ActionPressPageUp:   "PageUp",
	ActionPressPageDown: "PageDown",
}

// onTarget runs one driver call against the target and maps failures to
// TargetUnavailable, or InvalidAction when a select option does not exist.
func (e *Executor) onTarget(ctx context.Context, action Action, target *ElementDescriptor, fn func(Target) error) error {
	err := e.guarded(ctx, func() error { return fn(target.Target) })
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrNoSuchOption):
		return newActionError(action, target, ErrInvalidAction, err)
	default:
		return newActionError(action, target, ErrTargetUnavailable, err)
	}
}

// guarded bounds a driver call even if the driver ignores its timeout.
// The call keeps running in the background after the bound expires.
func (e *Executor) guarded(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(e.opts.ElementTimeout + guardSlack)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w: no response after %s", ErrTimeout, e.opts.ElementTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) pageFailure(page Page, action Action, target *ElementDescriptor, err error) error {
	if page.IsClosed() {
		return newActionError(action, target, ErrSessionUnavailable, err)
	}
	return newActionError(action, target, ErrTargetUnavailable, err)
}

// resolveURL resolves raw against the current page URL when raw is relative.
func resolveURL(current, raw string) string {
	raw = strings.TrimSpace(raw)
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	base, err := url.Parse(current)
	if err != nil || base.Host == "" {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func targetDescription(target *ElementDescriptor) string {
	if target == nil {
		return ""
	}
	return target.Description
}
