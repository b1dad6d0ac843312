// Package browser exposes a live web page to an automated decision-maker.
//
// The package is built around three pieces that are used together once per
// agent step:
//
//  1. Indexer: scans the active page for interactive elements and returns them
//     in reading order, each addressed by a short alphabetic label (A, B, ...,
//     Z, AA, AB, ...).
//  2. Executor: maps one action from a small closed vocabulary (CLICK, TYPE,
//     GOTO, ...) onto browser operations and renders a canonical history entry.
//  3. SessionManager: owns the single active page of a browser context and
//     keeps it coherent while tabs open, close, crash and navigate.
//
// # Driver
//
// The package never talks to a browser directly. It consumes the Launcher,
// Browser, Context, Page and Target interfaces declared in driver.go. The
// pwdriver subpackage implements them on top of Playwright; the browsertest
// subpackage implements them in memory for tests and simulations.
//
// # Step lifecycle
//
// Labels are only meaningful within one indexing pass. Callers re-fetch the
// active page and re-index on every step, and re-index after any
// TargetUnavailable failure instead of retrying the same target:
//
//	page, err := sessions.ActivePage(ctx)
//	if err != nil {
//	    return err
//	}
//	options, err := indexer.Index(ctx, page)
//	if err != nil {
//	    return err
//	}
//	idx, _ := browser.IndexOf("C")
//	record, err := executor.Execute(ctx, "CLICK", &options[idx], nil)
//
// # Errors
//
// Every failure is typed: ErrUnsupportedAction, ErrInvalidAction,
// ErrTargetUnavailable, ErrNavigationFailure and ErrSessionUnavailable can be
// matched with errors.Is. Only the SessionManager recovers locally (from tab
// closes and crashes); everything else is returned to the step loop.
package browser
