// Package pwdriver implements the browser driver interfaces on top of
// Playwright.
//
// Example usage:
//
//	if err := pwdriver.Install(); err != nil {
//	    return err
//	}
//	launcher, err := pwdriver.NewLauncher()
//	if err != nil {
//	    return err
//	}
//	defer launcher.Stop()
//
//	session := browser.NewSessionManager(launcher, opts)
package pwdriver

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
)

var errNotRunning = errors.New("playwright is not running")

// Install downloads the Playwright driver and Chromium. Output is
// discarded so it does not interleave with the run's logs.
func Install() error {
	err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	})
	if err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	return nil
}

// Launcher starts Chromium through a running Playwright driver.
type Launcher struct {
	mu     sync.Mutex
	pw     *playwright.Playwright
	logger *logging.Logger
}

// NewLauncher starts the Playwright driver. Call Stop when done.
func NewLauncher() (*Launcher, error) {
	pw, err := playwright.Run(&playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &Launcher{pw: pw, logger: logging.NewLogger("pwdriver")}, nil
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(headless bool, args []string) (browser.Browser, error) {
	l.mu.Lock()
	pw := l.pw
	l.mu.Unlock()
	if pw == nil {
		return nil, errNotRunning
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		Args:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	l.logger.Debugf("Launched Chromium %s (headless=%t)", b.Version(), headless)
	return &Browser{browser: b, logger: l.logger}, nil
}

// Stop stops the Playwright driver. Safe to call multiple times.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Browser is a launched Chromium process.
type Browser struct {
	browser playwright.Browser
	logger  *logging.Logger
}

// NewContext implements browser.Browser.
func (b *Browser) NewContext(viewport browser.Viewport) (browser.Context, error) {
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return newContext(bctx, b.logger), nil
}

// Close implements browser.Browser.
func (b *Browser) Close() error {
	return b.browser.Close()
}

// mapError translates Playwright timeouts into browser.ErrTimeout.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", browser.ErrTimeout, err)
	}
	return err
}

// timeoutMS converts d to Playwright's millisecond timeout option.
func timeoutMS(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
