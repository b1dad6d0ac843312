package pwdriver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
)

// Page wraps one Playwright tab.
type Page struct {
	page   playwright.Page
	logger *logging.Logger

	// scans numbers element scans so ids from older scans never match
	scans atomic.Int64
}

// URL implements browser.Page.
func (p *Page) URL() string {
	return p.page.URL()
}

// Title implements browser.Page.
func (p *Page) Title() (string, error) {
	return p.page.Title()
}

// IsClosed implements browser.Page.
func (p *Page) IsClosed() bool {
	return p.page.IsClosed()
}

// Goto navigates to url and waits for the load event.
func (p *Page) Goto(url string, timeout time.Duration) error {
	waitUntil := playwright.WaitUntilState("load")
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   timeoutMS(timeout),
	})
	return mapError(err)
}

// GoBack implements browser.Page.
func (p *Page) GoBack(timeout time.Duration) error {
	_, err := p.page.GoBack(playwright.PageGoBackOptions{Timeout: timeoutMS(timeout)})
	return mapError(err)
}

// GoForward implements browser.Page.
func (p *Page) GoForward(timeout time.Duration) error {
	_, err := p.page.GoForward(playwright.PageGoForwardOptions{Timeout: timeoutMS(timeout)})
	return mapError(err)
}

// Reload implements browser.Page.
func (p *Page) Reload(timeout time.Duration) error {
	_, err := p.page.Reload(playwright.PageReloadOptions{Timeout: timeoutMS(timeout)})
	return mapError(err)
}

// BringToFront implements browser.Page.
func (p *Page) BringToFront() error {
	return p.page.BringToFront()
}

// Close implements browser.Page.
func (p *Page) Close() error {
	return p.page.Close()
}

// ScrollBy implements browser.Page.
func (p *Page) ScrollBy(dx, dy int) error {
	_, err := p.page.Evaluate("([dx, dy]) => window.scrollBy(dx, dy)", []int{dx, dy})
	if err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// PressKey presses key on the keyboard, wherever focus is.
func (p *Page) PressKey(key string) error {
	return mapError(p.page.Keyboard().Press(key))
}

// Screenshot writes a PNG of the viewport to path.
func (p *Page) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// OnClose implements browser.Page.
func (p *Page) OnClose(fn func(browser.Page)) {
	p.page.OnClose(func(playwright.Page) {
		fn(p)
	})
}

// OnCrash implements browser.Page.
func (p *Page) OnCrash(fn func(browser.Page)) {
	p.page.OnCrash(func(playwright.Page) {
		fn(p)
	})
}

// OnFrameNavigated reports main frame navigations only.
func (p *Page) OnFrameNavigated(fn func(browser.Page)) {
	p.page.OnFrameNavigated(func(f playwright.Frame) {
		if f.ParentFrame() == nil {
			fn(p)
		}
	})
}
