package pwdriver

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
)

// Context wraps a Playwright browser context. Every Playwright page is
// wrapped exactly once, so the same tab always yields the same
// browser.Page value.
type Context struct {
	bctx   playwright.BrowserContext
	logger *logging.Logger

	mu    sync.Mutex
	pages map[playwright.Page]*Page
}

func newContext(bctx playwright.BrowserContext, logger *logging.Logger) *Context {
	return &Context{
		bctx:   bctx,
		logger: logger,
		pages:  make(map[playwright.Page]*Page),
	}
}

func (c *Context) wrap(p playwright.Page) *Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.pages[p]; ok {
		return w
	}
	w := &Page{page: p, logger: c.logger}
	c.pages[p] = w
	return w
}

// NewPage implements browser.Context.
func (c *Context) NewPage() (browser.Page, error) {
	p, err := c.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return c.wrap(p), nil
}

// Pages implements browser.Context.
func (c *Context) Pages() []browser.Page {
	var pages []browser.Page
	for _, p := range c.bctx.Pages() {
		if !p.IsClosed() {
			pages = append(pages, c.wrap(p))
		}
	}
	return pages
}

// OnPage implements browser.Context.
func (c *Context) OnPage(fn func(browser.Page)) {
	c.bctx.OnPage(func(p playwright.Page) {
		fn(c.wrap(p))
	})
}

// StartTracing records screenshots and DOM snapshots for the whole context.
func (c *Context) StartTracing() error {
	err := c.bctx.Tracing().Start(playwright.TracingStartOptions{
		Screenshots: playwright.Bool(true),
		Snapshots:   playwright.Bool(true),
		Sources:     playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	return nil
}

// StopTracing writes the trace archive to path.
func (c *Context) StopTracing(path string) error {
	if err := c.bctx.Tracing().Stop(path); err != nil {
		return fmt.Errorf("failed to stop tracing: %w", err)
	}
	return nil
}

// Close implements browser.Context.
func (c *Context) Close() error {
	return c.bctx.Close()
}
