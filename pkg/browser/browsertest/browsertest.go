// Package browsertest provides an in-memory browser driver for tests.
//
// Pages, contexts and elements record what was done to them, and tests can
// fire lifecycle events (close, crash, frame navigation) the way a real
// driver would from its own goroutine.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
)

// ErrClosed is returned by operations on a closed page or context.
var ErrClosed = errors.New("target closed")

// Launcher launches fake browsers.
type Launcher struct {
	mu       sync.Mutex
	browsers []*Browser

	// LaunchErr makes Launch fail
	LaunchErr error
	// Browser, if set, is returned by Launch instead of a fresh one
	Browser *Browser

	Headless bool
	Args     []string
}

// Launch implements browser.Launcher.
func (l *Launcher) Launch(headless bool, args []string) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	l.Headless = headless
	l.Args = args
	b := l.Browser
	if b == nil {
		b = &Browser{}
	}
	l.browsers = append(l.browsers, b)
	return b, nil
}

// Last returns the most recently launched browser.
func (l *Launcher) Last() *Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1]
}

// Browser is a fake browser process.
type Browser struct {
	mu       sync.Mutex
	contexts []*Context
	closed   bool

	// Context, if set, is returned by NewContext instead of a fresh one
	Context  *Context
	CloseErr error
}

// NewContext implements browser.Browser.
func (b *Browser) NewContext(viewport browser.Viewport) (browser.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.Context
	if c == nil {
		c = &Context{}
	}
	c.mu.Lock()
	c.Viewport = viewport
	c.mu.Unlock()
	b.contexts = append(b.contexts, c)
	return c, nil
}

// Close implements browser.Browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.CloseErr
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// LastContext returns the most recently created context.
func (b *Browser) LastContext() *Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.contexts) == 0 {
		return nil
	}
	return b.contexts[len(b.contexts)-1]
}

// Context is a fake browser context.
type Context struct {
	mu       sync.Mutex
	pages    []*Page
	handlers []func(browser.Page)
	closed   bool
	tracing  bool
	trace    string

	Viewport browser.Viewport

	// NewPageErr makes NewPage fail
	NewPageErr error
	// CloseErr is returned by Close after the context is closed
	CloseErr error
	// GotoErr is set on every page the context opens
	GotoErr error

	navDelay time.Duration
}

// SetNewPageErr makes NewPage fail with err.
func (c *Context) SetNewPageErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NewPageErr = err
}

// SetNavigationDelay slows down navigations of pages opened from now on.
func (c *Context) SetNavigationDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navDelay = d
}

// NewPage implements browser.Context. The page event fires before it returns.
func (c *Context) NewPage() (browser.Page, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.NewPageErr != nil {
		c.mu.Unlock()
		return nil, c.NewPageErr
	}
	p := NewPage("about:blank")
	p.gotoErr = c.GotoErr
	p.navDelay = c.navDelay
	c.pages = append(c.pages, p)
	handlers := append([]func(browser.Page){}, c.handlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
	return p, nil
}

// Open simulates a page opened by the site, e.g. a popup.
func (c *Context) Open(url string) *Page {
	p := NewPage(url)
	c.mu.Lock()
	c.pages = append(c.pages, p)
	handlers := append([]func(browser.Page){}, c.handlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
	return p
}

// Pages implements browser.Context.
func (c *Context) Pages() []browser.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pages []browser.Page
	for _, p := range c.pages {
		if !p.IsClosed() {
			pages = append(pages, p)
		}
	}
	return pages
}

// AllPages returns every page ever opened, including closed ones.
func (c *Context) AllPages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Page{}, c.pages...)
}

// OnPage implements browser.Context.
func (c *Context) OnPage(fn func(browser.Page)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// StartTracing implements browser.Context.
func (c *Context) StartTracing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracing = true
	return nil
}

// StopTracing implements browser.Context.
func (c *Context) StopTracing(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracing {
		return errors.New("tracing not started")
	}
	c.tracing = false
	c.trace = path
	return nil
}

// TracePath returns the path passed to StopTracing.
func (c *Context) TracePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace
}

// Close implements browser.Context. Open pages are closed and fire their
// close events.
func (c *Context) Close() error {
	c.mu.Lock()
	c.closed = true
	pages := append([]*Page{}, c.pages...)
	c.mu.Unlock()

	for _, p := range pages {
		if !p.IsClosed() {
			_ = p.Close()
		}
	}
	return c.CloseErr
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Page is a fake tab with a linear navigation history.
type Page struct {
	mu       sync.Mutex
	history  []string
	pos      int
	title    string
	closed   bool
	elements []browser.Candidate
	scrollY  int
	keys     []string
	shots    []string
	reloads  int
	fronts   int
	gotoErr  error
	navDelay time.Duration

	closeHandlers []func(browser.Page)
	crashHandlers []func(browser.Page)
	navHandlers   []func(browser.Page)
}

// NewPage creates a standalone page at url.
func NewPage(url string) *Page {
	return &Page{history: []string{url}}
}

// SetElements sets what InteractiveElements returns.
func (p *Page) SetElements(candidates ...browser.Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements = candidates
}

// SetGotoErr makes Goto, GoBack and GoForward fail with err.
func (p *Page) SetGotoErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotoErr = err
}

// SetNavigationDelay makes Goto and Reload take d, like a slow site.
func (p *Page) SetNavigationDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navDelay = d
}

func (p *Page) pause() {
	p.mu.Lock()
	d := p.navDelay
	p.mu.Unlock()
	time.Sleep(d)
}

// SetTitle sets the page title.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

// URL implements browser.Page.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history[p.pos]
}

// Title implements browser.Page.
func (p *Page) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

// IsClosed implements browser.Page.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Goto implements browser.Page. A failed load still commits the URL, like a
// load timeout in a real browser.
func (p *Page) Goto(url string, _ time.Duration) error {
	p.pause()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.history = append(p.history[:p.pos+1], url)
	p.pos = len(p.history) - 1
	err := p.gotoErr
	p.mu.Unlock()

	p.Navigated()
	return err
}

// GoBack implements browser.Page.
func (p *Page) GoBack(_ time.Duration) error {
	return p.step(-1)
}

// GoForward implements browser.Page.
func (p *Page) GoForward(_ time.Duration) error {
	return p.step(1)
}

func (p *Page) step(delta int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err := p.gotoErr; err != nil {
		p.mu.Unlock()
		return err
	}
	next := p.pos + delta
	if next < 0 || next >= len(p.history) {
		p.mu.Unlock()
		return nil
	}
	p.pos = next
	p.mu.Unlock()

	p.Navigated()
	return nil
}

// Reload implements browser.Page.
func (p *Page) Reload(_ time.Duration) error {
	p.pause()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.reloads++
	return nil
}

// BringToFront implements browser.Page.
func (p *Page) BringToFront() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fronts++
	return nil
}

// Close implements browser.Page and fires the close event.
func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	handlers := append([]func(browser.Page){}, p.closeHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
	return nil
}

// Crash fires the crash event.
func (p *Page) Crash() {
	p.mu.Lock()
	handlers := append([]func(browser.Page){}, p.crashHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
}

// Navigated fires the frame-navigated event.
func (p *Page) Navigated() {
	p.mu.Lock()
	handlers := append([]func(browser.Page){}, p.navHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(p)
	}
}

// ScrollBy implements browser.Page.
func (p *Page) ScrollBy(_, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.scrollY += dy
	return nil
}

// PressKey implements browser.Page.
func (p *Page) PressKey(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.keys = append(p.keys, key)
	return nil
}

// Screenshot implements browser.Page by writing a placeholder file.
func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		return err
	}
	p.shots = append(p.shots, path)
	return nil
}

// InteractiveElements implements browser.Page.
func (p *Page) InteractiveElements() ([]browser.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	return append([]browser.Candidate{}, p.elements...), nil
}

// OnClose implements browser.Page.
func (p *Page) OnClose(fn func(browser.Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeHandlers = append(p.closeHandlers, fn)
}

// OnCrash implements browser.Page.
func (p *Page) OnCrash(fn func(browser.Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.crashHandlers = append(p.crashHandlers, fn)
}

// OnFrameNavigated implements browser.Page.
func (p *Page) OnFrameNavigated(fn func(browser.Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navHandlers = append(p.navHandlers, fn)
}

// ScrollY returns the accumulated vertical scroll.
func (p *Page) ScrollY() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY
}

// Keys returns the keys pressed on the page keyboard.
func (p *Page) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.keys...)
}

// Screenshots returns the paths of taken screenshots.
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.shots...)
}

// Reloads returns how many times the page was reloaded.
func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Fronts returns how many times the page was brought to front.
func (p *Page) Fronts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fronts
}

// Element is a fake target.
type Element struct {
	mu       sync.Mutex
	value    string
	selected string
	clicks   int
	hovers   int
	fills    int
	presses  []string

	// Options are the selectable option labels
	Options []string
	// Err makes every operation fail
	Err error
	// Block, if set, makes every operation wait until it is closed,
	// ignoring the timeout like an unresponsive page
	Block chan struct{}
}

// Candidate returns a candidate for the element with the given tag, text and box.
func (e *Element) Candidate(tag, text string, box browser.Rect) browser.Candidate {
	return browser.Candidate{Target: e, Tag: tag, Text: text, Box: box}
}

func (e *Element) wait() error {
	if e.Block != nil {
		<-e.Block
	}
	return e.Err
}

// Click implements browser.Target.
func (e *Element) Click(_ time.Duration) error {
	if err := e.wait(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

// Hover implements browser.Target.
func (e *Element) Hover(_ time.Duration) error {
	if err := e.wait(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hovers++
	return nil
}

// Fill implements browser.Target. It replaces the current value.
func (e *Element) Fill(value string, _ time.Duration) error {
	if err := e.wait(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	e.fills++
	return nil
}

// Press implements browser.Target.
func (e *Element) Press(key string, _ time.Duration) error {
	if err := e.wait(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presses = append(e.presses, key)
	return nil
}

// SelectOption implements browser.Target.
func (e *Element) SelectOption(value string, _ time.Duration) error {
	if err := e.wait(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, opt := range e.Options {
		if opt == value {
			e.selected = value
			return nil
		}
	}
	return fmt.Errorf("%w: %q", browser.ErrNoSuchOption, value)
}

// Value returns the filled value.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Selected returns the selected option.
func (e *Element) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Clicks returns the number of clicks.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Hovers returns the number of hovers.
func (e *Element) Hovers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovers
}

// Fills returns the number of fills.
func (e *Element) Fills() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fills
}

// Presses returns the keys pressed on the element.
func (e *Element) Presses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.presses...)
}

// PageSource serves a fixed page to an Executor.
type PageSource struct {
	mu   sync.Mutex
	page browser.Page
	err  error
	// Context receives NewPage calls; nil makes NewPage fail
	Context *Context
}

// NewPageSource returns a source whose active page is page.
func NewPageSource(page browser.Page) *PageSource {
	return &PageSource{page: page}
}

// SetErr makes ActivePage fail with err.
func (s *PageSource) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ActivePage implements browser.PageSource.
func (s *PageSource) ActivePage(_ context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

// NewPage implements browser.PageSource.
func (s *PageSource) NewPage() (browser.Page, error) {
	if s.Context == nil {
		return nil, errors.New("no context")
	}
	return s.Context.NewPage()
}
