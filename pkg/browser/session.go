package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// SessionState is the state of the active-page slot.
type SessionState int

const (
	StateNoPage SessionState = iota
	StatePageActive
	StatePageClosing
	StatePageCrashed
	StatePageNavigating
)

func (s SessionState) String() string {
	switch s {
	case StateNoPage:
		return "NoPage"
	case StatePageActive:
		return "PageActive"
	case StatePageClosing:
		return "PageClosing"
	case StatePageCrashed:
		return "PageCrashed"
	case StatePageNavigating:
		return "PageNavigating"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

type eventKind string

// Event names, also used as metric labels.
const (
	eventPageOpened     eventKind = "page"
	eventPageClosed     eventKind = "close"
	eventPageCrashed    eventKind = "crash"
	eventFrameNavigated eventKind = "framenavigated"
)

type sessionEvent struct {
	kind eventKind
	page Page
}

// SessionManager owns the active page of one browser context.
//
// Driver callbacks only enqueue events. A single event loop applies them to
// the active-page slot, so transitions never interleave and readers see
// either the old slot or the new one.
type SessionManager struct {
	launcher Launcher
	opts     SessionOptions
	logger   *logging.Logger
	metrics  *Metrics

	mu      sync.RWMutex
	browser Browser
	bctx    Context
	active  Page
	state   SessionState
	known   map[Page]bool
	started bool
	stopped bool

	// recovering is the page the event loop is reloading or navigating
	recovering Page

	// changed is closed and replaced after every transition
	changed chan struct{}

	// events queued or being handled
	pending  atomic.Int64
	detached atomic.Bool

	qmu    sync.Mutex
	queue  []sessionEvent
	signal chan struct{}

	done     chan struct{}
	loopDone chan struct{}
}

// NewSessionManager creates a session manager. Nothing is launched until
// Start is called.
func NewSessionManager(launcher Launcher, opts SessionOptions) *SessionManager {
	opts.applyDefaults()
	return &SessionManager{
		launcher: launcher,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		known:    make(map[Page]bool),
		changed:  make(chan struct{}),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start launches the browser, opens the first page and navigates it to the
// default URL. A failed navigation is logged and does not fail Start.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return errors.New("session already started")
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	browser, err := m.launcher.Launch(m.opts.Headless, m.opts.Args)
	if err != nil {
		return fmt.Errorf("%w: failed to launch browser: %v", ErrSessionUnavailable, err)
	}

	bctx, err := browser.NewContext(m.opts.Viewport)
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("%w: failed to create browser context: %v", ErrSessionUnavailable, err)
	}

	bctx.OnPage(func(p Page) { m.enqueue(eventPageOpened, p) })

	if m.opts.Tracing {
		if err := bctx.StartTracing(); err != nil {
			m.logger.Warnf("Failed to start tracing: %v", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return fmt.Errorf("%w: failed to open initial page: %v", ErrSessionUnavailable, err)
	}

	m.mu.Lock()
	m.browser = browser
	m.bctx = bctx
	m.started = true
	m.mu.Unlock()
	m.adopt(page)

	go m.run()

	m.logger.Infof("Browser session started (headless: %v, viewport: %dx%d)",
		m.opts.Headless, m.opts.Viewport.Width, m.opts.Viewport.Height)

	m.openDefault(page)
	return nil
}

// ActivePage returns the current active page.
//
// If lifecycle events are still being applied, or the active page has closed
// and its close event has not been handled yet, it waits for the session to
// settle, bounded by ctx and SettleTimeout. While a crashed page reloads or a
// fallback page loads the default URL, the page being recovered is returned
// without waiting, and time spent in recovery does not count against
// SettleTimeout. It never returns a closed page. Callers must fetch the page
// again for every step.
func (m *SessionManager) ActivePage(ctx context.Context) (Page, error) {
	timer := time.NewTimer(m.opts.SettleTimeout)
	defer timer.Stop()

	for {
		m.mu.RLock()
		if !m.started || m.stopped {
			m.mu.RUnlock()
			return nil, fmt.Errorf("%w: session is not running", ErrSessionUnavailable)
		}
		page, state, changed := m.active, m.state, m.changed
		recovering := m.recovering
		settled := m.pending.Load() == 0
		m.mu.RUnlock()

		if recovering != nil {
			if page != nil && (page == recovering || state == StatePageActive) && !page.IsClosed() {
				return page, nil
			}
			timer.Reset(m.opts.SettleTimeout)
		} else if settled {
			if page == nil {
				return nil, fmt.Errorf("%w: no active page", ErrSessionUnavailable)
			}
			if state == StatePageActive && !page.IsClosed() {
				return page, nil
			}
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w: session did not settle within %s", ErrSessionUnavailable, m.opts.SettleTimeout)
		}
	}
}

// NewPage opens a page in the session's context. The opened-page event makes
// it the active page.
func (m *SessionManager) NewPage() (Page, error) {
	m.mu.RLock()
	bctx := m.bctx
	m.mu.RUnlock()
	if bctx == nil {
		return nil, fmt.Errorf("%w: session is not running", ErrSessionUnavailable)
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	// Drivers may deliver the context's page event after NewPage returns.
	m.enqueue(eventPageOpened, page)
	return page, nil
}

// State returns the current state of the active-page slot.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Stop detaches the context so late events are dropped, stops the event
// loop, then closes the context and the browser. The browser is closed even
// if stopping the trace or closing the context fails.
func (m *SessionManager) Stop() (err error) {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	bctx, browser := m.bctx, m.browser
	m.bctx = nil
	m.active = nil
	m.state = StateNoPage
	m.notifyLocked()
	m.mu.Unlock()
	m.detached.Store(true)

	close(m.done)
	<-m.loopDone

	var errs []error
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", cerr))
		}
		err = errors.Join(errs...)
		m.logger.Infof("Browser session stopped")
	}()

	if m.opts.Tracing && m.opts.TracePath != "" {
		if terr := bctx.StopTracing(m.opts.TracePath); terr != nil {
			errs = append(errs, fmt.Errorf("failed to stop tracing: %w", terr))
		} else {
			m.logger.Infof("Trace saved to %s", m.opts.TracePath)
		}
	}

	if cerr := bctx.Close(); cerr != nil {
		errs = append(errs, fmt.Errorf("failed to close context: %w", cerr))
	}
	return nil
}

// enqueue is called from driver goroutines and must not block.
func (m *SessionManager) enqueue(kind eventKind, page Page) {
	if m.detached.Load() {
		return
	}
	m.pending.Add(1)

	m.qmu.Lock()
	m.queue = append(m.queue, sessionEvent{kind: kind, page: page})
	m.qmu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *SessionManager) dequeue() (sessionEvent, bool) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	if len(m.queue) == 0 {
		return sessionEvent{}, false
	}
	ev := m.queue[0]
	m.queue[0] = sessionEvent{}
	m.queue = m.queue[1:]
	return ev, true
}

func (m *SessionManager) run() {
	defer close(m.loopDone)
	for {
		select {
		case <-m.done:
			return
		case <-m.signal:
		}

		for {
			select {
			case <-m.done:
				return
			default:
			}

			ev, ok := m.dequeue()
			if !ok {
				break
			}
			m.handle(ev)
			m.pending.Add(-1)
			m.notify()
		}
	}
}

func (m *SessionManager) handle(ev sessionEvent) {
	m.metrics.RecordSessionEvent(string(ev.kind))

	switch ev.kind {
	case eventPageOpened:
		m.handleOpened(ev.page)
	case eventPageClosed:
		m.handleClosed(ev.page)
	case eventPageCrashed:
		m.handleCrashed(ev.page)
	case eventFrameNavigated:
		m.handleNavigated(ev.page)
	}
}

func (m *SessionManager) handleOpened(page Page) {
	if page.IsClosed() {
		return
	}
	if m.adopt(page) {
		m.logger.Infof("New page opened: %s", page.URL())
	}
}

func (m *SessionManager) handleClosed(page Page) {
	m.mu.Lock()
	bctx := m.bctx
	isActive := page == m.active
	if isActive {
		m.state = StatePageClosing
	}
	m.mu.Unlock()

	if !isActive {
		m.logger.Debugf("Inactive page closed")
		return
	}
	if bctx == nil {
		return
	}

	// The most recently opened page still open takes over.
	pages := bctx.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		next := pages[i]
		if next == page || next.IsClosed() {
			continue
		}
		m.adopt(next)
		m.setActive(next)
		if err := next.BringToFront(); err != nil {
			m.logger.Warnf("Failed to bring page to front: %v", err)
		}
		m.metrics.RecordRecovery("switch")
		m.logger.Infof("Active page closed, switched to %s", next.URL())
		return
	}

	m.logger.Infof("Last page closed, opening %s", m.opts.DefaultURL)
	next, err := bctx.NewPage()
	if err != nil {
		m.mu.Lock()
		m.active = nil
		m.state = StateNoPage
		m.mu.Unlock()
		m.logger.Errorf("Failed to open fallback page: %v", err)
		return
	}
	m.adopt(next)
	m.metrics.RecordRecovery("fallback")

	m.setRecovering(next)
	defer m.setRecovering(nil)
	m.openDefault(next)
}

func (m *SessionManager) handleCrashed(page Page) {
	m.mu.Lock()
	isActive := page == m.active
	if isActive {
		m.state = StatePageCrashed
	}
	m.mu.Unlock()

	m.logger.Warnf("Page crashed, reloading: %s", page.URL())
	m.setRecovering(page)
	defer m.setRecovering(nil)
	if err := page.Reload(m.opts.NavigationTimeout); err != nil {
		m.logger.Errorf("Failed to reload crashed page: %v", err)
	}
	m.metrics.RecordRecovery("reload")

	if isActive {
		m.setActive(page)
	}
}

func (m *SessionManager) handleNavigated(page Page) {
	m.mu.Lock()
	if page != m.active {
		m.mu.Unlock()
		return
	}
	m.state = StatePageNavigating
	m.mu.Unlock()

	m.setActive(page)
	m.logger.Debugf("Page navigated to %s", page.URL())
}

// adopt attaches lifecycle listeners to a page seen for the first time and
// makes it active. It reports whether the page was new.
func (m *SessionManager) adopt(page Page) bool {
	m.mu.Lock()
	if m.known[page] {
		m.mu.Unlock()
		return false
	}
	m.known[page] = true
	m.mu.Unlock()

	page.OnClose(func(p Page) { m.enqueue(eventPageClosed, p) })
	page.OnCrash(func(p Page) { m.enqueue(eventPageCrashed, p) })
	page.OnFrameNavigated(func(p Page) { m.enqueue(eventFrameNavigated, p) })

	m.setActive(page)
	return true
}

func (m *SessionManager) setActive(page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = page
	m.state = StatePageActive
	m.notifyLocked()
}

func (m *SessionManager) setRecovering(page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovering = page
	m.notifyLocked()
}

func (m *SessionManager) openDefault(page Page) {
	if err := page.Goto(m.opts.DefaultURL, m.opts.NavigationTimeout); err != nil {
		m.logger.Errorf("Failed to open %s: %v", m.opts.DefaultURL, err)
	}
}

func (m *SessionManager) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyLocked()
}

func (m *SessionManager) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}
