package browser

import (
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

// SessionOptions configures a SessionManager.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Args are extra browser command line arguments
	Args []string

	// Viewport sets the context viewport size
	Viewport Viewport

	// DefaultURL is opened on start and whenever the last page closes
	DefaultURL string

	// NavigationTimeout bounds navigations performed by the session itself
	NavigationTimeout time.Duration

	// SettleTimeout bounds how long ActivePage waits for pending lifecycle
	// events to be processed
	SettleTimeout time.Duration

	// Tracing records a Playwright trace for the whole session
	Tracing bool

	// TracePath is where the trace is written on Stop
	TracePath string

	Logger  *logging.Logger
	Metrics *Metrics
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Viewport is used to compute scroll distances
	Viewport Viewport

	// ElementTimeout bounds click, hover, fill, press and select
	ElementTimeout time.Duration

	// NavigationTimeout bounds GOTO, GO BACK and GO FORWARD
	NavigationTimeout time.Duration

	// Policy restricts GOTO targets; nil allows everything
	Policy *NavigationPolicy

	Logger  *logging.Logger
	Metrics *Metrics
}

// Default values for various operations
const (
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 720
	DefaultElementTimeout    = 2 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSettleTimeout     = 10 * time.Second
	DefaultURL               = "https://www.google.com/"
)

// guardSlack is added to ElementTimeout before the executor gives up on a
// driver call that ignores its own timeout.
const guardSlack = 500 * time.Millisecond

func (o *SessionOptions) applyDefaults() {
	if o.Viewport.Width == 0 || o.Viewport.Height == 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.DefaultURL == "" {
		o.DefaultURL = DefaultURL
	}
	if o.NavigationTimeout == 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.SettleTimeout == 0 {
		o.SettleTimeout = DefaultSettleTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}

func (o *ExecutorOptions) applyDefaults() {
	if o.Viewport.Width == 0 || o.Viewport.Height == 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.ElementTimeout == 0 {
		o.ElementTimeout = DefaultElementTimeout
	}
	if o.NavigationTimeout == 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}
