package browser

import "time"

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rect is an element bounding box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the center point of the box.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Candidate is a raw interactive element as reported by the driver, before
// it is described, ordered and labelled by the Indexer.
type Candidate struct {
	// Target is the driver handle used to act on the element
	Target Target

	Tag         string
	Role        string
	Type        string
	Text        string
	AriaLabel   string
	Placeholder string
	Title       string
	Alt         string
	Value       string
	Name        string

	// HTML is a (possibly truncated) outer HTML snippet of the element
	HTML string

	// Box is the element's bounding box in viewport space
	Box Rect
}

// Target is a handle to one element on a page.
//
// Implementations must honour the timeout and report expiry as an error
// matching ErrTimeout.
type Target interface {
	Click(timeout time.Duration) error
	Hover(timeout time.Duration) error
	Fill(value string, timeout time.Duration) error
	Press(key string, timeout time.Duration) error
	// SelectOption picks an option by visible label, falling back to option
	// value. It returns an error matching ErrNoSuchOption if nothing matches.
	SelectOption(value string, timeout time.Duration) error
}

// Page is one tab in a browser context.
//
// The On* callbacks are invoked from driver goroutines. Handlers must not
// block and must not call back into the driver.
type Page interface {
	URL() string
	Title() (string, error)
	IsClosed() bool

	// Goto navigates and waits for the load event.
	Goto(url string, timeout time.Duration) error
	GoBack(timeout time.Duration) error
	GoForward(timeout time.Duration) error
	Reload(timeout time.Duration) error

	BringToFront() error
	Close() error

	ScrollBy(dx, dy int) error
	PressKey(key string) error
	Screenshot(path string) error

	// InteractiveElements returns clickable, focusable and form elements with
	// their bounding boxes. Order is unspecified.
	InteractiveElements() ([]Candidate, error)

	OnClose(func(Page))
	OnCrash(func(Page))
	// OnFrameNavigated reports the page owning the navigated frame.
	OnFrameNavigated(func(Page))
}

// Context is an isolated browser context holding a set of pages.
type Context interface {
	NewPage() (Page, error)
	// Pages returns the open pages in opening order.
	Pages() []Page
	OnPage(func(Page))

	StartTracing() error
	StopTracing(path string) error

	Close() error
}

// Browser is a launched browser process.
type Browser interface {
	NewContext(viewport Viewport) (Context, error)
	Close() error
}

// Launcher starts browsers.
type Launcher interface {
	Launch(headless bool, args []string) (Browser, error)
}
