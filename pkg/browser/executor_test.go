package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
)

func newExecutor(t *testing.T, page *browsertest.Page) (*browser.Executor, *browsertest.PageSource) {
	t.Helper()
	src := browsertest.NewPageSource(page)
	exec := browser.NewExecutor(src, browser.ExecutorOptions{
		Viewport:       browser.Viewport{Width: 1280, Height: 720},
		ElementTimeout: 100 * time.Millisecond,
	})
	return exec, src
}

func submitButton(el *browsertest.Element) *browser.ElementDescriptor {
	return &browser.ElementDescriptor{
		Target:      el,
		Description: "Submit button",
		TagWithRole: "button[submit]",
		Label:       "A",
	}
}

func TestExecute_TaxonomyEnforcement(t *testing.T) {
	exec, _ := newExecutor(t, browsertest.NewPage("https://example.com/"))
	ctx := context.Background()

	tests := []struct {
		name   string
		action string
		target *browser.ElementDescriptor
		value  *string
		kind   error
	}{
		{"click without target", "CLICK", nil, nil, browser.ErrInvalidAction},
		{"hover without target", "HOVER", nil, nil, browser.ErrInvalidAction},
		{"type without value", "TYPE", submitButton(&browsertest.Element{}), nil, browser.ErrInvalidAction},
		{"select without target", "SELECT", nil, browser.Value("x"), browser.ErrInvalidAction},
		{"goto without value", "GOTO", nil, nil, browser.ErrInvalidAction},
		{"say without value", "SAY", nil, nil, browser.ErrInvalidAction},
		{"unknown action", "DOUBLE CLICK", nil, nil, browser.ErrUnsupportedAction},
		{"lowercase action", "click", submitButton(&browsertest.Element{}), nil, browser.ErrUnsupportedAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := exec.Execute(ctx, tt.action, tt.target, tt.value)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.kind, browser.Kind(err))

			var ae *browser.ActionError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, browser.Action(tt.action), ae.Action)
		})
	}
}

func TestExecute_Rendering(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	exec, _ := newExecutor(t, page)
	ctx := context.Background()
	target := submitButton(&browsertest.Element{})

	record, err := exec.Execute(ctx, "CLICK", target, nil)
	require.NoError(t, err)
	assert.Equal(t, "[button[submit]] Submit button -> CLICK", record.String())

	record, err = exec.Execute(ctx, "TYPE", target, browser.Value("hello"))
	require.NoError(t, err)
	assert.Equal(t, "[button[submit]] Submit button -> TYPE: hello", record.String())

	record, err = exec.Execute(ctx, "SCROLL DOWN", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SCROLL DOWN", record.String())

	record, err = exec.Execute(ctx, "SAY", nil, browser.Value(""))
	require.NoError(t, err)
	assert.Equal(t, "SAY: ", record.String())
	require.NotNil(t, record.Value)
	assert.Equal(t, "", *record.Value)
}

func TestExecute_TypeIsIdempotent(t *testing.T) {
	el := &browsertest.Element{}
	exec, _ := newExecutor(t, browsertest.NewPage("https://example.com/"))
	target := &browser.ElementDescriptor{Target: el, Description: "Search", TagWithRole: "input[text]"}

	for i := 0; i < 2; i++ {
		_, err := exec.Execute(context.Background(), "TYPE", target, browser.Value("webpilot"))
		require.NoError(t, err)
		assert.Equal(t, "webpilot", el.Value())
	}
	assert.Equal(t, 4, el.Fills())
}

func TestExecute_ElementActions(t *testing.T) {
	el := &browsertest.Element{Options: []string{"Small", "Large"}}
	page := browsertest.NewPage("https://example.com/")
	exec, _ := newExecutor(t, page)
	ctx := context.Background()
	target := submitButton(el)

	_, err := exec.Execute(ctx, "CLICK", target, nil)
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "HOVER", target, nil)
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "PRESS ENTER", target, nil)
	require.NoError(t, err)
	_, err = exec.Execute(ctx, "SELECT", target, browser.Value("Large"))
	require.NoError(t, err)

	assert.Equal(t, 1, el.Clicks())
	assert.Equal(t, 1, el.Hovers())
	assert.Equal(t, []string{"Enter"}, el.Presses())
	assert.Equal(t, "Large", el.Selected())
	assert.Empty(t, page.Keys(), "PRESS ENTER on a target must not use the page keyboard")
}

func TestExecute_SelectWithoutMatch(t *testing.T) {
	el := &browsertest.Element{Options: []string{"Small"}}
	exec, _ := newExecutor(t, browsertest.NewPage("https://example.com/"))

	record, err := exec.Execute(context.Background(), "SELECT", submitButton(el), browser.Value("Huge"))
	assert.Nil(t, record)
	assert.ErrorIs(t, err, browser.ErrInvalidAction)
	assert.ErrorIs(t, err, browser.ErrNoSuchOption)
	assert.Empty(t, el.Selected())
}

func TestExecute_PageActions(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	exec, _ := newExecutor(t, page)
	ctx := context.Background()

	for _, action := range []string{"SCROLL DOWN", "SCROLL DOWN", "SCROLL UP", "PRESS ENTER", "PRESS HOME", "PRESS END", "PRESS PAGEUP", "PRESS PAGEDOWN"} {
		_, err := exec.Execute(ctx, action, nil, nil)
		require.NoError(t, err, action)
	}

	assert.Equal(t, 360, page.ScrollY())
	assert.Equal(t, []string{"Enter", "Home", "End", "PageUp", "PageDown"}, page.Keys())
}

func TestExecute_Navigation(t *testing.T) {
	page := browsertest.NewPage("https://example.com/docs/index.html")
	exec, _ := newExecutor(t, page)
	ctx := context.Background()

	_, err := exec.Execute(ctx, "GOTO", nil, browser.Value("guide.html"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs/guide.html", page.URL())

	_, err = exec.Execute(ctx, "GOTO", nil, browser.Value("https://other.example.org/"))
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.org/", page.URL())

	_, err = exec.Execute(ctx, "GO BACK", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs/guide.html", page.URL())

	_, err = exec.Execute(ctx, "GO FORWARD", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.org/", page.URL())
}

func TestExecute_NavigationFailureReturnsRecord(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	page.SetGotoErr(browser.ErrTimeout)
	exec, _ := newExecutor(t, page)

	record, err := exec.Execute(context.Background(), "GOTO", nil, browser.Value("https://slow.example.com/"))
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrNavigationFailure)
	assert.True(t, browser.IsRetryable(err))
	require.NotNil(t, record)
	assert.Equal(t, "GOTO: https://slow.example.com/", record.String())
	assert.Equal(t, "https://slow.example.com/", page.URL())
}

func TestExecute_NavigationPolicy(t *testing.T) {
	policy, err := browser.NewNavigationPolicy(nil, []string{"*://*.internal/*"})
	require.NoError(t, err)

	page := browsertest.NewPage("https://example.com/")
	exec := browser.NewExecutor(browsertest.NewPageSource(page), browser.ExecutorOptions{Policy: policy})

	_, err = exec.Execute(context.Background(), "GOTO", nil, browser.Value("http://admin.internal/"))
	assert.ErrorIs(t, err, browser.ErrInvalidAction)
	assert.ErrorIs(t, err, browser.ErrNavigationBlocked)
	assert.Equal(t, "https://example.com/", page.URL())
}

func TestExecute_UnresponsiveTargetIsBounded(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	el := &browsertest.Element{Block: block}
	exec, _ := newExecutor(t, browsertest.NewPage("https://example.com/"))

	for _, action := range []string{"CLICK", "HOVER", "PRESS ENTER"} {
		start := time.Now()
		_, err := exec.Execute(context.Background(), action, submitButton(el), nil)
		elapsed := time.Since(start)

		assert.ErrorIs(t, err, browser.ErrTargetUnavailable, action)
		assert.ErrorIs(t, err, browser.ErrTimeout, action)
		assert.Less(t, elapsed, 2*time.Second, action)
	}
}

func TestExecute_StaleTarget(t *testing.T) {
	el := &browsertest.Element{Err: errors.New("element is not attached to the DOM")}
	exec, _ := newExecutor(t, browsertest.NewPage("https://example.com/"))

	_, err := exec.Execute(context.Background(), "CLICK", submitButton(el), nil)
	assert.ErrorIs(t, err, browser.ErrTargetUnavailable)
	assert.True(t, browser.IsRetryable(err))
	assert.Contains(t, err.Error(), `CLICK on "Submit button"`)
}

func TestExecute_NoBrowserActions(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	exec, src := newExecutor(t, page)
	src.SetErr(browser.ErrSessionUnavailable)
	ctx := context.Background()

	assert.False(t, exec.Completed())

	for _, tc := range []struct {
		action string
		value  *string
	}{
		{"NONE", nil},
		{"SAY", browser.Value("done")},
		{"MEMORIZE", browser.Value("price is 12 USD")},
		{"TERMINATE", nil},
	} {
		record, err := exec.Execute(ctx, tc.action, nil, tc.value)
		require.NoError(t, err, tc.action)
		assert.NotNil(t, record)
	}
	assert.True(t, exec.Completed())
}

func TestExecute_SessionUnavailable(t *testing.T) {
	exec, src := newExecutor(t, browsertest.NewPage("https://example.com/"))
	src.SetErr(errors.New("browser is gone"))

	_, err := exec.Execute(context.Background(), "SCROLL UP", nil, nil)
	assert.ErrorIs(t, err, browser.ErrSessionUnavailable)
	assert.False(t, browser.IsRetryable(err))
}

func TestExecute_ClosedPage(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	require.NoError(t, page.Close())
	exec, _ := newExecutor(t, page)

	_, err := exec.Execute(context.Background(), "PRESS END", nil, nil)
	assert.ErrorIs(t, err, browser.ErrSessionUnavailable)
}

func TestExecute_Tabs(t *testing.T) {
	bctx := &browsertest.Context{}
	first, err := bctx.NewPage()
	require.NoError(t, err)

	src := browsertest.NewPageSource(first)
	src.Context = bctx
	exec := browser.NewExecutor(src, browser.ExecutorOptions{})
	ctx := context.Background()

	_, err = exec.Execute(ctx, "NEW TAB", nil, nil)
	require.NoError(t, err)
	assert.Len(t, bctx.Pages(), 2)

	_, err = exec.Execute(ctx, "CLOSE TAB", nil, nil)
	require.NoError(t, err)
	assert.True(t, first.IsClosed())
	assert.Len(t, bctx.Pages(), 1)
}
