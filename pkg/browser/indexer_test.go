package browser_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/browser/browsertest"
)

type option struct {
	Label       string
	Description string
	TagWithRole string
}

func options(elements []browser.ElementDescriptor) []option {
	out := make([]option, len(elements))
	for i, el := range elements {
		out[i] = option{Label: el.Label, Description: el.Description, TagWithRole: el.TagWithRole}
	}
	return out
}

func box(x, y float64) browser.Rect {
	return browser.Rect{X: x, Y: y, Width: 20, Height: 10}
}

func TestIndexer_ReadingOrder(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	page.SetElements(
		browser.Candidate{Target: &browsertest.Element{}, Tag: "A", Text: "Footer link", Box: box(10, 500)},
		browser.Candidate{Target: &browsertest.Element{}, Tag: "button", Type: "submit", Text: "Search", Box: box(300, 100)},
		browser.Candidate{Target: &browsertest.Element{}, Tag: "input", Type: "text", Placeholder: "Query", Box: box(10, 100)},
		browser.Candidate{Target: &browsertest.Element{}, Tag: "a", Role: "tab", Text: "Images", Box: box(50, 20)},
	)

	ix := browser.NewIndexer(nil, nil)
	got, err := ix.Index(context.Background(), page)
	require.NoError(t, err)

	want := []option{
		{Label: "A", Description: "Images", TagWithRole: "a[tab]"},
		{Label: "B", Description: "Query", TagWithRole: "input[text]"},
		{Label: "C", Description: "Search", TagWithRole: "button[submit]"},
		{Label: "D", Description: "Footer link", TagWithRole: "a"},
	}
	if diff := cmp.Diff(want, options(got)); diff != "" {
		t.Errorf("Index() mismatch (-want +got):\n%s", diff)
	}
	for i, el := range got {
		assert.Equal(t, i, el.Index)
	}
}

func TestIndexer_Deterministic(t *testing.T) {
	var candidates []browser.Candidate
	for i := 0; i < 60; i++ {
		// Three rows with equal Y, listed in scrambled order.
		x := float64((i * 37) % 60 * 10)
		y := float64((i % 3) * 40)
		candidates = append(candidates, browser.Candidate{
			Target: &browsertest.Element{},
			Tag:    "button",
			Text:   "item",
			Box:    box(x, y),
		})
	}

	page := browsertest.NewPage("https://example.com/")
	page.SetElements(candidates...)

	reversed := make([]browser.Candidate, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	shuffled := browsertest.NewPage("https://example.com/")
	shuffled.SetElements(reversed...)

	ix := browser.NewIndexer(nil, nil)
	first, err := ix.Index(context.Background(), page)
	require.NoError(t, err)
	second, err := ix.Index(context.Background(), page)
	require.NoError(t, err)
	third, err := ix.Index(context.Background(), shuffled)
	require.NoError(t, err)

	ignoreTarget := cmpopts.IgnoreFields(browser.ElementDescriptor{}, "Target")
	if diff := cmp.Diff(first, second, ignoreTarget); diff != "" {
		t.Errorf("repeated pass differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, third, ignoreTarget); diff != "" {
		t.Errorf("driver order changed the result (-first +third):\n%s", diff)
	}

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1].Center, first[i].Center
		if prev.Y == cur.Y {
			assert.Less(t, prev.X, cur.X, "equal Y must be ordered by ascending X")
		} else {
			assert.Less(t, prev.Y, cur.Y)
		}
	}
	assert.Equal(t, "BH", first[59].Label)
}

func TestIndexer_StackedIdenticalElements(t *testing.T) {
	upper := &browsertest.Element{}
	lower := &browsertest.Element{}
	candidates := []browser.Candidate{
		{Target: lower, Tag: "button", AriaLabel: "Close", HTML: `<button aria-label="Close" data-slot="2"></button>`, Box: box(10, 10)},
		{Target: upper, Tag: "button", AriaLabel: "Close", HTML: `<button aria-label="Close" data-slot="1"></button>`, Box: box(10, 10)},
	}

	forward := browser.Order(candidates)
	backward := browser.Order([]browser.Candidate{candidates[1], candidates[0]})

	require.Len(t, forward, 2)
	require.Len(t, backward, 2)
	assert.Equal(t, forward[0].Description, forward[1].Description)
	assert.Same(t, upper, forward[0].Target)
	assert.Same(t, upper, backward[0].Target)
	assert.Same(t, lower, backward[1].Target)
}

func TestIndexer_DropsInvisible(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	page.SetElements(
		browser.Candidate{Target: &browsertest.Element{}, Tag: "button", Text: "Hidden", Box: browser.Rect{X: 10, Y: 10}},
		browser.Candidate{Target: &browsertest.Element{}, Tag: "button", Text: "Visible", Box: box(10, 10)},
	)

	got, err := browser.NewIndexer(nil, nil).Index(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Visible", got[0].Description)
	assert.Equal(t, "A", got[0].Label)
}

func TestIndexer_TruncatesToLabelSpace(t *testing.T) {
	candidates := make([]browser.Candidate, browser.MaxOptions+5)
	for i := range candidates {
		candidates[i] = browser.Candidate{Target: &browsertest.Element{}, Tag: "a", Text: "link", Box: box(0, float64(i))}
	}
	page := browsertest.NewPage("https://example.com/")
	page.SetElements(candidates...)

	reg := prometheus.NewRegistry()
	metrics := browser.NewMetrics(reg)

	got, err := browser.NewIndexer(nil, metrics).Index(context.Background(), page)
	require.NoError(t, err)
	assert.Len(t, got, browser.MaxOptions)
	assert.Equal(t, "ZZ", got[len(got)-1].Label)

	expected := `
# HELP webpilot_indexed_elements Number of options produced by the last indexing pass.
# TYPE webpilot_indexed_elements gauge
webpilot_indexed_elements 702
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "webpilot_indexed_elements"))
}

func TestIndexer_ClosedPage(t *testing.T) {
	page := browsertest.NewPage("https://example.com/")
	require.NoError(t, page.Close())

	_, err := browser.NewIndexer(nil, nil).Index(context.Background(), page)
	assert.True(t, errors.Is(err, browser.ErrSessionUnavailable))
}

func TestIndexer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := browser.NewIndexer(nil, nil).Index(ctx, browsertest.NewPage("about:blank"))
	assert.ErrorIs(t, err, context.Canceled)
}
