package pwdriver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browser"
)

// idAttribute tags the elements of the latest scan.
const idAttribute = "data-webpilot-id"

// maxHTMLLength truncates outer HTML snippets returned by a scan.
const maxHTMLLength = 1000

// collectScript tags every rendered interactive element with a scan-scoped
// id and reports what the indexer needs to describe and order it.
const collectScript = `({attr, scan, maxHTML}) => {
  const selector = [
    'a[href]', 'button', 'input:not([type="hidden"])', 'select', 'textarea', 'summary',
    '[role="button"]', '[role="link"]', '[role="checkbox"]', '[role="radio"]',
    '[role="tab"]', '[role="menuitem"]', '[role="option"]', '[role="combobox"]',
    '[role="textbox"]', '[role="switch"]', '[onclick]', '[contenteditable="true"]',
    '[tabindex]:not([tabindex="-1"])'
  ].join(',');

  for (const el of document.querySelectorAll('[' + attr + ']')) {
    el.removeAttribute(attr);
  }

  const out = [];
  let n = 0;
  for (const el of document.querySelectorAll(selector)) {
    const rect = el.getBoundingClientRect();
    if (rect.width <= 0 || rect.height <= 0) continue;
    const style = window.getComputedStyle(el);
    if (style.visibility === 'hidden' || style.display === 'none') continue;

    const id = scan + '-' + (n++);
    el.setAttribute(attr, id);
    out.push({
      id: id,
      tag: el.tagName.toLowerCase(),
      role: el.getAttribute('role') || '',
      type: el.getAttribute('type') || '',
      text: (el.innerText || '').trim().slice(0, 500),
      ariaLabel: el.getAttribute('aria-label') || '',
      placeholder: el.getAttribute('placeholder') || '',
      title: el.getAttribute('title') || '',
      alt: el.getAttribute('alt') || '',
      value: typeof el.value === 'string' ? el.value : '',
      name: el.getAttribute('name') || '',
      html: el.outerHTML.slice(0, maxHTML),
      x: rect.x, y: rect.y, width: rect.width, height: rect.height
    });
  }
  return out;
}`

// selectScript resolves a SELECT value to an option value: visible label
// first, then option value. It returns null when nothing matches.
const selectScript = `(el, wanted) => {
  const options = Array.from(el.options || []);
  const byLabel = options.find(o => (o.label || o.text || '').trim() === wanted);
  if (byLabel) return byLabel.value;
  const byValue = options.find(o => o.value === wanted);
  return byValue ? byValue.value : null;
}`

// scannedElement is one element reported by collectScript.
type scannedElement struct {
	ID          string  `json:"id"`
	Tag         string  `json:"tag"`
	Role        string  `json:"role"`
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	AriaLabel   string  `json:"ariaLabel"`
	Placeholder string  `json:"placeholder"`
	Title       string  `json:"title"`
	Alt         string  `json:"alt"`
	Value       string  `json:"value"`
	Name        string  `json:"name"`
	HTML        string  `json:"html"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// InteractiveElements implements browser.Page. Targets returned by an
// earlier call stop resolving once a new scan has run.
func (p *Page) InteractiveElements() ([]browser.Candidate, error) {
	scan := p.scans.Add(1)
	raw, err := p.page.Evaluate(collectScript, map[string]interface{}{
		"attr":    idAttribute,
		"scan":    strconv.FormatInt(scan, 10),
		"maxHTML": maxHTMLLength,
	})
	if err != nil {
		return nil, fmt.Errorf("element scan failed: %w", mapError(err))
	}

	scanned, err := decodeScan(raw)
	if err != nil {
		return nil, err
	}

	candidates := make([]browser.Candidate, 0, len(scanned))
	for _, el := range scanned {
		candidates = append(candidates, browser.Candidate{
			Target:      &Target{locator: p.page.Locator(selectorFor(el.ID))},
			Tag:         el.Tag,
			Role:        el.Role,
			Type:        el.Type,
			Text:        el.Text,
			AriaLabel:   el.AriaLabel,
			Placeholder: el.Placeholder,
			Title:       el.Title,
			Alt:         el.Alt,
			Value:       el.Value,
			Name:        el.Name,
			HTML:        el.HTML,
			Box:         browser.Rect{X: el.X, Y: el.Y, Width: el.Width, Height: el.Height},
		})
	}
	p.logger.Debugf("Scan %d found %d interactive elements on %s", scan, len(candidates), p.page.URL())
	return candidates, nil
}

// decodeScan converts the evaluated script result into typed elements.
func decodeScan(raw interface{}) ([]scannedElement, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan result: %w", err)
	}
	var scanned []scannedElement
	if err := json.Unmarshal(data, &scanned); err != nil {
		return nil, fmt.Errorf("unexpected scan result: %w", err)
	}
	return scanned, nil
}

func selectorFor(id string) string {
	return fmt.Sprintf(`[%s=%q]`, idAttribute, id)
}

// Target is an element located by its scan id.
type Target struct {
	locator playwright.Locator
}

// Click implements browser.Target.
func (t *Target) Click(timeout time.Duration) error {
	return mapError(t.locator.Click(playwright.LocatorClickOptions{Timeout: timeoutMS(timeout)}))
}

// Hover implements browser.Target.
func (t *Target) Hover(timeout time.Duration) error {
	return mapError(t.locator.Hover(playwright.LocatorHoverOptions{Timeout: timeoutMS(timeout)}))
}

// Fill implements browser.Target.
func (t *Target) Fill(value string, timeout time.Duration) error {
	return mapError(t.locator.Fill(value, playwright.LocatorFillOptions{Timeout: timeoutMS(timeout)}))
}

// Press implements browser.Target.
func (t *Target) Press(key string, timeout time.Duration) error {
	return mapError(t.locator.Press(key, playwright.LocatorPressOptions{Timeout: timeoutMS(timeout)}))
}

// SelectOption implements browser.Target.
func (t *Target) SelectOption(value string, timeout time.Duration) error {
	resolved, err := t.locator.Evaluate(selectScript, value, playwright.LocatorEvaluateOptions{Timeout: timeoutMS(timeout)})
	if err != nil {
		return mapError(err)
	}
	optionValue, ok := resolved.(string)
	if !ok {
		return fmt.Errorf("%w: %q", browser.ErrNoSuchOption, value)
	}

	_, err = t.locator.SelectOption(playwright.SelectOptionValues{
		Values: &[]string{optionValue},
	}, playwright.LocatorSelectOptionOptions{Timeout: timeoutMS(timeout)})
	if err != nil {
		return mapError(err)
	}
	return nil
}

var _ browser.Target = (*Target)(nil)
var _ browser.Page = (*Page)(nil)
var _ browser.Context = (*Context)(nil)
var _ browser.Browser = (*Browser)(nil)
var _ browser.Launcher = (*Launcher)(nil)
