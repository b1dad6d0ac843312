package browser

import (
	"fmt"

	"github.com/gobwas/glob"
)

// NavigationPolicy decides which URLs GOTO may open.
//
// Deny patterns always win. With no allow patterns every URL not denied is
// allowed.
type NavigationPolicy struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewNavigationPolicy compiles glob patterns matched against full URLs,
// e.g. "https://*.example.com/*".
func NewNavigationPolicy(allowed, denied []string) (*NavigationPolicy, error) {
	p := &NavigationPolicy{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		p.allowedPatterns = append(p.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		p.deniedPatterns = append(p.deniedPatterns, g)
	}

	return p, nil
}

// Check returns an error wrapping ErrNavigationBlocked if url may not be opened.
// A nil policy allows everything.
func (p *NavigationPolicy) Check(url string) error {
	if p == nil {
		return nil
	}
	for _, g := range p.deniedPatterns {
		if g.Match(url) {
			return fmt.Errorf("%w: %s matches a denied pattern", ErrNavigationBlocked, url)
		}
	}
	if len(p.allowedPatterns) == 0 {
		return nil
	}
	for _, g := range p.allowedPatterns {
		if g.Match(url) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s matches no allowed pattern", ErrNavigationBlocked, url)
}
