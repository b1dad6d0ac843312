package browser

import (
	"context"
	"fmt"
	"sort"

	"github.com/entrhq/webpilot/pkg/logging"
)

// Indexer turns the interactive surface of a page into labelled options.
type Indexer struct {
	logger  *logging.Logger
	metrics *Metrics
}

// NewIndexer creates an indexer. Both arguments may be nil.
func NewIndexer(logger *logging.Logger, metrics *Metrics) *Indexer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Indexer{logger: logger, metrics: metrics}
}

// Index scans page and returns its interactive elements in reading order
// (top to bottom, then left to right) with fresh indices and labels.
func (ix *Indexer) Index(ctx context.Context, page Page) ([]ElementDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page == nil || page.IsClosed() {
		return nil, fmt.Errorf("index page: %w", ErrSessionUnavailable)
	}

	candidates, err := page.InteractiveElements()
	if err != nil {
		if page.IsClosed() {
			return nil, fmt.Errorf("index page: %w: %v", ErrSessionUnavailable, err)
		}
		return nil, fmt.Errorf("failed to query interactive elements: %w", err)
	}

	elements := Order(candidates)
	if len(elements) > MaxOptions {
		ix.logger.Warnf("Page exposes %d interactive elements, keeping the first %d", len(elements), MaxOptions)
		elements = elements[:MaxOptions]
	}
	for i := range elements {
		label, err := LabelOf(i)
		if err != nil {
			return nil, err
		}
		elements[i].Index = i
		elements[i].Label = label
	}

	ix.metrics.RecordIndexed(len(elements))
	ix.logger.Debugf("Indexed %d elements on %s", len(elements), page.URL())
	return elements, nil
}

// Order describes candidates and sorts them in reading order. Candidates
// without a rendered box are dropped. Index and Label are left unset.
func Order(candidates []Candidate) []ElementDescriptor {
	type entry struct {
		el   ElementDescriptor
		html string
	}
	entries := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		if c.Box.Empty() {
			continue
		}
		entries = append(entries, entry{
			el: ElementDescriptor{
				Target:      c.Target,
				Description: describe(c),
				TagWithRole: tagWithRole(c),
				Center:      c.Box.Center(),
			},
			html: c.HTML,
		})
	}

	// The tail of the key only matters for exact coordinate ties; it keeps
	// the result independent of driver order. Candidates equal on every key
	// render identically, so their relative order is not observable.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].el, entries[j].el
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		if a.Center.X != b.Center.X {
			return a.Center.X < b.Center.X
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		if a.TagWithRole != b.TagWithRole {
			return a.TagWithRole < b.TagWithRole
		}
		return entries[i].html < entries[j].html
	})

	elements := make([]ElementDescriptor, len(entries))
	for i, e := range entries {
		elements[i] = e.el
	}
	return elements
}
