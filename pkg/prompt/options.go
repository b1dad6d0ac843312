package prompt

import (
	"strings"

	"github.com/entrhq/webpilot/pkg/browser"
)

// NoneOfTheAbove is the text of the extra choice appended after the
// page's own options.
const NoneOfTheAbove = "None of the other options match the correct element"

// RenderOptions lists descriptors as multiple-choice lines
// ("A. [button[submit]] Search") followed by the "none of the other
// options" choice, and returns the label given to that final choice.
//
// The final choice always needs a label of its own, so at most
// MaxOptions-1 descriptors are rendered.
func RenderOptions(options []browser.ElementDescriptor) (text string, noneLabel string) {
	if len(options) > browser.MaxOptions-1 {
		options = options[:browser.MaxOptions-1]
	}

	var sb strings.Builder
	for _, opt := range options {
		sb.WriteString(opt.Label)
		sb.WriteString(". [")
		sb.WriteString(opt.TagWithRole)
		sb.WriteString("] ")
		sb.WriteString(opt.Description)
		sb.WriteString("\n")
	}

	// cannot fail: len(options) <= MaxOptions-1
	noneLabel, _ = browser.LabelOf(len(options))
	sb.WriteString(noneLabel)
	sb.WriteString(". ")
	sb.WriteString(NoneOfTheAbove)
	return sb.String(), noneLabel
}
