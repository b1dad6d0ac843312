package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// maxDescriptionRunes caps descriptions shown to the decision source.
const maxDescriptionRunes = 200

// describe builds the human-readable description of a candidate.
func describe(c Candidate) string {
	for _, s := range []string{
		c.AriaLabel,
		c.Text,
		textFromHTML(c.HTML),
		c.Placeholder,
		c.Title,
		c.Alt,
		c.Value,
		c.Name,
	} {
		if d := normalizeText(s); d != "" {
			return truncateRunes(d, maxDescriptionRunes)
		}
	}
	return ""
}

// tagWithRole summarizes a candidate as tag[role], tag[type] or tag.
func tagWithRole(c Candidate) string {
	tag := strings.ToLower(strings.TrimSpace(c.Tag))
	if tag == "" {
		tag = "element"
	}
	switch {
	case c.Role != "":
		return tag + "[" + c.Role + "]"
	case c.Type != "":
		return tag + "[" + c.Type + "]"
	default:
		return tag
	}
}

// textFromHTML recovers readable text from an element's outer HTML: text
// nodes plus alt/title/aria-label attributes of descendants such as icons.
func textFromHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			return
		}
		if n.Type == html.ElementNode && isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		case html.ElementNode:
			for _, attr := range n.Attr {
				switch attr.Key {
				case "alt", "title", "aria-label":
					if v := strings.TrimSpace(attr.Val); v != "" {
						parts = append(parts, v)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}

// isSkippedElement checks if an element never contributes readable text
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "head":
		return true
	}
	return false
}

// normalizeText collapses whitespace runs into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
