package prompt

import (
	"errors"
	"strings"
)

// ErrNoAction is returned when an answer has no ACTION line.
var ErrNoAction = errors.New("answer has no ACTION line")

// Answer is the model's final choice for one step.
type Answer struct {
	// Label is the chosen option, empty when no element was chosen
	Label  string
	Action string
	// Value is nil when the model wrote "None" or left it out
	Value *string
}

// ParseAnswer reads the last ELEMENT, ACTION and VALUE lines of text.
// Keys are case-insensitive and may carry markdown emphasis. An element of
// "None" or noneLabel means no element.
func ParseAnswer(text, noneLabel string) (*Answer, error) {
	var element, action, value string
	var hasAction, hasValue bool

	for _, line := range strings.Split(text, "\n") {
		key, val, ok := splitAnswerLine(line)
		if !ok {
			continue
		}
		switch key {
		case "ELEMENT":
			element = val
		case "ACTION":
			action, hasAction = val, true
		case "VALUE":
			value, hasValue = val, true
		}
	}

	if !hasAction {
		return nil, ErrNoAction
	}

	answer := &Answer{
		Label:  parseLabel(element, noneLabel),
		Action: strings.ToUpper(strings.Join(strings.Fields(strings.TrimRight(action, ".")), " ")),
	}
	if hasValue && !strings.EqualFold(value, "none") {
		answer.Value = &value
	}
	return answer, nil
}

func splitAnswerLine(line string) (key, val string, ok bool) {
	line = strings.TrimLeft(strings.TrimSpace(line), "*#- ")
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key = strings.ToUpper(strings.Trim(before, "* "))
	val = strings.TrimSpace(strings.Trim(after, "* "))
	if len(val) >= 2 && strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
		val = val[1 : len(val)-1]
	}
	return key, val, true
}

// parseLabel accepts "B", "B." or "B. [button] Search".
func parseLabel(element, noneLabel string) string {
	fields := strings.Fields(element)
	if len(fields) == 0 {
		return ""
	}
	label := strings.ToUpper(strings.Trim(fields[0], ".:)("))
	if label == "NONE" || label == strings.ToUpper(noneLabel) {
		return ""
	}
	return label
}
