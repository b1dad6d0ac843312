package browser

// ActionRecord is the history entry produced by one executed action.
type ActionRecord struct {
	Action Action
	Target *ElementDescriptor
	Value  *string

	// Text is the canonical rendering, see Render
	Text string
}

func newRecord(action Action, target *ElementDescriptor, value *string) *ActionRecord {
	return &ActionRecord{
		Action: action,
		Target: target,
		Value:  value,
		Text:   Render(action, target, value),
	}
}

// String returns the canonical rendering.
func (r *ActionRecord) String() string {
	return r.Text
}

// Render produces the canonical history entry for an action:
//
//	SCROLL DOWN
//	[button[submit]] Submit button -> CLICK
//	[input[text]] Search -> TYPE: hello
//	SAY: done
func Render(action Action, target *ElementDescriptor, value *string) string {
	var s string
	if target == nil {
		s = string(action)
	} else {
		s = "[" + target.TagWithRole + "] " + target.Description + " -> " + string(action)
	}
	if action.NeedsValue() {
		v := ""
		if value != nil {
			v = *value
		}
		s += ": " + v
	}
	return s
}

// Value returns a pointer to v, for passing optional values to Execute.
func Value(v string) *string {
	return &v
}
