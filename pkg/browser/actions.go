package browser

// Action is a name from the closed action vocabulary.
type Action string

const (
	ActionClick         Action = "CLICK"
	ActionPressEnter    Action = "PRESS ENTER"
	ActionHover         Action = "HOVER"
	ActionScrollUp      Action = "SCROLL UP"
	ActionScrollDown    Action = "SCROLL DOWN"
	ActionPressHome     Action = "PRESS HOME"
	ActionPressEnd      Action = "PRESS END"
	ActionPressPageUp   Action = "PRESS PAGEUP"
	ActionPressPageDown Action = "PRESS PAGEDOWN"
	ActionNewTab        Action = "NEW TAB"
	ActionCloseTab      Action = "CLOSE TAB"
	ActionGoBack        Action = "GO BACK"
	ActionGoForward     Action = "GO FORWARD"
	ActionTerminate     Action = "TERMINATE"
	ActionNone          Action = "NONE"
	ActionSelect        Action = "SELECT"
	ActionType          Action = "TYPE"
	ActionGoto          Action = "GOTO"
	ActionMemorize      Action = "MEMORIZE"
	ActionSay           Action = "SAY"
)

// capabilities are resolved once per action from the static table below.
type capabilities struct {
	// needsValue marks value-bearing actions
	needsValue bool
	// needsTarget marks element-bearing actions
	needsTarget bool
	// noElement marks actions rendered without a target when none is given
	noElement bool
	// description is shown to decision sources
	description string
}

var taxonomy = map[Action]capabilities{
	ActionClick:         {needsTarget: true, description: "Click on a webpage element using the mouse."},
	ActionHover:         {needsTarget: true, description: "Move the mouse over a webpage element without clicking."},
	ActionPressEnter:    {noElement: true, description: "Press the Enter key, typically to submit a form or confirm an input."},
	ActionScrollUp:      {noElement: true, description: "Scroll the webpage upwards by half of the window height."},
	ActionScrollDown:    {noElement: true, description: "Scroll the webpage downwards by half of the window height."},
	ActionPressHome:     {noElement: true, description: "Scroll to the top of the webpage."},
	ActionPressEnd:      {noElement: true, description: "Scroll to the bottom of the webpage."},
	ActionPressPageUp:   {noElement: true, description: "Scroll up by one window height."},
	ActionPressPageDown: {noElement: true, description: "Scroll down by one window height."},
	ActionCloseTab:      {noElement: true, description: "Close the current tab in the browser."},
	ActionNewTab:        {noElement: true, description: "Open a new tab in the browser."},
	ActionGoBack:        {noElement: true, description: "Navigate to the previous page in the browser history."},
	ActionGoForward:     {noElement: true, description: "Navigate to the next page in the browser history."},
	ActionTerminate:     {noElement: true, description: "End the current task, typically used when the task is considered complete or requires potentially harmful actions."},
	ActionNone:          {noElement: true, description: "Indicates that no action is necessary at this stage. Used to skip an action or wait."},
	ActionSelect:        {needsTarget: true, needsValue: true, description: "Choose an option from a dropdown menu or <select> element. The value indicates the option to select."},
	ActionType:          {needsTarget: true, needsValue: true, description: "Enter text into a text area or text box. The value is the text to be typed."},
	ActionGoto:          {noElement: true, needsValue: true, description: "Navigate to a specific URL. The value is the URL to navigate to."},
	ActionSay:           {noElement: true, needsValue: true, description: "Output answers or other information you want to tell the user."},
	ActionMemorize:      {noElement: true, needsValue: true, description: "Keep some content into action history to memorize it."},
}

// Vocabulary lists every action in presentation order.
var Vocabulary = []Action{
	ActionClick, ActionHover, ActionPressEnter, ActionScrollUp, ActionScrollDown,
	ActionPressHome, ActionPressEnd, ActionPressPageUp, ActionPressPageDown,
	ActionCloseTab, ActionNewTab, ActionGoBack, ActionGoForward,
	ActionTerminate, ActionNone,
	ActionSelect, ActionType, ActionGoto, ActionSay, ActionMemorize,
}

// ParseAction returns the action named by s, and false if s is not part of
// the vocabulary. Matching is exact.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := taxonomy[a]
	return a, ok
}

// Valid reports whether a is part of the vocabulary.
func (a Action) Valid() bool {
	_, ok := taxonomy[a]
	return ok
}

// NeedsValue reports whether a is value-bearing.
func (a Action) NeedsValue() bool {
	return taxonomy[a].needsValue
}

// NeedsTarget reports whether a is element-bearing.
func (a Action) NeedsTarget() bool {
	return taxonomy[a].needsTarget
}

// NoElement reports whether a renders without a target when none is given.
func (a Action) NoElement() bool {
	return taxonomy[a].noElement
}

// Description returns the human-readable meaning of a.
func (a Action) Description() string {
	return taxonomy[a].description
}
