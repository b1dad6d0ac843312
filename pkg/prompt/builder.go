// Package prompt turns an indexed page into chat messages for a
// vision-capable model and parses the model's answer back into a decision.
package prompt

import (
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/llm"
)

const systemPrompt = `You are assisting humans doing web navigation tasks step by step. At each stage, you can see the webpage by a screenshot and know the previous actions before the current step decided by yourself that have been executed for this task through recorded history. You need to decide on the first following action to take.`

const questionDescription = `The screenshot below shows the webpage you see. Think step by step before outlining the next action step at the current stage. Clearly outline which element in the webpage users will operate with as the first next target element, its detailed location, and the corresponding operation.

To be successful, it is important to follow the following rules:
1. You should only issue a valid action given the current observation.
2. You should only issue one action at a time.
3. For handling the select dropdown elements on the webpage, it's not necessary for you to provide completely accurate options right now. The full list of options for these elements will be supplied later.
4. Unlike humans, for typing (e.g., in text areas, text boxes) and selecting (e.g., from dropdown menus or <select> elements), you should try directly typing the input or selecting the choice, bypassing the need for an initial click.
5. You should not attempt to create accounts, log in or do the final submission.
6. Terminate when you deem the task complete or if it requires potentially harmful actions.
7. Do not generate the same action as the previous one, try different ways if it keeps failing.
8. When a floating banner like ads, login, or survey covers more than 30% of the page, close it to proceed. The close button could look like an x in the top right corner, or choose NO THANKS.
9. When a floating banner on the top or bottom of the page like a cookie policy covers less than 30% of the page, ignore it and proceed.
10. After typing text into a search or text input area, the next action is normally PRESS ENTER.
11. When there are bounding boxes in the screenshot, interact with the elements in the bounding boxes.
12. When there are multiple clickable buttons having the same value, choose the one with fewer obstacles in the screenshot.`

const referringDescription = `(Reiteration)
First, reiterate your next target element, its detailed location, and the corresponding operation.

(Multichoice Question)
Below is a multi-choice question, where the choices are elements in the webpage. All elements are arranged in the order based on their height on the webpage, from top to bottom (and from left to right). This arrangement can be used to locate them. From the screenshot, find out where and what each one is on the webpage, taking into account both their text content and HTML details. Then, determine whether one matches your target element if your action involves an element. Please examine the choices one by one. Choose the matching one. If multiple options match your answer, choose the most likely one by re-examining the screenshot, the choices, and your further reasoning.`

const answerFormat = `(Final Answer)
Finally, conclude your answer using the format below. Ensure your answer is strictly adhering to the format provided below. Please do not leave any explanation in your answers of the final standardized format part, and this final part should be clear and certain. The element choice, action, and value should be in three separate lines.

Format:

ELEMENT: The uppercase letter of your choice.
ACTION: Choose an action from allowed actions.
VALUE: Provide additional input based on ACTION. (If it doesn't involve a value, write "None")`

// Step is everything the model sees for one decision.
type Step struct {
	Task       string
	History    []string
	Options    []browser.ElementDescriptor
	Screenshot []byte
}

// Builder assembles the messages for one step.
type Builder struct {
	budget *Budget
}

// NewBuilder creates a builder. A nil budget sends the full history.
func NewBuilder(budget *Budget) *Builder {
	return &Builder{budget: budget}
}

// Build returns the system, query and referring messages for step, and the
// label of the "none of the other options" choice. The screenshot, if any,
// is attached to the query message.
func (b *Builder) Build(step Step) ([]*llm.Message, string) {
	query := llm.NewUserMessage(b.query(step.Task, step.History))
	query.Image = step.Screenshot

	choices, noneLabel := RenderOptions(step.Options)
	referring := llm.NewUserMessage(referringDescription + "\n\n" +
		"If none of these elements match your target element, please select " + noneLabel +
		". " + NoneOfTheAbove + ".\n\n" + choices + "\n\n" + answerFormat)

	return []*llm.Message{
		llm.NewSystemMessage(systemPrompt + "\n\n" + ActionSpace()),
		query,
		referring,
	}, noneLabel
}

func (b *Builder) query(task string, history []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are asked to complete the following task: %s\n\n", task)

	sb.WriteString("Previous Actions:\n")
	if b.budget != nil {
		history = b.budget.Trim(history)
	}
	if len(history) == 0 {
		sb.WriteString("None\n")
	}
	for _, h := range history {
		sb.WriteString(h)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(questionDescription)
	return sb.String()
}

// ActionSpace describes every action in the vocabulary, grouped by whether
// it takes a value.
func ActionSpace() string {
	var plain, valued strings.Builder
	for _, a := range browser.Vocabulary {
		line := fmt.Sprintf("- %s: %s\n", a, a.Description())
		if a.NeedsValue() {
			valued.WriteString(line)
		} else {
			plain.WriteString(line)
		}
	}
	return "Here are the descriptions of all allowed actions:\n\n" +
		"No Value Operations:\n" + plain.String() +
		"\nWith Value Operations:\n" + valued.String()
}
