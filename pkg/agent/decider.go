package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/prompt"
)

// Observation is what a decider sees for one step.
type Observation struct {
	Task  string
	URL   string
	Title string

	// Options are the labelled elements of this step's indexing pass
	Options []browser.ElementDescriptor

	// History holds the rendered records of every executed action
	History []string

	// ScreenshotPath is empty when no screenshot was taken
	ScreenshotPath string
}

// Decision is the next action chosen by a decider.
type Decision struct {
	Action string
	// Label selects an option, empty for no element
	Label string
	Value *string
}

// Decider picks the next action.
type Decider interface {
	Decide(ctx context.Context, obs *Observation) (*Decision, error)
}

// LLMDecider asks a chat model for the next action.
type LLMDecider struct {
	provider llm.Provider
	builder  *prompt.Builder
	logger   *logging.Logger
}

// NewLLMDecider creates a decider over provider. A nil builder sends the
// full history with every prompt.
func NewLLMDecider(provider llm.Provider, builder *prompt.Builder) *LLMDecider {
	if builder == nil {
		builder = prompt.NewBuilder(nil)
	}
	return &LLMDecider{
		provider: provider,
		builder:  builder,
		logger:   logging.NewLogger("decider"),
	}
}

// Decide sends the observation to the model and parses its final answer.
func (d *LLMDecider) Decide(ctx context.Context, obs *Observation) (*Decision, error) {
	step := prompt.Step{
		Task:    obs.Task,
		History: obs.History,
		Options: obs.Options,
	}
	if obs.ScreenshotPath != "" {
		image, err := os.ReadFile(obs.ScreenshotPath)
		if err != nil {
			d.logger.Warnf("Failed to read screenshot %s: %v", obs.ScreenshotPath, err)
		} else {
			step.Screenshot = image
		}
	}

	messages, noneLabel := d.builder.Build(step)
	reply, err := d.provider.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision from %s: %w", d.provider.GetModel(), err)
	}
	d.logger.Debugf("Model answer:\n%s", reply.Content)

	answer, err := prompt.ParseAnswer(reply.Content, noneLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}
	return &Decision{
		Action: answer.Action,
		Label:  answer.Label,
		Value:  answer.Value,
	}, nil
}
