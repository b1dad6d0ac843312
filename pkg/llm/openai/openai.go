// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	reply, err := provider.Complete(context.Background(), []*llm.Message{
//	    llm.NewUserMessage("Hello!"),
//	})
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/logging"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o"
)

// Provider implements the LLM provider interface for OpenAI-compatible APIs.
type Provider struct {
	client     openai.Client
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	logger     *logging.Logger
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithMaxRetries sets how often failed requests are retried by the client.
func WithMaxRetries(n int) ProviderOption {
	return func(p *Provider) {
		p.maxRetries = n
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY environment variable.
// If baseURL is not provided via WithBaseURL option, it will check OPENAI_BASE_URL environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	// Use environment variable if no API key provided
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxRetries: 2,
		logger:     logging.NewLogger("llm"),
	}

	for _, opt := range opts {
		opt(p)
	}

	// If baseURL wasn't set by options, check environment variable
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = openai.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithMaxRetries(p.maxRetries),
	)
	return p, nil
}

// Complete sends messages to the chat completions API and returns the
// assistant's reply.
func (p *Provider) Complete(ctx context.Context, messages []*llm.Message) (*llm.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: convertToOpenAIMessages(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	p.logger.Debugf("Completion used %d prompt and %d completion tokens",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return llm.NewAssistantMessage(resp.Choices[0].Message.Content), nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// convertToOpenAIMessages converts our Message format to OpenAI's ChatCompletionMessageParamUnion format.
func convertToOpenAIMessages(messages []*llm.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			// Unknown roles are sent as user messages
			if len(msg.Image) > 0 {
				openaiMessages = append(openaiMessages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(msg.Content),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(msg.Image),
					}),
				}))
				continue
			}
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
