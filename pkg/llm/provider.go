// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*llm.Message{
//	    llm.NewSystemMessage("You are a web navigation assistant."),
//	    llm.NewUserMessage("Hello!"),
//	})
package llm

import (
	"context"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message. Image, if set, is a PNG attached to the
// message for vision-capable models.
type Message struct {
	Role    Role
	Content string
	Image   []byte
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// Provider defines the interface for LLM integrations.
//
// Providers only handle API communication. Prompt construction and answer
// parsing live in the prompt package.
type Provider interface {
	// Complete sends messages to the LLM and returns the full response.
	Complete(ctx context.Context, messages []*Message) (*Message, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}
