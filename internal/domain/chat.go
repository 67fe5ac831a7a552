// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the gateway.
package domain

import (
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

const (
	// DefaultTemperature is applied when a request does not carry one.
	DefaultTemperature = 0.7

	// MaxTemperature is the upper bound accepted for sampling temperature.
	MaxTemperature = 2.0

	// DefaultModel is used when the client omits the model field.
	DefaultModel = "gpt-3.5-turbo"
)

// IsValid reports whether r is one of the supported roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleSystem, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged entry of a conversation.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is the provider-neutral chat completion request.
// It is passed by value and never modified once built; Messages must not be
// mutated by anything downstream of the HTTP boundary.
type ChatRequest struct {
	Model            string
	Messages         []Message
	Temperature      float64
	MaxTokens        *int
	ProviderOverride string
}

// NewChatRequest builds a request with the default temperature and a private
// copy of messages.
func NewChatRequest(model string, messages []Message) ChatRequest {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return ChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: DefaultTemperature,
	}
}

// Validate checks the request against the data model constraints.
// The returned error is a *GatewayError of kind KindValidation.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return NewValidationError("model is required")
	}
	if len(r.Messages) == 0 {
		return NewValidationError("messages must not be empty")
	}
	for i, m := range r.Messages {
		if !m.Role.IsValid() {
			return NewValidationError(fmt.Sprintf("messages[%d].role %q is invalid, must be one of: user, system, assistant", i, m.Role))
		}
	}
	if r.Temperature < 0 || r.Temperature > MaxTemperature {
		return NewValidationError(fmt.Sprintf("temperature %v is out of range [0, 2]", r.Temperature))
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return NewValidationError("max_tokens must be a positive integer")
	}
	return nil
}

// Usage holds token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NormalizeUsage clamps negative counts to zero and derives the total from
// its parts when the upstream omitted it.
func NormalizeUsage(prompt, completion, total int) Usage {
	prompt = max(prompt, 0)
	completion = max(completion, 0)
	total = max(total, 0)
	if total == 0 {
		total = prompt + completion
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

// ChatResult is the normalized outcome of a chat completion.
type ChatResult struct {
	Content      string
	ModelUsed    string
	FinishReason string
	Usage        Usage
}
