package adapter

// OpenAI-compatible request/response types.
// These types mirror the OpenAI API format and are shared by the openai and
// azure families and by the gateway's own HTTP surface.

// OpenAIRequest represents an OpenAI chat completion request.
type OpenAIRequest struct {
	// Model specifies which model to use (e.g., "gpt-4", "llama2").
	Model string `json:"model,omitempty"`

	// Messages contains the conversation history.
	Messages []OpenAIMessage `json:"messages"`

	// Temperature controls randomness (0.0-2.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length. Optional.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Stream is always false upstream; the gateway answers in one piece.
	Stream bool `json:"stream"`
}

// OpenAIMessage represents a single message in the conversation.
type OpenAIMessage struct {
	// Role is one of: "system", "user", "assistant".
	Role string `json:"role"`

	// Content is the message text content.
	Content string `json:"content"`
}

// OpenAIResponse represents an OpenAI chat completion response.
type OpenAIResponse struct {
	// ID is the unique identifier for this completion.
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of when the completion was created.
	Created int64 `json:"created"`

	// Model is the model used for completion.
	Model string `json:"model"`

	// Choices contains the generated completions.
	Choices []OpenAIChoice `json:"choices"`

	// Usage contains token usage statistics.
	Usage OpenAIUsage `json:"usage"`
}

// OpenAIChoice represents a single completion choice.
type OpenAIChoice struct {
	// Index is the position of this choice in the list.
	Index int `json:"index"`

	// Message contains the generated message.
	Message OpenAIMessage `json:"message"`

	// FinishReason indicates why the model stopped generating.
	// Values: "stop", "length", "content_filter".
	FinishReason string `json:"finish_reason"`
}

// OpenAIUsage contains token usage statistics.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIError represents an error response body.
type OpenAIError struct {
	Error OpenAIErrorDetail `json:"error"`
}

// OpenAIErrorDetail contains the error details.
type OpenAIErrorDetail struct {
	// Message is the human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error (e.g., "validation_error").
	Type string `json:"type"`

	// UpstreamStatus is the provider's HTTP status for upstream_error.
	UpstreamStatus int `json:"upstream_status,omitempty"`
}

// openAIWireResponse is the decode-side view of an upstream response; pointer
// fields distinguish missing values from zero values.
type openAIWireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message *struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *OpenAIUsage `json:"usage"`
}
