package client

import (
	"context"
	"fmt"
)

const (
	documentAnalysisPrompt = `Analyze the following document content and provide insights:

Content: %s

Please provide:
1. A brief summary
2. Key themes or topics
3. Suggested improvements
4. Tone and style assessment`

	textImprovementPrompt = `Please improve the following text while maintaining its original meaning:

Original text: %s

Focus on:
- Grammar and spelling
- Clarity and readability
- Professional tone
- Conciseness`

	dataInsightsPrompt = `Analyze the following data and provide insights:

Data: %s

Please provide:
1. Key patterns or trends
2. Notable observations
3. Potential implications
4. Recommendations for action`

	emailDraftPrompt = `Draft a professional email with the following requirements:

Purpose: %s
Tone: %s
Key points: %s
Recipient: %s

Please create a well-structured, professional email.`
)

// Email describes the message DraftEmail should write. Empty Tone and
// Recipient default to "professional" and "colleague".
type Email struct {
	Purpose   string
	Tone      string
	KeyPoints string
	Recipient string
}

// Office wraps a Client with prompt templates for document and mail tasks.
type Office struct {
	client *Client

	// Model is sent with every prompt; empty means DefaultModel.
	Model string
}

// NewOffice returns an Office helper that sends prompts through c.
func NewOffice(c *Client) *Office {
	return &Office{client: c, Model: DefaultModel}
}

// AnalyzeDocument summarizes content and comments on its themes and tone.
func (o *Office) AnalyzeDocument(ctx context.Context, content string) (string, error) {
	return o.client.Ask(ctx, o.Model, fmt.Sprintf(documentAnalysisPrompt, content))
}

// ImproveText rewrites text for grammar and clarity, keeping its meaning.
func (o *Office) ImproveText(ctx context.Context, text string) (string, error) {
	return o.client.Ask(ctx, o.Model, fmt.Sprintf(textImprovementPrompt, text))
}

// AnalyzeData reports patterns and recommendations for tabular data.
func (o *Office) AnalyzeData(ctx context.Context, data string) (string, error) {
	return o.client.Ask(ctx, o.Model, fmt.Sprintf(dataInsightsPrompt, data))
}

// DraftEmail writes an email from e.
func (o *Office) DraftEmail(ctx context.Context, e Email) (string, error) {
	if e.Tone == "" {
		e.Tone = "professional"
	}
	if e.Recipient == "" {
		e.Recipient = "colleague"
	}
	return o.client.Ask(ctx, o.Model, fmt.Sprintf(emailDraftPrompt, e.Purpose, e.Tone, e.KeyPoints, e.Recipient))
}
