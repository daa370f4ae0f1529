package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

const claudeDefaultMaxTokens = 1024

// ClaudeClient provides completion via the Anthropic API. Anthropic does
// not offer an embedding endpoint, so pair it with a Gemini or OpenAI
// embedder.
type ClaudeClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

var _ Completion = (*ClaudeClient)(nil)

type ClaudeOption func(*ClaudeClient)

func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.model = anthropic.Model(model)
	}
}

func NewClaude(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	c := &ClaudeClient{
		client: &client,
		model:  anthropic.ModelClaudeSonnet4_5,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *ClaudeClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(opts.Temperature),
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create message")
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.AsText().Text)
		}
	}

	return sb.String(), nil
}
