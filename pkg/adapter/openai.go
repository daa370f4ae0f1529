package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient provides both completion and embedding via the OpenAI API
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
}

var (
	_ Completion = (*OpenAIClient)(nil)
	_ Embedding  = (*OpenAIClient)(nil)
)

type OpenAIOption func(*OpenAIClient)

func WithChatModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.chatModel = model
	}
}

func WithOpenAIEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = openai.EmbeddingModel(model)
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required")
	}

	c := &OpenAIClient{
		client:         openai.NewClient(apiKey),
		chatModel:      openai.GPT4oMini,
		embeddingModel: openai.SmallEmbedding3,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion")
	}

	if len(resp.Choices) == 0 {
		return "", goerr.New("no choice in completion response")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding")
	}

	if len(resp.Data) == 0 {
		return nil, goerr.New("no embedding in response")
	}

	return resp.Data[0].Embedding, nil
}
