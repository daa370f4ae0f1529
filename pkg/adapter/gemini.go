package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiClient provides both completion and embedding via the Gemini API
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	dimension       int32
}

var (
	_ Completion = (*GeminiClient)(nil)
	_ Embedding  = (*GeminiClient)(nil)
)

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithEmbeddingDimension sets the output dimensionality of embedding
// vectors. All vectors produced by one client share this dimension.
func WithEmbeddingDimension(dim int) GeminiOption {
	return func(g *GeminiClient) {
		g.dimension = int32(dim)
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		dimension:       768,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	config := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	temp := float32(opts.Temperature)
	config.Temperature = &temp

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("no candidate in completion response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &g.dimension,
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}

	if len(resp.Embeddings) == 0 {
		return nil, goerr.New("no embedding in response")
	}

	return resp.Embeddings[0].Values, nil
}
