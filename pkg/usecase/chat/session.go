package chat

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
	"github.com/m-mizutani/recall/pkg/utils/logging"
)

// HistoryLog is the conversation store consumed by the session
type HistoryLog interface {
	Append(ctx context.Context, role model.TurnRole, text string) error
	Recent(ctx context.Context, n int) ([]model.HistoryTurn, error)
	Clear(ctx context.Context) error
}

// Session orchestrates one conversation: it owns neither store but
// drives the retrieve-compose-generate pipeline on each user turn.
// A session holds no per-turn state; turns of independent sessions may
// run concurrently.
type Session struct {
	idx        index.Index
	history    HistoryLog
	embedding  adapter.Embedding
	completion adapter.Completion
	config     Config
}

// NewInput contains parameters for creating a session
type NewInput struct {
	Index      index.Index
	History    HistoryLog
	Embedding  adapter.Embedding
	Completion adapter.Completion
	Config     Config
}

func New(input NewInput) (*Session, error) {
	if input.Index == nil {
		return nil, goerr.New("index is required")
	}
	if input.History == nil {
		return nil, goerr.New("history log is required")
	}
	if input.Embedding == nil {
		return nil, goerr.New("embedding backend is required")
	}
	if input.Completion == nil {
		return nil, goerr.New("completion backend is required")
	}
	if err := input.Config.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		idx:        input.Index,
		history:    input.History,
		embedding:  input.Embedding,
		completion: input.Completion,
		config:     input.Config,
	}, nil
}

type sendConfig struct {
	remember bool
}

type SendOption func(*sendConfig)

// WithRemember stores the user message as a memory entry after a
// successful turn
func WithRemember() SendOption {
	return func(c *sendConfig) {
		c.remember = true
	}
}

// Send runs one turn: record the user message, embed it, retrieve
// memories and recent history, compose the prompt, generate, and record
// the response.
//
// Failure semantics: the user turn is durable before any external call,
// so a failed turn leaves history consistent and retryable. An embedding
// failure aborts before the completion backend is ever called; a
// completion failure leaves the user turn recorded with no assistant
// turn.
func (s *Session) Send(ctx context.Context, message string, opts ...SendOption) (string, error) {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(message) == "" {
		return "", goerr.New("message is empty")
	}

	logger := logging.From(ctx)

	if err := s.history.Append(ctx, model.RoleUser, message); err != nil {
		return "", err
	}

	queryVec, err := s.embedding.Embed(ctx, message)
	if err != nil {
		return "", goerr.Wrap(model.ErrEmbeddingUnavailable, "failed to embed query", goerr.V("cause", err))
	}

	memories, err := s.idx.Search(ctx, queryVec, s.config.TopK)
	if err != nil {
		return "", err
	}

	turns, err := s.recentWithoutQuery(ctx, message)
	if err != nil {
		return "", err
	}

	prompt := composePrompt(s.config.identity(), turns, memories, message)
	logger.Debug("composed prompt",
		"memories", len(memories),
		"history_turns", len(turns),
		"prompt_bytes", len(prompt),
	)

	response, err := s.completion.Complete(ctx, prompt, adapter.CompleteOptions{
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", goerr.Wrap(model.ErrCompletionUnavailable, "failed to generate response", goerr.V("cause", err))
	}

	if err := s.history.Append(ctx, model.RoleAssistant, response); err != nil {
		return "", err
	}

	if cfg.remember {
		if _, err := s.idx.Add(ctx, queryVec, message, map[string]string{"source": "conversation"}); err != nil {
			return "", err
		}
	}

	return response, nil
}

// Remember embeds and stores a user-authored fact in the vector index
func (s *Session) Remember(ctx context.Context, text string, metadata map[string]string) (model.MemoryID, error) {
	if strings.TrimSpace(text) == "" {
		return "", goerr.New("memory text is empty")
	}

	vec, err := s.embedding.Embed(ctx, text)
	if err != nil {
		return "", goerr.Wrap(model.ErrEmbeddingUnavailable, "failed to embed memory", goerr.V("cause", err))
	}

	return s.idx.Add(ctx, vec, text, metadata)
}

// recentWithoutQuery returns the last HistoryLimit turns before the
// current query. Send appends the query before retrieval so that a
// failed turn still records the user message; the just-appended turn is
// excluded here so the current query never appears twice in the prompt.
func (s *Session) recentWithoutQuery(ctx context.Context, message string) ([]model.HistoryTurn, error) {
	turns, err := s.history.Recent(ctx, s.config.HistoryLimit+1)
	if err != nil {
		return nil, err
	}

	if n := len(turns); n > 0 && turns[n-1].Role == model.RoleUser && turns[n-1].Text == message {
		turns = turns[:n-1]
	}
	if len(turns) > s.config.HistoryLimit {
		turns = turns[len(turns)-s.config.HistoryLimit:]
	}

	return turns, nil
}
