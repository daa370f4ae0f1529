package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/history"
	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
	"github.com/m-mizutani/recall/pkg/repository"
	"github.com/m-mizutani/recall/pkg/usecase/chat"
	"github.com/m-mizutani/recall/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	logLevel   string
	configPath string

	// Stores
	backend   string
	dataDir   string
	bucket    string
	project   string
	database  string
	session   string
	dimension int64

	// Adapters
	provider        string
	embedder        string
	anthropicAPIKey string
	openaiAPIKey    string
	geminiProject   string
	geminiLocation  string

	// Orchestrator policy
	topK         int64
	historyLimit int64
	maxTokens    int64
	temperature  float64
	identityPath string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("RECALL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("RECALL_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Store backend (local, gcs, firestore)",
			Value:       "local",
			Sources:     cli.EnvVars("RECALL_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory for local backend data",
			Value:       ".recall",
			Sources:     cli.EnvVars("RECALL_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for gcs backend",
			Sources:     cli.EnvVars("RECALL_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for firestore backend",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Conversation session ID",
			Value:       "default",
			Sources:     cli.EnvVars("RECALL_SESSION"),
			Destination: &cfg.session,
		},
		&cli.IntFlag{
			Name:        "dimension",
			Usage:       "Embedding dimension (must match the embedder output)",
			Value:       768,
			Sources:     cli.EnvVars("RECALL_DIMENSION"),
			Destination: &cfg.dimension,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "Completion provider (gemini, openai, claude)",
			Value:       "gemini",
			Sources:     cli.EnvVars("RECALL_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding provider (gemini, openai)",
			Value:       "gemini",
			Sources:     cli.EnvVars("RECALL_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// policyFlags returns flags controlling the per-turn pipeline
func policyFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of memories retrieved per turn",
			Value:       4,
			Sources:     cli.EnvVars("RECALL_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.IntFlag{
			Name:        "history-limit",
			Usage:       "Number of recent turns included in the prompt",
			Value:       10,
			Sources:     cli.EnvVars("RECALL_HISTORY_LIMIT"),
			Destination: &cfg.historyLimit,
		},
		&cli.IntFlag{
			Name:        "max-tokens",
			Usage:       "Completion token cap (0 uses the provider default)",
			Value:       1024,
			Sources:     cli.EnvVars("RECALL_MAX_TOKENS"),
			Destination: &cfg.maxTokens,
		},
		&cli.FloatFlag{
			Name:        "temperature",
			Usage:       "Completion sampling temperature",
			Value:       0.7,
			Sources:     cli.EnvVars("RECALL_TEMPERATURE"),
			Destination: &cfg.temperature,
		},
		&cli.StringFlag{
			Name:        "identity",
			Usage:       "Path to a file replacing the built-in identity prompt",
			Sources:     cli.EnvVars("RECALL_IDENTITY"),
			Destination: &cfg.identityPath,
		},
	}
}

// fileConfig is the YAML config file schema. Pointer fields distinguish
// an absent key from an explicit zero.
type fileConfig struct {
	TopK         *int     `yaml:"top_k"`
	HistoryLimit *int     `yaml:"history_limit"`
	MaxTokens    *int     `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
	Identity     string   `yaml:"identity"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	return &fc, nil
}

// chatConfig builds the orchestrator config. Flag and env values are the
// base; values present in the config file take precedence.
func (cfg *config) chatConfig() (chat.Config, error) {
	c := chat.Config{
		TopK:         int(cfg.topK),
		HistoryLimit: int(cfg.historyLimit),
		MaxTokens:    int(cfg.maxTokens),
		Temperature:  cfg.temperature,
	}

	if cfg.identityPath != "" {
		identity, err := os.ReadFile(cfg.identityPath)
		if err != nil {
			return chat.Config{}, goerr.Wrap(err, "failed to read identity file", goerr.V("path", cfg.identityPath))
		}
		c.Identity = string(identity)
	}

	if cfg.configPath != "" {
		fc, err := loadFileConfig(cfg.configPath)
		if err != nil {
			return chat.Config{}, err
		}
		c = fc.apply(c)
	}

	if err := c.Validate(); err != nil {
		return chat.Config{}, err
	}
	return c, nil
}

func (fc *fileConfig) apply(c chat.Config) chat.Config {
	if fc.TopK != nil {
		c.TopK = *fc.TopK
	}
	if fc.HistoryLimit != nil {
		c.HistoryLimit = *fc.HistoryLimit
	}
	if fc.MaxTokens != nil {
		c.MaxTokens = *fc.MaxTokens
	}
	if fc.Temperature != nil {
		c.Temperature = *fc.Temperature
	}
	if fc.Identity != "" {
		c.Identity = fc.Identity
	}
	return c
}

// setupLogging installs the configured logger as the process default and
// attaches it to the context
func (cfg *config) setupLogging(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newBlobStorage creates the blob storage for the local and gcs backends
func (cfg *config) newBlobStorage(ctx context.Context) (adapter.Storage, error) {
	switch cfg.backend {
	case "local":
		return adapter.NewFileStorage(cfg.dataDir)
	case "gcs":
		if cfg.bucket == "" {
			return nil, goerr.New("bucket is required for the gcs backend")
		}
		return adapter.NewStorage(ctx, cfg.bucket)
	default:
		return nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// stores bundles the two conversation stores with their cleanup
type stores struct {
	index   index.Index
	history chat.HistoryLog
	close   func() error
}

// newStores creates the vector index and history log for the configured
// backend
func (cfg *config) newStores(ctx context.Context) (*stores, error) {
	if cfg.session == "" {
		return nil, goerr.New("session is required")
	}
	session := model.SessionID(cfg.session)

	if cfg.backend == "firestore" {
		if cfg.project == "" {
			return nil, goerr.New("project is required for the firestore backend")
		}
		client, err := repository.New(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, err
		}
		return &stores{
			index:   client.Index(int(cfg.dimension)),
			history: client.History(session),
			close:   client.Close,
		}, nil
	}

	storage, err := cfg.newBlobStorage(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewExact(ctx, int(cfg.dimension), index.WithSnapshot(storage, "memories/index.json"))
	if err != nil {
		return nil, err
	}

	log, err := history.New(ctx, storage, session)
	if err != nil {
		return nil, err
	}

	return &stores{
		index:   idx,
		history: log,
		close:   func() error { return nil },
	}, nil
}

// newEmbedding creates the embedding adapter for the configured embedder
func (cfg *config) newEmbedding(ctx context.Context) (adapter.Embedding, error) {
	switch cfg.embedder {
	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
			adapter.WithEmbeddingDimension(int(cfg.dimension)))
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		return adapter.NewOpenAI(cfg.openaiAPIKey)
	default:
		return nil, goerr.New("unknown embedder", goerr.V("embedder", cfg.embedder))
	}
}

// newCompletion creates the completion adapter for the configured provider
func (cfg *config) newCompletion(ctx context.Context) (adapter.Completion, error) {
	switch cfg.provider {
	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		return adapter.NewOpenAI(cfg.openaiAPIKey)
	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		return adapter.NewClaude(cfg.anthropicAPIKey), nil
	default:
		return nil, goerr.New("unknown provider", goerr.V("provider", cfg.provider))
	}
}

// newSession assembles a chat session from the configured stores and
// adapters. The returned close function releases backend clients.
func (cfg *config) newSession(ctx context.Context) (*chat.Session, func() error, error) {
	chatCfg, err := cfg.chatConfig()
	if err != nil {
		return nil, nil, err
	}

	st, err := cfg.newStores(ctx)
	if err != nil {
		return nil, nil, err
	}

	embedding, err := cfg.newEmbedding(ctx)
	if err != nil {
		st.close()
		return nil, nil, err
	}

	completion, err := cfg.newCompletion(ctx)
	if err != nil {
		st.close()
		return nil, nil, err
	}

	session, err := chat.New(chat.NewInput{
		Index:      st.index,
		History:    st.history,
		Embedding:  embedding,
		Completion: completion,
		Config:     chatCfg,
	})
	if err != nil {
		st.close()
		return nil, nil, err
	}

	return session, st.close, nil
}
