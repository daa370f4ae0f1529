package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/model"
	"github.com/urfave/cli/v3"
)

func rememberCommand() *cli.Command {
	var (
		cfg  config
		meta []string
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "meta",
			Aliases:     []string{"m"},
			Usage:       "Metadata entry as key=value (repeatable)",
			Destination: &meta,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "remember",
		Usage:     "Store a fact in long-term memory",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			text := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				return goerr.New("text argument is required")
			}

			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			embedding, err := cfg.newEmbedding(ctx)
			if err != nil {
				return err
			}

			vec, err := embedding.Embed(ctx, text)
			if err != nil {
				return goerr.Wrap(model.ErrEmbeddingUnavailable, "failed to embed text", goerr.V("cause", err))
			}

			id, err := st.index.Add(ctx, vec, text, metadata)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Remembered %s\n", id)
			return nil
		},
	}
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, goerr.New("metadata must be key=value", goerr.V("entry", pair))
		}
		metadata[key] = value
	}
	return metadata, nil
}
