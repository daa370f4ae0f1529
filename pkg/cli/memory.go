package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and manage long-term memory",
		Commands: []*cli.Command{
			memorySearchCommand(),
			memoryListCommand(),
			memoryClearCommand(),
		},
	}
}

func memorySearchCommand() *cli.Command {
	var (
		cfg config
		k   int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &k,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Find memories similar to a query",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			query := c.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
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

			vec, err := embedding.Embed(ctx, query)
			if err != nil {
				return goerr.Wrap(model.ErrEmbeddingUnavailable, "failed to embed query", goerr.V("cause", err))
			}

			hits, err := st.index.Search(ctx, vec, int(k))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(hits) == 0 {
				fmt.Fprintln(w, "No memories found")
				return nil
			}

			for i, hit := range hits {
				fmt.Fprintf(w, "%d.\t%.4f\t%s\n", i+1, hit.Score, hit.Entry.Text)
			}
			return nil
		},
	}
}

func memoryListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List stored memories in insertion order",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			lister, ok := st.index.(index.Lister)
			if !ok {
				return goerr.New("backend does not support listing", goerr.V("backend", cfg.backend))
			}

			entries, err := lister.List(ctx)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(entries) == 0 {
				fmt.Fprintln(w, "No memories stored")
				return nil
			}

			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					entry.ID,
					entry.CreatedAt.Format("2006-01-02 15:04:05"),
					entry.Text,
				)
			}
			return nil
		},
	}
}

func memoryClearCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "clear",
		Usage: "Remove all stored memories",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.index.Clear(ctx); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "Memory cleared")
			return nil
		},
	}
}
