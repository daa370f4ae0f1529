package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect and manage the conversation log",
		Commands: []*cli.Command{
			historyShowCommand(),
			historyClearCommand(),
		},
	}
}

func historyShowCommand() *cli.Command {
	var (
		cfg config
		n   int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "n",
			Usage:       "Number of recent turns to show",
			Value:       20,
			Destination: &n,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show recent conversation turns",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			turns, err := st.history.Recent(ctx, int(n))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(turns) == 0 {
				fmt.Fprintln(w, "No conversation history")
				return nil
			}

			for _, turn := range turns {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					turn.Timestamp.Format("2006-01-02 15:04:05"),
					turn.Role,
					turn.Text,
				)
			}
			return nil
		},
	}
}

func historyClearCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "clear",
		Usage: "Remove all conversation turns for the session",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			st, err := cfg.newStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.history.Clear(ctx); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "History cleared")
			return nil
		},
	}
}
