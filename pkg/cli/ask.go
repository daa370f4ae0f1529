package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg      config
		remember bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "remember",
			Aliases:     []string{"r"},
			Usage:       "Also store the message as a memory",
			Destination: &remember,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, policyFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a single message and print the response",
		ArgsUsage: "<message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			message := c.Args().First()
			if message == "" {
				return goerr.New("message argument is required")
			}

			session, closeStores, err := cfg.newSession(ctx)
			if err != nil {
				return err
			}
			defer closeStores()

			var opts []chat.SendOption
			if remember {
				opts = append(opts, chat.WithRemember())
			}

			response, err := ask(ctx, session, message, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, response)
			return nil
		},
	}
}
