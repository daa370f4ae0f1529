package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "recall",
		Usage: "Chat agent with long-term memory",
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			rememberCommand(),
			memoryCommand(),
			historyCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
