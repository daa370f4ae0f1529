package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/model"
	"github.com/m-mizutani/recall/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, policyFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			session, closeStores, err := cfg.newSession(ctx)
			if err != nil {
				return err
			}
			defer closeStores()

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintln(w, "Chat session started. Type 'exit' to quit, '/remember <text>' to store a memory.")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) {
						continue
					}
					if errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				switch {
				case line == "":
					continue
				case line == "exit":
					fmt.Fprintln(w, "Bye.")
					return nil
				case strings.HasPrefix(line, "/remember "):
					text := strings.TrimSpace(strings.TrimPrefix(line, "/remember "))
					if text == "" {
						fmt.Fprintln(w, "Usage: /remember <text>")
						continue
					}
					if _, err := session.Remember(ctx, text, map[string]string{"source": "user"}); err != nil {
						fmt.Fprintf(w, "Failed to remember: %v\n", err)
						continue
					}
					fmt.Fprintln(w, "Remembered.")
					continue
				}

				response, err := ask(ctx, session, line)
				if err != nil {
					if errors.Is(err, model.ErrEmbeddingUnavailable) || errors.Is(err, model.ErrCompletionUnavailable) {
						fmt.Fprintf(w, "Turn failed, try again: %v\n", err)
						continue
					}
					return err
				}

				fmt.Fprintln(w, response)
			}

			return nil
		},
	}
}

// ask sends one message with a progress spinner on stderr
func ask(ctx context.Context, session *chat.Session, message string, opts ...chat.SendOption) (string, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " thinking..."
	sp.Start()
	defer sp.Stop()

	return session.Send(ctx, message, opts...)
}
