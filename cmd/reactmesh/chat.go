package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd(a *app, f *rootFlags) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (/reset clears it, /exit quits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, shutdown, err := setupTracing(cmd.Context(), a.lookup)
			if err != nil {
				return err
			}
			defer shutdown()

			rm, err := a.newMesh(cmd, f)
			if err != nil {
				return err
			}

			scanner := bufio.NewScanner(a.in)
			for {
				fmt.Fprint(a.out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(a.out)
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/reset":
					if err := rm.Runner().Reset(sessionID); err != nil {
						return err
					}
					fmt.Fprintln(a.out, "(conversation cleared)")
					continue
				}

				reply, err := rm.Chat(ctx, sessionID, line)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					fmt.Fprintf(a.errOut, "Error: %s\n", err)
					continue
				}

				if f.stream {
					fmt.Fprintln(a.out)
					continue
				}
				fmt.Fprintln(a.out, reply.Text())
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "default", "session identifier")

	return cmd
}
