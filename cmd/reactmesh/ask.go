package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func askCmd(a *app, f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, shutdown, err := setupTracing(cmd.Context(), a.lookup)
			if err != nil {
				return err
			}
			defer shutdown()

			rm, err := a.newMesh(cmd, f)
			if err != nil {
				return err
			}

			reply, err := rm.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if f.stream {
				fmt.Fprintln(a.out)
				return nil
			}
			fmt.Fprintln(a.out, reply.Text())

			return nil
		},
	}
}
