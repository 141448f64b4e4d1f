package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func toolsCmd(a *app, f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the capabilities available to the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rm, err := a.newMesh(cmd, f)
			if err != nil {
				return err
			}

			reg, err := rm.Tools(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "NAME\tDESCRIPTION\n")
			for _, t := range reg.Tools() {
				fmt.Fprintf(tw, "%s\t%s\n", t.Name(), firstLine(t.Description()))
			}

			return tw.Flush()
		},
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
