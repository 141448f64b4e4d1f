package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/reactmesh/model/provider"
)

func modelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List example backend identifiers",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			for _, id := range provider.SupportedModels() {
				fmt.Fprintln(a.out, id)
			}
		},
	}
}
