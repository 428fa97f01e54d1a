package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "routineflow",
		Short:         "Weekly routine generation API",
		Long:          "routineflow serves onboarding, LLM routine generation, adjustment quotas, gamification and plan sync.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), true)
		},
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
