package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusteraudit/clusteraudit/internal/scan"
	"github.com/clusteraudit/clusteraudit/internal/version"
)

func newCheckersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkers",
		Short: "List checkers in report order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range scan.CheckerNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show clusteraudit build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "clusteraudit %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
			return nil
		},
	}
}
