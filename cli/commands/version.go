package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().FullString())
		},
	}
}
