package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/cli/internal/watch"
)

func newWatchCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the DDL whenever the model file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = opts.cfg.OutputPath
			}
			ui.Out = cmd.OutOrStdout()

			regenerate := func() error {
				statements, err := generateDDL(opts)
				if err != nil {
					return err
				}
				if output == "" {
					ui.PrintSection("Schema")
					ui.PrintSQL(statements)
					return nil
				}
				if err := writeDDL(config.AppFs, output, statements); err != nil {
					return err
				}
				ui.PrintSuccess("Wrote %d statements to %s", len(statements), output)
				return nil
			}

			w, err := watch.NewWatcher(opts.modelPath(), regenerate, func(err error) {
				ui.PrintError("%v", err)
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ui.PrintInfo("Watching %s for changes (Ctrl+C to stop)", opts.modelPath())
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the statements to this file instead of stdout")
	return cmd
}
