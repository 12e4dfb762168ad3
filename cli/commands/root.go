// Package commands implements the entityql command line.
package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/cli/internal/version"
	"github.com/satishbabariya/entityql/internal/debug"
)

// options are the settings shared by every command. Flags override the
// loaded configuration.
type options struct {
	cfg     *config.Config
	model   string
	dialect string
	debug   bool
}

func (o *options) modelPath() string {
	if o.model != "" {
		return o.model
	}
	return o.cfg.ModelPath
}

func (o *options) dialectName() string {
	if o.dialect != "" {
		return o.dialect
	}
	return o.cfg.Dialect
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "entityql",
		Short:         "Compile object queries and schema DDL to SQL",
		Long:          "entityql compiles object queries against an entity model into SQL for a target database, and derives the schema DDL from the same model.",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			debug.Init(opts.debug || cfg.Debug)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.model, "model", "m", "", "path to the model file (default from config: model.yaml)")
	flags.StringVarP(&opts.dialect, "dialect", "d", "", "target database dialect (default from config: postgresql)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCompileCommand(opts),
		newDDLCommand(opts),
		newValidateCommand(opts),
		newInitCommand(),
		newWatchCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and reports a failure on stderr.
func Execute() error {
	err := NewRootCommand().Execute()
	var reported errReported
	if err != nil && !errors.As(err, &reported) {
		ui.PrintError("%v", err)
	}
	return err
}
