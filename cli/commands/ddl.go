package commands

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/migrate/ddl"
	"github.com/satishbabariya/entityql/migrate/executor"
)

func generateDDL(opts *options) ([]string, error) {
	mm, g, err := setup(opts)
	if err != nil {
		return nil, err
	}
	return ddl.NewGenerator(mm, g).Generate()
}

// writeDDL writes statements to path, one per line.
func writeDDL(fs afero.Fs, path string, statements []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var b strings.Builder
	for _, s := range statements {
		b.WriteString(s)
		b.WriteString(";\n")
	}
	return afero.WriteFile(fs, path, []byte(b.String()), 0o644)
}

func newDDLCommand(opts *options) *cobra.Command {
	var (
		apply       bool
		databaseURL string
		output      string
		name        string
	)

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Generate the schema DDL for the model",
		Long:  "Print the CREATE statements for the model in dependency order, write them to a file, or apply them to a database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			statements, err := generateDDL(opts)
			if err != nil {
				return err
			}

			if output == "" {
				output = opts.cfg.OutputPath
			}
			if output != "" {
				if err := writeDDL(config.AppFs, output, statements); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				debug.Info("wrote ddl", "path", output, "statements", len(statements))
				ui.PrintSuccess("Wrote %d statements to %s", len(statements), output)
			} else if !apply {
				ui.Out = cmd.OutOrStdout()
				ui.PrintSQL(statements)
			}

			if !apply {
				return nil
			}
			if databaseURL == "" {
				databaseURL = opts.cfg.DatabaseURL
			}
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required with --apply")
			}

			db, err := sql.Open(driverName(opts.dialectName()), databaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			spinner := ui.PrintSpinner("Applying schema...")
			err = executor.NewExecutor(db, opts.dialectName()).Apply(cmd.Context(), name, statements)
			if spinner != nil {
				if err != nil {
					spinner.Fail("Schema not applied")
				} else {
					spinner.Success(fmt.Sprintf("Applied %d statements as %s", len(statements), name))
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "execute the statements against the database")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "database connection string (default $DATABASE_URL)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the statements to this file")
	cmd.Flags().StringVar(&name, "name", "init", "name recorded in the schema history")
	return cmd
}
