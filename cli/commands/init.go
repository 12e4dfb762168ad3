package commands

import (
	"fmt"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

const starterModel = `version: "1.0"

entities:
  - name: Author
    attributes:
      - { name: id, type: long, id: true, generated: auto }
      - { name: name, type: string, length: 120, nullable: false }
      - name: books
        relation: { kind: one-to-many, target: Book, mappedBy: author }

  - name: Book
    attributes:
      - { name: id, type: long, id: true, generated: auto }
      - { name: title, type: string }
      - name: author
        relation: { kind: many-to-one, target: Author }
`

// answers are the values collected by init.
type answers struct {
	ModelPath string
	Dialect   string
}

func ask(defaults answers) (answers, error) {
	out := defaults
	if err := survey.AskOne(&survey.Input{
		Message: "Model file:",
		Default: defaults.ModelPath,
	}, &out.ModelPath, survey.WithValidator(survey.Required)); err != nil {
		return out, err
	}
	if err := survey.AskOne(&survey.Select{
		Message: "Target database:",
		Options: sqlgen.Dialects(),
		Default: defaults.Dialect,
	}, &out.Dialect); err != nil {
		return out, err
	}
	return out, nil
}

// initProject writes the config file into dir and a starter model when the
// model file does not exist yet. It returns the files written.
func initProject(fs afero.Fs, dir string, a answers) ([]string, error) {
	if _, ok := sqlgen.LookupDialect(a.Dialect); !ok {
		return nil, fmt.Errorf("unknown dialect %q", a.Dialect)
	}
	var written []string

	modelPath := a.ModelPath
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(dir, modelPath)
	}
	exists, err := afero.Exists(fs, modelPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := fs.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fs, modelPath, []byte(starterModel), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write model: %w", err)
		}
		written = append(written, modelPath)
	}

	path, err := config.Save(&config.Config{ModelPath: a.ModelPath, Dialect: a.Dialect}, dir)
	if err != nil {
		return nil, err
	}
	return append(written, path), nil
}

func newInitCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a config file and a starter model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			a := answers{ModelPath: "model.yaml", Dialect: "postgresql"}
			if !yes {
				var err error
				if a, err = ask(a); err != nil {
					return err
				}
			}

			ui.Out = cmd.OutOrStdout()
			written, err := initProject(config.AppFs, dir, a)
			if err != nil {
				return err
			}
			for _, f := range written {
				ui.PrintSuccess("Created %s", f)
			}
			ui.PrintSection("Next steps")
			ui.PrintList([]string{
				"Describe your entities in " + a.ModelPath,
				"Run `entityql validate` to check the model",
				"Run `entityql ddl` to print the schema",
				"Run `entityql compile \"SELECT e FROM Entity e\"` to compile a query",
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "accept the defaults without prompting")
	return cmd
}
