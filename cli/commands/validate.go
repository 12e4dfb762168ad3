package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/metamodel"
)

// summarize returns one table row per entity.
func summarize(mm *metamodel.Metamodel) [][]string {
	var rows [][]string
	for _, e := range mm.Entities() {
		var rels []string
		for _, r := range e.Relationships() {
			rels = append(rels, fmt.Sprintf("%s (%s %s)", r.Attribute.Name, r.Kind, r.Target.Name))
		}
		key := e.PrimaryKey.Kind.String()
		if g := e.PrimaryKey.Generation; g != metamodel.GenerationNone {
			key += ", " + string(g)
		}
		rows = append(rows, []string{
			e.Name,
			e.Table,
			key,
			strconv.Itoa(len(e.Columns())),
			strings.Join(rels, ", "),
		})
	}
	return rows
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the model file",
		Long:  "Load the model file, check every entity, key and relationship, and print a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Out = cmd.OutOrStdout()
			mm, err := loadModel(opts)
			if err != nil {
				return err
			}

			ui.PrintSuccess("Model is valid: %s", opts.modelPath())
			ui.PrintSection("Entities")
			if err := ui.PrintTable([]string{"Entity", "Table", "Key", "Columns", "Relationships"}, summarize(mm)); err != nil {
				return err
			}
			if jts := mm.JoinTables(); len(jts) > 0 {
				ui.PrintSection("Join tables")
				var items []string
				for _, r := range jts {
					items = append(items, fmt.Sprintf("%s (%s.%s)", r.JoinTable.Name, r.Source.Name, r.Attribute.Name))
				}
				ui.PrintList(items)
			}
			return nil
		},
	}
}
