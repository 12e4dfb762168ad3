package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/cli/internal/ui"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/query/parser"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

// Compiled is the result of compiling one query.
type Compiled struct {
	Query       string
	SQL         string
	Params      []sqlgen.Param
	Constructor string
	Err         error
}

// CompileQueries compiles queries concurrently. Results keep the input
// order; a failing query records its error without stopping the others.
func CompileQueries(ctx context.Context, tr *parser.Translator, g *sqlgen.Generator, queries []string) ([]Compiled, error) {
	results := make([]Compiled, len(queries))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	for i, text := range queries {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = compileOne(tr, g, text)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileOne(tr *parser.Translator, g *sqlgen.Generator, text string) Compiled {
	out := Compiled{Query: text}
	t, err := tr.Translate(text)
	if err != nil {
		out.Err = err
		return out
	}
	q, err := g.Render(t.Statement)
	if err != nil {
		debug.Error("render failed", "dialect", g.Dialect().Name, "query", text, "error", err)
		out.Err = err
		return out
	}
	out.SQL, out.Params, out.Constructor = q.SQL, q.Params, t.Constructor
	return out
}

// ReadQueries reads one query per line, skipping blank lines and lines
// starting with "#" or "--".
func ReadQueries(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "--") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, sc.Err()
}

// Explain renders a compiled query as a markdown report.
func Explain(c Compiled, dialect string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Query\n\n```\n%s\n```\n\n", c.Query)
	fmt.Fprintf(&b, "## SQL (%s)\n\n```sql\n%s\n```\n\n", dialect, c.SQL)
	if c.Constructor != "" {
		fmt.Fprintf(&b, "Results construct `%s`.\n\n", c.Constructor)
	}
	if len(c.Params) == 0 {
		b.WriteString("No parameters.\n")
		return b.String()
	}
	b.WriteString("## Parameters\n\n| # | Name | Type |\n|---|------|------|\n")
	for i, p := range c.Params {
		name, typ := p.Name, string(p.Type)
		if name == "" {
			name = "-"
		}
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, name, typ)
	}
	return b.String()
}

func newCompileCommand(opts *options) *cobra.Command {
	var (
		file    string
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile an object query to SQL",
		Long:  "Compile one query given as an argument, or every query in --file (one per line), into SQL for the selected dialect.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queries []string
			switch {
			case file != "":
				q, err := ReadQueries(config.AppFs, file)
				if err != nil {
					return fmt.Errorf("failed to read queries: %w", err)
				}
				queries = q
			case len(args) == 1:
				queries = args
			default:
				return fmt.Errorf("a query argument or --file is required")
			}

			mm, g, err := setup(opts)
			if err != nil {
				return err
			}
			tr := parser.NewCachedTranslator(mm, 256)
			results, err := CompileQueries(cmd.Context(), tr, g, queries)
			if err != nil {
				return err
			}
			stats := tr.CacheStats()
			debug.Debug("compiled queries", "count", len(results), "cache_hits", stats.Hits)

			var failed error
			for _, r := range results {
				if r.Err != nil {
					failed = report("query", r.Query, r.Err)
					continue
				}
				if explain {
					out, err := ui.RenderMarkdown(Explain(r, opts.dialectName()))
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), out)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.SQL)
			}
			return failed
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one query per line")
	cmd.Flags().BoolVar(&explain, "explain", false, "print a report with the SQL and its parameters")
	return cmd
}
