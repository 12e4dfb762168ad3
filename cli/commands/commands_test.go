package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/entityql/cli/internal/config"
	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/testmodel"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/parser"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

const joinQuery = "SELECT DISTINCT o FROM SimpleOrder AS o JOIN o.lineItems AS l WHERE l.shipped = FALSE"

func memFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := config.AppFs
	config.AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { config.AppFs = prev })
	require.NoError(t, afero.WriteFile(config.AppFs, "/m/model.yaml", []byte(testmodel.Source()), 0o644))
	return config.AppFs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompileQueries(t *testing.T) {
	g, err := sqlgen.NewGenerator("postgresql")
	require.NoError(t, err)
	tr := parser.NewTranslator(testmodel.New())

	queries := []string{
		joinQuery,
		"SELECT e FROM Nope e",
		"SELECT e.name FROM Employee e WHERE e.salary > :min",
	}
	results, err := CompileQueries(context.Background(), tr, g, queries)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "select distinct simple_order0.id, simple_order0.customer from simple_order AS simple_order0 INNER JOIN simple_order_line_item AS simple_order_line_item0 ON simple_order0.id = simple_order_line_item0.SimpleOrder_id INNER JOIN line_item AS line_item0 ON simple_order_line_item0.lineItems_id = line_item0.id where line_item0.shipped = FALSE", results[0].SQL)
	assert.ErrorIs(t, results[1].Err, diagnostics.ErrUnknownEntity)
	assert.Equal(t, "select employee0.name from Employee AS employee0 where employee0.salary > ?", results[2].SQL)
	require.Len(t, results[2].Params, 1)
	assert.Equal(t, "min", results[2].Params[0].Name)
	assert.Equal(t, metamodel.TypeDecimal, results[2].Params[0].Type)
}

func TestCompileQueriesCancelled(t *testing.T) {
	g, err := sqlgen.NewGenerator("postgresql")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = CompileQueries(ctx, parser.NewTranslator(testmodel.New()), g, []string{joinQuery})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadQueries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "q.txt", []byte("# comment\n"+joinQuery+"\n\n-- another\n  SELECT e FROM Employee e  \n"), 0o644))

	queries, err := ReadQueries(fs, "q.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{joinQuery, "SELECT e FROM Employee e"}, queries)
}

func TestExplain(t *testing.T) {
	report := Explain(Compiled{
		Query:  "SELECT e FROM Employee e WHERE e.id = :id",
		SQL:    "select employee0.id from Employee AS employee0 where employee0.id = ?",
		Params: []sqlgen.Param{{Name: "id", Type: metamodel.TypeLong}},
	}, "postgresql")

	assert.Contains(t, report, "## SQL (postgresql)")
	assert.Contains(t, report, "| 1 | id | long |")
}

func TestCompileCommand(t *testing.T) {
	memFs(t)

	out, err := run(t, "compile", "--model", "/m/model.yaml", joinQuery)
	require.NoError(t, err)
	assert.Equal(t, "select distinct simple_order0.id, simple_order0.customer from simple_order AS simple_order0 INNER JOIN simple_order_line_item AS simple_order_line_item0 ON simple_order0.id = simple_order_line_item0.SimpleOrder_id INNER JOIN line_item AS line_item0 ON simple_order_line_item0.lineItems_id = line_item0.id where line_item0.shipped = FALSE\n", out)

	_, err = run(t, "compile", "--model", "/m/model.yaml", "SELECT x FROM Nope x")
	assert.ErrorIs(t, err, diagnostics.ErrUnknownEntity)

	_, err = run(t, "compile", "--model", "/m/model.yaml")
	assert.Error(t, err)
}

func TestDDLCommand(t *testing.T) {
	fs := memFs(t)
	t.Setenv("DATABASE_URL", "")

	out, err := run(t, "ddl", "--model", "/m/model.yaml")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 17)
	assert.Equal(t, "create table Department (id bigint not null, name varchar(100) not null, primary key (id));", lines[0])

	_, err = run(t, "ddl", "--model", "/m/model.yaml", "--dialect", "mysql", "--output", "/out/schema.sql")
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "/out/schema.sql")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "create sequence")
	assert.Contains(t, string(data), "create table store_items")

	_, err = run(t, "ddl", "--model", "/m/model.yaml", "--apply", "--database-url", "")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	memFs(t)

	_, err := run(t, "validate", "--model", "/m/model.yaml")
	require.NoError(t, err)

	rows := summarize(testmodel.New())
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Department", "Department", "simple, sequence", "2", "employees (one-to-many Employee)"}, rows[0])

	_, err = run(t, "validate", "--model", "/m/missing.yaml")
	assert.Error(t, err)
}

func TestInitProject(t *testing.T) {
	fs := afero.NewMemMapFs()
	prev := config.AppFs
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })

	written, err := initProject(fs, "/proj", answers{ModelPath: "model.yaml", Dialect: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/model.yaml", "/proj/.entityql.yaml"}, written)

	data, err := afero.ReadFile(fs, "/proj/model.yaml")
	require.NoError(t, err)
	mm, err := metamodel.Load(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, mm.Entities(), 2)

	// An existing model is left alone.
	written, err = initProject(fs, "/proj", answers{ModelPath: "model.yaml", Dialect: "sqlite"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/.entityql.yaml"}, written)

	_, err = initProject(fs, "/proj", answers{ModelPath: "model.yaml", Dialect: "db2"})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	memFs(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "entityql version")
	assert.Contains(t, out, "Dialects: ")
	assert.Contains(t, out, "sqlserver")
}
