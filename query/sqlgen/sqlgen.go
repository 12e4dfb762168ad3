// Package sqlgen renders the SQL abstract model into SQL text for different
// database providers.
//
// A Generator is configured once with a Dialect and holds no mutable state
// afterwards, so one instance may be shared by any number of goroutines.
// Each Render call keeps its output and parameters in a renderer owned by
// that call.
package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Param is a bound parameter in placeholder order.
type Param struct {
	Name  string
	Value any
	Type  metamodel.ValueType
}

// Query represents a rendered SQL statement with its parameters. Columns
// lists the selected expressions of a SELECT in result order.
type Query struct {
	SQL     string
	Columns []string
	Params  []Param
}

// Args returns the parameter values in placeholder order.
func (q *Query) Args() []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		args[i] = p.Value
	}
	return args
}

// Generator renders statements for one dialect.
type Generator struct {
	dialect Dialect
}

// NewGenerator creates a generator for the given provider.
func NewGenerator(provider string) (*Generator, error) {
	d, ok := LookupDialect(provider)
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	return &Generator{dialect: d}, nil
}

// NewGeneratorWithDialect creates a generator for a custom dialect. The
// generator keeps its own copy of d.
func NewGeneratorWithDialect(d Dialect) *Generator {
	return &Generator{dialect: d.Clone()}
}

// Dialect returns a copy of the generator's dialect.
func (g *Generator) Dialect() Dialect {
	return g.dialect.Clone()
}

// Render renders any statement.
func (g *Generator) Render(stmt sqlast.Statement) (*Query, error) {
	if stmt == nil {
		return nil, &diagnostics.InvalidStatementError{Statement: "unknown", Reason: "no statement"}
	}
	r := &renderer{d: &g.dialect}
	if err := stmt.Accept(r); err != nil {
		return nil, err
	}
	debug.Debug("rendered statement",
		"dialect", g.dialect.Name,
		"kind", stmt.Kind(),
		"length", len(r.last),
		"params", len(r.params),
	)
	return &Query{SQL: r.last, Columns: r.columns, Params: r.params}, nil
}

// RenderDDL renders a CREATE TABLE or CREATE SEQUENCE statement.
func (g *Generator) RenderDDL(stmt sqlast.Statement) (string, error) {
	switch stmt.(type) {
	case *sqlast.CreateTable, *sqlast.CreateSequence:
	default:
		return "", &diagnostics.InvalidStatementError{Statement: stmt.Kind(), Reason: "not a DDL statement"}
	}
	q, err := g.Render(stmt)
	if err != nil {
		return "", err
	}
	return q.SQL, nil
}

// ResolveGeneration maps a generation strategy for the generator's dialect.
func (g *Generator) ResolveGeneration(s metamodel.GenerationStrategy) (metamodel.GenerationStrategy, error) {
	return g.dialect.ResolveGeneration(s)
}

// NextValue renders a query fetching the next value of a sequence.
func (g *Generator) NextValue(sequence string) (string, error) {
	d := &g.dialect
	if !d.Sequences || d.NextValue == "" {
		return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: d.Name, Feature: "sequences"}
	}
	expr := fmt.Sprintf(d.NextValue, d.Quote(sequence))
	switch d.Name {
	case "oracle":
		return "select " + expr + " from dual", nil
	default:
		return "select " + expr, nil
	}
}
