// Package ddl derives schema creation statements from a metamodel.
//
// Output order is entity tables sorted by foreign key dependency, then
// sequences, then join tables. Every statement can be executed on its own
// once the statements before it have run.
package ddl

import (
	"fmt"

	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

// Generator builds DDL for one metamodel and dialect.
type Generator struct {
	mm  *metamodel.Metamodel
	sql *sqlgen.Generator
}

// NewGenerator creates a DDL generator.
func NewGenerator(mm *metamodel.Metamodel, sql *sqlgen.Generator) *Generator {
	return &Generator{mm: mm, sql: sql}
}

// Generate renders the schema as an ordered list of statements.
func (g *Generator) Generate() ([]string, error) {
	stmts, err := g.Statements()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(stmts))
	for i, stmt := range stmts {
		sql, err := g.sql.RenderDDL(stmt)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", stmt.Kind(), err)
		}
		out[i] = sql
	}
	debug.Debug("generated ddl",
		"dialect", g.sql.Dialect().Name,
		"statements", len(out),
	)
	return out, nil
}

// Statements returns the schema statements in execution order without
// rendering them.
func (g *Generator) Statements() ([]sqlast.Statement, error) {
	var (
		tables    []*sqlast.CreateTable
		sequences []sqlast.Statement
		seen      = make(map[string]bool)
	)
	for _, e := range g.mm.Entities() {
		gen, err := g.sql.ResolveGeneration(e.PrimaryKey.Generation)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		if declared := e.PrimaryKey.Generation; declared != metamodel.GenerationAuto && declared != gen {
			debug.Warn("downgraded key generation",
				"dialect", g.sql.Dialect().Name,
				"entity", e.Name,
				"declared", declared,
				"using", gen,
			)
		}
		tables = append(tables, g.entityTable(e, gen))
		if gen == metamodel.GenerationSequence && !seen[e.PrimaryKey.Sequence] {
			seen[e.PrimaryKey.Sequence] = true
			sequences = append(sequences, &sqlast.CreateSequence{Name: e.PrimaryKey.Sequence, Start: 1, Increment: 1})
		}
	}

	ordered, err := orderTables(tables)
	if err != nil {
		return nil, err
	}

	out := make([]sqlast.Statement, 0, len(ordered)+len(sequences))
	for _, t := range ordered {
		out = append(out, t)
	}
	out = append(out, sequences...)
	for _, r := range g.mm.JoinTables() {
		out = append(out, joinTable(r))
	}
	return out, nil
}

// entityTable declares the table of e: its own columns in declaration
// order, then the columns other entities' one-to-many associations place
// on it.
func (g *Generator) entityTable(e *metamodel.Entity, gen metamodel.GenerationStrategy) *sqlast.CreateTable {
	t := &sqlast.CreateTable{Name: e.Table, PrimaryKey: e.PrimaryKey.ColumnNames()}
	identity := gen == metamodel.GenerationIdentity && len(t.PrimaryKey) == 1

	var fks []sqlast.ForeignKey
	byRel := make(map[*metamodel.Relationship]int)
	for _, c := range e.Columns() {
		t.Columns = append(t.Columns, sqlast.ColumnDef{
			Name:      c.Name,
			Type:      c.Type,
			Nullable:  c.Nullable && !c.PrimaryKey,
			Length:    c.Length,
			Precision: c.Precision,
			Scale:     c.Scale,
			Identity:  identity && c.PrimaryKey,
		})
		if c.Relationship == nil {
			continue
		}
		i, ok := byRel[c.Relationship]
		if !ok {
			i = len(fks)
			byRel[c.Relationship] = i
			fks = append(fks, sqlast.ForeignKey{References: c.Relationship.Target.Table})
		}
		fks[i].Columns = append(fks[i].Columns, c.Name)
	}

	for _, fc := range g.mm.ForeignColumns(e) {
		t.Columns = append(t.Columns, sqlast.ColumnDef{Name: fc.Name, Type: fc.Type, Nullable: fc.Nullable})
		i, ok := byRel[fc.Relationship]
		if !ok {
			i = len(fks)
			byRel[fc.Relationship] = i
			fks = append(fks, sqlast.ForeignKey{References: fc.Relationship.Source.Table})
		}
		fks[i].Columns = append(fks[i].Columns, fc.Name)
	}
	t.ForeignKeys = fks
	return t
}

// joinTable declares the join table of an owning relationship. Both column
// groups are required and together form the primary key.
func joinTable(r *metamodel.Relationship) *sqlast.CreateTable {
	jt := r.JoinTable
	t := &sqlast.CreateTable{Name: jt.Name}
	for _, group := range [][]metamodel.JoinColumn{jt.OwnerColumns, jt.TargetColumns} {
		for _, jc := range group {
			t.Columns = append(t.Columns, sqlast.ColumnDef{Name: jc.Name, Type: jc.Type})
			t.PrimaryKey = append(t.PrimaryKey, jc.Name)
		}
	}
	t.ForeignKeys = []sqlast.ForeignKey{
		{Columns: columnNames(jt.OwnerColumns), References: r.Source.Table},
		{Columns: columnNames(jt.TargetColumns), References: r.Target.Table},
	}
	return t
}

func columnNames(cols []metamodel.JoinColumn) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
