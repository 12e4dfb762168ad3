package resolver

import (
	"fmt"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// collection is the far side of a relationship as seen from a subquery:
// the table holding the link columns that point back at the source, and
// the columns identifying the target.
type collection struct {
	table  *sqlast.FromTable
	link   []sqlast.TableColumn
	source []sqlast.TableColumn
	// match[i] identifies the target key column key[i].
	match []sqlast.TableColumn
	key   []string
}

func (c *Context) collection(from *Binding, path []string) (*collection, error) {
	b, attr, err := c.lookup(from, path, sqlast.InnerJoin)
	if err != nil {
		return nil, err
	}
	if attr.Kind != metamodel.Relation {
		return nil, &diagnostics.InvalidStatementError{
			Statement: "membership",
			Reason:    fmt.Sprintf("%s is not a relationship", attr),
		}
	}
	r := attr.Relationship
	e, err := EdgeOf(r)
	if err != nil {
		return nil, err
	}

	col := &collection{
		source: b.Table.Columns(e.Source...),
		key:    e.Target,
	}
	if e.Table != "" {
		col.table = c.aliases.Table(e.Table)
		col.link = col.table.Columns(e.TableSource...)
		col.match = col.table.Columns(e.TableTarget...)
		return col, nil
	}
	col.table = c.aliases.Table(r.Target.Table)
	col.link = col.table.Columns(e.Target...)
	col.match = col.table.Columns(r.Target.PrimaryKey.ColumnNames()...)
	col.key = r.Target.PrimaryKey.ColumnNames()
	return col, nil
}

// Membership builds a condition that holds when the entity whose key is
// values belongs to the collection at path. values follow the target's key
// column order. A single-column link becomes "in (subquery)"; a composite
// link becomes a correlated "exists".
func (c *Context) Membership(from *Binding, path []string, values []sqlast.Value) (sqlast.Condition, error) {
	col, err := c.collection(from, path)
	if err != nil {
		return nil, err
	}
	target, err := c.Target(from, path)
	if err != nil {
		return nil, err
	}
	keyNames := target.PrimaryKey.ColumnNames()
	if len(values) != len(keyNames) {
		return nil, &diagnostics.InvalidStatementError{
			Statement: "membership",
			Reason:    fmt.Sprintf("%d values for a key of %d columns", len(values), len(keyNames)),
		}
	}

	match := make([]sqlast.Condition, len(col.match))
	for i, m := range col.match {
		j := indexOf(keyNames, col.key[i])
		if j < 0 {
			return nil, fmt.Errorf("key column %s not found on %s: %w", col.key[i], target.Name, diagnostics.ErrInvalidModel)
		}
		match[i] = sqlast.Eq(sqlast.Col(m), values[j])
	}

	if len(col.link) == 1 {
		return sqlast.InSubquery(sqlast.Col(col.source[0]), &sqlast.Select{
			Values: []sqlast.Value{sqlast.Col(col.link[0])},
			From:   col.table,
			Where:  sqlast.And(match...),
		}), nil
	}
	var where []sqlast.Condition
	for i := range col.link {
		where = append(where, sqlast.Eq(sqlast.Col(col.link[i]), sqlast.Col(col.source[i])))
	}
	where = append(where, match...)
	return sqlast.ExistsOf(&sqlast.Select{
		Values: []sqlast.Value{sqlast.Lit(1)},
		From:   col.table,
		Where:  sqlast.And(where...),
	}), nil
}

// Emptiness builds a condition that holds when the collection at path is
// empty. Negate it for "is not empty".
func (c *Context) Emptiness(from *Binding, path []string) (sqlast.Condition, error) {
	col, err := c.collection(from, path)
	if err != nil {
		return nil, err
	}
	return sqlast.Negate(sqlast.ExistsOf(&sqlast.Select{
		Values: []sqlast.Value{sqlast.Lit(1)},
		From:   col.table,
		Where:  sqlast.EqualColumns(col.link, col.source),
	})), nil
}

// Target returns the entity path ends on.
func (c *Context) Target(from *Binding, path []string) (*metamodel.Entity, error) {
	e := from.Entity
	var embedded *metamodel.Attribute
	for _, seg := range path {
		var attr *metamodel.Attribute
		var ok bool
		if embedded != nil {
			attr, ok = embedded.Nested(seg)
		} else {
			attr, ok = e.Attribute(seg)
		}
		if !ok {
			return nil, c.unresolved(e, seg, path)
		}
		switch attr.Kind {
		case metamodel.Embedded:
			embedded = attr
		case metamodel.Relation:
			e = attr.Relationship.Target
			embedded = nil
		}
	}
	return e, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
