package compiler

import (
	"fmt"

	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Binding pairs a column with its runtime value. A list of bindings is
// bound positionally in order.
type Binding struct {
	Column string
	Value  any
	Type   metamodel.ValueType
}

// ExpandJoinColumnAttributes pairs the columns of rel that reference an
// entity with the values of that entity's key, in column declaration order.
//
// For a join table these are the join table columns pointing at rel's
// source. For join columns they are the foreign key columns, wherever they
// live, and key belongs to the entity they reference.
func ExpandJoinColumnAttributes(rel *metamodel.Relationship, key metamodel.Key) ([]Binding, error) {
	owning := rel
	if !rel.IsOwning() {
		if rel.Inverse == nil {
			return nil, fmt.Errorf("%s has no owning side", rel)
		}
		owning = rel.Inverse
	}
	switch {
	case owning.JoinTable != nil && owning == rel:
		return pair(owning.JoinTable.OwnerColumns, owning.Source, key)
	case owning.JoinTable != nil:
		return pair(owning.JoinTable.TargetColumns, owning.Target, key)
	case owning.ForeignKeyOnTarget():
		return pair(owning.JoinColumns, owning.Source, key)
	case len(owning.JoinColumns) > 0:
		return pair(owning.JoinColumns, owning.Target, key)
	}
	return nil, invalid("select", "%s has no join columns", rel)
}

// pair matches each join column with the key value of the column it
// references on ref.
func pair(cols []metamodel.JoinColumn, ref *metamodel.Entity, key metamodel.Key) ([]Binding, error) {
	names := ref.PrimaryKey.ColumnNames()
	if len(key) != len(names) {
		return nil, invalid("select", "%d key values for %s, which has %d key columns", len(key), ref.Name, len(names))
	}
	out := make([]Binding, len(cols))
	for i, jc := range cols {
		j := indexOf(names, jc.Referenced)
		if j < 0 {
			return nil, invalid("select", "join column %s references %s, which is not a key column of %s", jc.Name, jc.Referenced, ref.Name)
		}
		out[i] = Binding{Column: jc.Name, Value: key[j], Type: jc.Type}
	}
	return out, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// equalities turns bindings into column = ? conditions on t, ANDed.
func equalities(t *sqlast.FromTable, bindings []Binding) sqlast.Condition {
	conds := make([]sqlast.Condition, len(bindings))
	for i, b := range bindings {
		conds[i] = sqlast.Eq(sqlast.Col(t.Column(b.Column)), sqlast.Bind(b.Value, b.Type))
	}
	return sqlast.And(conds...)
}

// keyBindings pairs the primary key columns of e with key.
func keyBindings(e *metamodel.Entity, key metamodel.Key) ([]Binding, error) {
	cols := e.PrimaryKey.Columns()
	if len(key) != len(cols) {
		return nil, invalid("select", "%d key values for %s, which has %d key columns", len(key), e.Name, len(cols))
	}
	out := make([]Binding, len(cols))
	for i, c := range cols {
		out[i] = Binding{Column: c.Name, Value: key[i], Type: c.Type}
	}
	return out, nil
}
