package compiler

import (
	"strings"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/resolver"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Row holds column values of one entity instance keyed by column name.
// A relationship attribute name may stand in for its join columns with a
// metamodel.Key of the referenced entity.
type Row map[string]any

// relationship looks up a relationship attribute of entity.
func (c *Compiler) relationship(entity, attr string) (*metamodel.Entity, *metamodel.Relationship, error) {
	e, err := c.mm.MustEntity(entity)
	if err != nil {
		return nil, nil, err
	}
	a, ok := e.Attribute(attr)
	if !ok || a.Kind != metamodel.Relation {
		return nil, nil, &diagnostics.UnresolvedPathError{Entity: e.Name, Segment: attr, Path: []string{attr}}
	}
	return e, a.Relationship, nil
}

// GenerateSelectByPrimaryKey selects the entity with the given key.
func (c *Compiler) GenerateSelectByPrimaryKey(entity string, key metamodel.Key) (*sqlast.Select, error) {
	s, err := c.begin(entity)
	if err != nil {
		return nil, err
	}
	root := s.root()
	bindings, err := keyBindings(root.Entity, key)
	if err != nil {
		return nil, err
	}
	sel := &sqlast.Select{From: root.Table, Where: equalities(root.Table, bindings)}
	sel.Values, sel.Columns = s.entityColumns(root)
	return s.finish(sel, entity)
}

// GenerateSelectByForeignKey selects the rows holding a foreign key equal
// to key.
//
// When attr is an owning to-one relationship of entity, entity is selected
// and key belongs to the relationship's target. When attr is a to-many
// relationship mapped by foreign key columns on the target table, the
// target is selected and key belongs to entity.
func (c *Compiler) GenerateSelectByForeignKey(entity, attr string, key metamodel.Key) (*sqlast.Select, error) {
	_, r, err := c.relationship(entity, attr)
	if err != nil {
		return nil, err
	}
	e, err := resolver.EdgeOf(r)
	if err != nil {
		return nil, err
	}
	if e.Table != "" {
		return nil, invalid("select", "%s is mapped by join table %s", r, e.Table)
	}
	selected := r.Target
	if r.IsOwning() && !r.Kind.ToMany() {
		selected = r.Source
	}
	bindings, err := ExpandJoinColumnAttributes(r, key)
	if err != nil {
		return nil, err
	}

	s, err := c.begin(selected.Name)
	if err != nil {
		return nil, err
	}
	root := s.root()
	sel := &sqlast.Select{From: root.Table, Where: equalities(root.Table, bindings)}
	sel.Values, sel.Columns = s.entityColumns(root)
	return s.finish(sel, selected.Name)
}

// GenerateSelectByJoinTable selects the targets of a join-table
// relationship for the source entity with the given key.
func (c *Compiler) GenerateSelectByJoinTable(entity, attr string, key metamodel.Key) (*sqlast.Select, error) {
	_, r, err := c.relationship(entity, attr)
	if err != nil {
		return nil, err
	}
	e, err := resolver.EdgeOf(r)
	if err != nil {
		return nil, err
	}
	if e.Table == "" {
		return nil, invalid("select", "%s has no join table", r)
	}
	bindings, err := ExpandJoinColumnAttributes(r, key)
	if err != nil {
		return nil, err
	}

	s, err := c.begin(r.Target.Name)
	if err != nil {
		return nil, err
	}
	root := s.root()
	jt := s.ctx.Table(e.Table)
	sel := &sqlast.Select{
		From: root.Table,
		Joins: []*sqlast.Join{{
			Kind:  sqlast.InnerJoin,
			Table: jt,
			From:  root.Table.Columns(e.Target...),
			To:    jt.Columns(e.TableTarget...),
		}},
		Where: equalities(jt, bindings),
	}
	sel.Values, sel.Columns = s.entityColumns(root)
	return s.finish(sel, r.Target.Name)
}

// rowBindings returns the bindings of every entity column with a value in
// row, in entity column order, followed by foreign columns other entities
// place on the table.
func (c *Compiler) rowBindings(e *metamodel.Entity, row Row) ([]Binding, error) {
	var out []Binding
	expanded := make(map[*metamodel.Relationship]map[string]Binding)
	for _, col := range e.Columns() {
		if v, ok := row[col.Name]; ok {
			out = append(out, Binding{Column: col.Name, Value: v, Type: col.Type})
			continue
		}
		r := col.Relationship
		if r == nil {
			continue
		}
		key, ok := row[r.Attribute.Name]
		if !ok {
			continue
		}
		byCol, done := expanded[r]
		if !done {
			bs, err := ExpandJoinColumnAttributes(r, asKey(key))
			if err != nil {
				return nil, err
			}
			byCol = make(map[string]Binding, len(bs))
			for _, b := range bs {
				byCol[b.Column] = b
			}
			expanded[r] = byCol
		}
		out = append(out, byCol[col.Name])
	}
	for _, fc := range c.mm.ForeignColumns(e) {
		if v, ok := row[fc.Name]; ok {
			out = append(out, Binding{Column: fc.Name, Value: v, Type: fc.Type})
		}
	}
	return out, nil
}

func asKey(v any) metamodel.Key {
	switch k := v.(type) {
	case metamodel.Key:
		return k
	case []any:
		return k
	}
	return metamodel.Key{v}
}

// GenerateInsert inserts one row. Key columns generated by the database
// may be left out of row; any other key column is required.
func (c *Compiler) GenerateInsert(entity string, row Row) (*sqlast.Insert, error) {
	e, err := c.mm.MustEntity(entity)
	if err != nil {
		return nil, err
	}
	for _, col := range e.PrimaryKey.Columns() {
		if _, ok := row[col.Name]; !ok && e.PrimaryKey.Generation == metamodel.GenerationNone {
			return nil, invalid("insert", "missing value for key column %s of %s", col.Name, e.Name)
		}
	}
	bindings, err := c.rowBindings(e, row)
	if err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		return nil, invalid("insert", "no values for %s", e.Name)
	}
	ins := &sqlast.Insert{Table: e.Table}
	for _, b := range bindings {
		ins.Columns = append(ins.Columns, b.Column)
		ins.Values = append(ins.Values, sqlast.Bind(b.Value, b.Type))
	}
	debug.Debug("compiled statement", "entity", e.Name, "kind", ins.Kind(), "columns", len(ins.Columns))
	return ins, nil
}

// GenerateUpdate updates the non-key columns present in row of the entity
// identified by row's key columns.
func (c *Compiler) GenerateUpdate(entity string, row Row) (*sqlast.Update, error) {
	e, err := c.mm.MustEntity(entity)
	if err != nil {
		return nil, err
	}
	key, err := e.PrimaryKey.KeyOf(row)
	if err != nil {
		return nil, invalid("update", "%s of %s", err, e.Name)
	}
	bindings, err := c.rowBindings(e, row)
	if err != nil {
		return nil, err
	}
	pk := make(map[string]bool)
	for _, n := range e.PrimaryKey.ColumnNames() {
		pk[n] = true
	}
	upd := &sqlast.Update{Table: &sqlast.FromTable{Name: e.Table}}
	for _, b := range bindings {
		if pk[b.Column] {
			continue
		}
		upd.Set = append(upd.Set, sqlast.Assignment{Column: b.Column, Value: sqlast.Bind(b.Value, b.Type)})
	}
	if len(upd.Set) == 0 {
		return nil, invalid("update", "no columns to update on %s", e.Name)
	}
	where, err := keyBindings(e, key)
	if err != nil {
		return nil, err
	}
	upd.Where = equalities(upd.Table, where)
	debug.Debug("compiled statement", "entity", e.Name, "kind", upd.Kind(), "columns", len(upd.Set))
	return upd, nil
}

// GenerateDelete deletes the entity with the given key.
func (c *Compiler) GenerateDelete(entity string, key metamodel.Key) (*sqlast.Delete, error) {
	e, err := c.mm.MustEntity(entity)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, invalid("delete", "delete by key of %s needs at least one condition", e.Name)
	}
	bindings, err := keyBindings(e, key)
	if err != nil {
		return nil, err
	}
	del := &sqlast.Delete{Table: &sqlast.FromTable{Name: e.Table}}
	del.Where = equalities(del.Table, bindings)
	debug.Debug("compiled statement", "entity", e.Name, "kind", del.Kind())
	return del, nil
}

// GenerateDeleteWhere deletes the rows of entity matching pred, which is
// required.
func (c *Compiler) GenerateDeleteWhere(entity string, pred Predicate) (*sqlast.Delete, error) {
	if pred == nil {
		return nil, invalid("delete", "delete from %s needs at least one condition", entity)
	}
	return c.CompileDelete(&DeleteCriteria{Root: entity, Where: pred})
}

// DeleteCriteria is a bulk delete.
type DeleteCriteria struct {
	Root      string
	RootAlias string
	Where     Predicate
}

// SetClause assigns Value to the attribute at Path.
type SetClause struct {
	Path  []string
	Value Expr
}

// Set assigns v to a dotted attribute path.
func Set(path string, v Expr) SetClause { return SetClause{Path: split(path), Value: v} }

// UpdateCriteria is a bulk update.
type UpdateCriteria struct {
	Root      string
	RootAlias string
	Set       []SetClause
	Where     Predicate
}

// bulk starts a single-table statement. Its conditions may use subqueries
// but not joins.
func (c *Compiler) bulk(entity, alias string) (*compilation, error) {
	s, err := c.begin(entity)
	if err != nil {
		return nil, err
	}
	if alias != "" {
		if err := s.bind(alias, s.root()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *compilation) noJoins(stmt string) error {
	if joins := s.ctx.Joins(); len(joins) > 0 {
		return invalid(stmt, "cannot navigate to %s in a bulk %s", joins[0].Table.Name, stmt)
	}
	return nil
}

// CompileDelete compiles a bulk delete.
func (c *Compiler) CompileDelete(cr *DeleteCriteria) (*sqlast.Delete, error) {
	s, err := c.bulk(cr.Root, cr.RootAlias)
	if err != nil {
		return nil, err
	}
	del := &sqlast.Delete{Table: s.root().Table}
	if cr.Where != nil {
		if del.Where, err = s.predicate(cr.Where); err != nil {
			return nil, err
		}
	}
	if err := s.noJoins("delete"); err != nil {
		return nil, err
	}
	debug.Debug("compiled statement", "entity", cr.Root, "kind", del.Kind())
	return del, nil
}

// CompileUpdate compiles a bulk update. Assigning a multi-column attribute
// takes a key value with one element per column.
func (c *Compiler) CompileUpdate(cr *UpdateCriteria) (*sqlast.Update, error) {
	if len(cr.Set) == 0 {
		return nil, invalid("update", "no assignments for %s", cr.Root)
	}
	s, err := c.bulk(cr.Root, cr.RootAlias)
	if err != nil {
		return nil, err
	}
	upd := &sqlast.Update{Table: s.root().Table}
	for _, set := range cr.Set {
		res, err := s.ctx.Resolve(s.root(), set.Path, sqlast.InnerJoin)
		if err != nil {
			return nil, err
		}
		if res.Binding != s.root() {
			return nil, invalid("update", "%s is not stored on %s", strings.Join(set.Path, "."), s.root().Table.Name)
		}
		values, _, err := s.expr(set.Value, res.Meta)
		if err != nil {
			return nil, err
		}
		if len(values) != len(res.Columns) {
			return nil, invalid("update", "%d values for %d columns of %s", len(values), len(res.Columns), strings.Join(set.Path, "."))
		}
		for i, col := range res.Columns {
			upd.Set = append(upd.Set, sqlast.Assignment{Column: col.Name, Value: values[i]})
		}
	}
	if cr.Where != nil {
		if upd.Where, err = s.predicate(cr.Where); err != nil {
			return nil, err
		}
	}
	if err := s.noJoins("update"); err != nil {
		return nil, err
	}
	debug.Debug("compiled statement", "entity", cr.Root, "kind", upd.Kind(), "columns", len(upd.Set))
	return upd, nil
}

// joinTableRows resolves the join table of attr and the bindings of both
// sides. owner is the key of entity, target the key of the related entity.
func (c *Compiler) joinTableRows(entity, attr string, owner, target metamodel.Key) (string, []Binding, []Binding, error) {
	_, r, err := c.relationship(entity, attr)
	if err != nil {
		return "", nil, nil, err
	}
	e, err := resolver.EdgeOf(r)
	if err != nil {
		return "", nil, nil, err
	}
	if e.Table == "" {
		return "", nil, nil, invalid("insert", "%s has no join table", r)
	}
	src, err := ExpandJoinColumnAttributes(r, owner)
	if err != nil {
		return "", nil, nil, err
	}
	if target == nil {
		return e.Table, src, nil, nil
	}
	var dst []Binding
	if r.IsOwning() {
		dst, err = pair(r.JoinTable.TargetColumns, r.Target, target)
	} else {
		dst, err = pair(r.Inverse.JoinTable.OwnerColumns, r.Inverse.Source, target)
	}
	if err != nil {
		return "", nil, nil, err
	}
	return e.Table, src, dst, nil
}

// GenerateInsertJoinTable links the entity with key owner to the related
// entity with key target through attr's join table.
func (c *Compiler) GenerateInsertJoinTable(entity, attr string, owner, target metamodel.Key) (*sqlast.Insert, error) {
	if target == nil {
		return nil, invalid("insert", "missing target key for %s.%s", entity, attr)
	}
	table, src, dst, err := c.joinTableRows(entity, attr, owner, target)
	if err != nil {
		return nil, err
	}
	ins := &sqlast.Insert{Table: table}
	for _, b := range append(src, dst...) {
		ins.Columns = append(ins.Columns, b.Column)
		ins.Values = append(ins.Values, sqlast.Bind(b.Value, b.Type))
	}
	debug.Debug("compiled statement", "entity", entity, "kind", ins.Kind(), "table", table)
	return ins, nil
}

// GenerateDeleteJoinTable unlinks rows of attr's join table. A nil target
// removes every link of owner.
func (c *Compiler) GenerateDeleteJoinTable(entity, attr string, owner, target metamodel.Key) (*sqlast.Delete, error) {
	if len(owner) == 0 {
		return nil, invalid("delete", "delete from the join table of %s.%s needs an owner key", entity, attr)
	}
	table, src, dst, err := c.joinTableRows(entity, attr, owner, target)
	if err != nil {
		return nil, err
	}
	del := &sqlast.Delete{Table: &sqlast.FromTable{Name: table}}
	del.Where = equalities(del.Table, append(src, dst...))
	debug.Debug("compiled statement", "entity", entity, "kind", del.Kind(), "table", table)
	return del, nil
}
