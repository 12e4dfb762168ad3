// Package resolver expands navigation paths through the metamodel into
// joins and column sets of the SQL abstract model.
package resolver

import (
	"strings"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Binding is an entity bound to a table reference of a statement.
type Binding struct {
	Entity *metamodel.Entity
	Table  *sqlast.FromTable
}

// Key returns the binding's primary key columns.
func (b *Binding) Key() []sqlast.TableColumn {
	return b.Table.Columns(b.Entity.PrimaryKey.ColumnNames()...)
}

// Resolution is the outcome of resolving one path.
type Resolution struct {
	// Entity is the entity the path ends on: the owner of a basic or
	// embedded attribute, or the target of a relationship.
	Entity *metamodel.Entity
	// Attribute is the last attribute of the path.
	Attribute *metamodel.Attribute
	// Binding is the table holding Columns.
	Binding *Binding
	// Target is set when the path ends on a relationship that was joined.
	Target *Binding
	// Columns is the end-of-path column set with Meta describing each.
	Columns []sqlast.TableColumn
	Meta    []metamodel.Column
	// Joins lists the joins this resolution added to the context.
	Joins []*sqlast.Join
}

// Values returns the resolution's columns as values.
func (r *Resolution) Values() []sqlast.Value {
	return sqlast.Cols(r.Columns)
}

type joinKey struct {
	alias string
	path  string
	kind  sqlast.JoinKind
}

// Context is the resolution state of one statement: its alias generator,
// root binding and the joins added so far. Repeated navigation of the same
// relationship from the same table reuses the first join.
//
// A Context belongs to one compilation and must not be shared between
// goroutines.
type Context struct {
	mm      *metamodel.Metamodel
	aliases *sqlast.AliasGenerator
	root    *Binding
	joins   []*sqlast.Join
	cache   map[joinKey]*Binding
}

// NewContext starts a statement rooted at entity.
func NewContext(mm *metamodel.Metamodel, root *metamodel.Entity) *Context {
	return newContext(mm, sqlast.NewAliasGenerator(), root)
}

func newContext(mm *metamodel.Metamodel, aliases *sqlast.AliasGenerator, root *metamodel.Entity) *Context {
	return &Context{
		mm:      mm,
		aliases: aliases,
		root:    &Binding{Entity: root, Table: aliases.Table(root.Table)},
		cache:   make(map[joinKey]*Binding),
	}
}

// Subcontext starts a nested statement rooted at entity. It shares the
// alias generator so aliases stay unique across the whole statement.
func (c *Context) Subcontext(root *metamodel.Entity) *Context {
	return newContext(c.mm, c.aliases, root)
}

// Root returns the binding of the statement's root entity.
func (c *Context) Root() *Binding {
	return c.root
}

// Joins returns the joins added so far in order.
func (c *Context) Joins() []*sqlast.Join {
	return c.joins
}

// Aliases returns the statement's alias generator.
func (c *Context) Aliases() *sqlast.AliasGenerator {
	return c.aliases
}

// Metamodel returns the metamodel the context resolves against.
func (c *Context) Metamodel() *metamodel.Metamodel {
	return c.mm
}

// Range adds a further range variable over entity to the statement. It is
// cross joined with the tables before it; conditions relate the ranges.
func (c *Context) Range(entity *metamodel.Entity) *Binding {
	b := &Binding{Entity: entity, Table: c.aliases.Table(entity.Table)}
	c.joins = append(c.joins, &sqlast.Join{Kind: sqlast.CrossJoin, Table: b.Table})
	return b
}

// Table binds a fresh table reference outside the join list, for
// subqueries and join tables built by callers.
func (c *Context) Table(name string) *sqlast.FromTable {
	return c.aliases.Table(name)
}

// Resolve resolves path starting at from. Intermediate relationships are
// joined with kind. A path ending on an owning to-one relationship with
// join columns yields the foreign key columns without a join; a path ending
// on any other relationship joins the target and yields its key.
func (c *Context) Resolve(from *Binding, path []string, kind sqlast.JoinKind) (*Resolution, error) {
	start := len(c.joins)
	b, attr, err := c.lookup(from, path, kind)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Entity: b.Entity, Attribute: attr, Binding: b}
	switch attr.Kind {
	case metamodel.Basic, metamodel.Embedded:
		res.Meta = attr.Columns()
	case metamodel.Relation:
		r := attr.Relationship
		res.Entity = r.Target
		if directToOne(r) {
			res.Meta = attr.Columns()
			break
		}
		t, err := c.navigate(b, attr, kind, false)
		if err != nil {
			return nil, err
		}
		res.Target = t
		res.Binding = t
		res.Meta = r.Target.PrimaryKey.Columns()
	}
	res.Columns = make([]sqlast.TableColumn, len(res.Meta))
	for i, m := range res.Meta {
		res.Columns[i] = res.Binding.Table.Column(m.Name)
	}
	res.Joins = c.joins[start:]
	return res, nil
}

// Join navigates path from from, which must end on a relationship, and
// returns the binding of the final target. Unlike Resolve, the last
// relationship always gets a join of its own, as for an explicit join
// declared in a query.
func (c *Context) Join(from *Binding, path []string, kind sqlast.JoinKind) (*Binding, error) {
	b, attr, err := c.lookup(from, path, kind)
	if err != nil {
		return nil, err
	}
	if attr.Kind != metamodel.Relation {
		return nil, c.unresolved(b.Entity, attr.Name, path)
	}
	return c.navigate(b, attr, kind, true)
}

func directToOne(r *metamodel.Relationship) bool {
	return r.IsOwning() && !r.Kind.ToMany() && len(r.JoinColumns) > 0
}

// lookup walks all but the last segment of path and returns the binding
// and attribute of the last one.
func (c *Context) lookup(from *Binding, path []string, kind sqlast.JoinKind) (*Binding, *metamodel.Attribute, error) {
	if len(path) == 0 {
		return nil, nil, &diagnostics.InvalidStatementError{Statement: "path", Reason: "empty path"}
	}
	b := from
	var embedded *metamodel.Attribute
	for i, seg := range path {
		var attr *metamodel.Attribute
		var ok bool
		if embedded != nil {
			attr, ok = embedded.Nested(seg)
		} else {
			attr, ok = b.Entity.Attribute(seg)
		}
		if !ok {
			return nil, nil, c.unresolved(b.Entity, seg, path)
		}
		if i == len(path)-1 {
			return b, attr, nil
		}
		switch attr.Kind {
		case metamodel.Basic:
			return nil, nil, c.unresolved(b.Entity, path[i+1], path)
		case metamodel.Embedded:
			embedded = attr
		case metamodel.Relation:
			next, err := c.navigate(b, attr, kind, false)
			if err != nil {
				return nil, nil, err
			}
			b = next
			embedded = nil
		}
	}
	panic("unreachable")
}

func (c *Context) unresolved(e *metamodel.Entity, segment string, path []string) error {
	return &diagnostics.UnresolvedPathError{Entity: e.Name, Segment: segment, Path: path}
}

// navigate joins the target of a relationship attribute. When fresh is
// false a join already made for the same table, attribute and kind is
// reused.
func (c *Context) navigate(from *Binding, attr *metamodel.Attribute, kind sqlast.JoinKind, fresh bool) (*Binding, error) {
	key := joinKey{alias: from.Table.Alias, path: strings.Join(attr.Path, "."), kind: kind}
	if !fresh {
		if b, ok := c.cache[key]; ok {
			return b, nil
		}
	}

	r := attr.Relationship
	target := &Binding{Entity: r.Target, Table: c.aliases.Table(r.Target.Table)}
	e, err := EdgeOf(r)
	if err != nil {
		return nil, err
	}

	if e.Table == "" {
		c.joins = append(c.joins, &sqlast.Join{
			Kind:  kind,
			Table: target.Table,
			From:  from.Table.Columns(e.Source...),
			To:    target.Table.Columns(e.Target...),
		})
	} else {
		jt := c.aliases.Table(e.Table)
		c.joins = append(c.joins,
			&sqlast.Join{
				Kind:  kind,
				Table: jt,
				From:  from.Table.Columns(e.Source...),
				To:    jt.Columns(e.TableSource...),
			},
			&sqlast.Join{
				Kind:  kind,
				Table: target.Table,
				From:  jt.Columns(e.TableTarget...),
				To:    target.Table.Columns(e.Target...),
			})
	}

	if _, ok := c.cache[key]; !ok {
		c.cache[key] = target
	}
	return target, nil
}
