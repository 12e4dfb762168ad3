// Package compiler compiles typed criteria and entity operations into the
// SQL abstract model.
//
// A Compiler holds only the read-only metamodel. Every call creates its own
// resolution context and alias generator, so one Compiler may serve any
// number of goroutines.
package compiler

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/resolver"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Compiler compiles statements against a metamodel.
type Compiler struct {
	mm *metamodel.Metamodel
}

// New creates a compiler for mm.
func New(mm *metamodel.Metamodel) *Compiler {
	return &Compiler{mm: mm}
}

// Metamodel returns the compiler's metamodel.
func (c *Compiler) Metamodel() *metamodel.Metamodel {
	return c.mm
}

// compilation is the state of one statement or subquery. Subqueries see
// the bindings of the enclosing statement.
type compilation struct {
	ctx      *resolver.Context
	bindings map[string]*resolver.Binding
	sub      bool
}

func (c *Compiler) begin(entity string) (*compilation, error) {
	root, err := c.mm.MustEntity(entity)
	if err != nil {
		return nil, err
	}
	ctx := resolver.NewContext(c.mm, root)
	return &compilation{
		ctx:      ctx,
		bindings: map[string]*resolver.Binding{"": ctx.Root()},
	}, nil
}

func (s *compilation) root() *resolver.Binding {
	return s.ctx.Root()
}

func (s *compilation) binding(alias string) (*resolver.Binding, error) {
	b, ok := s.bindings[alias]
	if !ok {
		return nil, &diagnostics.SemanticError{Identifier: alias, Message: "unknown alias"}
	}
	return b, nil
}

func (s *compilation) bind(alias string, b *resolver.Binding) error {
	if _, dup := s.bindings[alias]; dup {
		return &diagnostics.SemanticError{Identifier: alias, Message: "duplicate alias"}
	}
	s.bindings[alias] = b
	return nil
}

// CompileSelect compiles criteria into a SELECT. Without select
// expressions the root entity's columns are selected.
func (c *Compiler) CompileSelect(cr *Criteria) (*sqlast.Select, error) {
	s, err := c.begin(cr.Root)
	if err != nil {
		return nil, err
	}
	sel, err := s.build(cr)
	if err != nil {
		return nil, err
	}
	return s.finish(sel, cr.Root)
}

// subquery compiles nested criteria in a child context sharing the alias
// generator of s.
func (s *compilation) subquery(cr *Criteria) (*sqlast.Select, error) {
	root, err := s.ctx.Metamodel().MustEntity(cr.Root)
	if err != nil {
		return nil, err
	}
	ctx := s.ctx.Subcontext(root)
	sub := &compilation{ctx: ctx, bindings: make(map[string]*resolver.Binding, len(s.bindings)), sub: true}
	for alias, b := range s.bindings {
		if alias != "" {
			sub.bindings[alias] = b
		}
	}
	sub.bindings[""] = ctx.Root()
	return sub.build(cr)
}

func (s *compilation) build(cr *Criteria) (*sqlast.Select, error) {
	if cr.RootAlias != "" {
		if err := s.bind(cr.RootAlias, s.root()); err != nil {
			return nil, err
		}
	}

	for _, r := range cr.Ranges {
		if r.Alias == "" {
			return nil, &diagnostics.SemanticError{Identifier: r.Entity, Message: "a further range variable needs an alias"}
		}
		e, err := s.ctx.Metamodel().MustEntity(r.Entity)
		if err != nil {
			return nil, err
		}
		if err := s.bind(r.Alias, s.ctx.Range(e)); err != nil {
			return nil, err
		}
	}

	// Explicit joins next, in declaration order.
	var fetched []*resolver.Binding
	covered := make(map[string]bool)
	for _, j := range cr.Joins {
		from, err := s.binding(j.From)
		if err != nil {
			return nil, err
		}
		kind := sqlast.InnerJoin
		if j.Left {
			kind = sqlast.LeftJoin
		}
		b, err := s.ctx.Join(from, j.Path, kind)
		if err != nil {
			return nil, err
		}
		if j.Fetch {
			if s.sub {
				return nil, invalid("select", "fetch joins are not allowed in subqueries")
			}
			fetched = append(fetched, b)
			if j.From == "" || j.From == cr.RootAlias {
				covered[strings.Join(j.Path, ".")] = true
			}
		}
		if j.Alias == "" {
			continue
		}
		if err := s.bind(j.Alias, b); err != nil {
			return nil, err
		}
	}

	if cr.FetchEager && !s.sub {
		for _, r := range s.root().Entity.Relationships() {
			if r.Fetch != metamodel.FetchEager || covered[strings.Join(r.Attribute.Path, ".")] {
				continue
			}
			b, err := s.ctx.Join(s.root(), r.Attribute.Path, sqlast.LeftJoin)
			if err != nil {
				return nil, err
			}
			fetched = append(fetched, b)
		}
	}

	sel := &sqlast.Select{Distinct: cr.Distinct, From: s.root().Table}
	var err error

	// SELECT
	if len(cr.Select) == 0 {
		sel.Values, sel.Columns = s.entityColumns(s.root())
	}
	for _, e := range cr.Select {
		values, cols, err := s.selectExpr(e)
		if err != nil {
			return nil, err
		}
		sel.Values = append(sel.Values, values...)
		sel.Columns = append(sel.Columns, cols...)
	}
	for _, b := range fetched {
		values, cols := s.entityColumns(b)
		sel.Values = append(sel.Values, values...)
		sel.Columns = append(sel.Columns, cols...)
	}

	// WHERE
	if cr.Where != nil {
		if sel.Where, err = s.predicate(cr.Where); err != nil {
			return nil, err
		}
	}

	// GROUP BY
	for _, e := range cr.GroupBy {
		values, _, err := s.expr(e, nil)
		if err != nil {
			return nil, err
		}
		sel.GroupBy = append(sel.GroupBy, values...)
	}

	// HAVING
	if cr.Having != nil {
		if sel.Having, err = s.predicate(cr.Having); err != nil {
			return nil, err
		}
	}

	// ORDER BY
	for _, o := range cr.OrderBy {
		values, _, err := s.expr(o.Expr, nil)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			sel.OrderBy = append(sel.OrderBy, sqlast.OrderItem{Value: v, Desc: o.Desc})
		}
	}

	sel.Joins = s.ctx.Joins()
	return sel, nil
}

func (s *compilation) finish(sel *sqlast.Select, entity string) (*sqlast.Select, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	debug.Debug("compiled statement",
		"entity", entity,
		"kind", sel.Kind(),
		"aliases", s.ctx.Aliases().Len(),
		"joins", len(sel.Joins),
	)
	return sel, nil
}

// entityColumns selects all columns stored on the binding's table. Inside
// a subquery an entity stands for its key.
func (s *compilation) entityColumns(b *resolver.Binding) ([]sqlast.Value, []metamodel.Column) {
	cols := b.Entity.Columns()
	if s.sub {
		cols = b.Entity.PrimaryKey.Columns()
	}
	values := make([]sqlast.Value, len(cols))
	for i, col := range cols {
		values[i] = sqlast.Col(b.Table.Column(col.Name))
	}
	return values, cols
}

// selectExpr compiles a selected expression. Entities and paths ending on a
// joined relationship expand to all columns of the entity; embedded
// attributes and owning to-one relationships expand to their columns.
func (s *compilation) selectExpr(e Expr) ([]sqlast.Value, []metamodel.Column, error) {
	p, ok := e.(PathExpr)
	if !ok {
		return s.expr(e, nil)
	}
	b, err := s.binding(p.Alias)
	if err != nil {
		return nil, nil, err
	}
	if len(p.Path) == 0 {
		values, cols := s.entityColumns(b)
		return values, cols, nil
	}
	res, err := s.ctx.Resolve(b, p.Path, sqlast.InnerJoin)
	if err != nil {
		return nil, nil, err
	}
	if res.Target != nil {
		values, cols := s.entityColumns(res.Target)
		return values, cols, nil
	}
	return res.Values(), res.Meta, nil
}

func invalid(stmt, format string, args ...any) error {
	return &diagnostics.InvalidStatementError{Statement: stmt, Reason: fmt.Sprintf(format, args...)}
}
