package compiler

import (
	"fmt"

	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// expr compiles an expression into one value per column. hint describes
// the columns of the other operand and types bound parameters; key values
// expand against it.
func (s *compilation) expr(e Expr, hint []metamodel.Column) ([]sqlast.Value, []metamodel.Column, error) {
	switch e := e.(type) {
	case PathExpr:
		b, err := s.binding(e.Alias)
		if err != nil {
			return nil, nil, err
		}
		if len(e.Path) == 0 {
			return sqlast.Cols(b.Key()), b.Entity.PrimaryKey.Columns(), nil
		}
		res, err := s.ctx.Resolve(b, e.Path, sqlast.InnerJoin)
		if err != nil {
			return nil, nil, err
		}
		return res.Values(), res.Meta, nil

	case LitExpr:
		parts, err := expand(e.Value, len(hint))
		if err != nil {
			return nil, nil, err
		}
		values := make([]sqlast.Value, len(parts))
		for i, v := range parts {
			values[i] = sqlast.Lit(v)
		}
		return values, hintOrNone(hint, len(parts)), nil

	case ParamExpr:
		parts, err := expand(e.Value, len(hint))
		if err != nil {
			return nil, nil, err
		}
		if e.Value == nil && len(hint) > 1 {
			// An unbound key parameter takes one placeholder per column.
			parts = make([]any, len(hint))
		}
		cols := hintOrNone(hint, len(parts))
		values := make([]sqlast.Value, len(parts))
		for i, v := range parts {
			values[i] = &sqlast.Param{Name: e.Name, Value: v, Type: cols[i].Type}
		}
		return values, cols, nil

	case AggExpr:
		if e.Arg == nil {
			return []sqlast.Value{sqlast.CountStar()}, []metamodel.Column{{Type: metamodel.TypeLong}}, nil
		}
		arg, col, err := s.single(e.Arg, nil)
		if err != nil {
			return nil, nil, err
		}
		switch e.Func {
		case sqlast.Count:
			col = metamodel.Column{Type: metamodel.TypeLong}
		case sqlast.Avg:
			col = metamodel.Column{Type: metamodel.TypeDouble}
		default:
			col = metamodel.Column{Type: col.Type}
		}
		return []sqlast.Value{sqlast.Agg(e.Func, arg, e.Distinct)}, []metamodel.Column{col}, nil

	case ArithExpr:
		l, lc, err := s.single(e.Left, nil)
		if err != nil {
			return nil, nil, err
		}
		r, _, err := s.single(e.Right, []metamodel.Column{lc})
		if err != nil {
			return nil, nil, err
		}
		return []sqlast.Value{sqlast.Arith(e.Op, l, r)}, []metamodel.Column{{Type: lc.Type}}, nil

	case ConcatExpr:
		if len(e.Args) == 0 {
			return nil, nil, invalid("select", "concat needs arguments")
		}
		args := make([]sqlast.Value, len(e.Args))
		for i, a := range e.Args {
			v, _, err := s.single(a, []metamodel.Column{{Type: metamodel.TypeString}})
			if err != nil {
				return nil, nil, err
			}
			args[i] = v
		}
		return []sqlast.Value{&sqlast.Concat{Args: args}}, []metamodel.Column{{Type: metamodel.TypeString}}, nil

	case TemporalExpr:
		types := map[sqlast.TemporalKind]metamodel.ValueType{
			sqlast.CurrentDate:      metamodel.TypeDate,
			sqlast.CurrentTime:      metamodel.TypeTime,
			sqlast.CurrentTimestamp: metamodel.TypeTimestamp,
		}
		return []sqlast.Value{&sqlast.CurrentTemporal{Kind: e.Kind}}, []metamodel.Column{{Type: types[e.Kind]}}, nil

	case SubqueryExpr:
		sel, err := s.subquery(e.Criteria)
		if err != nil {
			return nil, nil, err
		}
		if len(sel.Values) != 1 {
			return nil, nil, invalid("select", "scalar subquery selects %d columns", len(sel.Values))
		}
		return []sqlast.Value{&sqlast.Subquery{Select: sel}}, sel.Columns, nil
	}
	return nil, nil, invalid("select", "unsupported expression %T", e)
}

// single compiles an expression that must yield exactly one column.
func (s *compilation) single(e Expr, hint []metamodel.Column) (sqlast.Value, metamodel.Column, error) {
	values, cols, err := s.expr(e, hint)
	if err != nil {
		return nil, metamodel.Column{}, err
	}
	if len(values) != 1 {
		return nil, metamodel.Column{}, invalid("select", "expression %s spans %d columns where one is expected", describe(e), len(values))
	}
	return values[0], cols[0], nil
}

func describe(e Expr) string {
	if p, ok := e.(PathExpr); ok {
		path := p.Alias
		for _, seg := range p.Path {
			if path != "" {
				path += "."
			}
			path += seg
		}
		return path
	}
	return fmt.Sprintf("%T", e)
}

// expand splits a key value into one value per column. Scalars stay whole.
func expand(v any, width int) ([]any, error) {
	var parts []any
	switch k := v.(type) {
	case metamodel.Key:
		parts = k
	case []any:
		parts = k
	default:
		return []any{v}, nil
	}
	if width > 0 && len(parts) != width {
		return nil, invalid("select", "%d key values for %d columns", len(parts), width)
	}
	return parts, nil
}

func hintOrNone(hint []metamodel.Column, n int) []metamodel.Column {
	if len(hint) == n {
		return hint
	}
	return make([]metamodel.Column, n)
}

// predicate compiles a criteria predicate into a condition.
func (s *compilation) predicate(p Predicate) (sqlast.Condition, error) {
	switch p := p.(type) {
	case ComparePred:
		l, lc, err := s.expr(p.Left, nil)
		if err != nil {
			return nil, err
		}
		r, _, err := s.expr(p.Right, lc)
		if err != nil {
			return nil, err
		}
		if len(l) != len(r) {
			return nil, invalid("select", "cannot compare %d columns with %d values", len(l), len(r))
		}
		if len(l) == 1 {
			return sqlast.Compare(p.Op, l[0], r[0]), nil
		}
		if p.Op != sqlast.OpEq && p.Op != sqlast.OpNe {
			return nil, invalid("select", "operator %s does not apply to multi-column values", p.Op)
		}
		pairs := make([]sqlast.Condition, len(l))
		for i := range l {
			pairs[i] = sqlast.Eq(l[i], r[i])
		}
		if p.Op == sqlast.OpNe {
			return sqlast.Negate(sqlast.And(pairs...)), nil
		}
		return sqlast.And(pairs...), nil

	case NullPred:
		values, _, err := s.expr(p.Expr, nil)
		if err != nil {
			return nil, err
		}
		checks := make([]sqlast.Condition, len(values))
		for i, v := range values {
			checks[i] = &sqlast.NullCheck{Value: v, Not: p.Not}
		}
		return sqlast.And(checks...), nil

	case BetweenPred:
		v, col, err := s.single(p.Expr, nil)
		if err != nil {
			return nil, err
		}
		hint := []metamodel.Column{col}
		low, _, err := s.single(p.Low, hint)
		if err != nil {
			return nil, err
		}
		high, _, err := s.single(p.High, hint)
		if err != nil {
			return nil, err
		}
		return sqlast.BetweenOf(v, low, high), nil

	case LikePred:
		v, _, err := s.single(p.Expr, nil)
		if err != nil {
			return nil, err
		}
		hint := []metamodel.Column{{Type: metamodel.TypeString}}
		pattern, _, err := s.single(p.Pattern, hint)
		if err != nil {
			return nil, err
		}
		var escape sqlast.Value
		if p.Escape != nil {
			if escape, _, err = s.single(p.Escape, hint); err != nil {
				return nil, err
			}
		}
		return sqlast.LikeOf(v, pattern, escape), nil

	case InPred:
		v, col, err := s.single(p.Expr, nil)
		if err != nil {
			return nil, err
		}
		if p.Sub != nil {
			sel, err := s.subquery(p.Sub)
			if err != nil {
				return nil, err
			}
			if len(sel.Values) != 1 {
				return nil, invalid("select", "subquery of in selects %d columns", len(sel.Values))
			}
			return sqlast.InSubquery(v, sel), nil
		}
		list := make([]sqlast.Value, len(p.List))
		for i, item := range p.List {
			if list[i], _, err = s.single(item, []metamodel.Column{col}); err != nil {
				return nil, err
			}
		}
		return sqlast.InOf(v, list...), nil

	case LogicalPred:
		conds := make([]sqlast.Condition, 0, len(p.Preds))
		for _, sub := range p.Preds {
			c, err := s.predicate(sub)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		if p.Op == sqlast.OpOr {
			return sqlast.Or(conds...), nil
		}
		return sqlast.And(conds...), nil

	case NotPred:
		c, err := s.predicate(p.Pred)
		if err != nil {
			return nil, err
		}
		return sqlast.Negate(c), nil

	case MemberPred:
		b, err := s.binding(p.Path.Alias)
		if err != nil {
			return nil, err
		}
		target, err := s.ctx.Target(b, p.Path.Path)
		if err != nil {
			return nil, err
		}
		values, _, err := s.expr(p.Key, target.PrimaryKey.Columns())
		if err != nil {
			return nil, err
		}
		return s.ctx.Membership(b, p.Path.Path, values)

	case ExistsPred:
		sel, err := s.subquery(p.Sub)
		if err != nil {
			return nil, err
		}
		return sqlast.ExistsOf(sel), nil

	case EmptyPred:
		b, err := s.binding(p.Path.Alias)
		if err != nil {
			return nil, err
		}
		return s.ctx.Emptiness(b, p.Path.Path)
	}
	return nil, invalid("select", "unsupported predicate %T", p)
}
