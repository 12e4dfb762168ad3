package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/cache"
	"github.com/satishbabariya/entityql/query/compiler"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Alias describes an identification variable of a translated query.
type Alias struct {
	Name   string
	Entity string
	Join   JoinType
}

// Translation is a query translated into the SQL abstract model.
type Translation struct {
	Statement sqlast.Statement
	// Constructor is the class named by a NEW select item, if any. Its
	// arguments are the selected values in order.
	Constructor string
	// Aliases lists the identification variables of the outermost query
	// in declaration order.
	Aliases []Alias
}

// Translator translates query text against a metamodel. It holds no
// per-query state and is safe for concurrent use.
type Translator struct {
	mm    *metamodel.Metamodel
	c     *compiler.Compiler
	cache *cache.LRU[string, *Translation]
}

// NewTranslator creates a translator for mm.
func NewTranslator(mm *metamodel.Metamodel) *Translator {
	return &Translator{mm: mm, c: compiler.New(mm)}
}

// NewCachedTranslator creates a translator that keeps up to size successful
// translations keyed by query text. Cached translations are shared and
// must not be modified.
func NewCachedTranslator(mm *metamodel.Metamodel, size int) *Translator {
	t := NewTranslator(mm)
	t.cache = cache.New[string, *Translation](size, 0)
	return t
}

// CacheStats returns the translation cache counters. It is zero for an
// uncached translator.
func (t *Translator) CacheStats() cache.Stats {
	if t.cache == nil {
		return cache.Stats{}
	}
	return t.cache.Stats()
}

// translation is the state of one Translate call.
type translation struct {
	mm    *metamodel.Metamodel
	scope *scope
}

// Translate parses text and translates it into a statement.
func (t *Translator) Translate(text string) (*Translation, error) {
	if t.cache != nil {
		if out, ok := t.cache.Get(text); ok {
			return out, nil
		}
	}
	stmt, err := Parse(text)
	if err != nil {
		return nil, err
	}
	out, err := t.TranslateStatement(stmt)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Set(text, out)
	}
	return out, nil
}

// TranslateStatement translates a parsed statement.
func (t *Translator) TranslateStatement(stmt *Statement) (*Translation, error) {
	tr := &translation{mm: t.mm}
	out := &Translation{}

	switch {
	case stmt.Select != nil:
		cr, ctor, err := tr.selectCriteria(stmt.Select)
		if err != nil {
			return nil, err
		}
		sel, err := t.c.CompileSelect(cr)
		if err != nil {
			return nil, err
		}
		out.Statement, out.Constructor = sel, ctor

	case stmt.Update != nil:
		cr, err := tr.update(stmt.Update)
		if err != nil {
			return nil, err
		}
		upd, err := t.c.CompileUpdate(cr)
		if err != nil {
			return nil, err
		}
		out.Statement = upd

	case stmt.Delete != nil:
		cr, err := tr.delete(stmt.Delete)
		if err != nil {
			return nil, err
		}
		del, err := t.c.CompileDelete(cr)
		if err != nil {
			return nil, err
		}
		out.Statement = del
	}

	for _, sym := range tr.scope.order {
		out.Aliases = append(out.Aliases, Alias{Name: sym.alias, Entity: sym.entity.Name, Join: sym.join})
	}
	debug.Debug("translated query",
		"kind", out.Statement.Kind(),
		"aliases", len(out.Aliases),
		"constructor", out.Constructor,
	)
	return out, nil
}

// open enters a new query level. close restores the enclosing one, except
// for the outermost level which stays available for reporting.
func (tr *translation) open() (close func()) {
	parent := tr.scope
	tr.scope = newScope(parent)
	return func() {
		if parent != nil {
			tr.scope = parent
		}
	}
}

// declareRange declares a range variable of a statement.
func (tr *translation) declareRange(r *RangeDecl) (*metamodel.Entity, error) {
	e, ok := tr.mm.Entity(r.Entity)
	if !ok {
		return nil, &diagnostics.UnknownEntityError{Name: r.Entity, Position: position(r.Pos)}
	}
	return e, tr.scope.declare(&symbol{alias: r.Alias, entity: e, join: RangeVariable, pos: r.Pos})
}

func (tr *translation) selectCriteria(st *SelectStatement) (*compiler.Criteria, string, error) {
	defer tr.open()()

	root, err := tr.declareRange(st.Ranges[0])
	if err != nil {
		return nil, "", err
	}
	cr := &compiler.Criteria{Root: root.Name, RootAlias: st.Ranges[0].Alias, Distinct: st.Distinct}

	// Further ranges are only reachable through their alias.
	for _, r := range st.Ranges[1:] {
		if r.Alias == "" {
			return nil, "", &diagnostics.SemanticError{
				Identifier: r.Entity,
				Message:    "range variable needs an identification variable",
				Position:   position(r.Pos),
			}
		}
		e, err := tr.declareRange(r)
		if err != nil {
			return nil, "", err
		}
		cr.Ranges = append(cr.Ranges, compiler.Range{Entity: e.Name, Alias: r.Alias})
	}

	// FROM: joins extend the scope in declaration order.
	for _, j := range st.Joins {
		spec, err := tr.join(j)
		if err != nil {
			return nil, "", err
		}
		cr.Joins = append(cr.Joins, spec)
	}

	var ctor string
	for _, item := range st.Items {
		if item.Constructor == nil {
			e, err := tr.expression(item.Expr)
			if err != nil {
				return nil, "", err
			}
			cr.Select = append(cr.Select, e)
			continue
		}
		if ctor != "" {
			return nil, "", &diagnostics.SemanticError{
				Identifier: strings.Join(item.Constructor.Class, "."),
				Message:    "only one constructor expression is allowed",
				Position:   position(item.Pos),
			}
		}
		ctor = strings.Join(item.Constructor.Class, ".")
		for _, arg := range item.Constructor.Args {
			e, err := tr.expression(arg)
			if err != nil {
				return nil, "", err
			}
			cr.Select = append(cr.Select, e)
		}
	}

	if st.Where != nil {
		if cr.Where, err = tr.condition(st.Where); err != nil {
			return nil, "", err
		}
	}
	for _, g := range st.GroupBy {
		e, err := tr.expression(g)
		if err != nil {
			return nil, "", err
		}
		cr.GroupBy = append(cr.GroupBy, e)
	}
	if st.Having != nil {
		if cr.Having, err = tr.condition(st.Having); err != nil {
			return nil, "", err
		}
	}
	for _, o := range st.OrderBy {
		e, err := tr.expression(o.Expr)
		if err != nil {
			return nil, "", err
		}
		cr.OrderBy = append(cr.OrderBy, compiler.Order{Expr: e, Desc: o.Desc})
	}
	return cr, ctor, nil
}

func (tr *translation) join(j *JoinDecl) (compiler.JoinSpec, error) {
	p, end, err := tr.path(j.Path)
	if err != nil {
		return compiler.JoinSpec{}, err
	}
	if end == nil || end.Kind != metamodel.Relation {
		return compiler.JoinSpec{}, &diagnostics.SemanticError{
			Identifier: j.Path.String(),
			Message:    "join path must end on an association",
			Position:   position(j.Path.Pos),
		}
	}
	kind := InnerJoin
	if j.Left {
		kind = LeftJoin
	}
	sym := &symbol{alias: j.Alias, entity: end.Relationship.Target, join: kind, pos: j.Pos}
	if err := tr.scope.declare(sym); err != nil {
		return compiler.JoinSpec{}, err
	}
	return compiler.JoinSpec{From: p.Alias, Path: p.Path, Alias: j.Alias, Left: j.Left, Fetch: j.Fetch}, nil
}

func (tr *translation) noJoins(joins []*JoinDecl) error {
	if len(joins) == 0 {
		return nil
	}
	return &diagnostics.SemanticError{
		Identifier: joins[0].Path.String(),
		Message:    "joins are not allowed in bulk update or delete",
		Position:   position(joins[0].Pos),
	}
}

func (tr *translation) update(st *UpdateStatement) (*compiler.UpdateCriteria, error) {
	defer tr.open()()
	root, err := tr.declareRange(st.Range)
	if err != nil {
		return nil, err
	}
	if err := tr.noJoins(st.Joins); err != nil {
		return nil, err
	}
	cr := &compiler.UpdateCriteria{Root: root.Name, RootAlias: st.Range.Alias}
	for _, set := range st.Set {
		p, _, err := tr.path(set.Path)
		if err != nil {
			return nil, err
		}
		if len(p.Path) == 0 {
			return nil, &diagnostics.SemanticError{
				Identifier: set.Path.String(),
				Message:    "cannot assign an identification variable",
				Position:   position(set.Path.Pos),
			}
		}
		v, err := tr.expression(set.Value)
		if err != nil {
			return nil, err
		}
		cr.Set = append(cr.Set, compiler.SetClause{Path: p.Path, Value: v})
	}
	if st.Where != nil {
		if cr.Where, err = tr.condition(st.Where); err != nil {
			return nil, err
		}
	}
	return cr, nil
}

func (tr *translation) delete(st *DeleteStatement) (*compiler.DeleteCriteria, error) {
	defer tr.open()()
	root, err := tr.declareRange(st.Range)
	if err != nil {
		return nil, err
	}
	if err := tr.noJoins(st.Joins); err != nil {
		return nil, err
	}
	cr := &compiler.DeleteCriteria{Root: root.Name, RootAlias: st.Range.Alias}
	if st.Where != nil {
		if cr.Where, err = tr.condition(st.Where); err != nil {
			return nil, err
		}
	}
	return cr, nil
}

// path resolves a path against the scope. A leading identification
// variable selects the start entity; without one the path starts at the
// root of the current level when that root has no alias. The returned
// attribute is the last one of the path, nil for a bare variable.
func (tr *translation) path(p *Path) (compiler.PathExpr, *metamodel.Attribute, error) {
	first := p.Parts[0]
	var (
		alias string
		start *metamodel.Entity
		rest  []string
	)
	if sym, ok := tr.scope.lookup(first); ok {
		alias, start, rest = first, sym.entity, p.Parts[1:]
	} else if root := tr.scope.root; root != nil && root.alias == "" {
		start, rest = root.entity, p.Parts
	} else {
		return compiler.PathExpr{}, nil, &diagnostics.SemanticError{
			Identifier: first,
			Message:    "identification variable is not in scope",
			Position:   position(p.Pos),
		}
	}
	end, err := walk(start, rest, p.Parts, p.Pos)
	if err != nil {
		return compiler.PathExpr{}, nil, err
	}
	return compiler.PathExpr{Alias: alias, Path: rest}, end, nil
}

// walk checks that path exists from e and returns its last attribute.
func walk(e *metamodel.Entity, path, full []string, pos lexer.Position) (*metamodel.Attribute, error) {
	var end *metamodel.Attribute
	cur := e
	for i, seg := range path {
		var attr *metamodel.Attribute
		var ok bool
		if end != nil && end.Kind == metamodel.Embedded {
			attr, ok = end.Nested(seg)
		} else {
			attr, ok = cur.Attribute(seg)
		}
		if !ok || (end != nil && end.Kind == metamodel.Basic) {
			owner := cur.Name
			return nil, &diagnostics.UnresolvedPathError{Entity: owner, Segment: seg, Path: full, Position: position(pos)}
		}
		if attr.Kind == metamodel.Relation && i < len(path)-1 {
			cur = attr.Relationship.Target
		}
		end = attr
	}
	return end, nil
}

func (tr *translation) expression(e *Expression) (compiler.Expr, error) {
	left, err := tr.term(e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Right {
		right, err := tr.term(r.Term)
		if err != nil {
			return nil, err
		}
		left = compiler.Arith(sqlast.ArithOp(r.Op), left, right)
	}
	return left, nil
}

func (tr *translation) term(t *Term) (compiler.Expr, error) {
	left, err := tr.factor(t.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Right {
		right, err := tr.factor(r.Factor)
		if err != nil {
			return nil, err
		}
		left = compiler.Arith(sqlast.ArithOp(r.Op), left, right)
	}
	return left, nil
}

func (tr *translation) factor(f *Factor) (compiler.Expr, error) {
	e, err := tr.primary(f.Primary)
	if err != nil || !f.Minus {
		return e, err
	}
	if lit := f.Primary.Literal; lit != nil && lit.Number != nil {
		return compiler.Lit(sqlast.Number("-" + *lit.Number)), nil
	}
	return compiler.Arith(sqlast.Mul, compiler.Lit(sqlast.Number("-1")), e), nil
}

func (tr *translation) primary(p *Primary) (compiler.Expr, error) {
	switch {
	case p.Aggregate != nil:
		return tr.aggregate(p.Aggregate)

	case p.Concat != nil:
		args := make([]compiler.Expr, len(p.Concat.Args))
		for i, a := range p.Concat.Args {
			e, err := tr.expression(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		return compiler.ConcatOf(args...), nil

	case p.Temporal != "":
		switch strings.ToUpper(p.Temporal) {
		case "CURRENT_DATE":
			return compiler.CurrentDate(), nil
		case "CURRENT_TIME":
			return compiler.CurrentTime(), nil
		default:
			return compiler.CurrentTimestamp(), nil
		}

	case p.Subquery != nil:
		cr, err := tr.subquery(p.Subquery)
		if err != nil {
			return nil, err
		}
		return compiler.Subquery(cr), nil

	case p.Group != nil:
		return tr.expression(p.Group)

	case p.Literal != nil:
		return literal(p.Literal), nil

	case p.Param != "":
		return compiler.Param(p.Param[1:], nil), nil

	case p.Path != nil:
		e, _, err := tr.path(p.Path)
		return e, err
	}
	return nil, &diagnostics.SyntaxError{Message: "empty expression", Position: position(p.Pos)}
}

func literal(l *Literal) compiler.Expr {
	switch {
	case l.String != nil:
		s := *l.String
		return compiler.Lit(strings.ReplaceAll(s[1:len(s)-1], "''", "'"))
	case l.Number != nil:
		return compiler.Lit(sqlast.Number(*l.Number))
	case l.Bool != nil:
		return compiler.Lit(strings.EqualFold(*l.Bool, "TRUE"))
	}
	return compiler.Lit(nil)
}

func (tr *translation) aggregate(a *Aggregate) (compiler.Expr, error) {
	fn, err := sqlast.ParseAggregate(a.Func)
	if err != nil {
		return nil, &diagnostics.SyntaxError{Token: a.Func, Message: err.Error(), Position: position(a.Pos)}
	}
	if a.Star {
		if fn != sqlast.Count {
			return nil, &diagnostics.SemanticError{Identifier: a.Func, Message: "only count accepts *", Position: position(a.Pos)}
		}
		return compiler.CountAll(), nil
	}
	arg, err := tr.expression(a.Arg)
	if err != nil {
		return nil, err
	}
	return compiler.AggExpr{Func: fn, Arg: arg, Distinct: a.Distinct}, nil
}

func (tr *translation) subquery(st *SelectStatement) (*compiler.Criteria, error) {
	for _, j := range st.Joins {
		if j.Fetch {
			return nil, &diagnostics.SemanticError{
				Identifier: j.Path.String(),
				Message:    "fetch joins are not allowed in subqueries",
				Position:   position(j.Pos),
			}
		}
	}
	cr, ctor, err := tr.selectCriteria(st)
	if err != nil {
		return nil, err
	}
	if ctor != "" {
		return nil, &diagnostics.SemanticError{Identifier: ctor, Message: "constructor expressions are not allowed in subqueries", Position: position(st.Pos)}
	}
	if len(cr.OrderBy) > 0 {
		return nil, &diagnostics.SemanticError{Message: "order by is not allowed in subqueries", Position: position(st.Pos)}
	}
	return cr, nil
}

func (tr *translation) condition(c *Condition) (compiler.Predicate, error) {
	preds := make([]compiler.Predicate, len(c.Terms))
	for i, t := range c.Terms {
		p, err := tr.conditionTerm(t)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return compiler.Or(preds...), nil
}

func (tr *translation) conditionTerm(t *ConditionTerm) (compiler.Predicate, error) {
	preds := make([]compiler.Predicate, len(t.Factors))
	for i, f := range t.Factors {
		p, err := tr.conditionFactor(f)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return compiler.And(preds...), nil
}

func (tr *translation) conditionFactor(f *ConditionFactor) (compiler.Predicate, error) {
	var (
		p   compiler.Predicate
		err error
	)
	switch {
	case f.Exists != nil:
		var cr *compiler.Criteria
		if cr, err = tr.subquery(f.Exists); err == nil {
			p = compiler.Exists(cr)
		}
	case f.Group != nil:
		p, err = tr.condition(f.Group)
	default:
		p, err = tr.predicate(f.Predicate)
	}
	if err != nil {
		return nil, err
	}
	return negate(p, f.Not), nil
}

func negate(p compiler.Predicate, not bool) compiler.Predicate {
	if not {
		return compiler.Not(p)
	}
	return p
}

var compareOps = map[string]sqlast.CompareOp{
	"=":  sqlast.OpEq,
	"<>": sqlast.OpNe,
	"!=": sqlast.OpNe,
	">":  sqlast.OpGt,
	">=": sqlast.OpGe,
	"<":  sqlast.OpLt,
	"<=": sqlast.OpLe,
}

func (tr *translation) predicate(p *Predicate) (compiler.Predicate, error) {
	left, err := tr.expression(p.Left)
	if err != nil {
		return nil, err
	}

	switch {
	case p.Compare != nil:
		right, err := tr.expression(p.Compare.Right)
		if err != nil {
			return nil, err
		}
		return compiler.ComparePred{Op: compareOps[p.Compare.Op], Left: left, Right: right}, nil

	case p.Between != nil:
		low, err := tr.expression(p.Between.Low)
		if err != nil {
			return nil, err
		}
		high, err := tr.expression(p.Between.High)
		if err != nil {
			return nil, err
		}
		return negate(compiler.Between(left, low, high), p.Between.Not), nil

	case p.Like != nil:
		pattern, err := tr.expression(p.Like.Pattern)
		if err != nil {
			return nil, err
		}
		var escape compiler.Expr
		if p.Like.Escape != nil {
			if escape, err = tr.expression(p.Like.Escape); err != nil {
				return nil, err
			}
		}
		return negate(compiler.LikeEscape(left, pattern, escape), p.Like.Not), nil

	case p.In != nil:
		if p.In.Subquery != nil {
			cr, err := tr.subquery(p.In.Subquery)
			if err != nil {
				return nil, err
			}
			return negate(compiler.InQuery(left, cr), p.In.Not), nil
		}
		list := make([]compiler.Expr, len(p.In.List))
		for i, item := range p.In.List {
			if list[i], err = tr.expression(item); err != nil {
				return nil, err
			}
		}
		return negate(compiler.In(left, list...), p.In.Not), nil

	case p.Null != nil:
		if p.Null.Empty {
			path, ok := left.(compiler.PathExpr)
			if !ok {
				return nil, &diagnostics.SemanticError{Message: "is empty needs a collection path", Position: position(p.Pos)}
			}
			return negate(compiler.IsEmpty(path), p.Null.Not), nil
		}
		if p.Null.Not {
			return compiler.IsNotNull(left), nil
		}
		return compiler.IsNull(left), nil

	case p.Member != nil:
		path, _, err := tr.path(p.Member.Path)
		if err != nil {
			return nil, err
		}
		return negate(compiler.MemberOf(left, path), p.Member.Not), nil
	}
	return nil, &diagnostics.SyntaxError{Message: "incomplete condition", Position: position(p.Pos)}
}
