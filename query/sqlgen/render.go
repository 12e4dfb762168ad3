package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// renderer holds the output of one Render call. It implements the
// statement, value and condition visitors; each Visit method leaves its
// text in last.
type renderer struct {
	d       *Dialect
	params  []Param
	columns []string
	last    string

	// unqualified is the target table of an UPDATE or DELETE, whose
	// columns render without alias.
	unqualified *sqlast.FromTable
}

func (r *renderer) value(v sqlast.Value) (string, error) {
	if v == nil {
		return "", &diagnostics.InvalidStatementError{Statement: "expression", Reason: "missing value"}
	}
	if err := v.Accept(r); err != nil {
		return "", err
	}
	return r.last, nil
}

func (r *renderer) values(vs []sqlast.Value) ([]string, error) {
	out := make([]string, len(vs))
	for i, v := range vs {
		s, err := r.value(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (r *renderer) condition(c sqlast.Condition) (string, error) {
	if err := c.Accept(r); err != nil {
		return "", err
	}
	return r.last, nil
}

func (r *renderer) table(t *sqlast.FromTable) string {
	name := r.d.Quote(t.Name)
	if t.Alias == "" {
		return name
	}
	if r.d.AsInFrom {
		return name + " AS " + t.Alias
	}
	return name + " " + t.Alias
}

func (r *renderer) column(c sqlast.TableColumn) string {
	name := r.d.Quote(c.Name)
	if c.Table == nil || c.Table == r.unqualified || c.Table.Alias == "" {
		return name
	}
	return c.Table.Alias + "." + name
}

// Statements

func (r *renderer) VisitSelect(s *sqlast.Select) error {
	sql, err := r.selectSQL(s, true)
	if err != nil {
		return err
	}
	r.last = sql
	return nil
}

func (r *renderer) selectSQL(s *sqlast.Select, top bool) (string, error) {
	if s.From == nil {
		return "", &diagnostics.InvalidStatementError{Statement: "select", Reason: "no root table"}
	}
	if len(s.Values) == 0 {
		return "", &diagnostics.InvalidStatementError{Statement: "select", Reason: "no selected values"}
	}

	var parts []string

	// SELECT values
	selected, err := r.values(s.Values)
	if err != nil {
		return "", err
	}
	head := "select "
	if s.Distinct {
		head = "select distinct "
	}
	parts = append(parts, head+strings.Join(selected, ", "))
	if top {
		r.columns = selected
	}

	// FROM table
	parts = append(parts, "from "+r.table(s.From))

	// JOIN clauses
	for _, j := range s.Joins {
		join, err := r.join(j)
		if err != nil {
			return "", err
		}
		parts = append(parts, join)
	}

	// WHERE clause
	if s.Where != nil {
		where, err := r.condition(s.Where)
		if err != nil {
			return "", err
		}
		parts = append(parts, "where "+where)
	}

	// GROUP BY
	if len(s.GroupBy) > 0 {
		group, err := r.values(s.GroupBy)
		if err != nil {
			return "", err
		}
		parts = append(parts, "group by "+strings.Join(group, ", "))
	}

	// HAVING
	if s.Having != nil {
		having, err := r.condition(s.Having)
		if err != nil {
			return "", err
		}
		parts = append(parts, "having "+having)
	}

	// ORDER BY
	if len(s.OrderBy) > 0 {
		order := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			v, err := r.value(o.Value)
			if err != nil {
				return "", err
			}
			if o.Desc {
				v += " desc"
			}
			order[i] = v
		}
		parts = append(parts, "order by "+strings.Join(order, ", "))
	}

	return strings.Join(parts, " "), nil
}

func (r *renderer) join(j *sqlast.Join) (string, error) {
	if j.Kind == sqlast.CrossJoin {
		if len(j.From) > 0 || len(j.To) > 0 {
			return "", &diagnostics.InvalidStatementError{Statement: "select", Reason: fmt.Sprintf("cross join %s has ON columns", j.Table.Alias)}
		}
		return "CROSS JOIN " + r.table(j.Table), nil
	}
	if len(j.From) == 0 || len(j.From) != len(j.To) {
		return "", &diagnostics.InvalidStatementError{Statement: "select", Reason: fmt.Sprintf("join %s has mismatched ON columns", j.Table.Alias)}
	}
	kind := "INNER JOIN"
	if j.Kind == sqlast.LeftJoin {
		kind = "LEFT OUTER JOIN"
	}
	on := make([]string, len(j.From))
	for i := range j.From {
		on[i] = r.column(j.From[i]) + " = " + r.column(j.To[i])
	}
	return fmt.Sprintf("%s %s ON %s", kind, r.table(j.Table), strings.Join(on, " AND ")), nil
}

func (r *renderer) VisitInsert(s *sqlast.Insert) error {
	if len(s.Columns) == 0 || len(s.Columns) != len(s.Values) {
		return &diagnostics.InvalidStatementError{Statement: "insert", Reason: "column and value counts differ"}
	}
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = r.d.Quote(c)
	}
	vals, err := r.values(s.Values)
	if err != nil {
		return err
	}
	r.last = fmt.Sprintf("insert into %s (%s) values (%s)",
		r.d.Quote(s.Table), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return nil
}

func (r *renderer) VisitUpdate(s *sqlast.Update) error {
	if len(s.Set) == 0 {
		return &diagnostics.InvalidStatementError{Statement: "update", Reason: "no assignments"}
	}
	r.unqualified = s.Table
	defer func() { r.unqualified = nil }()

	var parts []string
	parts = append(parts, "update "+r.d.Quote(s.Table.Name))

	set := make([]string, len(s.Set))
	for i, a := range s.Set {
		v, err := r.value(a.Value)
		if err != nil {
			return err
		}
		set[i] = r.d.Quote(a.Column) + " = " + v
	}
	parts = append(parts, "set "+strings.Join(set, ", "))

	if s.Where != nil {
		where, err := r.condition(s.Where)
		if err != nil {
			return err
		}
		parts = append(parts, "where "+where)
	}
	r.last = strings.Join(parts, " ")
	return nil
}

func (r *renderer) VisitDelete(s *sqlast.Delete) error {
	r.unqualified = s.Table
	defer func() { r.unqualified = nil }()

	sql := "delete from " + r.d.Quote(s.Table.Name)
	if s.Where != nil {
		where, err := r.condition(s.Where)
		if err != nil {
			return err
		}
		sql += " where " + where
	}
	r.last = sql
	return nil
}

func (r *renderer) VisitCreateTable(s *sqlast.CreateTable) error {
	if len(s.Columns) == 0 {
		return &diagnostics.InvalidStatementError{Statement: "create table", Reason: fmt.Sprintf("table %s has no columns", s.Name)}
	}
	var defs []string
	for _, c := range s.Columns {
		typ, err := r.d.ColumnType(c)
		if err != nil {
			return err
		}
		def := r.d.Quote(c.Name) + " " + typ
		if c.Identity && r.d.IdentityClause != "" {
			def += " " + r.d.IdentityClause
		}
		if !c.Nullable {
			def += " not null"
		}
		defs = append(defs, def)
	}
	if len(s.PrimaryKey) > 0 {
		defs = append(defs, "primary key ("+r.quoteAll(s.PrimaryKey)+")")
	}
	for _, fk := range s.ForeignKeys {
		defs = append(defs, fmt.Sprintf("foreign key (%s) references %s", r.quoteAll(fk.Columns), r.d.Quote(fk.References)))
	}
	r.last = fmt.Sprintf("create table %s (%s)", r.d.Quote(s.Name), strings.Join(defs, ", "))
	return nil
}

func (r *renderer) VisitCreateSequence(s *sqlast.CreateSequence) error {
	if !r.d.Sequences || r.d.SequenceDDL == "" {
		return &diagnostics.UnsupportedDialectFeatureError{Dialect: r.d.Name, Feature: "sequences"}
	}
	start, inc := s.Start, s.Increment
	if start == 0 {
		start = 1
	}
	if inc == 0 {
		inc = 1
	}
	r.last = fmt.Sprintf(r.d.SequenceDDL, r.d.Quote(s.Name), start, inc)
	return nil
}

func (r *renderer) quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.d.Quote(n)
	}
	return strings.Join(out, ", ")
}

// Values

func (r *renderer) VisitColumn(c *sqlast.ColumnValue) error {
	r.last = r.column(c.Column)
	return nil
}

func (r *renderer) VisitAggregate(a *sqlast.Aggregate) error {
	if a.Star {
		r.last = string(a.Func) + "(*)"
		return nil
	}
	arg, err := r.value(a.Arg)
	if err != nil {
		return err
	}
	if a.Distinct {
		arg = "distinct " + arg
	}
	r.last = string(a.Func) + "(" + arg + ")"
	return nil
}

func precedence(op sqlast.ArithOp) int {
	if op == sqlast.Mul || op == sqlast.Div {
		return 2
	}
	return 1
}

func (r *renderer) VisitBinary(b *sqlast.Binary) error {
	left, err := r.operand(b.Left, b.Op, false)
	if err != nil {
		return err
	}
	right, err := r.operand(b.Right, b.Op, true)
	if err != nil {
		return err
	}
	r.last = left + " " + string(b.Op) + " " + right
	return nil
}

func (r *renderer) operand(v sqlast.Value, parent sqlast.ArithOp, right bool) (string, error) {
	s, err := r.value(v)
	if err != nil {
		return "", err
	}
	child, ok := v.(*sqlast.Binary)
	if !ok {
		return s, nil
	}
	cp, pp := precedence(child.Op), precedence(parent)
	if cp < pp || (right && cp == pp && (parent == sqlast.Sub || parent == sqlast.Div)) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func (r *renderer) VisitLiteral(l *sqlast.Literal) error {
	switch v := l.Value.(type) {
	case nil:
		r.last = "null"
	case string:
		r.last = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			r.last = r.d.True
		} else {
			r.last = r.d.False
		}
	case sqlast.Number:
		r.last = string(v)
	case int:
		r.last = strconv.Itoa(v)
	case int32:
		r.last = strconv.FormatInt(int64(v), 10)
	case int64:
		r.last = strconv.FormatInt(v, 10)
	case float32:
		r.last = strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		r.last = strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		r.last = "'" + v.Format("2006-01-02 15:04:05") + "'"
	default:
		return &diagnostics.UnsupportedDialectFeatureError{Dialect: r.d.Name, Feature: fmt.Sprintf("literal of type %T", l.Value)}
	}
	return nil
}

func (r *renderer) VisitParam(p *sqlast.Param) error {
	r.params = append(r.params, Param{Name: p.Name, Value: p.Value, Type: p.Type})
	r.last = "?"
	return nil
}

func (r *renderer) VisitConcat(c *sqlast.Concat) error {
	args, err := r.values(c.Args)
	if err != nil {
		return err
	}
	if r.d.ConcatOperator != "" {
		r.last = strings.Join(args, " "+r.d.ConcatOperator+" ")
		return nil
	}
	r.last = r.d.ConcatFunction + "(" + strings.Join(args, ", ") + ")"
	return nil
}

func (r *renderer) VisitCurrentTemporal(c *sqlast.CurrentTemporal) error {
	switch c.Kind {
	case sqlast.CurrentDate:
		r.last = r.d.CurrentDate
	case sqlast.CurrentTime:
		r.last = r.d.CurrentTime
	case sqlast.CurrentTimestamp:
		r.last = r.d.CurrentTimestamp
	default:
		return &diagnostics.UnsupportedDialectFeatureError{Dialect: r.d.Name, Feature: fmt.Sprintf("current %s", c.Kind)}
	}
	return nil
}

func (r *renderer) VisitSubquery(s *sqlast.Subquery) error {
	sql, err := r.selectSQL(s.Select, false)
	if err != nil {
		return err
	}
	r.last = "(" + sql + ")"
	return nil
}

// Conditions

func (r *renderer) not(negated bool, keyword string) string {
	if negated {
		return r.d.Not + " " + keyword
	}
	return keyword
}

func (r *renderer) VisitComparison(c *sqlast.Comparison) error {
	op, ok := r.d.Operators[c.Op]
	if !ok {
		return &diagnostics.UnsupportedDialectFeatureError{Dialect: r.d.Name, Feature: fmt.Sprintf("operator %s", c.Op)}
	}
	left, err := r.value(c.Left)
	if err != nil {
		return err
	}
	right, err := r.value(c.Right)
	if err != nil {
		return err
	}
	sql := left + " " + op + " " + right
	if c.Not {
		sql = r.d.Not + " (" + sql + ")"
	}
	r.last = sql
	return nil
}

func (r *renderer) VisitNullCheck(c *sqlast.NullCheck) error {
	v, err := r.value(c.Value)
	if err != nil {
		return err
	}
	if c.Not {
		r.last = v + " is " + r.d.Not + " null"
	} else {
		r.last = v + " is null"
	}
	return nil
}

func (r *renderer) VisitBetween(c *sqlast.Between) error {
	v, err := r.value(c.Value)
	if err != nil {
		return err
	}
	low, err := r.value(c.Low)
	if err != nil {
		return err
	}
	high, err := r.value(c.High)
	if err != nil {
		return err
	}
	r.last = fmt.Sprintf("%s %s %s %s %s", v, r.not(c.Not, "between"), low, r.d.And, high)
	return nil
}

func (r *renderer) VisitLike(c *sqlast.Like) error {
	v, err := r.value(c.Value)
	if err != nil {
		return err
	}
	pattern, err := r.value(c.Pattern)
	if err != nil {
		return err
	}
	sql := v + " " + r.not(c.Not, "like") + " " + pattern
	if c.Escape != nil {
		esc, err := r.value(c.Escape)
		if err != nil {
			return err
		}
		sql += " escape " + esc
	}
	r.last = sql
	return nil
}

func (r *renderer) VisitIn(c *sqlast.In) error {
	v, err := r.value(c.Value)
	if err != nil {
		return err
	}
	var list string
	switch {
	case c.Subquery != nil:
		list, err = r.selectSQL(c.Subquery, false)
		if err != nil {
			return err
		}
	case len(c.List) == 0:
		// Nothing is a member of an empty list.
		if c.Not {
			r.last = "1 = 1"
		} else {
			r.last = "1 = 0"
		}
		return nil
	default:
		items, err := r.values(c.List)
		if err != nil {
			return err
		}
		list = strings.Join(items, ", ")
	}
	r.last = v + " " + r.not(c.Not, "in") + " (" + list + ")"
	return nil
}

func (r *renderer) VisitExists(c *sqlast.Exists) error {
	if c.Subquery == nil {
		return &diagnostics.InvalidStatementError{Statement: "exists", Reason: "no subquery"}
	}
	sub, err := r.selectSQL(c.Subquery, false)
	if err != nil {
		return err
	}
	r.last = r.not(c.Not, "exists") + " (" + sub + ")"
	return nil
}

func (r *renderer) VisitLogical(c *sqlast.Logical) error {
	if len(c.Conditions) == 0 {
		return &diagnostics.InvalidStatementError{Statement: "condition", Reason: fmt.Sprintf("empty %s", c.Op)}
	}
	keyword := r.d.And
	if c.Op == sqlast.OpOr {
		keyword = r.d.Or
	}
	parts := make([]string, len(c.Conditions))
	for i, sub := range c.Conditions {
		s, err := r.condition(sub)
		if err != nil {
			return err
		}
		if l, ok := sub.(*sqlast.Logical); ok && !l.Nested && !l.Not {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	sql := strings.Join(parts, " "+keyword+" ")
	switch {
	case c.Not:
		sql = r.d.Not + " (" + sql + ")"
	case c.Nested:
		sql = "(" + sql + ")"
	}
	r.last = sql
	return nil
}
