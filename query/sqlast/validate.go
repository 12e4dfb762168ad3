package sqlast

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/entityql/diagnostics"
)

// Validate checks that every column reference of the statement belongs to
// its root table or to one of its joins. Subqueries may also reference the
// tables of enclosing statements.
func (s *Select) Validate() error {
	if err := s.validate(nil); err != nil {
		return &diagnostics.InvalidStatementError{Statement: "select", Reason: err.Error()}
	}
	return nil
}

func (s *Select) validate(outer map[*FromTable]bool) error {
	if s.From == nil {
		return errors.New("no root table")
	}
	scope := make(map[*FromTable]bool, len(outer)+len(s.Joins)+1)
	for t := range outer {
		scope[t] = true
	}
	aliases := make(map[string]bool)
	for _, t := range s.Tables() {
		if aliases[t.Alias] {
			return fmt.Errorf("duplicate alias %s", t.Alias)
		}
		aliases[t.Alias] = true
	}

	w := &walker{scope: scope}
	scope[s.From] = true
	for _, j := range s.Joins {
		// ON columns may only see tables joined so far.
		scope[j.Table] = true
		for i := range j.From {
			w.column(j.From[i])
			w.column(j.To[i])
		}
		if len(j.From) != len(j.To) {
			w.fail(fmt.Errorf("join %s has %d source and %d target columns", j.Table.Alias, len(j.From), len(j.To)))
		}
		if (j.Kind == CrossJoin) != (len(j.From) == 0) {
			w.fail(fmt.Errorf("join %s: only cross joins go without ON columns", j.Table.Alias))
		}
	}
	for _, v := range s.Values {
		w.value(v)
	}
	w.condition(s.Where)
	for _, v := range s.GroupBy {
		w.value(v)
	}
	w.condition(s.Having)
	for _, o := range s.OrderBy {
		w.value(o.Value)
	}
	return w.err
}

// walker visits every column reference of a statement.
type walker struct {
	scope map[*FromTable]bool
	err   error
}

func (w *walker) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *walker) column(c TableColumn) {
	if c.Table == nil || !w.scope[c.Table] {
		w.fail(fmt.Errorf("column %s references a table outside the statement", c))
	}
}

func (w *walker) value(v Value) {
	if v != nil {
		_ = v.Accept(w)
	}
}

func (w *walker) condition(c Condition) {
	if c != nil {
		_ = c.Accept(w)
	}
}

func (w *walker) subquery(s *Select) {
	if s == nil {
		return
	}
	if err := s.validate(w.scope); err != nil {
		w.fail(err)
	}
}

func (w *walker) VisitColumn(c *ColumnValue) error {
	w.column(c.Column)
	return nil
}

func (w *walker) VisitAggregate(a *Aggregate) error {
	w.value(a.Arg)
	return nil
}

func (w *walker) VisitBinary(b *Binary) error {
	w.value(b.Left)
	w.value(b.Right)
	return nil
}

func (w *walker) VisitLiteral(*Literal) error                 { return nil }
func (w *walker) VisitParam(*Param) error                     { return nil }
func (w *walker) VisitCurrentTemporal(*CurrentTemporal) error { return nil }

func (w *walker) VisitConcat(c *Concat) error {
	for _, a := range c.Args {
		w.value(a)
	}
	return nil
}

func (w *walker) VisitSubquery(s *Subquery) error {
	w.subquery(s.Select)
	return nil
}

func (w *walker) VisitComparison(c *Comparison) error {
	w.value(c.Left)
	w.value(c.Right)
	return nil
}

func (w *walker) VisitNullCheck(c *NullCheck) error {
	w.value(c.Value)
	return nil
}

func (w *walker) VisitBetween(c *Between) error {
	w.value(c.Value)
	w.value(c.Low)
	w.value(c.High)
	return nil
}

func (w *walker) VisitLike(c *Like) error {
	w.value(c.Value)
	w.value(c.Pattern)
	w.value(c.Escape)
	return nil
}

func (w *walker) VisitIn(c *In) error {
	w.value(c.Value)
	for _, v := range c.List {
		w.value(v)
	}
	w.subquery(c.Subquery)
	return nil
}

func (w *walker) VisitExists(c *Exists) error {
	w.subquery(c.Subquery)
	return nil
}

func (w *walker) VisitLogical(c *Logical) error {
	for _, sub := range c.Conditions {
		w.condition(sub)
	}
	return nil
}
