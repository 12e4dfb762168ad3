// Package sqlast is the dialect-neutral SQL abstract model.
//
// Nodes are created per compiled statement and are not modified after
// construction. Values, conditions and statements are closed sets: each
// variant implements Accept on a visitor interface with one method per
// variant, so a renderer that forgets a new variant fails to compile.
package sqlast

import (
	"fmt"

	"github.com/satishbabariya/entityql/metamodel"
)

// FromTable is a table reference with its statement-unique alias.
type FromTable struct {
	Name  string
	Alias string
}

// Column returns a column of t.
func (t *FromTable) Column(name string) TableColumn {
	return TableColumn{Table: t, Name: name}
}

// Columns returns several columns of t in the given order.
func (t *FromTable) Columns(names ...string) []TableColumn {
	out := make([]TableColumn, len(names))
	for i, n := range names {
		out[i] = TableColumn{Table: t, Name: n}
	}
	return out
}

// TableColumn is a column qualified by the table reference it belongs to.
type TableColumn struct {
	Table *FromTable
	Name  string
}

func (c TableColumn) String() string {
	if c.Table == nil || c.Table.Alias == "" {
		return c.Name
	}
	return c.Table.Alias + "." + c.Name
}

// Value is a scalar expression.
type Value interface {
	Accept(v ValueVisitor) error
	isValue()
}

// ValueVisitor has one method per Value variant.
type ValueVisitor interface {
	VisitColumn(*ColumnValue) error
	VisitAggregate(*Aggregate) error
	VisitBinary(*Binary) error
	VisitLiteral(*Literal) error
	VisitParam(*Param) error
	VisitConcat(*Concat) error
	VisitCurrentTemporal(*CurrentTemporal) error
	VisitSubquery(*Subquery) error
}

// ColumnValue references a table column.
type ColumnValue struct {
	Column TableColumn
}

// AggregateFunc names an aggregate function.
type AggregateFunc string

const (
	Count AggregateFunc = "count"
	Sum   AggregateFunc = "sum"
	Avg   AggregateFunc = "avg"
	Min   AggregateFunc = "min"
	Max   AggregateFunc = "max"
)

// Aggregate applies an aggregate function. Star renders count(*).
type Aggregate struct {
	Func     AggregateFunc
	Arg      Value
	Distinct bool
	Star     bool
}

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
	Mul ArithOp = "*"
	Div ArithOp = "/"
)

// Binary is an arithmetic expression.
type Binary struct {
	Op    ArithOp
	Left  Value
	Right Value
}

// Number is a numeric literal kept in its source spelling.
type Number string

// Literal is a constant rendered inline. Value is a string, bool, Number,
// Go integer or float, or nil.
type Literal struct {
	Value any
}

// Param is a bound value rendered as a positional placeholder.
// Name is set for named query parameters; Value may be nil when the caller
// binds later.
type Param struct {
	Name  string
	Value any
	Type  metamodel.ValueType
}

// Concat concatenates string values.
type Concat struct {
	Args []Value
}

// TemporalKind selects the current date, time or timestamp.
type TemporalKind string

const (
	CurrentDate      TemporalKind = "date"
	CurrentTime      TemporalKind = "time"
	CurrentTimestamp TemporalKind = "timestamp"
)

// CurrentTemporal is the database's current date/time value.
type CurrentTemporal struct {
	Kind TemporalKind
}

// Subquery is a nested SELECT used as a value.
type Subquery struct {
	Select *Select
}

func (*ColumnValue) isValue()     {}
func (*Aggregate) isValue()       {}
func (*Binary) isValue()          {}
func (*Literal) isValue()         {}
func (*Param) isValue()           {}
func (*Concat) isValue()          {}
func (*CurrentTemporal) isValue() {}
func (*Subquery) isValue()        {}

func (c *ColumnValue) Accept(v ValueVisitor) error     { return v.VisitColumn(c) }
func (a *Aggregate) Accept(v ValueVisitor) error       { return v.VisitAggregate(a) }
func (b *Binary) Accept(v ValueVisitor) error          { return v.VisitBinary(b) }
func (l *Literal) Accept(v ValueVisitor) error         { return v.VisitLiteral(l) }
func (p *Param) Accept(v ValueVisitor) error           { return v.VisitParam(p) }
func (c *Concat) Accept(v ValueVisitor) error          { return v.VisitConcat(c) }
func (c *CurrentTemporal) Accept(v ValueVisitor) error { return v.VisitCurrentTemporal(c) }
func (s *Subquery) Accept(v ValueVisitor) error        { return v.VisitSubquery(s) }

// Col returns a column value.
func Col(c TableColumn) *ColumnValue {
	return &ColumnValue{Column: c}
}

// Cols returns column values for several columns.
func Cols(cols []TableColumn) []Value {
	out := make([]Value, len(cols))
	for i, c := range cols {
		out[i] = Col(c)
	}
	return out
}

// Lit returns an inline literal.
func Lit(v any) *Literal {
	return &Literal{Value: v}
}

// Bind returns an anonymous bound parameter.
func Bind(v any, t metamodel.ValueType) *Param {
	return &Param{Value: v, Type: t}
}

// Named returns a named bound parameter without a value.
func Named(name string) *Param {
	return &Param{Name: name}
}

// Agg returns an aggregate over arg.
func Agg(fn AggregateFunc, arg Value, distinct bool) *Aggregate {
	return &Aggregate{Func: fn, Arg: arg, Distinct: distinct}
}

// CountStar returns count(*).
func CountStar() *Aggregate {
	return &Aggregate{Func: Count, Star: true}
}

// Arith returns an arithmetic expression.
func Arith(op ArithOp, l, r Value) *Binary {
	return &Binary{Op: op, Left: l, Right: r}
}

func (f AggregateFunc) valid() bool {
	switch f {
	case Count, Sum, Avg, Min, Max:
		return true
	}
	return false
}

// ParseAggregate maps a function name to an AggregateFunc.
func ParseAggregate(name string) (AggregateFunc, error) {
	f := AggregateFunc(lower(name))
	if !f.valid() {
		return "", fmt.Errorf("unknown aggregate function %q", name)
	}
	return f, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
