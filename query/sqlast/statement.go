package sqlast

import "github.com/satishbabariya/entityql/metamodel"

// Statement is a complete SQL statement.
type Statement interface {
	Accept(v StatementVisitor) error
	Kind() string
}

// StatementVisitor has one method per Statement variant.
type StatementVisitor interface {
	VisitSelect(*Select) error
	VisitInsert(*Insert) error
	VisitUpdate(*Update) error
	VisitDelete(*Delete) error
	VisitCreateTable(*CreateTable) error
	VisitCreateSequence(*CreateSequence) error
}

// JoinKind is the join type.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	// CrossJoin adds a further range of the FROM clause. It has no ON
	// clause.
	CrossJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "left"
	case CrossJoin:
		return "cross"
	}
	return "inner"
}

// Join adds Table to a statement. The ON clause is From[i] = To[i] for each
// pair, ANDed. Cross joins have no columns.
type Join struct {
	Kind  JoinKind
	Table *FromTable
	From  []TableColumn
	To    []TableColumn
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Value Value
	Desc  bool
}

// Select is a SELECT statement. Columns names the selected columns in
// result order; it is filled by the compiler for result mapping.
type Select struct {
	Distinct bool
	Values   []Value
	From     *FromTable
	Joins    []*Join
	Where    Condition
	GroupBy  []Value
	Having   Condition
	OrderBy  []OrderItem
	Columns  []metamodel.Column
}

// Tables returns the root table followed by the joined tables.
func (s *Select) Tables() []*FromTable {
	out := []*FromTable{s.From}
	for _, j := range s.Joins {
		out = append(out, j.Table)
	}
	return out
}

// Insert is an INSERT of one row.
type Insert struct {
	Table   string
	Columns []string
	Values  []Value
}

// Assignment is one "column = value" pair of an UPDATE.
type Assignment struct {
	Column string
	Value  Value
}

// Update changes rows of Table. Columns of Table render unqualified.
type Update struct {
	Table *FromTable
	Set   []Assignment
	Where Condition
}

// Delete removes rows of Table. Columns of Table render unqualified.
type Delete struct {
	Table *FromTable
	Where Condition
}

func (s *Select) Accept(v StatementVisitor) error { return v.VisitSelect(s) }
func (s *Insert) Accept(v StatementVisitor) error { return v.VisitInsert(s) }
func (s *Update) Accept(v StatementVisitor) error { return v.VisitUpdate(s) }
func (s *Delete) Accept(v StatementVisitor) error { return v.VisitDelete(s) }

func (*Select) Kind() string { return "select" }
func (*Insert) Kind() string { return "insert" }
func (*Update) Kind() string { return "update" }
func (*Delete) Kind() string { return "delete" }
