package sqlast

import "github.com/satishbabariya/entityql/metamodel"

// ColumnDef declares one column of a CREATE TABLE.
type ColumnDef struct {
	Name      string
	Type      metamodel.ValueType
	Nullable  bool
	Length    int
	Precision int
	Scale     int
	Identity  bool
}

// ForeignKey is a "foreign key (cols) references table" clause. The
// referenced columns are the target's primary key and are not rendered.
type ForeignKey struct {
	Columns    []string
	References string
}

// CreateTable declares a table.
type CreateTable struct {
	Name        string
	Columns     []ColumnDef
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// References returns the distinct tables named by the foreign keys, other
// than the table itself.
func (c *CreateTable) References() []string {
	var out []string
	seen := map[string]bool{c.Name: true}
	for _, fk := range c.ForeignKeys {
		if !seen[fk.References] {
			seen[fk.References] = true
			out = append(out, fk.References)
		}
	}
	return out
}

// CreateSequence declares a sequence.
type CreateSequence struct {
	Name      string
	Start     int
	Increment int
}

func (s *CreateTable) Accept(v StatementVisitor) error    { return v.VisitCreateTable(s) }
func (s *CreateSequence) Accept(v StatementVisitor) error { return v.VisitCreateSequence(s) }

func (*CreateTable) Kind() string    { return "create table" }
func (*CreateSequence) Kind() string { return "create sequence" }
