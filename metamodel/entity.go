package metamodel

import (
	"fmt"
	"strings"
)

// Entity is a persistent type mapped to one storage table. Entities are
// created by Builder.Build and must be treated as read-only afterwards.
type Entity struct {
	Name        string
	Table       string
	TypeID      string
	Attributes  []*Attribute
	PrimaryKey  *PrimaryKey
	Embeddables []string

	index   map[string]*Attribute
	columns []Column
}

// Attribute returns the top-level attribute with the given name.
func (e *Entity) Attribute(name string) (*Attribute, bool) {
	a, ok := e.index[name]
	return a, ok
}

// Columns returns the columns stored on the entity's own table in
// declaration order. Embedded attributes are flattened in place and owning
// to-one relationships contribute their join columns in place.
func (e *Entity) Columns() []Column {
	return e.columns
}

// Relationships returns the relationship attributes declared on the entity,
// including those nested in embedded attributes.
func (e *Entity) Relationships() []*Relationship {
	var out []*Relationship
	var walk func(attrs []*Attribute)
	walk = func(attrs []*Attribute) {
		for _, a := range attrs {
			switch a.Kind {
			case Relation:
				out = append(out, a.Relationship)
			case Embedded:
				walk(a.Attributes)
			}
		}
	}
	walk(e.Attributes)
	return out
}

func (e *Entity) String() string { return e.Name }

// Attribute is a named member of an entity or embeddable.
type Attribute struct {
	Name      string
	Column    string
	Type      ValueType
	Kind      AttributeKind
	Nullable  bool
	Length    int
	Precision int
	Scale     int

	// Embeddable names the embedded type; Attributes holds its members as
	// instantiated for this owner.
	Embeddable string
	Attributes []*Attribute

	Relationship *Relationship

	// Entity is the entity whose table stores this attribute.
	Entity *Entity
	// Path is the attribute chain from the entity root, e.g. [address city].
	Path []string

	index map[string]*Attribute
}

// Nested returns a member of an embedded attribute.
func (a *Attribute) Nested(name string) (*Attribute, bool) {
	if a.index == nil {
		return nil, false
	}
	n, ok := a.index[name]
	return n, ok
}

// Columns returns the flattened columns for the attribute: one for basic
// attributes, the nested columns for embedded attributes and the join columns
// for owning to-one relationships. Other relationships have none.
func (a *Attribute) Columns() []Column {
	return flatten([]*Attribute{a}, a.Path[:len(a.Path)-1])
}

func (a *Attribute) String() string {
	if a.Entity == nil {
		return a.Name
	}
	return a.Entity.Name + "." + strings.Join(a.Path, ".")
}

// PrimaryKey identifies the key attributes of an entity.
type PrimaryKey struct {
	Kind       KeyKind
	Attributes []*Attribute
	Generation GenerationStrategy
	Sequence   string

	columns []Column
}

// Columns returns the key columns in their stable binding order.
func (pk *PrimaryKey) Columns() []Column {
	return pk.columns
}

// ColumnNames returns the key column names in binding order.
func (pk *PrimaryKey) ColumnNames() []string {
	names := make([]string, len(pk.columns))
	for i, c := range pk.columns {
		names[i] = c.Name
	}
	return names
}

// Key is a primary key value, one element per key column in binding order.
type Key []any

// KeyOf builds a Key from values keyed by column name.
func (pk *PrimaryKey) KeyOf(values map[string]any) (Key, error) {
	key := make(Key, len(pk.columns))
	for i, c := range pk.columns {
		v, ok := values[c.Name]
		if !ok {
			return nil, fmt.Errorf("missing value for key column %s", c.Name)
		}
		key[i] = v
	}
	return key, nil
}

// JoinColumn is a foreign key column and the column it references.
type JoinColumn struct {
	Name       string
	Referenced string
	Type       ValueType
	Nullable   bool
}

// JoinTable is the auxiliary table of a many-to-many association or of a
// one-to-many association without a foreign key on the target.
type JoinTable struct {
	Name string
	// OwnerColumns reference the owning entity's key.
	OwnerColumns []JoinColumn
	// TargetColumns reference the target entity's key.
	TargetColumns []JoinColumn
}

// Relationship is an association from Source (via Attribute) to Target.
// On the owning side exactly one of JoinColumns and JoinTable is set; the
// inverse side (MappedBy set) has neither and points at the owning side
// through Inverse.
type Relationship struct {
	Kind      RelationKind
	Source    *Entity
	Target    *Entity
	Attribute *Attribute
	MappedBy  string
	Fetch     FetchType
	Cascade   []CascadeType
	Optional  bool

	JoinColumns []JoinColumn
	JoinTable   *JoinTable

	// Inverse is the owning side when this side is mapped by another.
	Inverse *Relationship

	targetName string
}

// IsOwning reports whether this side owns the foreign key or join table.
func (r *Relationship) IsOwning() bool {
	return r.MappedBy == ""
}

// ForeignKeyOnTarget reports whether the join columns live on the target
// table (a unidirectional one-to-many with join columns).
func (r *Relationship) ForeignKeyOnTarget() bool {
	return r.IsOwning() && r.Kind == OneToMany && len(r.JoinColumns) > 0
}

// HasCascade reports whether the operation cascades across the association.
func (r *Relationship) HasCascade(c CascadeType) bool {
	for _, have := range r.Cascade {
		if have == c || have == CascadeAll {
			return true
		}
	}
	return false
}

func (r *Relationship) String() string {
	return fmt.Sprintf("%s.%s (%s %s)", r.Source.Name, r.Attribute.Name, r.Kind, r.Target.Name)
}

// Column is a flattened storage column together with the attribute chain it
// came from.
type Column struct {
	Name       string
	Type       ValueType
	Nullable   bool
	Length     int
	Precision  int
	Scale      int
	PrimaryKey bool
	Path       []string
	Attribute  *Attribute
	// Relationship is set when the column is a join column.
	Relationship *Relationship
}

func flatten(attrs []*Attribute, prefix []string) []Column {
	var out []Column
	for _, a := range attrs {
		path := append(append([]string{}, prefix...), a.Name)
		switch a.Kind {
		case Basic:
			out = append(out, Column{
				Name:      a.Column,
				Type:      a.Type,
				Nullable:  a.Nullable,
				Length:    a.Length,
				Precision: a.Precision,
				Scale:     a.Scale,
				Path:      path,
				Attribute: a,
			})
		case Embedded:
			out = append(out, flatten(a.Attributes, path)...)
		case Relation:
			r := a.Relationship
			if r == nil || !r.IsOwning() || r.Kind.ToMany() || len(r.JoinColumns) == 0 {
				continue
			}
			for _, jc := range r.JoinColumns {
				out = append(out, Column{
					Name:         jc.Name,
					Type:         jc.Type,
					Nullable:     jc.Nullable,
					Path:         path,
					Attribute:    a,
					Relationship: r,
				})
			}
		}
	}
	return out
}
