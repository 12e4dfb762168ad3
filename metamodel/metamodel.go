// Package metamodel describes persistent entities, their attributes, primary
// keys and relationships.
//
// A Metamodel is built once per persistence unit with Builder (or loaded
// from a model file with Load) and is read-only afterwards: any number of
// goroutines may compile statements against the same instance without
// synchronization. There is no package-level registry; the metamodel is
// passed explicitly to every compiler, translator and DDL generator.
package metamodel

import (
	"fmt"

	"github.com/satishbabariya/entityql/diagnostics"
)

// Metamodel is the immutable set of entities of a persistence unit.
type Metamodel struct {
	entities []*Entity
	byName   map[string]*Entity
	byType   map[string]*Entity
}

// Entity looks up an entity by name.
func (m *Metamodel) Entity(name string) (*Entity, bool) {
	e, ok := m.byName[name]
	return e, ok
}

// EntityByType looks up an entity by its originating type identifier.
func (m *Metamodel) EntityByType(typeID string) (*Entity, bool) {
	e, ok := m.byType[typeID]
	return e, ok
}

// MustEntity looks up an entity by name and fails with UnknownEntityError.
func (m *Metamodel) MustEntity(name string) (*Entity, error) {
	e, ok := m.byName[name]
	if !ok {
		return nil, &diagnostics.UnknownEntityError{Name: name}
	}
	return e, nil
}

// Entities returns all entities in declaration order.
func (m *Metamodel) Entities() []*Entity {
	return m.entities
}

// ForeignColumn is a column placed on an entity's table by another entity's
// unidirectional one-to-many relationship.
type ForeignColumn struct {
	JoinColumn
	Relationship *Relationship
}

// ForeignColumns lists the columns other entities place on e's table.
func (m *Metamodel) ForeignColumns(e *Entity) []ForeignColumn {
	var out []ForeignColumn
	for _, src := range m.entities {
		for _, r := range src.Relationships() {
			if r.ForeignKeyOnTarget() && r.Target == e {
				for _, jc := range r.JoinColumns {
					out = append(out, ForeignColumn{JoinColumn: jc, Relationship: r})
				}
			}
		}
	}
	return out
}

// JoinTables returns every join table of the model, once, in declaration
// order of the owning relationships.
func (m *Metamodel) JoinTables() []*Relationship {
	var out []*Relationship
	seen := make(map[string]bool)
	for _, e := range m.entities {
		for _, r := range e.Relationships() {
			if r.IsOwning() && r.JoinTable != nil && !seen[r.JoinTable.Name] {
				seen[r.JoinTable.Name] = true
				out = append(out, r)
			}
		}
	}
	return out
}

func (m *Metamodel) String() string {
	return fmt.Sprintf("metamodel(%d entities)", len(m.entities))
}
