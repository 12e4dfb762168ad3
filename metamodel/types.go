package metamodel

import "strings"

// ValueType is the storage-independent type of a basic attribute or column.
type ValueType string

const (
	TypeString    ValueType = "string"
	TypeText      ValueType = "text"
	TypeInt       ValueType = "int"
	TypeLong      ValueType = "long"
	TypeShort     ValueType = "short"
	TypeBool      ValueType = "boolean"
	TypeFloat     ValueType = "float"
	TypeDouble    ValueType = "double"
	TypeDecimal   ValueType = "decimal"
	TypeDate      ValueType = "date"
	TypeTime      ValueType = "time"
	TypeTimestamp ValueType = "timestamp"
	TypeBytes     ValueType = "bytes"
	TypeUUID      ValueType = "uuid"
)

var valueTypes = map[string]ValueType{
	"string":    TypeString,
	"text":      TypeText,
	"int":       TypeInt,
	"integer":   TypeInt,
	"long":      TypeLong,
	"bigint":    TypeLong,
	"short":     TypeShort,
	"boolean":   TypeBool,
	"bool":      TypeBool,
	"float":     TypeFloat,
	"double":    TypeDouble,
	"decimal":   TypeDecimal,
	"date":      TypeDate,
	"time":      TypeTime,
	"timestamp": TypeTimestamp,
	"datetime":  TypeTimestamp,
	"bytes":     TypeBytes,
	"uuid":      TypeUUID,
}

// ParseValueType maps a model-file type name to a ValueType.
func ParseValueType(s string) (ValueType, bool) {
	t, ok := valueTypes[strings.ToLower(s)]
	return t, ok
}

// AttributeKind classifies an attribute.
type AttributeKind int

const (
	Basic AttributeKind = iota
	Embedded
	Relation
)

func (k AttributeKind) String() string {
	switch k {
	case Basic:
		return "basic"
	case Embedded:
		return "embedded"
	case Relation:
		return "relationship"
	default:
		return "unknown"
	}
}

// RelationKind is the cardinality of a relationship.
type RelationKind string

const (
	OneToOne   RelationKind = "one-to-one"
	ManyToOne  RelationKind = "many-to-one"
	OneToMany  RelationKind = "one-to-many"
	ManyToMany RelationKind = "many-to-many"
)

// ToMany reports whether the relationship targets a collection.
func (k RelationKind) ToMany() bool {
	return k == OneToMany || k == ManyToMany
}

func parseRelationKind(s string) (RelationKind, bool) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "one-to-one", "onetoone":
		return OneToOne, true
	case "many-to-one", "manytoone":
		return ManyToOne, true
	case "one-to-many", "onetomany":
		return OneToMany, true
	case "many-to-many", "manytomany":
		return ManyToMany, true
	}
	return "", false
}

// FetchType is the loading policy of an association. A SELECT expands an
// eager association only when asked to fetch eagerly; an explicit fetch
// join expands any association.
type FetchType string

const (
	FetchEager FetchType = "eager"
	FetchLazy  FetchType = "lazy"
)

// CascadeType names an operation propagated across a relationship.
type CascadeType string

const (
	CascadePersist CascadeType = "persist"
	CascadeMerge   CascadeType = "merge"
	CascadeRemove  CascadeType = "remove"
	CascadeRefresh CascadeType = "refresh"
	CascadeDetach  CascadeType = "detach"
	CascadeAll     CascadeType = "all"
)

// GenerationStrategy is how primary key values are produced.
type GenerationStrategy string

const (
	GenerationNone     GenerationStrategy = ""
	GenerationIdentity GenerationStrategy = "identity"
	GenerationSequence GenerationStrategy = "sequence"
	GenerationAuto     GenerationStrategy = "auto"
)

func parseGeneration(s string) (GenerationStrategy, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return GenerationNone, true
	case "identity":
		return GenerationIdentity, true
	case "sequence":
		return GenerationSequence, true
	case "auto":
		return GenerationAuto, true
	}
	return "", false
}

// KeyKind is the shape of a primary key.
type KeyKind int

const (
	SimpleKey KeyKind = iota
	CompositeKey
	EmbeddedKey
)

func (k KeyKind) String() string {
	switch k {
	case SimpleKey:
		return "simple"
	case CompositeKey:
		return "composite"
	case EmbeddedKey:
		return "embedded"
	default:
		return "unknown"
	}
}
