package metamodel

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
)

// Model is the declarative description of a persistence unit, as read from
// a model file.
type Model struct {
	Version     string          `yaml:"version"`
	Embeddables []EmbeddableDef `yaml:"embeddables"`
	Entities    []EntityDef     `yaml:"entities"`
}

// EntityDef declares an entity.
type EntityDef struct {
	Name       string         `yaml:"name"`
	Table      string         `yaml:"table"`
	Type       string         `yaml:"type"`
	Attributes []AttributeDef `yaml:"attributes"`
}

// EmbeddableDef declares a value type that can be embedded in entities.
type EmbeddableDef struct {
	Name       string         `yaml:"name"`
	Attributes []AttributeDef `yaml:"attributes"`
}

// AttributeDef declares an attribute. Exactly one of Type, Embedded and
// Relation is set.
type AttributeDef struct {
	Name      string       `yaml:"name"`
	Column    string       `yaml:"column"`
	Type      string       `yaml:"type"`
	ID        bool         `yaml:"id"`
	Generated string       `yaml:"generated"`
	Sequence  string       `yaml:"sequence"`
	Nullable  *bool        `yaml:"nullable"`
	Length    int          `yaml:"length"`
	Precision int          `yaml:"precision"`
	Scale     int          `yaml:"scale"`
	Embedded  string       `yaml:"embedded"`
	Relation  *RelationDef `yaml:"relation"`
}

// RelationDef declares a relationship attribute.
type RelationDef struct {
	Kind        string          `yaml:"kind"`
	Target      string          `yaml:"target"`
	MappedBy    string          `yaml:"mappedBy"`
	Fetch       string          `yaml:"fetch"`
	Cascade     []string        `yaml:"cascade"`
	Optional    *bool           `yaml:"optional"`
	JoinColumns []JoinColumnDef `yaml:"joinColumns"`
	JoinTable   *JoinTableDef   `yaml:"joinTable"`
}

// JoinColumnDef names a join column. Referenced defaults to the key column
// at the same position.
type JoinColumnDef struct {
	Name       string `yaml:"name"`
	Referenced string `yaml:"referenced"`
}

// JoinTableDef names a join table and optionally its columns.
type JoinTableDef struct {
	Name               string          `yaml:"name"`
	JoinColumns        []JoinColumnDef `yaml:"joinColumns"`
	InverseJoinColumns []JoinColumnDef `yaml:"inverseJoinColumns"`
}

// Builder accumulates definitions and produces an immutable Metamodel.
// A Builder is not safe for concurrent use.
type Builder struct {
	entities    []EntityDef
	embeddables map[string]EmbeddableDef
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{embeddables: make(map[string]EmbeddableDef)}
}

// AddEntity registers an entity definition.
func (b *Builder) AddEntity(def EntityDef) *Builder {
	b.entities = append(b.entities, def)
	return b
}

// AddEmbeddable registers an embeddable definition.
func (b *Builder) AddEmbeddable(def EmbeddableDef) *Builder {
	b.embeddables[def.Name] = def
	return b
}

// FromModel builds a metamodel from a declarative model.
func FromModel(m *Model) (*Metamodel, error) {
	b := NewBuilder()
	for _, e := range m.Embeddables {
		b.AddEmbeddable(e)
	}
	for _, e := range m.Entities {
		b.AddEntity(e)
	}
	return b.Build()
}

// build carries the state of one Build call.
type build struct {
	b            *Builder
	mm           *Metamodel
	relations    []*Relationship
	relationDefs map[*Relationship]*RelationDef
	idDefs       map[*Entity][]idAttr
	embedDepth   int
}

type idAttr struct {
	attr *Attribute
	def  AttributeDef
}

// Build validates the definitions, resolves relationships, applies default
// naming and returns the metamodel.
func (b *Builder) Build() (*Metamodel, error) {
	st := &build{
		b: b,
		mm: &Metamodel{
			byName: make(map[string]*Entity),
			byType: make(map[string]*Entity),
		},
		relationDefs: make(map[*Relationship]*RelationDef),
		idDefs:       make(map[*Entity][]idAttr),
	}

	for _, def := range b.entities {
		if err := st.declare(def); err != nil {
			return nil, err
		}
	}
	for _, e := range st.mm.entities {
		if err := st.primaryKey(e); err != nil {
			return nil, err
		}
	}
	for _, r := range st.relations {
		if err := st.resolveTarget(r); err != nil {
			return nil, err
		}
	}
	// Inverse sides are linked after every owning side has its columns.
	for _, r := range st.relations {
		if r.IsOwning() {
			if err := st.owningSide(r); err != nil {
				return nil, err
			}
		}
	}
	for _, r := range st.relations {
		if !r.IsOwning() {
			if err := st.inverseSide(r); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range st.mm.entities {
		e.columns = flatten(e.Attributes, nil)
		for i := range e.columns {
			for _, k := range e.PrimaryKey.columns {
				if k.Name == e.columns[i].Name {
					e.columns[i].PrimaryKey = true
				}
			}
		}
	}

	debug.Debug("metamodel built", "entities", len(st.mm.entities), "relationships", len(st.relations))
	return st.mm, nil
}

func (st *build) declare(def EntityDef) error {
	if def.Name == "" {
		return &diagnostics.ModelError{Message: "entity without name"}
	}
	if _, dup := st.mm.byName[def.Name]; dup {
		return &diagnostics.ModelError{Entity: def.Name, Message: "declared twice"}
	}
	e := &Entity{
		Name:   def.Name,
		Table:  def.Table,
		TypeID: def.Type,
		index:  make(map[string]*Attribute),
	}
	if e.Table == "" {
		e.Table = def.Name
	}
	if e.TypeID == "" {
		e.TypeID = def.Name
	}

	attrs, err := st.attributes(e, def.Attributes, nil, true)
	if err != nil {
		return err
	}
	e.Attributes = attrs
	for _, a := range attrs {
		e.index[a.Name] = a
	}

	st.mm.entities = append(st.mm.entities, e)
	st.mm.byName[e.Name] = e
	st.mm.byType[e.TypeID] = e
	return nil
}

func (st *build) attributes(e *Entity, defs []AttributeDef, prefix []string, topLevel bool) ([]*Attribute, error) {
	seen := make(map[string]bool, len(defs))
	out := make([]*Attribute, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, &diagnostics.ModelError{Entity: e.Name, Message: "attribute without name"}
		}
		if seen[def.Name] {
			return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: "declared twice"}
		}
		seen[def.Name] = true

		a, err := st.attribute(e, def, append(append([]string{}, prefix...), def.Name))
		if err != nil {
			return nil, err
		}
		if def.ID {
			if !topLevel {
				return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: "id attributes must be declared on the entity"}
			}
			st.idDefs[e] = append(st.idDefs[e], idAttr{attr: a, def: def})
		}
		out = append(out, a)
	}
	return out, nil
}

func (st *build) attribute(e *Entity, def AttributeDef, path []string) (*Attribute, error) {
	a := &Attribute{
		Name:      def.Name,
		Entity:    e,
		Path:      path,
		Nullable:  !def.ID,
		Length:    def.Length,
		Precision: def.Precision,
		Scale:     def.Scale,
	}
	if def.Nullable != nil {
		a.Nullable = *def.Nullable && !def.ID
	}

	set := 0
	for _, s := range []bool{def.Type != "", def.Embedded != "", def.Relation != nil} {
		if s {
			set++
		}
	}
	if set != 1 {
		return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: "exactly one of type, embedded and relation must be set"}
	}

	switch {
	case def.Type != "":
		t, ok := ParseValueType(def.Type)
		if !ok {
			return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: fmt.Sprintf("unknown type %q", def.Type)}
		}
		a.Kind = Basic
		a.Type = t
		a.Column = def.Column
		if a.Column == "" {
			a.Column = def.Name
		}

	case def.Embedded != "":
		emb, ok := st.b.embeddables[def.Embedded]
		if !ok {
			return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: fmt.Sprintf("unknown embeddable %q", def.Embedded)}
		}
		st.embedDepth++
		defer func() { st.embedDepth-- }()
		if st.embedDepth > 16 {
			return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: "embeddable nesting is cyclic"}
		}
		nested, err := st.attributes(e, emb.Attributes, path, false)
		if err != nil {
			return nil, err
		}
		a.Kind = Embedded
		a.Embeddable = emb.Name
		a.Attributes = nested
		a.index = make(map[string]*Attribute, len(nested))
		for _, n := range nested {
			a.index[n.Name] = n
			if def.ID {
				n.Nullable = false
			}
		}
		e.Embeddables = appendUnique(e.Embeddables, emb.Name)

	default:
		rd := def.Relation
		kind, ok := parseRelationKind(rd.Kind)
		if !ok {
			return nil, &diagnostics.ModelError{Entity: e.Name, Attribute: def.Name, Message: fmt.Sprintf("unknown relationship kind %q", rd.Kind)}
		}
		r := &Relationship{
			Kind:       kind,
			Source:     e,
			Attribute:  a,
			MappedBy:   rd.MappedBy,
			Fetch:      FetchType(rd.Fetch),
			Optional:   true,
			targetName: rd.Target,
		}
		if r.Fetch == "" {
			r.Fetch = FetchEager
			if kind.ToMany() {
				r.Fetch = FetchLazy
			}
		}
		if rd.Optional != nil {
			r.Optional = *rd.Optional
		}
		for _, c := range rd.Cascade {
			r.Cascade = append(r.Cascade, CascadeType(c))
		}
		a.Kind = Relation
		a.Relationship = r
		a.Nullable = r.Optional
		st.relations = append(st.relations, r)
		st.relationDefs[r] = rd
	}
	return a, nil
}

func (st *build) primaryKey(e *Entity) error {
	ids := st.idDefs[e]
	if len(ids) == 0 {
		return &diagnostics.ModelError{Entity: e.Name, Message: "no primary key"}
	}
	pk := &PrimaryKey{}
	switch {
	case len(ids) == 1 && ids[0].attr.Kind == Basic:
		pk.Kind = SimpleKey
	case len(ids) == 1 && ids[0].attr.Kind == Embedded:
		pk.Kind = EmbeddedKey
	default:
		pk.Kind = CompositeKey
	}
	for _, id := range ids {
		if id.attr.Kind == Relation {
			return &diagnostics.ModelError{Entity: e.Name, Attribute: id.attr.Name, Message: "relationship attributes cannot be part of the primary key"}
		}
		if pk.Kind == CompositeKey && id.attr.Kind != Basic {
			return &diagnostics.ModelError{Entity: e.Name, Attribute: id.attr.Name, Message: "composite keys must consist of basic attributes"}
		}
		pk.Attributes = append(pk.Attributes, id.attr)
		id.attr.Nullable = false
	}

	gen, ok := parseGeneration(ids[0].def.Generated)
	if !ok {
		return &diagnostics.ModelError{Entity: e.Name, Attribute: ids[0].attr.Name, Message: fmt.Sprintf("unknown generation strategy %q", ids[0].def.Generated)}
	}
	if gen != GenerationNone && pk.Kind != SimpleKey {
		return &diagnostics.ModelError{Entity: e.Name, Message: "generated values require a simple primary key"}
	}
	pk.Generation = gen
	if gen == GenerationSequence || gen == GenerationAuto {
		pk.Sequence = ids[0].def.Sequence
		if pk.Sequence == "" {
			pk.Sequence = inflect.Underscore(e.Table) + "_seq"
		}
	}

	pk.columns = flatten(pk.Attributes, nil)
	for i := range pk.columns {
		pk.columns[i].PrimaryKey = true
		pk.columns[i].Nullable = false
	}
	e.PrimaryKey = pk
	return nil
}

func (st *build) resolveTarget(r *Relationship) error {
	target, ok := st.mm.byName[r.targetName]
	if !ok {
		return &diagnostics.ModelError{Entity: r.Source.Name, Attribute: r.Attribute.Name, Message: fmt.Sprintf("unknown target entity %q", r.targetName)}
	}
	r.Target = target
	return nil
}

func (st *build) owningSide(r *Relationship) error {
	rd := st.relationDefs[r]
	modelErr := func(msg string) error {
		return &diagnostics.ModelError{Entity: r.Source.Name, Attribute: r.Attribute.Name, Message: msg}
	}
	if len(rd.JoinColumns) > 0 && rd.JoinTable != nil {
		return modelErr("join columns and join table are mutually exclusive")
	}

	useJoinTable := rd.JoinTable != nil ||
		r.Kind == ManyToMany ||
		(r.Kind == OneToMany && len(rd.JoinColumns) == 0)

	if !useJoinTable {
		if r.Kind == OneToMany {
			// Foreign key lives on the target and references the source key.
			jcs, err := joinColumns(rd.JoinColumns, r.Source.PrimaryKey, r.Attribute.Name, r.Optional)
			if err != nil {
				return modelErr(err.Error())
			}
			r.JoinColumns = jcs
			return nil
		}
		jcs, err := joinColumns(rd.JoinColumns, r.Target.PrimaryKey, r.Attribute.Name, r.Optional)
		if err != nil {
			return modelErr(err.Error())
		}
		r.JoinColumns = jcs
		return nil
	}

	jt := &JoinTable{Name: inflect.Underscore(r.Source.Name) + "_" + inflect.Underscore(r.Attribute.Name)}
	var ownerDefs, targetDefs []JoinColumnDef
	if rd.JoinTable != nil {
		if rd.JoinTable.Name != "" {
			jt.Name = rd.JoinTable.Name
		}
		ownerDefs = rd.JoinTable.JoinColumns
		targetDefs = rd.JoinTable.InverseJoinColumns
	}
	owner, err := joinColumns(ownerDefs, r.Source.PrimaryKey, r.Source.Name, false)
	if err != nil {
		return modelErr(err.Error())
	}
	target, err := joinColumns(targetDefs, r.Target.PrimaryKey, r.Attribute.Name, false)
	if err != nil {
		return modelErr(err.Error())
	}
	jt.OwnerColumns = owner
	jt.TargetColumns = target
	r.JoinTable = jt
	return nil
}

func (st *build) inverseSide(r *Relationship) error {
	rd := st.relationDefs[r]
	modelErr := func(msg string) error {
		return &diagnostics.ModelError{Entity: r.Source.Name, Attribute: r.Attribute.Name, Message: msg}
	}
	if len(rd.JoinColumns) > 0 || rd.JoinTable != nil {
		return modelErr("the inverse side of a relationship cannot declare join columns or a join table")
	}
	var owning *Relationship
	for _, candidate := range r.Target.Relationships() {
		if candidate.Attribute.Name == r.MappedBy {
			owning = candidate
			break
		}
	}
	if owning == nil {
		return modelErr(fmt.Sprintf("mappedBy %q is not a relationship of %s", r.MappedBy, r.Target.Name))
	}
	if !owning.IsOwning() {
		return modelErr(fmt.Sprintf("mappedBy %q refers to another inverse side", r.MappedBy))
	}
	if owning.Target != r.Source {
		return modelErr(fmt.Sprintf("%s.%s does not target %s", r.Target.Name, r.MappedBy, r.Source.Name))
	}
	r.Inverse = owning
	return nil
}

// joinColumns pairs declared join columns with the referenced key columns,
// defaulting names to <prefix>_<referenced column>.
func joinColumns(defs []JoinColumnDef, pk *PrimaryKey, prefix string, nullable bool) ([]JoinColumn, error) {
	keyCols := pk.Columns()
	if len(defs) > 0 && len(defs) != len(keyCols) {
		return nil, fmt.Errorf("%d join columns declared for a key of %d columns", len(defs), len(keyCols))
	}
	out := make([]JoinColumn, len(keyCols))
	for i, kc := range keyCols {
		jc := JoinColumn{
			Name:       prefix + "_" + kc.Name,
			Referenced: kc.Name,
			Type:       kc.Type,
			Nullable:   nullable,
		}
		if len(defs) > 0 {
			d := defs[i]
			if d.Referenced != "" {
				ref, ok := findColumn(keyCols, d.Referenced)
				if !ok {
					return nil, fmt.Errorf("join column %s references unknown key column %s", d.Name, d.Referenced)
				}
				jc.Referenced = ref.Name
				jc.Type = ref.Type
			}
			if d.Name != "" {
				jc.Name = d.Name
			}
		}
		out[i] = jc
	}
	return out, nil
}

func findColumn(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
