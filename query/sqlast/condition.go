package sqlast

// Condition is a boolean expression. Every variant carries a Not flag that
// the renderer honours; negation never rewrites the operator.
type Condition interface {
	Accept(v ConditionVisitor) error
	Negated() bool
	withNot(not bool) Condition
}

// ConditionVisitor has one method per Condition variant.
type ConditionVisitor interface {
	VisitComparison(*Comparison) error
	VisitNullCheck(*NullCheck) error
	VisitBetween(*Between) error
	VisitLike(*Like) error
	VisitIn(*In) error
	VisitExists(*Exists) error
	VisitLogical(*Logical) error
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// Comparison is left <op> right.
type Comparison struct {
	Op    CompareOp
	Left  Value
	Right Value
	Not   bool
}

// NullCheck is "value is null", or "is not null" when negated.
type NullCheck struct {
	Value Value
	Not   bool
}

// Between is value between low and high.
type Between struct {
	Value Value
	Low   Value
	High  Value
	Not   bool
}

// Like matches Value against Pattern. Escape is optional.
type Like struct {
	Value   Value
	Pattern Value
	Escape  Value
	Not     bool
}

// In tests membership in a value list or, when Subquery is set, in the
// result of a subquery.
type In struct {
	Value    Value
	List     []Value
	Subquery *Select
	Not      bool
}

// Exists tests whether a subquery returns rows.
type Exists struct {
	Subquery *Select
	Not      bool
}

// LogicalOp joins the children of a Logical condition.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// Logical combines conditions. Nested is set when the condition appears
// inside another condition and must be parenthesized.
type Logical struct {
	Op         LogicalOp
	Conditions []Condition
	Nested     bool
	Not        bool
}

func (c *Comparison) Accept(v ConditionVisitor) error { return v.VisitComparison(c) }
func (c *NullCheck) Accept(v ConditionVisitor) error  { return v.VisitNullCheck(c) }
func (c *Between) Accept(v ConditionVisitor) error    { return v.VisitBetween(c) }
func (c *Like) Accept(v ConditionVisitor) error       { return v.VisitLike(c) }
func (c *In) Accept(v ConditionVisitor) error         { return v.VisitIn(c) }
func (c *Exists) Accept(v ConditionVisitor) error     { return v.VisitExists(c) }
func (c *Logical) Accept(v ConditionVisitor) error    { return v.VisitLogical(c) }

func (c *Comparison) Negated() bool { return c.Not }
func (c *NullCheck) Negated() bool  { return c.Not }
func (c *Between) Negated() bool    { return c.Not }
func (c *Like) Negated() bool       { return c.Not }
func (c *In) Negated() bool         { return c.Not }
func (c *Exists) Negated() bool     { return c.Not }
func (c *Logical) Negated() bool    { return c.Not }

func (c *Comparison) withNot(not bool) Condition { n := *c; n.Not = not; return &n }
func (c *NullCheck) withNot(not bool) Condition  { n := *c; n.Not = not; return &n }
func (c *Between) withNot(not bool) Condition    { n := *c; n.Not = not; return &n }
func (c *Like) withNot(not bool) Condition       { n := *c; n.Not = not; return &n }
func (c *In) withNot(not bool) Condition         { n := *c; n.Not = not; return &n }
func (c *Exists) withNot(not bool) Condition     { n := *c; n.Not = not; return &n }
func (c *Logical) withNot(not bool) Condition    { n := *c; n.Not = not; return &n }

// Negate returns a copy of c with its Not flag toggled. Negate(Negate(c))
// renders exactly like c.
func Negate(c Condition) Condition {
	if c == nil {
		return nil
	}
	return c.withNot(!c.Negated())
}

// Compare returns l <op> r.
func Compare(op CompareOp, l, r Value) *Comparison {
	return &Comparison{Op: op, Left: l, Right: r}
}

func Eq(l, r Value) *Comparison { return Compare(OpEq, l, r) }
func Ne(l, r Value) *Comparison { return Compare(OpNe, l, r) }
func Gt(l, r Value) *Comparison { return Compare(OpGt, l, r) }
func Ge(l, r Value) *Comparison { return Compare(OpGe, l, r) }
func Lt(l, r Value) *Comparison { return Compare(OpLt, l, r) }
func Le(l, r Value) *Comparison { return Compare(OpLe, l, r) }

// IsNull returns "v is null".
func IsNull(v Value) *NullCheck { return &NullCheck{Value: v} }

// IsNotNull returns "v is not null".
func IsNotNull(v Value) *NullCheck { return &NullCheck{Value: v, Not: true} }

// BetweenOf returns "v between low and high".
func BetweenOf(v, low, high Value) *Between {
	return &Between{Value: v, Low: low, High: high}
}

// LikeOf returns "v like pattern", with an optional escape value.
func LikeOf(v, pattern, escape Value) *Like {
	return &Like{Value: v, Pattern: pattern, Escape: escape}
}

// InOf returns "v in (list...)".
func InOf(v Value, list ...Value) *In {
	return &In{Value: v, List: list}
}

// InSubquery returns "v in (select ...)".
func InSubquery(v Value, sub *Select) *In {
	return &In{Value: v, Subquery: sub}
}

// ExistsOf returns "exists (select ...)".
func ExistsOf(sub *Select) *Exists {
	return &Exists{Subquery: sub}
}

// And combines conditions with "and". Nil conditions are skipped; a single
// remaining condition is returned unchanged and no conditions yield nil.
func And(conds ...Condition) Condition {
	return logical(OpAnd, conds)
}

// Or combines conditions with "or" like And.
func Or(conds ...Condition) Condition {
	return logical(OpOr, conds)
}

func logical(op LogicalOp, conds []Condition) Condition {
	var kept []Condition
	for _, c := range conds {
		if c == nil {
			continue
		}
		if l, ok := c.(*Logical); ok && !l.Nested {
			n := *l
			n.Nested = true
			c = &n
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		if l, ok := kept[0].(*Logical); ok {
			n := *l
			n.Nested = false
			return &n
		}
		return kept[0]
	}
	return &Logical{Op: op, Conditions: kept}
}

// EqualColumns builds the ANDed pairwise equality of two column lists, as
// used for join conditions and correlated subqueries.
func EqualColumns(left, right []TableColumn) Condition {
	conds := make([]Condition, len(left))
	for i := range left {
		conds[i] = Eq(Col(left[i]), Col(right[i]))
	}
	return And(conds...)
}
