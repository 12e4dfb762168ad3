package compiler

import (
	"strings"

	"github.com/satishbabariya/entityql/query/sqlast"
)

// Criteria is a typed query built directly against the metamodel.
// Paths name attributes relative to an alias: the root (Alias "" or
// RootAlias), a further range or an explicit join.
type Criteria struct {
	Root      string
	RootAlias string
	Ranges    []Range
	Distinct  bool
	Select    []Expr
	Joins     []JoinSpec
	Where     Predicate
	GroupBy   []Expr
	Having    Predicate
	OrderBy   []Order

	// FetchEager left fetch joins every eager association of the root
	// entity that no explicit fetch join already covers.
	FetchEager bool
}

// Range declares a range variable besides the root.
type Range struct {
	Entity string
	Alias  string
}

// JoinSpec declares an explicit join of Path from the From alias ("" for
// the root), bound to Alias. A fetch join also selects every column of
// the joined entity after the select list.
type JoinSpec struct {
	From  string
	Path  []string
	Alias string
	Left  bool
	Fetch bool
}

// Join declares an inner join of a dotted path from the root.
func Join(path, alias string) JoinSpec {
	return JoinSpec{Path: split(path), Alias: alias}
}

// LeftJoin declares a left outer join of a dotted path from the root.
func LeftJoin(path, alias string) JoinSpec {
	return JoinSpec{Path: split(path), Alias: alias, Left: true}
}

// JoinFetch declares an inner fetch join of a dotted path from the root.
func JoinFetch(path string) JoinSpec {
	return JoinSpec{Path: split(path), Fetch: true}
}

// Order is one ORDER BY entry.
type Order struct {
	Expr Expr
	Desc bool
}

func Asc(e Expr) Order  { return Order{Expr: e} }
func Desc(e Expr) Order { return Order{Expr: e, Desc: true} }

// Expr is a criteria expression.
type Expr interface {
	isExpr()
}

// PathExpr navigates attributes from an alias. An empty Path denotes the
// entity bound to the alias itself.
type PathExpr struct {
	Alias string
	Path  []string
}

// LitExpr is an inline literal. A metamodel.Key or []any value expands
// against a multi-column operand.
type LitExpr struct {
	Value any
}

// ParamExpr is a bound parameter. Like LitExpr, key values expand against
// a multi-column operand, one placeholder per column.
type ParamExpr struct {
	Name  string
	Value any
}

// AggExpr is an aggregate. A nil Arg counts rows.
type AggExpr struct {
	Func     sqlast.AggregateFunc
	Arg      Expr
	Distinct bool
}

// ArithExpr is an arithmetic expression.
type ArithExpr struct {
	Op    sqlast.ArithOp
	Left  Expr
	Right Expr
}

// ConcatExpr concatenates strings.
type ConcatExpr struct {
	Args []Expr
}

// TemporalExpr is the current date, time or timestamp.
type TemporalExpr struct {
	Kind sqlast.TemporalKind
}

// SubqueryExpr is a scalar subquery. Its criteria may refer to the aliases
// of the enclosing query.
type SubqueryExpr struct {
	Criteria *Criteria
}

func (PathExpr) isExpr()     {}
func (LitExpr) isExpr()      {}
func (ParamExpr) isExpr()    {}
func (AggExpr) isExpr()      {}
func (ArithExpr) isExpr()    {}
func (ConcatExpr) isExpr()   {}
func (TemporalExpr) isExpr() {}
func (SubqueryExpr) isExpr() {}

func split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Path refers to a dotted attribute path. A leading segment naming a join
// alias is not special here; use PathOf for joined entities.
func Path(path string) PathExpr { return PathExpr{Path: split(path)} }

// PathOf refers to a dotted attribute path of an alias.
func PathOf(alias, path string) PathExpr { return PathExpr{Alias: alias, Path: split(path)} }

// Entity refers to the entity bound to alias.
func Entity(alias string) PathExpr { return PathExpr{Alias: alias} }

func Lit(v any) LitExpr                  { return LitExpr{Value: v} }
func Param(name string, v any) ParamExpr { return ParamExpr{Name: name, Value: v} }
func Value(v any) ParamExpr              { return ParamExpr{Value: v} }

func Count(e Expr) AggExpr         { return AggExpr{Func: sqlast.Count, Arg: e} }
func CountDistinct(e Expr) AggExpr { return AggExpr{Func: sqlast.Count, Arg: e, Distinct: true} }
func CountAll() AggExpr            { return AggExpr{Func: sqlast.Count} }
func Sum(e Expr) AggExpr           { return AggExpr{Func: sqlast.Sum, Arg: e} }
func Avg(e Expr) AggExpr           { return AggExpr{Func: sqlast.Avg, Arg: e} }
func Min(e Expr) AggExpr           { return AggExpr{Func: sqlast.Min, Arg: e} }
func Max(e Expr) AggExpr           { return AggExpr{Func: sqlast.Max, Arg: e} }

func Arith(op sqlast.ArithOp, l, r Expr) ArithExpr { return ArithExpr{Op: op, Left: l, Right: r} }
func ConcatOf(args ...Expr) ConcatExpr             { return ConcatExpr{Args: args} }

func CurrentDate() TemporalExpr      { return TemporalExpr{Kind: sqlast.CurrentDate} }
func CurrentTime() TemporalExpr      { return TemporalExpr{Kind: sqlast.CurrentTime} }
func CurrentTimestamp() TemporalExpr { return TemporalExpr{Kind: sqlast.CurrentTimestamp} }

// Predicate is a criteria condition.
type Predicate interface {
	isPredicate()
}

// ComparePred compares two expressions. Multi-column operands compare
// column by column; only = and <> accept them.
type ComparePred struct {
	Op    sqlast.CompareOp
	Left  Expr
	Right Expr
}

// NullPred tests an expression for null.
type NullPred struct {
	Expr Expr
	Not  bool
}

// BetweenPred tests a range.
type BetweenPred struct {
	Expr Expr
	Low  Expr
	High Expr
}

// LikePred matches a pattern, with an optional escape.
type LikePred struct {
	Expr    Expr
	Pattern Expr
	Escape  Expr
}

// InPred tests membership in a list or, when Sub is set, in the result of
// a subquery.
type InPred struct {
	Expr Expr
	List []Expr
	Sub  *Criteria
}

// LogicalPred combines predicates.
type LogicalPred struct {
	Op    sqlast.LogicalOp
	Preds []Predicate
}

// NotPred negates a predicate.
type NotPred struct {
	Pred Predicate
}

// MemberPred tests whether the entity identified by Key belongs to the
// collection at Path.
type MemberPred struct {
	Key  Expr
	Path PathExpr
}

// EmptyPred tests whether the collection at Path is empty.
type EmptyPred struct {
	Path PathExpr
}

// ExistsPred tests whether a subquery returns rows.
type ExistsPred struct {
	Sub *Criteria
}

func (ComparePred) isPredicate() {}
func (NullPred) isPredicate()    {}
func (BetweenPred) isPredicate() {}
func (LikePred) isPredicate()    {}
func (InPred) isPredicate()      {}
func (LogicalPred) isPredicate() {}
func (NotPred) isPredicate()     {}
func (MemberPred) isPredicate()  {}
func (EmptyPred) isPredicate()   {}
func (ExistsPred) isPredicate()  {}

func Equal(l, r Expr) ComparePred          { return ComparePred{Op: sqlast.OpEq, Left: l, Right: r} }
func NotEqual(l, r Expr) ComparePred       { return ComparePred{Op: sqlast.OpNe, Left: l, Right: r} }
func Greater(l, r Expr) ComparePred        { return ComparePred{Op: sqlast.OpGt, Left: l, Right: r} }
func GreaterOrEqual(l, r Expr) ComparePred { return ComparePred{Op: sqlast.OpGe, Left: l, Right: r} }
func Less(l, r Expr) ComparePred           { return ComparePred{Op: sqlast.OpLt, Left: l, Right: r} }
func LessOrEqual(l, r Expr) ComparePred    { return ComparePred{Op: sqlast.OpLe, Left: l, Right: r} }

func IsNull(e Expr) NullPred    { return NullPred{Expr: e} }
func IsNotNull(e Expr) NullPred { return NullPred{Expr: e, Not: true} }

func Between(e, low, high Expr) BetweenPred { return BetweenPred{Expr: e, Low: low, High: high} }

func Like(e, pattern Expr) LikePred { return LikePred{Expr: e, Pattern: pattern} }

func LikeEscape(e, pattern, escape Expr) LikePred {
	return LikePred{Expr: e, Pattern: pattern, Escape: escape}
}

func In(e Expr, list ...Expr) InPred { return InPred{Expr: e, List: list} }

func InQuery(e Expr, sub *Criteria) InPred { return InPred{Expr: e, Sub: sub} }
func Exists(sub *Criteria) ExistsPred      { return ExistsPred{Sub: sub} }
func Subquery(sub *Criteria) SubqueryExpr  { return SubqueryExpr{Criteria: sub} }

func And(preds ...Predicate) LogicalPred { return LogicalPred{Op: sqlast.OpAnd, Preds: preds} }
func Or(preds ...Predicate) LogicalPred  { return LogicalPred{Op: sqlast.OpOr, Preds: preds} }
func Not(p Predicate) NotPred            { return NotPred{Pred: p} }

func MemberOf(key Expr, path PathExpr) MemberPred { return MemberPred{Key: key, Path: path} }
func IsEmpty(path PathExpr) EmptyPred             { return EmptyPred{Path: path} }
