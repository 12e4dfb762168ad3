package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Statement is the parse tree of one query.
type Statement struct {
	Pos    lexer.Position
	Select *SelectStatement `  @@`
	Update *UpdateStatement `| @@`
	Delete *DeleteStatement `| @@`
}

// SelectStatement is a SELECT query or subquery.
type SelectStatement struct {
	Pos      lexer.Position
	Distinct bool          `"SELECT" @"DISTINCT"?`
	Items    []*SelectItem `@@ ("," @@)*`
	Ranges   []*RangeDecl  `"FROM" @@ ("," @@)*`
	Joins    []*JoinDecl   `@@*`
	Where    *Condition    `("WHERE" @@)?`
	GroupBy  []*Expression `("GROUP" "BY" @@ ("," @@)*)?`
	Having   *Condition    `("HAVING" @@)?`
	OrderBy  []*OrderItem  `("ORDER" "BY" @@ ("," @@)*)?`
}

// UpdateStatement is a bulk UPDATE.
type UpdateStatement struct {
	Pos   lexer.Position
	Range *RangeDecl  `"UPDATE" @@`
	Joins []*JoinDecl `@@*`
	Set   []*SetItem  `"SET" @@ ("," @@)*`
	Where *Condition  `("WHERE" @@)?`
}

// DeleteStatement is a bulk DELETE.
type DeleteStatement struct {
	Pos   lexer.Position
	Range *RangeDecl  `"DELETE" "FROM" @@`
	Joins []*JoinDecl `@@*`
	Where *Condition  `("WHERE" @@)?`
}

// RangeDecl declares a range variable over an entity.
type RangeDecl struct {
	Pos    lexer.Position
	Entity string `@Ident`
	Alias  string `("AS"? @Ident)?`
}

// JoinDecl declares an explicit join of an association path.
type JoinDecl struct {
	Pos   lexer.Position
	Left  bool   `( @"LEFT" "OUTER"? | "INNER" )? "JOIN"`
	Fetch bool   `@"FETCH"?`
	Path  *Path  `@@`
	Alias string `("AS"? @Ident)?`
}

// SelectItem is one entry of the select clause.
type SelectItem struct {
	Pos         lexer.Position
	Constructor *Constructor `  @@`
	Expr        *Expression  `| @@`
}

// Constructor is a NEW pkg.Type(...) select item.
type Constructor struct {
	Pos   lexer.Position
	Class []string      `"NEW" @Ident ("." @Ident)*`
	Args  []*Expression `"(" @@ ("," @@)* ")"`
}

// SetItem is one assignment of an UPDATE.
type SetItem struct {
	Pos   lexer.Position
	Path  *Path       `@@ "="`
	Value *Expression `@@`
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Pos  lexer.Position
	Expr *Expression `@@`
	Desc bool        `( "ASC" | @"DESC" )?`
}

// Path is an identification variable optionally followed by attributes.
type Path struct {
	Pos   lexer.Position
	Parts []string `@Ident ("." @Ident)*`
}

func (p *Path) String() string {
	return strings.Join(p.Parts, ".")
}

// Expression is an additive expression.
type Expression struct {
	Pos   lexer.Position
	Left  *Term     `@@`
	Right []*OpTerm `@@*`
}

type OpTerm struct {
	Op   string `@("+" | "-")`
	Term *Term  `@@`
}

// Term is a multiplicative expression.
type Term struct {
	Pos   lexer.Position
	Left  *Factor     `@@`
	Right []*OpFactor `@@*`
}

type OpFactor struct {
	Op     string  `@("*" | "/")`
	Factor *Factor `@@`
}

// Factor is an optionally negated primary.
type Factor struct {
	Pos     lexer.Position
	Minus   bool     `@"-"?`
	Primary *Primary `@@`
}

// Primary is an operand of an arithmetic expression.
type Primary struct {
	Pos       lexer.Position
	Aggregate *Aggregate       `  @@`
	Concat    *Concat          `| @@`
	Temporal  string           `| @("CURRENT_DATE" | "CURRENT_TIMESTAMP" | "CURRENT_TIME")`
	Subquery  *SelectStatement `| "(" @@ ")"`
	Group     *Expression      `| "(" @@ ")"`
	Literal   *Literal         `| @@`
	Param     string           `| @Param`
	Path      *Path            `| @@`
}

// Aggregate is an aggregate function call.
type Aggregate struct {
	Pos      lexer.Position
	Func     string      `@("COUNT" | "SUM" | "AVG" | "MIN" | "MAX")`
	Distinct bool        `"(" @"DISTINCT"?`
	Star     bool        `( @"*"`
	Arg      *Expression `| @@ ) ")"`
}

// Concat is CONCAT(a, b, ...).
type Concat struct {
	Pos  lexer.Position
	Args []*Expression `"CONCAT" "(" @@ ("," @@)* ")"`
}

// Literal is a constant.
type Literal struct {
	Pos    lexer.Position
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @("TRUE" | "FALSE")`
	Null   bool    `| @"NULL"`
}

// Condition is a disjunction.
type Condition struct {
	Pos   lexer.Position
	Terms []*ConditionTerm `@@ ("OR" @@)*`
}

// ConditionTerm is a conjunction.
type ConditionTerm struct {
	Pos     lexer.Position
	Factors []*ConditionFactor `@@ ("AND" @@)*`
}

// ConditionFactor is an optionally negated primary condition.
type ConditionFactor struct {
	Pos       lexer.Position
	Not       bool             `@"NOT"?`
	Exists    *SelectStatement `(  "EXISTS" "(" @@ ")"`
	Group     *Condition       ` | "(" @@ ")"`
	Predicate *Predicate       ` | @@ )`
}

// Predicate is a leaf condition over an expression.
type Predicate struct {
	Pos     lexer.Position
	Left    *Expression  `@@`
	Compare *Comparison  `(  @@`
	Between *BetweenTail ` | @@`
	Like    *LikeTail    ` | @@`
	In      *InTail      ` | @@`
	Null    *NullTail    ` | @@`
	Member  *MemberTail  ` | @@ )`
}

type Comparison struct {
	Op    string      `@("=" | "<>" | "!=" | ">=" | "<=" | ">" | "<")`
	Right *Expression `@@`
}

type BetweenTail struct {
	Not  bool        `@"NOT"? "BETWEEN"`
	Low  *Expression `@@ "AND"`
	High *Expression `@@`
}

type LikeTail struct {
	Not     bool        `@"NOT"? "LIKE"`
	Pattern *Expression `@@`
	Escape  *Expression `("ESCAPE" @@)?`
}

type InTail struct {
	Not      bool             `@"NOT"? "IN" "("`
	Subquery *SelectStatement `( @@`
	List     []*Expression    `| @@ ("," @@)* ) ")"`
}

type NullTail struct {
	Not   bool `"IS" @"NOT"?`
	Null  bool `( @"NULL"`
	Empty bool `| @"EMPTY" )`
}

type MemberTail struct {
	Pos  lexer.Position
	Not  bool  `@"NOT"? "MEMBER" "OF"?`
	Path *Path `@@`
}
