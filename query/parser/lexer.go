package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// QueryLexer defines the token types of the object query language.
// Keywords are matched case-insensitively.
var QueryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i:\b(?:SELECT|DISTINCT|FROM|AS|INNER|LEFT|OUTER|JOIN|FETCH|WHERE|GROUP|BY|HAVING|ORDER|ASC|DESC|AND|OR|NOT|BETWEEN|LIKE|ESCAPE|IN|IS|NULL|EMPTY|MEMBER|OF|EXISTS|NEW|UPDATE|SET|DELETE|TRUE|FALSE|COUNT|SUM|AVG|MIN|MAX|CONCAT|CURRENT_DATE|CURRENT_TIMESTAMP|CURRENT_TIME)\b)`},

	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	// Literals
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},

	// Parameters: named (:name) or positional (?1)
	{Name: "Param", Pattern: `:[A-Za-z_][A-Za-z0-9_]*|\?\d+`},

	{Name: "Operator", Pattern: `<>|!=|<=|>=|[-+*/=<>]`},
	{Name: "Punct", Pattern: `[(),.]`},

	{Name: "Whitespace", Pattern: `\s+`},
})
