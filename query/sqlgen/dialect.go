package sqlgen

import (
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

// Dialect is the table of rendering rules for one database product.
// Dialects are values: the registry, NewGenerator and Generator.Dialect
// hand out deep copies, so changing a returned dialect never affects
// another generator.
type Dialect struct {
	Name string

	// Logical keywords and comparison operator spellings.
	And       string
	Or        string
	Not       string
	Operators map[sqlast.CompareOp]string

	// AsInFrom renders "table AS alias" in FROM and JOIN clauses; otherwise
	// "table alias".
	AsInFrom bool

	QuoteOpen  string
	QuoteClose string
	// Reserved words are quoted when used as identifiers. Keys are lowercase.
	Reserved map[string]bool

	True  string
	False string

	CurrentDate      string
	CurrentTime      string
	CurrentTimestamp string

	// ConcatOperator joins strings inline ("||"); when empty ConcatFunction
	// is called with all arguments.
	ConcatOperator string
	ConcatFunction string

	Sequences bool
	Identity  bool
	// DowngradeSequence maps sequence generation to identity columns on
	// dialects without sequences.
	DowngradeSequence bool
	IdentityClause    string
	// SequenceDDL is a format with the name, start and increment.
	SequenceDDL string
	// NextValue is a format with the sequence name.
	NextValue string

	// Types maps value types to column types. "%d" placeholders take the
	// length (strings) or precision and scale (decimals).
	Types map[metamodel.ValueType]string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Quote returns name, quoted when it is reserved or not a plain identifier.
func (d *Dialect) Quote(name string) string {
	if identifierPattern.MatchString(name) && !d.Reserved[strings.ToLower(name)] {
		return name
	}
	closer := d.QuoteClose
	return d.QuoteOpen + strings.ReplaceAll(name, closer, closer+closer) + closer
}

// ColumnType returns the DDL type of a column definition.
func (d *Dialect) ColumnType(c sqlast.ColumnDef) (string, error) {
	tmpl, ok := d.Types[c.Type]
	if !ok {
		return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: d.Name, Feature: fmt.Sprintf("column type %s", c.Type)}
	}
	switch strings.Count(tmpl, "%d") {
	case 1:
		length := c.Length
		if length <= 0 {
			length = 255
		}
		return fmt.Sprintf(tmpl, length), nil
	case 2:
		precision, scale := c.Precision, c.Scale
		if precision <= 0 {
			precision, scale = 19, 2
		}
		return fmt.Sprintf(tmpl, precision, scale), nil
	}
	return tmpl, nil
}

// ResolveGeneration maps a primary key generation strategy to what the
// dialect can render. Sequence generation on a dialect without sequences is
// downgraded to identity when the dialect allows it and fails otherwise.
func (d *Dialect) ResolveGeneration(s metamodel.GenerationStrategy) (metamodel.GenerationStrategy, error) {
	switch s {
	case metamodel.GenerationNone:
		return s, nil
	case metamodel.GenerationAuto:
		if d.Sequences {
			return metamodel.GenerationSequence, nil
		}
		if d.Identity {
			return metamodel.GenerationIdentity, nil
		}
	case metamodel.GenerationIdentity:
		if d.Identity {
			return s, nil
		}
		return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: d.Name, Feature: "identity columns"}
	case metamodel.GenerationSequence:
		if d.Sequences {
			return s, nil
		}
		if d.DowngradeSequence && d.Identity {
			return metamodel.GenerationIdentity, nil
		}
		return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: d.Name, Feature: "sequences"}
	}
	return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: d.Name, Feature: fmt.Sprintf("generation strategy %q", s)}
}

var reservedWords = []string{
	"all", "alter", "and", "as", "asc", "between", "by", "case", "check",
	"column", "constraint", "create", "current_date", "current_time",
	"current_timestamp", "default", "delete", "desc", "distinct", "drop",
	"else", "end", "exists", "false", "foreign", "from", "grant", "group",
	"having", "in", "index", "inner", "insert", "into", "is", "join", "key",
	"left", "like", "limit", "not", "null", "offset", "on", "or", "order",
	"outer", "primary", "references", "select", "set", "table", "then", "to",
	"true", "union", "unique", "update", "user", "values", "when", "where",
}

func reserved(extra ...string) map[string]bool {
	m := make(map[string]bool, len(reservedWords)+len(extra))
	for _, w := range reservedWords {
		m[w] = true
	}
	for _, w := range extra {
		m[w] = true
	}
	return m
}

var standardOperators = map[sqlast.CompareOp]string{
	sqlast.OpEq: "=",
	sqlast.OpNe: "<>",
	sqlast.OpGt: ">",
	sqlast.OpGe: ">=",
	sqlast.OpLt: "<",
	sqlast.OpLe: "<=",
}

func postgresDialect() Dialect {
	return Dialect{
		Name:              "postgresql",
		And:               "and",
		Or:                "or",
		Not:               "not",
		Operators:         standardOperators,
		AsInFrom:          true,
		QuoteOpen:         `"`,
		QuoteClose:        `"`,
		Reserved:          reserved("analyse", "analyze", "array", "window"),
		True:              "TRUE",
		False:             "FALSE",
		CurrentDate:       "current_date",
		CurrentTime:       "current_time",
		CurrentTimestamp:  "current_timestamp",
		ConcatOperator:    "||",
		Sequences:         true,
		Identity:          true,
		IdentityClause:    "generated by default as identity",
		SequenceDDL:       "create sequence %s start with %d increment by %d",
		NextValue:         "nextval('%s')",
		DowngradeSequence: false,
		Types: map[metamodel.ValueType]string{
			metamodel.TypeString:    "varchar(%d)",
			metamodel.TypeText:      "text",
			metamodel.TypeInt:       "integer",
			metamodel.TypeLong:      "bigint",
			metamodel.TypeShort:     "smallint",
			metamodel.TypeBool:      "boolean",
			metamodel.TypeFloat:     "real",
			metamodel.TypeDouble:    "double precision",
			metamodel.TypeDecimal:   "numeric(%d,%d)",
			metamodel.TypeDate:      "date",
			metamodel.TypeTime:      "time",
			metamodel.TypeTimestamp: "timestamp",
			metamodel.TypeBytes:     "bytea",
			metamodel.TypeUUID:      "uuid",
		},
	}
}

func cockroachDialect() Dialect {
	d := postgresDialect()
	d.Name = "cockroachdb"
	d.Types = maps.Clone(d.Types)
	d.Types[metamodel.TypeInt] = "int4"
	d.Types[metamodel.TypeLong] = "int8"
	d.Types[metamodel.TypeShort] = "int2"
	d.Types[metamodel.TypeString] = "string(%d)"
	d.Types[metamodel.TypeText] = "string"
	d.Types[metamodel.TypeBytes] = "bytes"
	return d
}

func mysqlDialect() Dialect {
	return Dialect{
		Name:              "mysql",
		And:               "and",
		Or:                "or",
		Not:               "not",
		Operators:         standardOperators,
		AsInFrom:          true,
		QuoteOpen:         "`",
		QuoteClose:        "`",
		Reserved:          reserved("interval", "range", "read", "rank", "row", "rows", "status"),
		True:              "TRUE",
		False:             "FALSE",
		CurrentDate:       "current_date()",
		CurrentTime:       "current_time()",
		CurrentTimestamp:  "current_timestamp()",
		ConcatFunction:    "concat",
		Sequences:         false,
		Identity:          true,
		DowngradeSequence: true,
		IdentityClause:    "auto_increment",
		Types: map[metamodel.ValueType]string{
			metamodel.TypeString:    "varchar(%d)",
			metamodel.TypeText:      "longtext",
			metamodel.TypeInt:       "integer",
			metamodel.TypeLong:      "bigint",
			metamodel.TypeShort:     "smallint",
			metamodel.TypeBool:      "bit",
			metamodel.TypeFloat:     "float",
			metamodel.TypeDouble:    "double precision",
			metamodel.TypeDecimal:   "decimal(%d,%d)",
			metamodel.TypeDate:      "date",
			metamodel.TypeTime:      "time",
			metamodel.TypeTimestamp: "datetime(6)",
			metamodel.TypeBytes:     "longblob",
			metamodel.TypeUUID:      "char(36)",
		},
	}
}

func sqliteDialect() Dialect {
	return Dialect{
		Name:             "sqlite",
		And:              "and",
		Or:               "or",
		Not:              "not",
		Operators:        standardOperators,
		AsInFrom:         true,
		QuoteOpen:        `"`,
		QuoteClose:       `"`,
		Reserved:         reserved("autoincrement", "glob", "pragma", "vacuum"),
		True:             "1",
		False:            "0",
		CurrentDate:      "current_date",
		CurrentTime:      "current_time",
		CurrentTimestamp: "current_timestamp",
		ConcatOperator:   "||",
		Sequences:        false,
		// integer primary key columns are rowid aliases.
		Identity:       true,
		IdentityClause: "",
		Types: map[metamodel.ValueType]string{
			metamodel.TypeString:    "varchar(%d)",
			metamodel.TypeText:      "text",
			metamodel.TypeInt:       "integer",
			metamodel.TypeLong:      "integer",
			metamodel.TypeShort:     "integer",
			metamodel.TypeBool:      "boolean",
			metamodel.TypeFloat:     "float",
			metamodel.TypeDouble:    "double",
			metamodel.TypeDecimal:   "numeric(%d,%d)",
			metamodel.TypeDate:      "date",
			metamodel.TypeTime:      "time",
			metamodel.TypeTimestamp: "timestamp",
			metamodel.TypeBytes:     "blob",
			metamodel.TypeUUID:      "varchar(36)",
		},
	}
}

func sqlserverDialect() Dialect {
	return Dialect{
		Name:             "sqlserver",
		And:              "and",
		Or:               "or",
		Not:              "not",
		Operators:        standardOperators,
		AsInFrom:         true,
		QuoteOpen:        "[",
		QuoteClose:       "]",
		Reserved:         reserved("identity", "top", "tran", "transaction"),
		True:             "1",
		False:            "0",
		CurrentDate:      "cast(getdate() as date)",
		CurrentTime:      "cast(getdate() as time)",
		CurrentTimestamp: "current_timestamp",
		ConcatOperator:   "+",
		Sequences:        true,
		Identity:         true,
		IdentityClause:   "identity(1,1)",
		SequenceDDL:      "create sequence %s start with %d increment by %d",
		NextValue:        "next value for %s",
		Types: map[metamodel.ValueType]string{
			metamodel.TypeString:    "nvarchar(%d)",
			metamodel.TypeText:      "nvarchar(max)",
			metamodel.TypeInt:       "int",
			metamodel.TypeLong:      "bigint",
			metamodel.TypeShort:     "smallint",
			metamodel.TypeBool:      "bit",
			metamodel.TypeFloat:     "real",
			metamodel.TypeDouble:    "float",
			metamodel.TypeDecimal:   "numeric(%d,%d)",
			metamodel.TypeDate:      "date",
			metamodel.TypeTime:      "time",
			metamodel.TypeTimestamp: "datetime2",
			metamodel.TypeBytes:     "varbinary(max)",
			metamodel.TypeUUID:      "uniqueidentifier",
		},
	}
}

func oracleDialect() Dialect {
	return Dialect{
		Name:             "oracle",
		And:              "and",
		Or:               "or",
		Not:              "not",
		Operators:        standardOperators,
		AsInFrom:         false,
		QuoteOpen:        `"`,
		QuoteClose:       `"`,
		Reserved:         reserved("level", "number", "rownum", "size", "uid", "comment"),
		True:             "1",
		False:            "0",
		CurrentDate:      "current_date",
		CurrentTime:      "current_timestamp",
		CurrentTimestamp: "current_timestamp",
		ConcatOperator:   "||",
		Sequences:        true,
		Identity:         true,
		IdentityClause:   "generated by default as identity",
		SequenceDDL:      "create sequence %s start with %d increment by %d",
		NextValue:        "%s.nextval",
		Types: map[metamodel.ValueType]string{
			metamodel.TypeString:    "varchar2(%d char)",
			metamodel.TypeText:      "clob",
			metamodel.TypeInt:       "number(10,0)",
			metamodel.TypeLong:      "number(19,0)",
			metamodel.TypeShort:     "number(5,0)",
			metamodel.TypeBool:      "number(1,0)",
			metamodel.TypeFloat:     "binary_float",
			metamodel.TypeDouble:    "binary_double",
			metamodel.TypeDecimal:   "number(%d,%d)",
			metamodel.TypeDate:      "date",
			metamodel.TypeTime:      "date",
			metamodel.TypeTimestamp: "timestamp",
			metamodel.TypeBytes:     "blob",
			metamodel.TypeUUID:      "varchar2(36)",
		},
	}
}

// Clone returns a copy of d sharing no maps with it.
func (d Dialect) Clone() Dialect {
	d.Operators = maps.Clone(d.Operators)
	d.Reserved = maps.Clone(d.Reserved)
	d.Types = maps.Clone(d.Types)
	return d
}

var (
	dialects map[string]Dialect
	aliases  = map[string]string{
		"postgres":  "postgresql",
		"cockroach": "cockroachdb",
		"mssql":     "sqlserver",
		"sqlite3":   "sqlite",
	}
)

func init() {
	dialects = make(map[string]Dialect)
	for _, d := range []Dialect{
		postgresDialect(),
		cockroachDialect(),
		mysqlDialect(),
		sqliteDialect(),
		sqlserverDialect(),
		oracleDialect(),
	} {
		dialects[d.Name] = d
	}
}

// LookupDialect returns the dialect registered for provider.
func LookupDialect(provider string) (Dialect, bool) {
	name := strings.ToLower(provider)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, false
	}
	return d.Clone(), true
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
