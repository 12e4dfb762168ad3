package sqlgen

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/sqlast"
)

func mustGenerator(t *testing.T, provider string) *Generator {
	t.Helper()
	g, err := NewGenerator(provider)
	require.NoError(t, err)
	return g
}

// whereOf renders "select <root>.id from ... where <c>" and returns the
// condition text.
func whereOf(t *testing.T, g *Generator, root *sqlast.FromTable, c sqlast.Condition) string {
	t.Helper()
	q, err := g.Render(&sqlast.Select{
		Values: []sqlast.Value{sqlast.Col(root.Column("id"))},
		From:   root,
		Where:  c,
	})
	require.NoError(t, err)
	_, after, ok := strings.Cut(q.SQL, " where ")
	require.True(t, ok, q.SQL)
	return after
}

func TestRenderSelect(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	aliases := sqlast.NewAliasGenerator()
	employee := aliases.Table("Employee")

	q, err := g.Render(&sqlast.Select{
		Values: sqlast.Cols(employee.Columns("id", "salary", "name", "department_id")),
		From:   employee,
		Where:  sqlast.Eq(sqlast.Col(employee.Column("department_id")), sqlast.Bind(int64(7), metamodel.TypeLong)),
	})
	require.NoError(t, err)

	assert.Equal(t, "select employee0.id, employee0.salary, employee0.name, employee0.department_id from Employee AS employee0 where employee0.department_id = ?", q.SQL)
	assert.Equal(t, []string{"employee0.id", "employee0.salary", "employee0.name", "employee0.department_id"}, q.Columns)
	assert.Equal(t, []Param{{Value: int64(7), Type: metamodel.TypeLong}}, q.Params)
	assert.Equal(t, []any{int64(7)}, q.Args())
}

func TestRenderJoinsAndClauses(t *testing.T) {
	g := mustGenerator(t, "postgres")
	aliases := sqlast.NewAliasGenerator()
	emp := aliases.Table("Employee")
	dept := aliases.Table("Department")

	q, err := g.Render(&sqlast.Select{
		Distinct: true,
		Values:   []sqlast.Value{sqlast.Col(dept.Column("name")), sqlast.CountStar(), sqlast.Agg(sqlast.Avg, sqlast.Col(emp.Column("salary")), true)},
		From:     emp,
		Joins: []*sqlast.Join{{
			Kind:  sqlast.LeftJoin,
			Table: dept,
			From:  emp.Columns("department_id"),
			To:    dept.Columns("id"),
		}},
		GroupBy: []sqlast.Value{sqlast.Col(dept.Column("name"))},
		Having:  sqlast.Gt(sqlast.CountStar(), sqlast.Lit(2)),
		OrderBy: []sqlast.OrderItem{{Value: sqlast.Col(dept.Column("name")), Desc: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "select distinct department0.name, count(*), avg(distinct employee0.salary) from Employee AS employee0 LEFT OUTER JOIN Department AS department0 ON employee0.department_id = department0.id group by department0.name having count(*) > 2 order by department0.name desc", q.SQL)
}

func TestCompositeJoin(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	aliases := sqlast.NewAliasGenerator()
	invoice := aliases.Table("invoice")
	booking := aliases.Table("booking")

	q, err := g.Render(&sqlast.Select{
		Values: sqlast.Cols(invoice.Columns("id")),
		From:   invoice,
		Joins: []*sqlast.Join{{
			Table: booking,
			From:  invoice.Columns("b_dateof", "b_room_number"),
			To:    booking.Columns("dateof", "room_number"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "select invoice0.id from invoice AS invoice0 INNER JOIN booking AS booking0 ON invoice0.b_dateof = booking0.dateof AND invoice0.b_room_number = booking0.room_number", q.SQL)
}

func TestNegationRoundTrip(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	aliases := sqlast.NewAliasGenerator()
	address := aliases.Table("Address")
	other := aliases.Table("Address")
	tt := sqlast.Col(address.Column("tt"))
	name := sqlast.Col(address.Column("name"))

	tests := []struct {
		name    string
		cond    sqlast.Condition
		plain   string
		negated string
	}{
		{
			name:    "comparison",
			cond:    sqlast.Eq(tt, sqlast.Bind(1, metamodel.TypeInt)),
			plain:   "address0.tt = ?",
			negated: "not (address0.tt = ?)",
		},
		{
			name:    "null check",
			cond:    sqlast.IsNull(sqlast.Col(address.Column("postcode"))),
			plain:   "address0.postcode is null",
			negated: "address0.postcode is not null",
		},
		{
			name:    "between",
			cond:    sqlast.BetweenOf(tt, sqlast.Lit(1), sqlast.Lit(5)),
			plain:   "address0.tt between 1 and 5",
			negated: "address0.tt not between 1 and 5",
		},
		{
			name:    "like",
			cond:    sqlast.LikeOf(name, sqlast.Lit("a!%%"), sqlast.Lit("!")),
			plain:   "address0.name like 'a!%%' escape '!'",
			negated: "address0.name not like 'a!%%' escape '!'",
		},
		{
			name:    "in",
			cond:    sqlast.InOf(tt, sqlast.Lit(1), sqlast.Lit(2)),
			plain:   "address0.tt in (1, 2)",
			negated: "address0.tt not in (1, 2)",
		},
		{
			name: "exists",
			cond: sqlast.ExistsOf(&sqlast.Select{
				Values: []sqlast.Value{sqlast.Lit(1)},
				From:   other,
				Where:  sqlast.Eq(sqlast.Col(other.Column("id")), sqlast.Col(address.Column("id"))),
			}),
			plain:   "exists (select 1 from Address AS address1 where address1.id = address0.id)",
			negated: "not exists (select 1 from Address AS address1 where address1.id = address0.id)",
		},
		{
			name:    "logical",
			cond:    sqlast.Or(sqlast.Eq(tt, sqlast.Lit(1)), sqlast.Eq(tt, sqlast.Lit(2))),
			plain:   "address0.tt = 1 or address0.tt = 2",
			negated: "not (address0.tt = 1 or address0.tt = 2)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.plain, whereOf(t, g, address, tc.cond))
			assert.Equal(t, tc.negated, whereOf(t, g, address, sqlast.Negate(tc.cond)))
			assert.Equal(t, tc.plain, whereOf(t, g, address, sqlast.Negate(sqlast.Negate(tc.cond))))
		})
	}
}

func TestNestedParamsInTextOrder(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	root := sqlast.NewAliasGenerator().Table("Address")
	col := func(n string) sqlast.Value { return sqlast.Col(root.Column(n)) }
	p := func(v int) sqlast.Value { return sqlast.Bind(v, metamodel.TypeInt) }

	cond := sqlast.And(
		sqlast.Eq(col("a"), p(1)),
		sqlast.Or(
			sqlast.Eq(col("b"), p(2)),
			sqlast.And(sqlast.Eq(col("c"), p(3)), sqlast.BetweenOf(col("d"), p(4), p(5))),
		),
		sqlast.InOf(col("e"), p(6), p(7)),
	)
	q, err := g.Render(&sqlast.Select{Values: []sqlast.Value{col("id")}, From: root, Where: cond})
	require.NoError(t, err)

	assert.Equal(t, "select address0.id from Address AS address0 where address0.a = ? and (address0.b = ? or (address0.c = ? and address0.d between ? and ?)) and address0.e in (?, ?)", q.SQL)
	assert.Equal(t, []any{1, 2, 3, 4, 5, 6, 7}, q.Args())
	assert.Equal(t, strings.Count(q.SQL, "?"), len(q.Params))
}

func TestHandBuiltLogicalIsParenthesized(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	root := sqlast.NewAliasGenerator().Table("Address")
	a := sqlast.IsNull(sqlast.Col(root.Column("a")))
	b := sqlast.IsNull(sqlast.Col(root.Column("b")))

	cond := &sqlast.Logical{Op: sqlast.OpAnd, Conditions: []sqlast.Condition{
		&sqlast.Logical{Op: sqlast.OpOr, Conditions: []sqlast.Condition{a, b}},
		a,
	}}
	assert.Equal(t, "(address0.a is null or address0.b is null) and address0.a is null", whereOf(t, g, root, cond))
}

func TestDialectDifferences(t *testing.T) {
	build := func() *sqlast.Select {
		aliases := sqlast.NewAliasGenerator()
		li := aliases.Table("line_item")
		return &sqlast.Select{
			Values: []sqlast.Value{
				sqlast.Col(li.Column("order")),
				&sqlast.Concat{Args: []sqlast.Value{sqlast.Col(li.Column("name")), sqlast.Lit("-")}},
				&sqlast.CurrentTemporal{Kind: sqlast.CurrentDate},
			},
			From:  li,
			Where: sqlast.Eq(sqlast.Col(li.Column("shipped")), sqlast.Lit(false)),
		}
	}

	tests := []struct {
		provider string
		want     string
	}{
		{"postgresql", `select line_item0."order", line_item0.name || '-', current_date from line_item AS line_item0 where line_item0.shipped = FALSE`},
		{"cockroachdb", `select line_item0."order", line_item0.name || '-', current_date from line_item AS line_item0 where line_item0.shipped = FALSE`},
		{"mysql", "select line_item0.`order`, concat(line_item0.name, '-'), current_date() from line_item AS line_item0 where line_item0.shipped = FALSE"},
		{"sqlite", `select line_item0."order", line_item0.name || '-', current_date from line_item AS line_item0 where line_item0.shipped = 0`},
		{"sqlserver", "select line_item0.[order], line_item0.name + '-', cast(getdate() as date) from line_item AS line_item0 where line_item0.shipped = 0"},
		{"oracle", `select line_item0."order", line_item0.name || '-', current_date from line_item line_item0 where line_item0.shipped = 0`},
	}
	for _, tc := range tests {
		t.Run(tc.provider, func(t *testing.T) {
			q, err := mustGenerator(t, tc.provider).Render(build())
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.SQL)
		})
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	root := sqlast.NewAliasGenerator().Table("Product")
	price := sqlast.Col(root.Column("price"))

	tests := []struct {
		expr sqlast.Value
		want string
	}{
		{sqlast.Arith(sqlast.Mul, sqlast.Arith(sqlast.Add, price, sqlast.Lit(1)), sqlast.Lit(2)), "(product0.price + 1) * 2"},
		{sqlast.Arith(sqlast.Add, price, sqlast.Arith(sqlast.Mul, sqlast.Lit(1), sqlast.Lit(2))), "product0.price + 1 * 2"},
		{sqlast.Arith(sqlast.Sub, price, sqlast.Arith(sqlast.Sub, sqlast.Lit(1), sqlast.Lit(2))), "product0.price - (1 - 2)"},
		{sqlast.Arith(sqlast.Sub, sqlast.Arith(sqlast.Sub, price, sqlast.Lit(1)), sqlast.Lit(2)), "product0.price - 1 - 2"},
	}
	for _, tc := range tests {
		q, err := g.Render(&sqlast.Select{Values: []sqlast.Value{tc.expr}, From: root})
		require.NoError(t, err)
		assert.Equal(t, "select "+tc.want+" from Product AS product0", q.SQL)
	}
}

func TestRenderWrites(t *testing.T) {
	g := mustGenerator(t, "postgresql")
	emp := sqlast.NewAliasGenerator().Table("Employee")

	insert, err := g.Render(&sqlast.Insert{
		Table:   "Employee",
		Columns: []string{"salary", "name"},
		Values:  []sqlast.Value{sqlast.Bind(10, metamodel.TypeDecimal), sqlast.Bind("ann", metamodel.TypeString)},
	})
	require.NoError(t, err)
	assert.Equal(t, "insert into Employee (salary, name) values (?, ?)", insert.SQL)
	assert.Equal(t, []any{10, "ann"}, insert.Args())

	update, err := g.Render(&sqlast.Update{
		Table: emp,
		Set:   []sqlast.Assignment{{Column: "salary", Value: sqlast.Bind(11, metamodel.TypeDecimal)}},
		Where: sqlast.Eq(sqlast.Col(emp.Column("id")), sqlast.Bind(1, metamodel.TypeLong)),
	})
	require.NoError(t, err)
	assert.Equal(t, "update Employee set salary = ? where id = ?", update.SQL)
	assert.Equal(t, []any{11, 1}, update.Args())

	del, err := g.Render(&sqlast.Delete{
		Table: emp,
		Where: sqlast.Eq(sqlast.Col(emp.Column("id")), sqlast.Bind(1, metamodel.TypeLong)),
	})
	require.NoError(t, err)
	assert.Equal(t, "delete from Employee where id = ?", del.SQL)

	_, err = g.Render(&sqlast.Insert{Table: "Employee", Columns: []string{"a"}})
	assert.True(t, errors.Is(err, diagnostics.ErrInvalidStatement))
}

func TestRenderDDL(t *testing.T) {
	invoice := &sqlast.CreateTable{
		Name: "invoice",
		Columns: []sqlast.ColumnDef{
			{Name: "id", Type: metamodel.TypeLong},
			{Name: "amount", Type: metamodel.TypeDecimal, Nullable: true},
			{Name: "b_dateof", Type: metamodel.TypeDate},
			{Name: "b_room_number", Type: metamodel.TypeInt},
		},
		PrimaryKey:  []string{"id"},
		ForeignKeys: []sqlast.ForeignKey{{Columns: []string{"b_dateof", "b_room_number"}, References: "booking"}},
	}

	sql, err := mustGenerator(t, "postgresql").RenderDDL(invoice)
	require.NoError(t, err)
	assert.Equal(t, "create table invoice (id bigint not null, amount numeric(19,2), b_dateof date not null, b_room_number integer not null, primary key (id), foreign key (b_dateof, b_room_number) references booking)", sql)

	employee := &sqlast.CreateTable{
		Name: "Employee",
		Columns: []sqlast.ColumnDef{
			{Name: "id", Type: metamodel.TypeLong, Identity: true},
			{Name: "name", Type: metamodel.TypeString, Length: 80, Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}
	tests := map[string]string{
		"postgresql": "create table Employee (id bigint generated by default as identity not null, name varchar(80), primary key (id))",
		"mysql":      "create table Employee (id bigint auto_increment not null, name varchar(80), primary key (id))",
		"sqlite":     "create table Employee (id integer not null, name varchar(80), primary key (id))",
		"sqlserver":  "create table Employee (id bigint identity(1,1) not null, name nvarchar(80), primary key (id))",
		"oracle":     "create table Employee (id number(19,0) generated by default as identity not null, name varchar2(80 char), primary key (id))",
	}
	for provider, want := range tests {
		sql, err := mustGenerator(t, provider).RenderDDL(employee)
		require.NoError(t, err, provider)
		assert.Equal(t, want, sql, provider)
	}

	_, err = mustGenerator(t, "postgresql").RenderDDL(&sqlast.Delete{Table: &sqlast.FromTable{Name: "x"}})
	assert.True(t, errors.Is(err, diagnostics.ErrInvalidStatement))
}

func TestSequences(t *testing.T) {
	seq := &sqlast.CreateSequence{Name: "department_seq"}

	sql, err := mustGenerator(t, "postgresql").RenderDDL(seq)
	require.NoError(t, err)
	assert.Equal(t, "create sequence department_seq start with 1 increment by 1", sql)

	_, err = mustGenerator(t, "mysql").RenderDDL(seq)
	assert.True(t, errors.Is(err, diagnostics.ErrUnsupportedFeature))

	next, err := mustGenerator(t, "postgresql").NextValue("department_seq")
	require.NoError(t, err)
	assert.Equal(t, "select nextval('department_seq')", next)

	next, err = mustGenerator(t, "oracle").NextValue("department_seq")
	require.NoError(t, err)
	assert.Equal(t, "select department_seq.nextval from dual", next)
}

func TestResolveGeneration(t *testing.T) {
	tests := []struct {
		provider string
		in       metamodel.GenerationStrategy
		want     metamodel.GenerationStrategy
		fails    bool
	}{
		{"postgresql", metamodel.GenerationSequence, metamodel.GenerationSequence, false},
		{"postgresql", metamodel.GenerationAuto, metamodel.GenerationSequence, false},
		{"mysql", metamodel.GenerationSequence, metamodel.GenerationIdentity, false},
		{"mysql", metamodel.GenerationAuto, metamodel.GenerationIdentity, false},
		{"sqlite", metamodel.GenerationSequence, "", true},
		{"sqlite", metamodel.GenerationIdentity, metamodel.GenerationIdentity, false},
		{"sqlserver", metamodel.GenerationNone, metamodel.GenerationNone, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%s", tc.provider, tc.in), func(t *testing.T) {
			got, err := mustGenerator(t, tc.provider).ResolveGeneration(tc.in)
			if tc.fails {
				require.Error(t, err)
				assert.True(t, errors.Is(err, diagnostics.ErrUnsupportedFeature))
				assert.Contains(t, err.Error(), "sequences")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLookupDialect(t *testing.T) {
	_, err := NewGenerator("db2")
	assert.Error(t, err)

	d, ok := LookupDialect("Postgres")
	require.True(t, ok)
	assert.Equal(t, "postgresql", d.Name)
	assert.Equal(t, []string{"cockroachdb", "mysql", "oracle", "postgresql", "sqlite", "sqlserver"}, Dialects())

	custom := d
	custom.AsInFrom = false
	g := NewGeneratorWithDialect(custom)
	q, err := g.Render(&sqlast.Select{Values: []sqlast.Value{sqlast.Lit(1)}, From: &sqlast.FromTable{Name: "t", Alias: "t0"}})
	require.NoError(t, err)
	assert.Equal(t, "select 1 from t t0", q.SQL)
}

func TestDialectCopiesAreIndependent(t *testing.T) {
	t0 := &sqlast.FromTable{Name: "t", Alias: "t0"}
	sel := &sqlast.Select{
		Values: []sqlast.Value{sqlast.Lit(1)},
		From:   t0,
		Where:  sqlast.Eq(sqlast.Lit(1), sqlast.Lit(1)),
	}

	pg := mustGenerator(t, "postgresql")
	d := pg.Dialect()
	d.Operators[sqlast.OpEq] = "=="
	d.Reserved["t"] = true
	d.Types[metamodel.TypeLong] = "number"

	for _, g := range []*Generator{pg, mustGenerator(t, "mysql"), mustGenerator(t, "postgresql")} {
		q, err := g.Render(sel)
		require.NoError(t, err)
		assert.Equal(t, "select 1 from t AS t0 where 1 = 1", q.SQL, g.Dialect().Name)
	}

	looked, ok := LookupDialect("postgresql")
	require.True(t, ok)
	looked.Operators[sqlast.OpNe] = "!="
	custom := NewGeneratorWithDialect(looked)
	looked.Operators[sqlast.OpEq] = "=="

	q, err := custom.Render(sel)
	require.NoError(t, err)
	assert.Equal(t, "select 1 from t AS t0 where 1 = 1", q.SQL)
	assert.Equal(t, "<>", mustGenerator(t, "postgresql").Dialect().Operators[sqlast.OpNe])

	ct, err := pg.RenderDDL(&sqlast.CreateTable{Name: "t", Columns: []sqlast.ColumnDef{{Name: "id", Type: metamodel.TypeLong}}, PrimaryKey: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, "create table t (id bigint not null, primary key (id))", ct)
}

func TestQuote(t *testing.T) {
	d, _ := LookupDialect("postgresql")
	assert.Equal(t, "Store_id", d.Quote("Store_id"))
	assert.Equal(t, `"user"`, d.Quote("user"))
	assert.Equal(t, `"first name"`, d.Quote("first name"))
	assert.Equal(t, `"a""b"`, d.Quote(`a"b`))

	ms, _ := LookupDialect("mssql")
	assert.Equal(t, "[order]", ms.Quote("order"))
}

func TestConcurrentRender(t *testing.T) {
	g := mustGenerator(t, "postgresql")

	var eg errgroup.Group
	results := make([]string, 64)
	for i := range results {
		eg.Go(func() error {
			aliases := sqlast.NewAliasGenerator()
			root := aliases.Table("Employee")
			q, err := g.Render(&sqlast.Select{
				Values: sqlast.Cols(root.Columns("id", "name")),
				From:   root,
				Where: sqlast.And(
					sqlast.Eq(sqlast.Col(root.Column("id")), sqlast.Bind(i, metamodel.TypeLong)),
					sqlast.IsNotNull(sqlast.Col(root.Column("name"))),
				),
			})
			if err != nil {
				return err
			}
			if len(q.Params) != 1 || q.Params[0].Value != i {
				return fmt.Errorf("render %d got params %v", i, q.Params)
			}
			results[i] = q.SQL
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	for _, sql := range results {
		assert.Equal(t, "select employee0.id, employee0.name from Employee AS employee0 where employee0.id = ? and employee0.name is not null", sql)
	}
}
