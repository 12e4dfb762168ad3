package compiler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/testmodel"
	"github.com/satishbabariya/entityql/metamodel"
	"github.com/satishbabariya/entityql/query/compiler"
	"github.com/satishbabariya/entityql/query/sqlast"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

func setup(t *testing.T) (*compiler.Compiler, *sqlgen.Generator) {
	t.Helper()
	g, err := sqlgen.NewGenerator("postgresql")
	require.NoError(t, err)
	return compiler.New(testmodel.New()), g
}

func render(t *testing.T, g *sqlgen.Generator, stmt sqlast.Statement, err error) *sqlgen.Query {
	t.Helper()
	require.NoError(t, err)
	q, err := g.Render(stmt)
	require.NoError(t, err)
	return q
}

func TestSelectByForeignKey(t *testing.T) {
	c, g := setup(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		entity string
		attr   string
		key    metamodel.Key
		want   string
		params []sqlgen.Param
	}{
		{
			name:   "owning many-to-one",
			entity: "Employee",
			attr:   "department",
			key:    metamodel.Key{int64(3)},
			want:   "select employee0.id, employee0.salary, employee0.name, employee0.department_id from Employee AS employee0 where employee0.department_id = ?",
			params: []sqlgen.Param{{Value: int64(3), Type: metamodel.TypeLong}},
		},
		{
			name:   "inverse one-to-many",
			entity: "Department",
			attr:   "employees",
			key:    metamodel.Key{int64(3)},
			want:   "select employee0.id, employee0.salary, employee0.name, employee0.department_id from Employee AS employee0 where employee0.department_id = ?",
			params: []sqlgen.Param{{Value: int64(3), Type: metamodel.TypeLong}},
		},
		{
			name:   "one-to-many with join columns on target",
			entity: "Project",
			attr:   "tasks",
			key:    metamodel.Key{int64(9)},
			want:   "select task0.id, task0.summary from task AS task0 where task0.project_id = ?",
			params: []sqlgen.Param{{Value: int64(9), Type: metamodel.TypeLong}},
		},
		{
			name:   "embedded key",
			entity: "Invoice",
			attr:   "b",
			key:    metamodel.Key{day, 12},
			want:   "select invoice0.id, invoice0.amount, invoice0.b_dateof, invoice0.b_room_number from invoice AS invoice0 where invoice0.b_dateof = ? and invoice0.b_room_number = ?",
			params: []sqlgen.Param{{Value: day, Type: metamodel.TypeDate}, {Value: 12, Type: metamodel.TypeInt}},
		},
		{
			name:   "composite key",
			entity: "Reservation",
			attr:   "room",
			key:    metamodel.Key{"B", 101},
			want:   "select reservation0.id, reservation0.guest, reservation0.room_building, reservation0.room_number from reservation AS reservation0 where reservation0.room_building = ? and reservation0.room_number = ?",
			params: []sqlgen.Param{{Value: "B", Type: metamodel.TypeString}, {Value: 101, Type: metamodel.TypeInt}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := c.GenerateSelectByForeignKey(tt.entity, tt.attr, tt.key)
			q := render(t, g, sel, err)
			assert.Equal(t, tt.want, q.SQL)
			assert.Equal(t, tt.params, q.Params)
		})
	}
}

func TestSelectByForeignKeyRejectsJoinTable(t *testing.T) {
	c, _ := setup(t)
	_, err := c.GenerateSelectByForeignKey("Store", "items", metamodel.Key{int64(1)})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestSelectByJoinTable(t *testing.T) {
	c, g := setup(t)

	sel, err := c.GenerateSelectByJoinTable("Store", "items", metamodel.Key{int64(1)})
	q := render(t, g, sel, err)
	assert.Equal(t, "select item0.id, item0.model, item0.name from Item AS item0 INNER JOIN store_items AS store_items0 ON item0.id = store_items0.items_id where store_items0.Store_id = ?", q.SQL)
	assert.Equal(t, []any{int64(1)}, q.Args())

	sel, err = c.GenerateSelectByJoinTable("Item", "stores", metamodel.Key{int64(5)})
	q = render(t, g, sel, err)
	assert.Equal(t, "select store0.id, store0.name, store0.city, store0.zip from Store AS store0 INNER JOIN store_items AS store_items0 ON store0.id = store_items0.Store_id where store_items0.items_id = ?", q.SQL)

	sel, err = c.GenerateSelectByJoinTable("SimpleOrder", "lineItems", metamodel.Key{int64(2)})
	q = render(t, g, sel, err)
	assert.Equal(t, "select line_item0.id, line_item0.quantity, line_item0.shipped, line_item0.product_id from line_item AS line_item0 INNER JOIN simple_order_line_item AS simple_order_line_item0 ON line_item0.id = simple_order_line_item0.lineItems_id where simple_order_line_item0.SimpleOrder_id = ?", q.SQL)

	_, err = c.GenerateSelectByJoinTable("Employee", "department", metamodel.Key{int64(1)})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestSelectByPrimaryKey(t *testing.T) {
	c, g := setup(t)

	sel, err := c.GenerateSelectByPrimaryKey("Room", metamodel.Key{"B", 101})
	q := render(t, g, sel, err)
	assert.Equal(t, "select room0.building, room0.number, room0.floor from room AS room0 where room0.building = ? and room0.number = ?", q.SQL)
	assert.Equal(t, []any{"B", 101}, q.Args())

	_, err = c.GenerateSelectByPrimaryKey("Room", metamodel.Key{"B"})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestCompileSelect(t *testing.T) {
	c, g := setup(t)

	tests := []struct {
		name string
		cr   *compiler.Criteria
		want string
	}{
		{
			name: "null predicate",
			cr:   &compiler.Criteria{Root: "Address", Where: compiler.IsNull(compiler.Path("postcode"))},
			want: "select address0.id, address0.name, address0.postcode, address0.tt from Address AS address0 where address0.postcode is null",
		},
		{
			name: "navigation joins once",
			cr: &compiler.Criteria{
				Root:   "Employee",
				Select: []compiler.Expr{compiler.Path("department.name")},
				Where:  compiler.Equal(compiler.Path("department.name"), compiler.Param("dept", "R&D")),
			},
			want: "select department0.name from Employee AS employee0 INNER JOIN Department AS department0 ON employee0.department_id = department0.id where department0.name = ?",
		},
		{
			name: "explicit join through join table",
			cr: &compiler.Criteria{
				Root:      "SimpleOrder",
				RootAlias: "o",
				Distinct:  true,
				Select:    []compiler.Expr{compiler.Entity("o")},
				Joins:     []compiler.JoinSpec{compiler.Join("lineItems", "l")},
				Where:     compiler.Equal(compiler.PathOf("l", "shipped"), compiler.Lit(false)),
			},
			want: "select distinct simple_order0.id, simple_order0.customer from simple_order AS simple_order0 INNER JOIN simple_order_line_item AS simple_order_line_item0 ON simple_order0.id = simple_order_line_item0.SimpleOrder_id INNER JOIN line_item AS line_item0 ON simple_order_line_item0.lineItems_id = line_item0.id where line_item0.shipped = FALSE",
		},
		{
			name: "group by and having",
			cr: &compiler.Criteria{
				Root:    "Employee",
				Select:  []compiler.Expr{compiler.Path("department"), compiler.CountAll()},
				GroupBy: []compiler.Expr{compiler.Path("department")},
				Having:  compiler.Greater(compiler.CountAll(), compiler.Lit(2)),
			},
			want: "select employee0.department_id, count(*) from Employee AS employee0 group by employee0.department_id having count(*) > 2",
		},
		{
			name: "order by embedded attribute",
			cr: &compiler.Criteria{
				Root:    "Store",
				Select:  []compiler.Expr{compiler.Path("name")},
				OrderBy: []compiler.Order{compiler.Asc(compiler.Path("location")), compiler.Desc(compiler.Path("name"))},
			},
			want: "select store0.name from Store AS store0 order by store0.city, store0.zip, store0.name desc",
		},
		{
			name: "member of",
			cr: &compiler.Criteria{
				Root:  "Store",
				Where: compiler.MemberOf(compiler.Value(int64(4)), compiler.Path("items")),
			},
			want: "select store0.id, store0.name, store0.city, store0.zip from Store AS store0 where store0.id in (select store_items0.Store_id from store_items AS store_items0 where store_items0.items_id = ?)",
		},
		{
			name: "is empty",
			cr: &compiler.Criteria{
				Root:   "Store",
				Select: []compiler.Expr{compiler.Path("id")},
				Where:  compiler.IsEmpty(compiler.Path("items")),
			},
			want: "select store0.id from Store AS store0 where not exists (select 1 from store_items AS store_items0 where store_items0.Store_id = store0.id)",
		},
		{
			name: "correlated exists",
			cr: &compiler.Criteria{
				Root:      "Department",
				RootAlias: "d",
				Select:    []compiler.Expr{compiler.PathOf("d", "name")},
				Where: compiler.Exists(&compiler.Criteria{
					Root:      "Employee",
					RootAlias: "e",
					Where:     compiler.Equal(compiler.PathOf("e", "department"), compiler.Entity("d")),
				}),
			},
			want: "select department0.name from Department AS department0 where exists (select employee0.id from Employee AS employee0 where employee0.department_id = department0.id)",
		},
		{
			name: "in subquery",
			cr: &compiler.Criteria{
				Root:   "Employee",
				Select: []compiler.Expr{compiler.Path("name")},
				Where: compiler.InQuery(compiler.Path("department"), &compiler.Criteria{
					Root:  "Department",
					Where: compiler.Like(compiler.Path("name"), compiler.Lit("R%")),
				}),
			},
			want: "select employee0.name from Employee AS employee0 where employee0.department_id in (select department0.id from Department AS department0 where department0.name like 'R%')",
		},
		{
			name: "composite inequality",
			cr: &compiler.Criteria{
				Root:   "Reservation",
				Select: []compiler.Expr{compiler.Path("id")},
				Where:  compiler.NotEqual(compiler.Path("room"), compiler.Value(metamodel.Key{"A", 1})),
			},
			want: "select reservation0.id from reservation AS reservation0 where not (reservation0.room_building = ? and reservation0.room_number = ?)",
		},
		{
			name: "nested logic",
			cr: &compiler.Criteria{
				Root:   "Address",
				Select: []compiler.Expr{compiler.Path("id")},
				Where: compiler.And(
					compiler.Like(compiler.Path("name"), compiler.Value("A%")),
					compiler.Or(
						compiler.Between(compiler.Path("tt"), compiler.Value(1), compiler.Value(5)),
						compiler.Not(compiler.In(compiler.Path("tt"), compiler.Value(7), compiler.Value(8))),
					),
				),
			},
			want: "select address0.id from Address AS address0 where address0.name like ? and (address0.tt between ? and ? or address0.tt not in (?, ?))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := c.CompileSelect(tt.cr)
			q := render(t, g, sel, err)
			assert.Equal(t, tt.want, q.SQL)
		})
	}
}

func TestFurtherRanges(t *testing.T) {
	c, g := setup(t)

	sel, err := c.CompileSelect(&compiler.Criteria{
		Root:      "Employee",
		RootAlias: "e",
		Ranges:    []compiler.Range{{Entity: "Department", Alias: "d"}},
		Select:    []compiler.Expr{compiler.PathOf("e", "name"), compiler.PathOf("d", "name")},
		Where:     compiler.Equal(compiler.PathOf("e", "department"), compiler.Entity("d")),
	})
	q := render(t, g, sel, err)
	assert.Equal(t, "select employee0.name, department0.name from Employee AS employee0 CROSS JOIN Department AS department0 where employee0.department_id = department0.id", q.SQL)

	_, err = c.CompileSelect(&compiler.Criteria{Root: "Employee", Ranges: []compiler.Range{{Entity: "Department"}}})
	assert.ErrorIs(t, err, diagnostics.ErrSemantic)

	_, err = c.CompileSelect(&compiler.Criteria{Root: "Employee", Ranges: []compiler.Range{{Entity: "Nope", Alias: "n"}}})
	assert.ErrorIs(t, err, diagnostics.ErrUnknownEntity)
}

func TestFetchJoin(t *testing.T) {
	c, g := setup(t)

	sel, err := c.CompileSelect(&compiler.Criteria{Root: "Department", Joins: []compiler.JoinSpec{compiler.JoinFetch("employees")}})
	q := render(t, g, sel, err)
	assert.Equal(t, "select department0.id, department0.name, employee0.id, employee0.salary, employee0.name, employee0.department_id from Department AS department0 INNER JOIN Employee AS employee0 ON department0.id = employee0.department_id", q.SQL)
	require.Len(t, sel.Columns, 6)
	assert.Equal(t, "department_id", sel.Columns[5].Name)

	plain, err := c.CompileSelect(&compiler.Criteria{Root: "Department", Joins: []compiler.JoinSpec{compiler.Join("employees", "e")}})
	require.NoError(t, err)
	assert.Len(t, plain.Columns, 2)

	eager, err := c.CompileSelect(&compiler.Criteria{Root: "Employee", FetchEager: true})
	q = render(t, g, eager, err)
	assert.Equal(t, "select employee0.id, employee0.salary, employee0.name, employee0.department_id, department0.id, department0.name from Employee AS employee0 LEFT OUTER JOIN Department AS department0 ON employee0.department_id = department0.id", q.SQL)

	// To-many associations are lazy unless declared otherwise.
	lazy, err := c.CompileSelect(&compiler.Criteria{Root: "Department", FetchEager: true})
	require.NoError(t, err)
	assert.Empty(t, lazy.Joins)

	covered, err := c.CompileSelect(&compiler.Criteria{Root: "Employee", FetchEager: true, Joins: []compiler.JoinSpec{compiler.JoinFetch("department")}})
	q = render(t, g, covered, err)
	assert.Equal(t, "select employee0.id, employee0.salary, employee0.name, employee0.department_id, department0.id, department0.name from Employee AS employee0 INNER JOIN Department AS department0 ON employee0.department_id = department0.id", q.SQL)

	_, err = c.CompileSelect(&compiler.Criteria{
		Root:  "Department",
		Where: compiler.Exists(&compiler.Criteria{Root: "Employee", Joins: []compiler.JoinSpec{compiler.JoinFetch("department")}}),
	})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestSelectColumnsFollowEntityOrder(t *testing.T) {
	c, _ := setup(t)

	sel, err := c.CompileSelect(&compiler.Criteria{Root: "Invoice"})
	require.NoError(t, err)
	var names []string
	for _, col := range sel.Columns {
		names = append(names, col.Name)
	}
	assert.Equal(t, []string{"id", "amount", "b_dateof", "b_room_number"}, names)
}

func TestParameterAlignment(t *testing.T) {
	c, g := setup(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		entity string
		path   string
		key    metamodel.Key
		where  string
		types  []metamodel.ValueType
	}{
		{"Reservation", "room", metamodel.Key{"B", 101}, "reservation0.room_building = ? and reservation0.room_number = ?", []metamodel.ValueType{metamodel.TypeString, metamodel.TypeInt}},
		{"Invoice", "b", metamodel.Key{day, 12}, "invoice0.b_dateof = ? and invoice0.b_room_number = ?", []metamodel.ValueType{metamodel.TypeDate, metamodel.TypeInt}},
		{"Booking", "id", metamodel.Key{day, 12}, "booking0.dateof = ? and booking0.room_number = ?", []metamodel.ValueType{metamodel.TypeDate, metamodel.TypeInt}},
	}

	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			sel, err := c.CompileSelect(&compiler.Criteria{
				Root:   tt.entity,
				Select: []compiler.Expr{compiler.CountAll()},
				Where:  compiler.Equal(compiler.Path(tt.path), compiler.Param("k", tt.key)),
			})
			q := render(t, g, sel, err)
			assert.Contains(t, q.SQL, " where "+tt.where)
			require.Len(t, q.Params, len(tt.key))
			for i, p := range q.Params {
				assert.Equal(t, tt.key[i], p.Value)
				assert.Equal(t, tt.types[i], p.Type)
				assert.Equal(t, "k", p.Name)
			}
		})
	}

	_, err := c.CompileSelect(&compiler.Criteria{
		Root:  "Reservation",
		Where: compiler.Equal(compiler.Path("room"), compiler.Value(metamodel.Key{"B"})),
	})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)

	_, err = c.CompileSelect(&compiler.Criteria{
		Root:  "Reservation",
		Where: compiler.Greater(compiler.Path("room"), compiler.Value(metamodel.Key{"B", 1})),
	})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestExpandJoinColumnAttributes(t *testing.T) {
	mm := testmodel.New()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	invoice, err := mm.MustEntity("Invoice")
	require.NoError(t, err)
	b, ok := invoice.Attribute("b")
	require.True(t, ok)

	got, err := compiler.ExpandJoinColumnAttributes(b.Relationship, metamodel.Key{day, 12})
	require.NoError(t, err)
	assert.Equal(t, []compiler.Binding{
		{Column: "b_dateof", Value: day, Type: metamodel.TypeDate},
		{Column: "b_room_number", Value: 12, Type: metamodel.TypeInt},
	}, got)

	store, err := mm.MustEntity("Store")
	require.NoError(t, err)
	items, _ := store.Attribute("items")
	got, err = compiler.ExpandJoinColumnAttributes(items.Relationship, metamodel.Key{int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []compiler.Binding{{Column: "Store_id", Value: int64(1), Type: metamodel.TypeLong}}, got)

	_, err = compiler.ExpandJoinColumnAttributes(b.Relationship, metamodel.Key{day})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestUnresolvedPath(t *testing.T) {
	c, _ := setup(t)

	tests := []struct {
		name    string
		path    string
		segment string
	}{
		{"unknown attribute", "nope", "nope"},
		{"through basic attribute", "salary.amount", "amount"},
		{"unknown attribute of target", "department.budget", "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := c.CompileSelect(&compiler.Criteria{
				Root:  "Employee",
				Where: compiler.IsNull(compiler.Path(tt.path)),
			})
			assert.Nil(t, sel)
			require.ErrorIs(t, err, diagnostics.ErrUnresolvedPath)
			var upe *diagnostics.UnresolvedPathError
			require.True(t, errors.As(err, &upe))
			assert.Equal(t, tt.segment, upe.Segment)
		})
	}

	_, err := c.CompileSelect(&compiler.Criteria{Root: "Nobody"})
	assert.ErrorIs(t, err, diagnostics.ErrUnknownEntity)

	_, err = c.CompileSelect(&compiler.Criteria{Root: "Employee", Select: []compiler.Expr{compiler.PathOf("x", "name")}})
	assert.ErrorIs(t, err, diagnostics.ErrSemantic)
}

func TestDeleteNeedsConditions(t *testing.T) {
	c, _ := setup(t)

	_, err := c.GenerateDelete("Employee", nil)
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)

	_, err = c.GenerateDeleteWhere("Employee", nil)
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)

	_, err = c.GenerateDeleteJoinTable("Store", "items", nil, nil)
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestWrites(t *testing.T) {
	c, g := setup(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	ins, err := c.GenerateInsert("Employee", compiler.Row{
		"salary":     "1200.50",
		"name":       "Ann",
		"department": metamodel.Key{int64(2)},
	})
	q := render(t, g, ins, err)
	assert.Equal(t, "insert into Employee (salary, name, department_id) values (?, ?, ?)", q.SQL)
	assert.Equal(t, []any{"1200.50", "Ann", int64(2)}, q.Args())

	ins, err = c.GenerateInsert("Invoice", compiler.Row{"id": int64(1), "amount": "10.00", "b": metamodel.Key{day, 12}})
	q = render(t, g, ins, err)
	assert.Equal(t, "insert into invoice (id, amount, b_dateof, b_room_number) values (?, ?, ?, ?)", q.SQL)

	ins, err = c.GenerateInsert("Task", compiler.Row{"id": int64(1), "summary": "write", "project_id": int64(4)})
	q = render(t, g, ins, err)
	assert.Equal(t, "insert into task (id, summary, project_id) values (?, ?, ?)", q.SQL)

	_, err = c.GenerateInsert("Address", compiler.Row{"name": "home"})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)

	upd, err := c.GenerateUpdate("Employee", compiler.Row{"id": int64(1), "name": "Bo"})
	q = render(t, g, upd, err)
	assert.Equal(t, "update Employee set name = ? where id = ?", q.SQL)
	assert.Equal(t, []any{"Bo", int64(1)}, q.Args())

	_, err = c.GenerateUpdate("Employee", compiler.Row{"name": "Bo"})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)

	del, err := c.GenerateDelete("Booking", metamodel.Key{day, 12})
	q = render(t, g, del, err)
	assert.Equal(t, "delete from booking where dateof = ? and room_number = ?", q.SQL)

	del, err = c.GenerateDeleteWhere("Employee", compiler.Less(compiler.Path("salary"), compiler.Value(100)))
	q = render(t, g, del, err)
	assert.Equal(t, "delete from Employee where salary < ?", q.SQL)

	_, err = c.GenerateDeleteWhere("Employee", compiler.Equal(compiler.Path("department.name"), compiler.Value("x")))
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestBulkUpdate(t *testing.T) {
	c, g := setup(t)

	upd, err := c.CompileUpdate(&compiler.UpdateCriteria{
		Root:      "Employee",
		RootAlias: "e",
		Set:       []compiler.SetClause{compiler.Set("salary", compiler.Param("s", 10))},
		Where:     compiler.Equal(compiler.PathOf("e", "name"), compiler.Param("n", "x")),
	})
	q := render(t, g, upd, err)
	assert.Equal(t, "update Employee set salary = ? where name = ?", q.SQL)
	assert.Equal(t, []string{"s", "n"}, []string{q.Params[0].Name, q.Params[1].Name})

	_, err = c.CompileUpdate(&compiler.UpdateCriteria{Root: "Employee"})
	assert.ErrorIs(t, err, diagnostics.ErrInvalidStatement)
}

func TestJoinTableRows(t *testing.T) {
	c, g := setup(t)

	ins, err := c.GenerateInsertJoinTable("Store", "items", metamodel.Key{int64(1)}, metamodel.Key{int64(2)})
	q := render(t, g, ins, err)
	assert.Equal(t, "insert into store_items (Store_id, items_id) values (?, ?)", q.SQL)
	assert.Equal(t, []any{int64(1), int64(2)}, q.Args())

	ins, err = c.GenerateInsertJoinTable("Item", "stores", metamodel.Key{int64(2)}, metamodel.Key{int64(1)})
	q = render(t, g, ins, err)
	assert.Equal(t, "insert into store_items (items_id, Store_id) values (?, ?)", q.SQL)

	del, err := c.GenerateDeleteJoinTable("Store", "items", metamodel.Key{int64(1)}, nil)
	q = render(t, g, del, err)
	assert.Equal(t, "delete from store_items where Store_id = ?", q.SQL)

	del, err = c.GenerateDeleteJoinTable("Store", "items", metamodel.Key{int64(1)}, metamodel.Key{int64(2)})
	q = render(t, g, del, err)
	assert.Equal(t, "delete from store_items where Store_id = ? and items_id = ?", q.SQL)
}

func TestConcurrentCompilation(t *testing.T) {
	c, g := setup(t)
	const want = "select employee0.id, employee0.salary, employee0.name, employee0.department_id from Employee AS employee0 where employee0.department_id = ?"

	var eg errgroup.Group
	results := make([]string, 32)
	for i := range results {
		eg.Go(func() error {
			sel, err := c.GenerateSelectByForeignKey("Employee", "department", metamodel.Key{int64(i)})
			if err != nil {
				return err
			}
			q, err := g.Render(sel)
			if err != nil {
				return err
			}
			results[i] = q.SQL
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	for _, sql := range results {
		assert.Equal(t, want, sql)
	}
}
