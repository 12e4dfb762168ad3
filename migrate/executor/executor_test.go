package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/migrate/executor"
)

const createHistory = "create table if not exists _entityql_schema (name varchar(255) not null, checksum varchar(64) not null, applied_at timestamp not null, execution_time bigint not null, primary key (name))"

var ddl = []string{
	"create table booking (dateof date not null, room_number integer not null, primary key (dateof, room_number))",
	"create table invoice (id bigint not null, b_dateof date not null, b_room_number integer not null, primary key (id), foreign key (b_dateof, b_room_number) references booking)",
}

func newMock(t *testing.T) (*executor.Executor, sqlmock.Sqlmock) {
	return newMockFor(t, "postgresql")
}

func newMockFor(t *testing.T, provider string) (*executor.Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return executor.NewExecutor(db, provider), mock
}

func TestApply(t *testing.T) {
	ex, mock := newMock(t)

	mock.ExpectExec(createHistory).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(ddl[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(ddl[1]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into _entityql_schema (name, checksum, applied_at, execution_time) values ($1, $2, $3, $4)").
		WithArgs("init", executor.Checksum(ddl), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ex.Apply(context.Background(), "init", ddl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	ex, mock := newMock(t)

	mock.ExpectExec(createHistory).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(ddl[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(ddl[1]).WillReturnError(errors.New("relation booking does not exist"))
	mock.ExpectRollback()

	err := ex.Apply(context.Background(), "init", ddl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplied(t *testing.T) {
	ex, mock := newMock(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select name, checksum, applied_at, execution_time from _entityql_schema order by applied_at").
		WillReturnRows(sqlmock.NewRows([]string{"name", "checksum", "applied_at", "execution_time"}).
			AddRow("init", "abc", at, int64(12)))

	records, err := ex.Applied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []executor.Record{{Name: "init", Checksum: "abc", AppliedAt: at, ExecutionTime: 12}}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecksum(t *testing.T) {
	assert.Len(t, executor.Checksum(ddl), 64)
	assert.Equal(t, executor.Checksum(ddl), executor.Checksum(append([]string{}, ddl...)))
	assert.NotEqual(t, executor.Checksum(ddl), executor.Checksum(ddl[:1]))
}

func TestEnsureHistoryTablePerProvider(t *testing.T) {
	tests := []struct {
		provider string
		ddl      string
	}{
		{"postgres", createHistory},
		{"mysql", createHistory},
		{"sqlite3", createHistory},
		{"mssql", "if object_id(N'_entityql_schema', N'U') is null create table _entityql_schema (name nvarchar(255) not null, checksum varchar(64) not null, applied_at datetime2 not null, execution_time bigint not null, primary key (name))"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			ex, mock := newMockFor(t, tt.provider)
			mock.ExpectExec(tt.ddl).WillReturnResult(sqlmock.NewResult(0, 0))
			require.NoError(t, ex.EnsureHistoryTable(context.Background()))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplySQLServer(t *testing.T) {
	ex, mock := newMockFor(t, "sqlserver")

	mock.ExpectExec("if object_id(N'_entityql_schema', N'U') is null create table _entityql_schema (name nvarchar(255) not null, checksum varchar(64) not null, applied_at datetime2 not null, execution_time bigint not null, primary key (name))").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(ddl[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into _entityql_schema (name, checksum, applied_at, execution_time) values (@p1, @p2, @p3, @p4)").
		WithArgs("init", executor.Checksum(ddl[:1]), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ex.Apply(context.Background(), "init", ddl[:1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyOracleIsUnsupported(t *testing.T) {
	ex, mock := newMockFor(t, "oracle")

	err := ex.Apply(context.Background(), "init", ddl)
	assert.ErrorIs(t, err, diagnostics.ErrUnsupportedFeature)
	// Nothing reaches the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}
