// Package executor applies generated DDL to a database and records each
// applied schema in a history table.
package executor

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/satishbabariya/entityql/diagnostics"
	"github.com/satishbabariya/entityql/internal/debug"
	"github.com/satishbabariya/entityql/query/sqlgen"
)

// HistoryTable records applied schemas.
const HistoryTable = "_entityql_schema"

// Executor runs ordered DDL statements against a database.
type Executor struct {
	db       *sql.DB
	provider string
}

// Record is one applied schema.
type Record struct {
	Name          string
	Checksum      string
	AppliedAt     time.Time
	ExecutionTime int64 // milliseconds
}

// NewExecutor creates an executor for db. Provider selects the history
// table DDL and placeholder style; dialect aliases such as "postgres" are
// accepted.
func NewExecutor(db *sql.DB, provider string) *Executor {
	if d, ok := sqlgen.LookupDialect(provider); ok {
		provider = d.Name
	}
	return &Executor{db: db, provider: provider}
}

// Checksum returns the hex SHA-256 of the statements joined by newlines.
func Checksum(statements []string) string {
	h := sha256.Sum256([]byte(strings.Join(statements, "\n")))
	return hex.EncodeToString(h[:])
}

// EnsureHistoryTable creates the history table if it does not exist.
func (e *Executor) EnsureHistoryTable(ctx context.Context) error {
	ddl, err := e.historySQL()
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Apply executes statements in order inside one transaction and records
// them under name. Nothing is recorded when a statement fails.
func (e *Executor) Apply(ctx context.Context, name string, statements []string) error {
	if err := e.EnsureHistoryTable(ctx); err != nil {
		return err
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	log := debug.With("schema", name, "provider", e.provider)
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			log.Error("schema statement failed", "statement", i+1, "error", err)
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	_, err = tx.ExecContext(ctx, e.insertSQL(),
		name,
		Checksum(statements),
		start.UTC(),
		time.Since(start).Milliseconds(),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record schema %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema %s: %w", name, err)
	}
	log.Info("applied schema", "statements", len(statements), "duration", time.Since(start))
	return nil
}

// Applied returns the recorded schemas ordered by application time.
func (e *Executor) Applied(ctx context.Context) ([]Record, error) {
	rows, err := e.db.QueryContext(ctx, "select name, checksum, applied_at, execution_time from "+HistoryTable+" order by applied_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Checksum, &r.AppliedAt, &r.ExecutionTime); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// historySQL returns the statement creating the history table unless it
// exists.
func (e *Executor) historySQL() (string, error) {
	const columns = " (name %s not null, checksum varchar(64) not null, applied_at %s not null, execution_time bigint not null, primary key (name))"
	switch e.provider {
	case "sqlserver":
		return "if object_id(N'" + HistoryTable + "', N'U') is null create table " + HistoryTable +
			fmt.Sprintf(columns, "nvarchar(255)", "datetime2"), nil
	case "oracle":
		// Oracle has no conditional create and rejects the unquoted name.
		return "", &diagnostics.UnsupportedDialectFeatureError{Dialect: e.provider, Feature: "schema history table"}
	default:
		return "create table if not exists " + HistoryTable + fmt.Sprintf(columns, "varchar(255)", "timestamp"), nil
	}
}

func (e *Executor) insertSQL() string {
	const insert = "insert into " + HistoryTable + " (name, checksum, applied_at, execution_time) values "
	switch e.provider {
	case "postgresql", "cockroachdb":
		return insert + "($1, $2, $3, $4)"
	case "sqlserver":
		return insert + "(@p1, @p2, @p3, @p4)"
	case "oracle":
		return insert + "(:1, :2, :3, :4)"
	default:
		return insert + "(?, ?, ?, ?)"
	}
}
