// Package store reads and writes event logs in a relational database.
//
// Two database/sql drivers are supported: "duckdb" (embedded analytical
// engine, an empty DSN opens an in-memory database) and "sqlite" (pure-Go
// SQLite, the DSN is a file path or ":memory:").
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	"github.com/logflow/procmine/pkg/errors"
)

// Supported driver names.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// DefaultTable is the table used when none is given.
const DefaultTable = "events"

// Store wraps a database handle.
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens a store with the given driver and DSN and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverDuckDB:
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
	default:
		return nil, errors.New(errors.CodeInvalidConfig, "unsupported store driver").
			WithContext("driver", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreOpen, "failed to open store").
			WithContext("driver", driver)
	}
	if driver == DriverSQLite {
		// An in-memory SQLite database exists per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeStoreOpen, "failed to connect to store").
			WithContext("driver", driver)
	}

	return &Store{db: db, driver: driver}, nil
}

// Driver returns the driver name.
func (s *Store) Driver() string {
	return s.driver
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exec runs a statement that returns no rows.
func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, errors.CodeStoreQuery, "statement failed").
			WithContext("query", query)
	}
	return nil
}

// Query runs query and appends every row to result. Column names are set
// from the first query run into an empty result.
func (s *Store) Query(ctx context.Context, result *QueryResult, query string, args ...interface{}) error {
	return queryInto(ctx, s.db, result, query, args...)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to commit transaction")
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryInto(ctx context.Context, q queryer, result *QueryResult, query string, args ...interface{}) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreQuery, "query failed").WithContext("query", query)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreQuery, "failed to read columns")
	}
	if len(result.columns) == 0 {
		result.setColumns(cols)
	}

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrap(err, errors.CodeStoreQuery, "failed to scan row")
		}
		row := make([]sql.NullString, len(cols))
		for i, v := range values {
			row[i] = nullString(v)
		}
		result.addRow(row)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.CodeStoreQuery, "row iteration failed")
	}
	return nil
}

// nullString renders a scanned driver value as text.
func nullString(v interface{}) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: x, Valid: true}
	case []byte:
		return sql.NullString{String: string(x), Valid: true}
	case time.Time:
		return sql.NullString{String: x.UTC().Format(time.RFC3339Nano), Valid: true}
	default:
		return sql.NullString{String: fmt.Sprint(x), Valid: true}
	}
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
