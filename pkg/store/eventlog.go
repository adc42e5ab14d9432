package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/eventlog"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/writer"
)

// TableQuery returns the default query reading table in insertion order.
func TableQuery(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return "SELECT * FROM " + quoteIdent(table) + " ORDER BY rowid"
}

// ReadLog runs query and assembles its rows into a log. Columns are
// resolved by name with cfg, exactly like a CSV header; NULL attribute
// values are omitted.
func (s *Store) ReadLog(ctx context.Context, query string, cfg parser.Config) (*eventlog.Log, error) {
	result := NewQueryResult()
	if err := s.Query(ctx, result, query); err != nil {
		return nil, err
	}

	mapping, err := parser.NewColumnMapping(result.ColumnNames(), cfg)
	if err != nil {
		return nil, err
	}

	b := eventlog.NewBuilder()
	for i := 0; i < result.RowCount(); i++ {
		caseID, ev, err := mapping.Event(result.Row(i), i+1)
		if err != nil {
			return nil, err
		}
		b.Add(caseID, ev)
	}
	return b.Log(), nil
}

// WriteLog inserts every event of log into table inside one transaction.
// The table is created when missing, and attribute columns it lacks are
// added. All columns are text; timestamps use writer.TimestampLayout in UTC.
func (s *Store) WriteLog(ctx context.Context, log *eventlog.Log, table string) error {
	if table == "" {
		table = DefaultTable
	}
	keys := log.AttributeKeys()

	names := append(append([]string(nil), writer.CSVHeader...), keys...)
	cols := make([]string, len(names))
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
		cols[i] = quoted[i] + " TEXT"
	}
	create := "CREATE TABLE IF NOT EXISTS " + quoteIdent(table) + " (" + strings.Join(cols, ", ") + ")"
	if err := s.Exec(ctx, create); err != nil {
		return errors.Wrap(err, errors.CodeStoreWrite, "failed to create table").WithContext("table", table)
	}
	if err := s.ensureColumns(ctx, table, keys); err != nil {
		return err
	}

	insert := "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return errors.Wrap(err, errors.CodeStoreWrite, "failed to prepare insert")
		}
		defer stmt.Close()

		args := make([]interface{}, len(names))
		for _, t := range log.Traces() {
			for _, e := range t.Events() {
				args[0] = t.CaseID()
				args[1] = e.Activity
				args[2] = nullable(writer.FormatTimestamp(e.Timestamp))
				args[3] = nullable(e.Resource)
				for i, k := range keys {
					if v, ok := e.Attributes[k]; ok {
						args[4+i] = v
					} else {
						args[4+i] = nil
					}
				}
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return errors.Wrap(err, errors.CodeStoreWrite, "failed to insert event").
						WithContext("case_id", t.CaseID())
				}
			}
		}
		return nil
	})
}

// ensureColumns adds the attribute columns table does not have yet.
func (s *Store) ensureColumns(ctx context.Context, table string, keys []string) error {
	result := NewQueryResult()
	if err := s.Query(ctx, result, "SELECT * FROM "+quoteIdent(table)+" LIMIT 0"); err != nil {
		return err
	}
	existing := make(map[string]bool)
	for _, c := range result.ColumnNames() {
		existing[c] = true
	}
	for _, k := range keys {
		if existing[k] {
			continue
		}
		alter := "ALTER TABLE " + quoteIdent(table) + " ADD COLUMN " + quoteIdent(k) + " TEXT"
		if err := s.Exec(ctx, alter); err != nil {
			return errors.Wrap(err, errors.CodeStoreWrite, "failed to add column").WithContext("column", k)
		}
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
