package store

import (
	"database/sql"
	"strconv"

	"github.com/logflow/procmine/pkg/errors"
)

// QueryResult accumulates the rows of one or more queries. Each caller owns
// its result; nothing is shared between queries.
type QueryResult struct {
	columns []string
	index   map[string]int
	rows    [][]sql.NullString
}

// NewQueryResult creates an empty result.
func NewQueryResult() *QueryResult {
	return &QueryResult{}
}

func (r *QueryResult) setColumns(cols []string) {
	r.columns = append([]string(nil), cols...)
	r.index = make(map[string]int, len(cols))
	for i, c := range cols {
		if _, ok := r.index[c]; !ok {
			r.index[c] = i
		}
	}
}

func (r *QueryResult) addRow(row []sql.NullString) {
	r.rows = append(r.rows, row)
}

// RowCount returns the number of rows.
func (r *QueryResult) RowCount() int {
	return len(r.rows)
}

// ColumnCount returns the number of columns.
func (r *QueryResult) ColumnCount() int {
	return len(r.columns)
}

// ColumnNames returns the column names in query order.
func (r *QueryResult) ColumnNames() []string {
	return append([]string(nil), r.columns...)
}

// ColumnIndex returns the position of the named column.
func (r *QueryResult) ColumnIndex(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return -1, errors.MissingColumn(name, r.columns)
	}
	return i, nil
}

func (r *QueryResult) cell(row, col int) (sql.NullString, error) {
	if row < 0 || row >= len(r.rows) || col < 0 || col >= len(r.rows[row]) {
		return sql.NullString{}, errors.New(errors.CodeStoreQuery, "row or column index out of range").
			WithContext("row", row).
			WithContext("column", col)
	}
	return r.rows[row][col], nil
}

// String returns a cell as text; NULL is returned as "".
func (r *QueryResult) String(row, col int) (string, error) {
	c, err := r.cell(row, col)
	return c.String, err
}

// StringByName returns a cell of the named column as text.
func (r *QueryResult) StringByName(row int, name string) (string, error) {
	col, err := r.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	return r.String(row, col)
}

// Int returns a cell parsed as an integer.
func (r *QueryResult) Int(row, col int) (int, error) {
	s, err := r.String(row, col)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQuery, "cannot convert value to int").
			WithContext("value", s)
	}
	return n, nil
}

// IntByName returns a cell of the named column parsed as an integer.
func (r *QueryResult) IntByName(row int, name string) (int, error) {
	col, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.Int(row, col)
}

// Float returns a cell parsed as a float.
func (r *QueryResult) Float(row, col int) (float64, error) {
	s, err := r.String(row, col)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreQuery, "cannot convert value to float").
			WithContext("value", s)
	}
	return f, nil
}

// FloatByName returns a cell of the named column parsed as a float.
func (r *QueryResult) FloatByName(row int, name string) (float64, error) {
	col, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.Float(row, col)
}

// IsNull reports whether a cell is NULL.
func (r *QueryResult) IsNull(row, col int) (bool, error) {
	c, err := r.cell(row, col)
	return !c.Valid, err
}

// IsNullByName reports whether a cell of the named column is NULL.
func (r *QueryResult) IsNullByName(row int, name string) (bool, error) {
	col, err := r.ColumnIndex(name)
	if err != nil {
		return false, err
	}
	return r.IsNull(row, col)
}

// Row returns a copy of one row as text, NULLs as "".
func (r *QueryResult) Row(row int) []string {
	if row < 0 || row >= len(r.rows) {
		return nil
	}
	out := make([]string, len(r.rows[row]))
	for i, c := range r.rows[row] {
		out[i] = c.String
	}
	return out
}
