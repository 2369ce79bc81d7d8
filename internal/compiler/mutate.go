package compiler

import (
	"fmt"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"

	"smf/internal/catalog"
	"smf/internal/sqlfrag"
)

// UpsertMode selects the ON DUPLICATE KEY behavior for CompileInsert,
// resolved from the request's Resolution header.
type UpsertMode int

const (
	UpsertNone UpsertMode = iota
	UpsertMergeDuplicates
	UpsertIgnoreDuplicates
)

// PreSerializeJSONColumns JSON-encodes the value of every column in row
// whose catalog type is JSON, in place, so the driver binds text rather
// than a Go map/slice it has no encoding for.
func PreSerializeJSONColumns(table *catalog.Table, row map[string]any) error {
	for col, v := range row {
		c := table.Column(col)
		if c == nil || c.Type != catalog.DataTypeJSON {
			continue
		}
		if _, isString := v.(string); isString {
			continue
		}
		encoded, err := gojson.Marshal(v)
		if err != nil {
			return fmt.Errorf("compiler: encoding JSON column %q: %w", col, err)
		}
		row[col] = string(encoded)
	}
	return nil
}

// sortedColumnNames returns row's keys restricted to known columns of
// table, sorted for deterministic column ordering.
func sortedColumnNames(table *catalog.Table, row map[string]any) []string {
	var names []string
	for k := range row {
		if table.Column(k) != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// CompileInsert builds INSERT [IGNORE] INTO t (...) VALUES (...), (...) for
// one or more rows, applying mode's upsert behavior. Every row binds the
// same column set, taken from the first row; a later row missing one of
// those columns binds SQL NULL for it.
func CompileInsert(table *catalog.Table, rows []map[string]any, mode UpsertMode) (Statement, error) {
	if len(rows) == 0 {
		return Statement{}, fmt.Errorf("compiler: CompileInsert requires at least one row")
	}

	for _, row := range rows {
		if err := PreSerializeJSONColumns(table, row); err != nil {
			return Statement{}, err
		}
	}

	cols := sortedColumnNames(table, rows[0])
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("compiler: no known columns in insert row for table %q", table.Name)
	}

	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = QuoteIdentifier(c)
	}
	placeholderGroup := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	var args []any
	groups := make([]string, len(rows))
	for i, row := range rows {
		groups[i] = placeholderGroup
		for _, c := range cols {
			args = append(args, row[c])
		}
	}

	ignore := ""
	if mode == UpsertIgnoreDuplicates {
		ignore = "IGNORE "
	}

	sql := fmt.Sprintf("INSERT %sINTO %s (%s) VALUES %s",
		ignore, QuoteIdentifier(table.Name), strings.Join(quotedCols, ", "), strings.Join(groups, ", "))

	if mode == UpsertMergeDuplicates {
		var updates []string
		for _, c := range cols {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", QuoteIdentifier(c), QuoteIdentifier(c)))
		}
		sql += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}

	return Statement{SQL: sql, Args: args}, nil
}

// CompileInsertReturning builds the follow-up SELECT for
// Prefer: return=representation after an auto-increment single-column PK
// insert: `SELECT * FROM t WHERE pk BETWEEN firstInsertId AND
// firstInsertId + affectedRows - 1`.
func CompileInsertReturning(table *catalog.Table, firstInsertID, affectedRows int64) (Statement, error) {
	if len(table.PrimaryKey) != 1 {
		return Statement{}, fmt.Errorf(
			"compiler: CompileInsertReturning requires a single-column primary key, table %q has %d",
			table.Name, len(table.PrimaryKey))
	}
	pk := QuoteIdentifier(table.PrimaryKey[0].Name)
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s BETWEEN ? AND ?", QuoteIdentifier(table.Name), pk)
	return Statement{SQL: sql, Args: []any{firstInsertID, firstInsertID + affectedRows - 1}}, nil
}

// CompileUpdate builds `UPDATE t SET ... WHERE <where>`, pre-serializing
// JSON columns in set first.
func CompileUpdate(table *catalog.Table, set map[string]any, where sqlfrag.Fragment) (Statement, error) {
	if err := PreSerializeJSONColumns(table, set); err != nil {
		return Statement{}, err
	}

	cols := sortedColumnNames(table, set)
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("compiler: no known columns to update for table %q", table.Name)
	}

	var assignments []string
	var args []any
	for _, c := range cols {
		assignments = append(assignments, QuoteIdentifier(c)+" = ?")
		args = append(args, set[c])
	}
	args = append(args, where.Args...)

	sql := fmt.Sprintf("UPDATE %s SET %s", QuoteIdentifier(table.Name), strings.Join(assignments, ", "))
	sql = sqlfrag.AppendTo(sql, where)

	return Statement{SQL: sql, Args: args}, nil
}

// CompileDelete builds `DELETE FROM t [WHERE <where>]`. An empty where
// fragment deletes every row, matching PostgREST's documented default.
func CompileDelete(table *catalog.Table, where sqlfrag.Fragment) Statement {
	sql := fmt.Sprintf("DELETE FROM %s", QuoteIdentifier(table.Name))
	sql = sqlfrag.AppendTo(sql, where)
	return Statement{SQL: sql, Args: where.Args}
}
