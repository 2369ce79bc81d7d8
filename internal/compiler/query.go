package compiler

import (
	"fmt"

	"smf/internal/catalog"
	"smf/internal/selectplan"
	"smf/internal/sqlfrag"
)

// CompileSelect builds the main list/read/relational query: column list per
// tree, WHERE per where, ORDER BY per orderBy (already rendered, "" for
// none), and LIMIT/OFFSET when limit >= 0 (limit < 0 means "no limit",
// used by the primary-key re-selects of the mutation handlers; read and
// exists pass a limit of 1).
func CompileSelect(cat *catalog.Catalog, table *catalog.Table, tree *selectplan.Tree, where sqlfrag.Fragment, orderBy string, limit, offset int) (Statement, error) {
	cols, err := CompileColumnList(cat, table, tree)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", cols, QuoteIdentifier(table.Name))
	sql = sqlfrag.AppendTo(sql, where)

	if orderBy != "" {
		sql += " ORDER BY " + orderBy
	}
	if limit >= 0 {
		sql += " LIMIT ? OFFSET ?"
		return Statement{SQL: sql, Args: append(append([]any{}, where.Args...), limit, offset)}, nil
	}

	return Statement{SQL: sql, Args: where.Args}, nil
}

// CompileCount builds `SELECT COUNT(1) AS no_of_rows FROM t [WHERE ...]`,
// sharing the same WHERE fragment as the paired list query so the two
// report consistent totals.
func CompileCount(table *catalog.Table, where sqlfrag.Fragment) Statement {
	sql := fmt.Sprintf("SELECT COUNT(1) AS no_of_rows FROM %s", QuoteIdentifier(table.Name))
	sql = sqlfrag.AppendTo(sql, where)
	return Statement{SQL: sql, Args: where.Args}
}
