package compiler

import (
	"fmt"
	"strings"

	"smf/internal/catalog"
	"smf/internal/sqlfrag"
)

// CompileGroupBy builds `SELECT <fields>, COUNT(*) AS count FROM t [WHERE
// ...] GROUP BY <fields> [ORDER BY ...]`. fields must be non-empty; unknown
// field names are silently dropped. orderBy is already rendered ("" means
// the documented default of "-count").
func CompileGroupBy(table *catalog.Table, fields []string, where sqlfrag.Fragment, orderBy string) (Statement, error) {
	var known []string
	for _, f := range fields {
		if table.Column(f) != nil {
			known = append(known, f)
		}
	}
	if len(known) == 0 {
		return Statement{}, fmt.Errorf("compiler: groupby requires at least one known column, table %q", table.Name)
	}

	quoted := make([]string, len(known))
	for i, f := range known {
		quoted[i] = QuoteIdentifier(f)
	}
	fieldList := strings.Join(quoted, ", ")

	sql := fmt.Sprintf("SELECT %s, COUNT(*) AS count FROM %s", fieldList, QuoteIdentifier(table.Name))
	sql = sqlfrag.AppendTo(sql, where)
	sql += " GROUP BY " + fieldList

	if orderBy == "" {
		orderBy = "`count` DESC"
	}
	sql += " ORDER BY " + orderBy

	return Statement{SQL: sql, Args: where.Args}, nil
}
