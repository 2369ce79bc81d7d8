package compiler

import (
	"fmt"
	"strings"

	"smf/internal/catalog"
	"smf/internal/sqlfrag"
)

// aggregateFuncs are the functions emitted per field by CompileAggregate,
// each aliased "<fn>_of_<field>".
var aggregateFuncs = []string{"MIN", "MAX", "AVG", "SUM", "STDDEV", "VARIANCE"}

// CompileAggregate builds one SELECT computing min/max/avg/sum/stddev/
// variance for each field, e.g. `SELECT MIN(col) AS min_of_col, ... FROM t
// [WHERE ...]`. Unknown field names are silently dropped.
func CompileAggregate(table *catalog.Table, fields []string, where sqlfrag.Fragment) (Statement, error) {
	var exprs []string
	for _, f := range fields {
		if table.Column(f) == nil {
			continue
		}
		col := QuoteIdentifier(f)
		for _, fn := range aggregateFuncs {
			alias := QuoteIdentifier(strings.ToLower(fn) + "_of_" + f)
			exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s", fn, col, alias))
		}
	}
	if len(exprs) == 0 {
		return Statement{}, fmt.Errorf("compiler: aggregate requires at least one known column, table %q", table.Name)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), QuoteIdentifier(table.Name))
	sql = sqlfrag.AppendTo(sql, where)

	return Statement{SQL: sql, Args: where.Args}, nil
}
