package rls

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// ValidateExpression checks that expr is a well-formed SQL boolean
// expression by parsing it as the WHERE clause of a throwaway SELECT — the
// TiDB parser has no standalone expression-parsing entry point, so a
// wrapper statement is the idiomatic way to validate just the expression
// grammar. It does not evaluate the expression or resolve column names;
// that happens when the database executes the composed query.
func ValidateExpression(expr string) error {
	p := parser.New()
	sql := "SELECT 1 FROM t WHERE " + expr
	stmtNodes, _, err := p.Parse(sql, "", "")
	if err != nil {
		return fmt.Errorf("rls: invalid expression %q: %w", expr, err)
	}
	if len(stmtNodes) != 1 {
		return fmt.Errorf("rls: expression %q did not parse to exactly one statement", expr)
	}
	return nil
}
