package compiler

import (
	"fmt"
	"strings"

	"smf/internal/catalog"
)

// CompileRPC builds the stored-routine invocation: `CALL name(?,?,...)` for
// a procedure, `SELECT name(?,?,...) AS result` for a function. args must
// already be ordered to match routine.Parameters (the caller binds a
// missing named input as nil).
func CompileRPC(routine *catalog.Routine, args []any) Statement {
	placeholders := ""
	if len(routine.Parameters) > 0 {
		placeholders = strings.TrimSuffix(strings.Repeat("?,", len(routine.Parameters)), ",")
	}

	name := QuoteIdentifier(routine.Name)
	if routine.Kind == catalog.RoutineFunction {
		return Statement{
			SQL:  fmt.Sprintf("SELECT %s(%s) AS result", name, placeholders),
			Args: args,
		}
	}
	return Statement{
		SQL:  fmt.Sprintf("CALL %s(%s)", name, placeholders),
		Args: args,
	}
}
