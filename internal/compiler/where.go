package compiler

import (
	"fmt"
	"strings"

	"smf/internal/catalog"
	"smf/internal/queryparam"
	"smf/internal/sqlfrag"
)

var sqlOperator = map[queryparam.Operator]string{
	queryparam.OpEq:    "=",
	queryparam.OpNeq:   "<>",
	queryparam.OpGt:    ">",
	queryparam.OpGte:   ">=",
	queryparam.OpLt:    "<",
	queryparam.OpLte:   "<=",
	queryparam.OpLike:  "LIKE",
	queryparam.OpILike: "LIKE", // MySQL LIKE is collation-dependent; no separate ILIKE
}

// CompileFilters converts a filter AST into a WHERE fragment against table.
// A predicate on a column not in table is silently dropped, so it places no
// restriction on the result set; an unknown operator is already
// impossible to reach here since queryparam.Parse drops those itself, but
// the check is repeated defensively since a caller may build a Predicate by
// hand.
func CompileFilters(table *catalog.Table, preds []queryparam.Predicate) sqlfrag.Fragment {
	var clauses []string
	var args []any

	for _, p := range preds {
		if table.Column(p.Column) == nil {
			continue
		}
		clause, clauseArgs, ok := compilePredicate(p)
		if !ok {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	if len(clauses) == 0 {
		return sqlfrag.Fragment{}
	}
	return sqlfrag.Fragment{Clause: strings.Join(clauses, " AND "), Args: args}
}

func compilePredicate(p queryparam.Predicate) (string, []any, bool) {
	col := QuoteIdentifier(p.Column)

	switch p.Operator {
	case queryparam.OpIs:
		if p.Value == queryparam.Null {
			return col + " IS NULL", nil, true
		}
		lit, ok := isLiteral(p.Value)
		if !ok {
			return "", nil, false
		}
		return col + " IS " + lit, nil, true

	case queryparam.OpIn:
		list, ok := p.Value.([]any)
		if !ok || len(list) == 0 {
			return "", nil, false
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")
		return fmt.Sprintf("%s IN (%s)", col, placeholders), list, true

	default:
		opSQL, ok := sqlOperator[p.Operator]
		if !ok {
			return "", nil, false
		}
		if p.Value == queryparam.Null {
			switch p.Operator {
			case queryparam.OpEq:
				return col + " IS NULL", nil, true
			case queryparam.OpNeq:
				return col + " IS NOT NULL", nil, true
			}
		}
		return fmt.Sprintf("%s %s ?", col, opSQL), []any{p.Value}, true
	}
}

// isLiteral maps a non-null IS value to one of MySQL's literal IS tokens
// (TRUE, FALSE, UNKNOWN) — the only right-hand-side tokens the grammar
// accepts, so unlike every other operator this one can never be bound as a
// placeholder; anything that doesn't map to one of these is dropped rather
// than interpolated, since accepting arbitrary text here would let request
// input reach the SQL text directly.
func isLiteral(v any) (string, bool) {
	switch v {
	case 1:
		return "TRUE", true
	case 0:
		return "FALSE", true
	case "unknown":
		return "UNKNOWN", true
	default:
		return "", false
	}
}

// CompileOrder renders an ORDER BY clause (without the "ORDER BY" prefix)
// from order terms, dropping any term whose column is not in table. Returns
// "" if no term survives.
func CompileOrder(table *catalog.Table, terms []queryparam.OrderTerm) string {
	var parts []string
	for _, t := range terms {
		if table.Column(t.Column) == nil {
			continue
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts = append(parts, QuoteIdentifier(t.Column)+" "+dir)
	}
	return strings.Join(parts, ", ")
}
