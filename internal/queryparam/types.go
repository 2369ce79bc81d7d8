// Package queryparam decodes PostgREST-style HTTP query parameters into a
// neutral, SQL-agnostic representation: a flat filter AST, a raw select
// expression string, an order specification, and pagination bounds. It
// never emits SQL — that is the query compiler's job.
package queryparam

// Operator is a predicate's comparison operator.
type Operator string

const (
	OpEq    Operator = "="
	OpNeq   Operator = "<>"
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
	OpIs    Operator = "IS"
	OpIn    Operator = "IN"
)

var opNames = map[string]Operator{
	"eq":    OpEq,
	"neq":   OpNeq,
	"gt":    OpGt,
	"gte":   OpGte,
	"lt":    OpLt,
	"lte":   OpLte,
	"like":  OpLike,
	"ilike": OpILike,
	"is":    OpIs,
	"in":    OpIn,
}

// Null is the sentinel Predicate.Value for the SQL NULL literal, distinct
// from a nil interface (which would mean "no value").
type nullLiteral struct{}

// Null is the SQL NULL value for a Predicate built from is.null or an
// explicit JSON/legacy-DSL null.
var Null = nullLiteral{}

// Predicate is one flat filter term: column OP value. Repeated query keys
// produce multiple predicates on the same column; the filter AST is their
// conjunction (AND).
type Predicate struct {
	Column   string
	Operator Operator
	// Value is a scalar, queryparam.Null, or []any for OpIn. Query-string
	// values are strings, with true/false as int 1/0; _where values keep
	// their decoded JSON type (string, float64, bool).
	Value any
}

// OrderTerm is one column of an ORDER BY clause.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Pagination carries the resolved LIMIT/OFFSET bounds, after applying
// PostgREST/legacy defaults and overrides.
type Pagination struct {
	Limit  int
	Offset int
}

// ParseResult is the parser's complete output for one request.
type ParseResult struct {
	Filters    []Predicate
	Select     string // raw, unparsed select expression; "" means "all columns"
	Order      []OrderTerm
	Pagination Pagination
}

const (
	defaultLimit  = 20
	maxLegacySize = 100
)

// reservedKeys are never turned into filter predicates.
var reservedKeys = map[string]bool{
	"select":      true,
	"order":       true,
	"limit":       true,
	"offset":      true,
	"on_conflict": true,
	"columns":     true,
}
