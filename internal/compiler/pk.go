package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"smf/internal/catalog"
	"smf/internal/sqlfrag"
)

// CompositeKeyError is returned when an id path segment's component count
// does not match the table's primary-key arity.
type CompositeKeyError struct {
	Table    string
	Got      int
	Expected int
}

func (e *CompositeKeyError) Error() string {
	return fmt.Sprintf("compiler: table %q has a %d-column primary key, but id %q-style path carries %d component(s)",
		e.Table, e.Expected, "___", e.Got)
}

// pkSeparator joins composite primary-key components in a single id path
// segment, e.g. "US___CA" for a (country, state) composite key.
const pkSeparator = "___"

// ParsePrimaryKey splits id on pkSeparator and binds one typed value per PK
// component, in the table's declared PK order. Returns *CompositeKeyError
// if the component count doesn't match the PK arity.
func ParsePrimaryKey(table *catalog.Table, id string) (sqlfrag.Fragment, error) {
	parts := strings.Split(id, pkSeparator)
	if len(parts) != len(table.PrimaryKey) {
		return sqlfrag.Fragment{}, &CompositeKeyError{Table: table.Name, Got: len(parts), Expected: len(table.PrimaryKey)}
	}

	var clauses []string
	var args []any
	for i, col := range table.PrimaryKey {
		v, err := typedValue(col.Type, parts[i])
		if err != nil {
			return sqlfrag.Fragment{}, err
		}
		clauses = append(clauses, QuoteIdentifier(col.Name)+" = ?")
		args = append(args, v)
	}

	return sqlfrag.Fragment{Clause: strings.Join(clauses, " AND "), Args: args}, nil
}

// typedValue coerces a raw path-segment string to the Go value that should
// be bound for col's declared type: string columns stay strings (the driver
// quotes them), int/float columns are parsed so a non-numeric id fails
// fast, and datetime/other types are passed through verbatim for the driver
// to coerce.
func typedValue(t catalog.DataType, raw string) (any, error) {
	switch t {
	case catalog.DataTypeInt, catalog.DataTypeBoolean:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("compiler: id component %q is not a valid integer: %w", raw, err)
		}
		return n, nil
	case catalog.DataTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("compiler: id component %q is not a valid number: %w", raw, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}
