// Package sqlfrag is the shared currency passed between the query
// compiler, the RLS engine, and the operation handlers: a
// parameterized WHERE clause fragment that composes with AND without any
// producer needing to know how the others built their text.
package sqlfrag

import "strings"

// Fragment is a SQL boolean expression (Clause) plus the positional
// parameters it binds (Args), in order. The zero value is the empty
// fragment: "no predicate".
type Fragment struct {
	Clause string
	Args   []any
}

// Empty reports whether the fragment carries no predicate.
func (f Fragment) Empty() bool {
	return f.Clause == ""
}

// And combines two fragments into `(f) AND (other)`, parenthesizing each
// non-empty side. An empty fragment contributes nothing — And(Fragment{})
// is a no-op on either side.
func (f Fragment) And(other Fragment) Fragment {
	switch {
	case f.Empty() && other.Empty():
		return Fragment{}
	case f.Empty():
		return other
	case other.Empty():
		return f
	default:
		args := make([]any, 0, len(f.Args)+len(other.Args))
		args = append(args, f.Args...)
		args = append(args, other.Args...)
		return Fragment{Clause: "(" + f.Clause + ") AND (" + other.Clause + ")", Args: args}
	}
}

// Where renders the fragment as a full "WHERE ..." clause, or "" if the
// fragment is empty (no WHERE clause at all).
func (f Fragment) Where() string {
	if f.Empty() {
		return ""
	}
	return "WHERE " + f.Clause
}

// AppendTo appends sql (e.g. "SELECT ... FROM t") and the fragment's WHERE
// clause, joined by a single space, trimming any trailing whitespace when
// the fragment is empty.
func AppendTo(sql string, f Fragment) string {
	where := f.Where()
	if where == "" {
		return strings.TrimRight(sql, " ")
	}
	return sql + " " + where
}
