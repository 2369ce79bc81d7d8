// Package compiler emits parameterized MySQL/MariaDB SQL text from a
// resolved select tree, a filter AST, an order/pagination spec, and
// whatever predicate prefixes the caller supplies (typically an RLS
// policy fragment). It never executes anything — that is the
// connection/context executor's job.
package compiler

import "strings"

// QuoteIdentifier backtick-quotes a MySQL identifier, doubling any
// embedded backtick.
func QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// Statement is one fully-built parameterized SQL statement ready for
// execution by the connection/context executor.
type Statement struct {
	SQL  string
	Args []any
}

// QuoteStringLiteral single-quotes a string for inline use as a SQL string
// literal (JSON_OBJECT key names, which MySQL does not accept as bound
// parameters in all versions). Everything else the compiler binds goes
// through positional placeholders instead of this function. The escape
// table mirrors the teacher's dialect generator's QuoteString exactly,
// backslash-escape for backslash-escape: MySQL's escaping rules don't bend
// to this gateway's needs, so there is no adaptation to make beyond the
// free-function signature — narrowing the escape set instead of matching it
// fully would silently reopen a quoting gap.
func QuoteStringLiteral(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)

	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1A':
			b.WriteString(`\Z`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
