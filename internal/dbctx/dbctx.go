// Package dbctx is the connection/context executor: it owns the bounded
// connection pool, injects per-request claims as session variables on a
// dedicated borrowed connection, executes the caller's statement on that
// same connection, and guarantees the connection is released on every
// path — success, statement error, or context cancellation.
package dbctx

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	gojson "github.com/goccy/go-json"

	"smf/internal/compiler"
)

// Statement is a parameterized SQL statement ready for execution, shared
// verbatim with the query compiler's output type.
type Statement = compiler.Statement

// Claims is the per-request claim map derived from a verified bearer
// token. Nil or empty means anonymous: no session variables are set, and
// the statement dispatches directly on the pool instead of a dedicated
// connection.
type Claims map[string]any

// Pool wraps the bounded connection pool every request handler executes
// against.
type Pool struct {
	db *sql.DB
}

// Open dials dsn and bounds the pool to maxOpenConns (default upper bound
// 10, per the configuration contract).
func Open(dsn string, maxOpenConns int) (*Pool, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("dbctx: opening connection pool: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	return &Pool{db: db}, nil
}

// DB exposes the underlying *sql.DB for startup-only uses — catalog load,
// policy store schema/load — that run before any request traffic and so
// need no claim injection.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases every pooled connection.
func (p *Pool) Close() error {
	return p.db.Close()
}

var claimKeySanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeClaimKey(key string) string {
	return claimKeySanitizer.ReplaceAllString(key, "_")
}

// serializeClaimValue passes scalars through untouched and JSON-encodes
// everything else (objects, arrays) so the value can bind as session
// variable text.
func serializeClaimValue(v any) (any, error) {
	switch v.(type) {
	case string, int, int64, float64, bool, nil:
		return v, nil
	default:
		encoded, err := gojson.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("dbctx: encoding claim value: %w", err)
		}
		return string(encoded), nil
	}
}

// buildSetStatement renders `SET @request_jwt_claim_<k1> = ?, ...` and the
// matching positional args, in sorted key order so the same claim set
// always produces identical SQL text.
func buildSetStatement(claims Claims) (string, []any, error) {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var assignments []string
	var args []any
	for _, k := range keys {
		v, err := serializeClaimValue(claims[k])
		if err != nil {
			return "", nil, err
		}
		assignments = append(assignments, "@request_jwt_claim_"+sanitizeClaimKey(k)+" = ?")
		args = append(args, v)
	}
	return "SET " + strings.Join(assignments, ", "), args, nil
}

func setClaims(ctx context.Context, conn *sql.Conn, claims Claims) error {
	setSQL, args, err := buildSetStatement(claims)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, setSQL, args...); err != nil {
		return fmt.Errorf("dbctx: setting request claims: %w", err)
	}
	return nil
}

// Exec runs stmt, injecting claims as session variables on a dedicated
// connection first when claims is non-empty; with no claims it dispatches
// directly on the pool, which owns allocation and release itself.
func (p *Pool) Exec(ctx context.Context, claims Claims, stmt Statement) (sql.Result, error) {
	if len(claims) == 0 {
		return p.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbctx: acquiring connection: %w", err)
	}
	defer conn.Close()

	if err := setClaims(ctx, conn, claims); err != nil {
		return nil, err
	}
	return conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
}

// Rows wraps *sql.Rows together with the dedicated connection (if any) it
// was read from, so Close releases both in one call.
type Rows struct {
	*sql.Rows
	conn *sql.Conn
}

// Close closes the underlying rows and, if this Rows was read from a
// claims-dedicated connection, releases that connection back to the pool.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Query runs stmt and returns its rows, injecting claims first when
// present. The borrowed connection (when one was needed) is only released
// when the caller closes the returned Rows — never before, since the
// result set is still being read from it.
func (p *Pool) Query(ctx context.Context, claims Claims, stmt Statement) (*Rows, error) {
	if len(claims) == 0 {
		rows, err := p.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, err
		}
		return &Rows{Rows: rows}, nil
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbctx: acquiring connection: %w", err)
	}
	if err := setClaims(ctx, conn, claims); err != nil {
		conn.Close()
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Rows{Rows: rows, conn: conn}, nil
}

// WithTx runs fn inside a transaction on a claims-injected connection: it
// begins, commits on success, rolls back on any error (including a context
// cancellation), and always releases the connection. Offered for
// multi-statement use; the current operation set executes single
// statements and so never exercises this path directly.
func (p *Pool) WithTx(ctx context.Context, claims Claims, fn func(tx *sql.Tx) error) (err error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("dbctx: acquiring connection: %w", err)
	}
	defer conn.Close()

	if len(claims) > 0 {
		if err := setClaims(ctx, conn, claims); err != nil {
			return err
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbctx: beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("dbctx: committing transaction: %w", err)
	}
	return nil
}
