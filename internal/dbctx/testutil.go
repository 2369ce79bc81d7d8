package dbctx

import "database/sql"

// TestPool wraps an already-open *sql.DB (typically a sqlmock connection)
// as a Pool, for packages that need to exercise a Handler against a mocked
// driver without dialing a real database.
func TestPool(db *sql.DB) *Pool {
	return &Pool{db: db}
}
