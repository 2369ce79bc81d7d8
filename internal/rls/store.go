package rls

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// storeTable is the name of the policy store table; excluded from
// GET /api/tables since it is implementation state, not user schema.
const storeTable = "smf_rls_policies"

// StoreTable returns the policy store table name, exported so the
// GET /tables handler can exclude it.
func StoreTable() string {
	return storeTable
}

const createStoreTableSQL = `
CREATE TABLE IF NOT EXISTS ` + "`" + storeTable + "`" + ` (
	id BIGINT NOT NULL AUTO_INCREMENT,
	table_name VARCHAR(128) NOT NULL,
	policy_name VARCHAR(128) NOT NULL,
	operation ENUM('SELECT','INSERT','UPDATE','DELETE','ALL') NOT NULL,
	using_expression TEXT NOT NULL,
	check_expression TEXT NULL,
	enabled TINYINT(1) NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (id),
	UNIQUE KEY uq_table_policy (table_name, policy_name),
	KEY ix_table_op_enabled (table_name, operation, enabled)
)`

const selectEnabledPoliciesSQL = `
SELECT id, table_name, policy_name, operation, using_expression, check_expression, enabled
FROM ` + "`" + storeTable + "`" + `
WHERE enabled = 1
ORDER BY table_name, policy_name`

// EnsureSchema idempotently creates the policy store table.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createStoreTableSQL); err != nil {
		return fmt.Errorf("rls: creating policy store table: %w", err)
	}
	return nil
}

// Load reads every enabled policy from the store, fans ALL out to
// SELECT/INSERT/UPDATE/DELETE, and swaps it in as the engine's active
// index. Safe to call concurrently with request handling — readers never
// see a partially-built index.
func (e *Engine) Load(ctx context.Context, db *sql.DB, log *zap.SugaredLogger) error {
	rows, err := db.QueryContext(ctx, selectEnabledPoliciesSQL)
	if err != nil {
		return fmt.Errorf("rls: loading policies: %w", err)
	}
	defer rows.Close()

	ix := newIndex()
	count := 0
	for rows.Next() {
		var p Policy
		var enabled int
		if err := rows.Scan(&p.ID, &p.TableName, &p.PolicyName, &p.Operation, &p.UsingExpression, &p.CheckExpression, &enabled); err != nil {
			return fmt.Errorf("rls: scanning policy row: %w", err)
		}
		p.Enabled = enabled != 0

		if err := ValidateExpression(p.UsingExpression); err != nil {
			log.Warnw("rls: skipping policy with unparseable using_expression",
				"table", p.TableName, "policy", p.PolicyName, "error", err)
			continue
		}
		if p.CheckExpression != nil {
			if err := ValidateExpression(*p.CheckExpression); err != nil {
				log.Warnw("rls: skipping policy with unparseable check_expression",
					"table", p.TableName, "policy", p.PolicyName, "error", err)
				continue
			}
		}

		if p.Operation == OpAll {
			ix.add(p, OpSelect)
			ix.add(p, OpInsert)
			ix.add(p, OpUpdate)
			ix.add(p, OpDelete)
		} else {
			ix.add(p, p.Operation)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rls: iterating policy rows: %w", err)
	}

	e.setIndex(ix)
	log.Infow("rls: policy index reloaded", "policyCount", count)
	return nil
}

// Reload re-reads the policy store and atomically swaps in a fresh index;
// the name administrative callers invoke through the reload-policies route,
// Load under the hood.
func (e *Engine) Reload(ctx context.Context, db *sql.DB, log *zap.SugaredLogger) error {
	return e.Load(ctx, db, log)
}
