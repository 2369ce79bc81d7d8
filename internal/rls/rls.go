// Package rls loads, caches, and composes row-level security policies, and
// injects the composed predicate into the WHERE fragments the read, update
// and delete handlers build. The create handler does not consult it, so
// INSERT policies are indexed but not applied. Tables without policies are unrestricted — RLS here is an
// opt-in model, not a default-deny one.
package rls

import (
	"strings"
	"sync/atomic"

	"smf/internal/sqlfrag"
)

// Operation is the statement kind a policy's using_expression applies to.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpAll    Operation = "ALL"
)

// Policy is one row-level rule, as persisted in the policy store table.
type Policy struct {
	ID               int64
	TableName        string
	PolicyName       string
	Operation        Operation
	UsingExpression  string
	CheckExpression  *string
	Enabled          bool
}

// index groups enabled policies by (table, operation), ALL already fanned
// out to the four concrete operations at load time.
type index struct {
	byTableOp map[string]map[Operation][]Policy
}

func newIndex() *index {
	return &index{byTableOp: make(map[string]map[Operation][]Policy)}
}

func (ix *index) add(p Policy, op Operation) {
	ops, ok := ix.byTableOp[p.TableName]
	if !ok {
		ops = make(map[Operation][]Policy)
		ix.byTableOp[p.TableName] = ops
	}
	ops[op] = append(ops[op], p)
}

func (ix *index) policiesFor(table string, op Operation) []Policy {
	ops, ok := ix.byTableOp[table]
	if !ok {
		return nil
	}
	return ops[op]
}

// Engine is the process-wide, read-mostly policy index. Reload swaps the
// whole index atomically (pointer-swap semantics); concurrent readers never
// observe a partially-built index.
type Engine struct {
	current atomic.Pointer[index]
}

// NewEngine returns an Engine with an empty index (every table
// unrestricted) until the first Reload succeeds.
func NewEngine() *Engine {
	e := &Engine{}
	e.current.Store(newIndex())
	return e
}

func (e *Engine) setIndex(ix *index) {
	e.current.Store(ix)
}

func (e *Engine) index() *index {
	return e.current.Load()
}

// Compose ANDs every enabled policy's using_expression for (table, op),
// each wrapped in parentheses, into a single WHERE fragment. Returns the
// empty fragment when the table carries no policy for op (unrestricted). A
// single policy's expression is returned unwrapped, since And() has
// nothing to parenthesize it against.
func (e *Engine) Compose(table string, op Operation) sqlfrag.Fragment {
	policies := e.index().policiesFor(table, op)
	if len(policies) == 0 {
		return sqlfrag.Fragment{}
	}
	if len(policies) == 1 {
		return sqlfrag.Fragment{Clause: policies[0].UsingExpression}
	}

	clauses := make([]string, len(policies))
	for i, p := range policies {
		clauses[i] = "(" + p.UsingExpression + ")"
	}
	return sqlfrag.Fragment{Clause: strings.Join(clauses, " AND ")}
}

// Inject prepends the composed policy predicate for (table, op) to an
// existing WHERE fragment: "WHERE (policy) AND (existing)" when existing
// already carries a predicate, "WHERE (policy)" when it doesn't, and no
// change at all when the table has no policy for op.
func (e *Engine) Inject(table string, op Operation, existing sqlfrag.Fragment) sqlfrag.Fragment {
	policy := e.Compose(table, op)
	if policy.Empty() {
		return existing
	}
	return policy.And(existing)
}

// HasPolicy reports whether table carries any enabled policy for op.
func (e *Engine) HasPolicy(table string, op Operation) bool {
	return len(e.index().policiesFor(table, op)) > 0
}
