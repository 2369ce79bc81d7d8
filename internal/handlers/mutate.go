package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	gojson "github.com/goccy/go-json"

	"smf/internal/apperr"
	"smf/internal/catalog"
	"smf/internal/compiler"
	"smf/internal/dbctx"
	"smf/internal/queryparam"
	"smf/internal/respond"
	"smf/internal/rls"
	"smf/internal/sqlfrag"
)

// decodeRows reads the request body as either a single JSON object or an
// array of objects, normalizing both to a slice.
func decodeRows(r *http.Request) ([]map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperr.Validation("failed to read request body", err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var probe any
	if err := gojson.Unmarshal(body, &probe); err != nil {
		return nil, apperr.Validation("malformed JSON body", err)
	}

	switch v := probe.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, apperr.Validation("array body must contain JSON objects", nil)
			}
			rows = append(rows, m)
		}
		return rows, nil
	case map[string]any:
		return []map[string]any{v}, nil
	default:
		return nil, apperr.Validation("body must be a JSON object or array", nil)
	}
}

// Create handles POST /<t>: insert one or many rows, honoring the
// Resolution upsert mode and Prefer: return=representation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	rows, err := decodeRows(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(rows) == 0 {
		h.writeError(w, apperr.Validation("request body must contain at least one row", nil))
		return
	}

	stmt, err := compiler.CompileInsert(table, rows, upsertMode(r))
	if err != nil {
		h.writeError(w, apperr.Validation("invalid insert request", err))
		return
	}

	claims := claimsFrom(r)
	result, err := h.DB.Exec(r.Context(), claims, stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	affected, _ := result.RowsAffected()
	representation := wantRepresentation(r)
	if !representation {
		lastID, _ := result.LastInsertId()
		if err := respond.CreateResponse(w, false, nil, lastID, affected); err != nil {
			h.Log.Errorw("failed writing create response", "err", err)
		}
		return
	}

	inserted, err := h.representationForInsert(r, table, rows, result)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := respond.CreateResponse(w, true, inserted, 0, affected); err != nil {
		h.Log.Errorw("failed writing create response", "err", err)
	}
}

// representationForInsert resolves the rows to echo back for
// return=representation: by auto-increment id range for a single-column
// PK, or by matching every PK component present in every input row for a
// composite PK.
func (h *Handler) representationForInsert(r *http.Request, table *catalog.Table, rows []map[string]any, result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}) (respond.Rows, error) {
	claims := claimsFrom(r)

	if len(table.PrimaryKey) == 1 {
		lastID, err := result.LastInsertId()
		if err != nil {
			return nil, apperr.Internal("failed to resolve inserted rows", err)
		}
		affected, _ := result.RowsAffected()
		stmt, err := compiler.CompileInsertReturning(table, lastID, affected)
		if err != nil {
			return nil, apperr.Internal("failed to resolve inserted rows", err)
		}
		dbRows, err := h.DB.Query(r.Context(), claims, stmt)
		if err != nil {
			return nil, err
		}
		return dbctx.ScanRows(dbRows)
	}

	pkCols := make([]string, len(table.PrimaryKey))
	for i, c := range table.PrimaryKey {
		pkCols[i] = c.Name
	}
	var where sqlfrag.Fragment
	for _, row := range rows {
		var rowWhere sqlfrag.Fragment
		complete := true
		for _, col := range pkCols {
			v, ok := row[col]
			if !ok {
				complete = false
				break
			}
			rowWhere = rowWhere.And(sqlfrag.Fragment{Clause: compiler.QuoteIdentifier(col) + " = ?", Args: []any{v}})
		}
		if !complete {
			continue
		}
		if where.Empty() {
			where = rowWhere
		} else {
			where = sqlfrag.Fragment{
				Clause: where.Clause + " OR (" + rowWhere.Clause + ")",
				Args:   append(append([]any{}, where.Args...), rowWhere.Args...),
			}
		}
	}
	if where.Empty() {
		return respond.Rows{}, nil
	}

	stmt, err := compiler.CompileSelect(h.Catalog, table, nil, where, "", -1, 0)
	if err != nil {
		return nil, apperr.Internal("failed to resolve inserted rows", err)
	}
	dbRows, err := h.DB.Query(r.Context(), claims, stmt)
	if err != nil {
		return nil, err
	}
	return dbctx.ScanRows(dbRows)
}

// Update handles PUT /<t>/:id: full row replacement by primary key.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	rows, err := decodeRows(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(rows) != 1 {
		h.writeError(w, apperr.Validation("PUT body must be a single JSON object", nil))
		return
	}

	pkWhere, err := compiler.ParsePrimaryKey(table, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, apperr.Validation("malformed id", err))
		return
	}
	where := h.RLS.Inject(table.Name, rls.OpUpdate, pkWhere)

	h.runUpdate(w, r, table, rows[0], where, pkWhere)
}

// Patch handles PATCH /<t>: filter-driven partial update.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	rows, err := decodeRows(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(rows) == 0 {
		if err := respond.WriteJSON(w, http.StatusNoContent, nil); err != nil {
			h.Log.Errorw("failed writing patch response", "err", err)
		}
		return
	}
	if len(rows) != 1 {
		h.writeError(w, apperr.Validation("PATCH body must be a single JSON object", nil))
		return
	}

	pr := queryparam.Parse(r.URL.Query())
	filterWhere := compiler.CompileFilters(table, pr.Filters)
	where := h.RLS.Inject(table.Name, rls.OpUpdate, filterWhere)

	h.runUpdate(w, r, table, rows[0], where, filterWhere)
}

// runUpdate executes the UPDATE and, for return=representation, pre-selects
// the candidate rows' primary keys under predicateForCapture before the
// update runs, then re-selects them by PK afterward — the only way to know
// which rows an UPDATE touched once their non-key columns have changed.
func (h *Handler) runUpdate(w http.ResponseWriter, r *http.Request, table *catalog.Table, set map[string]any, where, predicateForCapture sqlfrag.Fragment) {
	claims := claimsFrom(r)
	representation := wantRepresentation(r)

	var capturedPKWhere sqlfrag.Fragment
	if representation {
		var err error
		capturedPKWhere, err = h.capturePrimaryKeys(r, table, predicateForCapture)
		if err != nil {
			h.writeError(w, err)
			return
		}
	}

	stmt, err := compiler.CompileUpdate(table, set, where)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid update request", err))
		return
	}
	result, err := h.DB.Exec(r.Context(), claims, stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	affected, _ := result.RowsAffected()

	if !representation {
		if err := respond.MutationResponse(w, false, nil, affected); err != nil {
			h.Log.Errorw("failed writing update response", "err", err)
		}
		return
	}

	rows, err := h.selectRows(r, table, capturedPKWhere)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := respond.MutationResponse(w, true, rows, affected); err != nil {
		h.Log.Errorw("failed writing update response", "err", err)
	}
}

// capturePrimaryKeys selects the primary-key values of every row matching
// predicate right now, rendered as an OR-of-ANDs WHERE fragment that
// re-targets exactly those rows later.
func (h *Handler) capturePrimaryKeys(r *http.Request, table *catalog.Table, predicate sqlfrag.Fragment) (sqlfrag.Fragment, error) {
	pkCols := make([]string, len(table.PrimaryKey))
	for i, c := range table.PrimaryKey {
		pkCols[i] = c.Name
	}

	stmt, err := compiler.CompileGroupBy(table, pkCols, predicate, "")
	if err != nil {
		return sqlfrag.Fragment{}, apperr.Internal("failed to capture candidate rows", err)
	}
	// CompileGroupBy also emits a COUNT(*), which we ignore; reusing it gets
	// us "select just these columns, respecting predicate" without a
	// dedicated query builder for a column subset.
	rows, err := h.DB.Query(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		return sqlfrag.Fragment{}, err
	}
	decoded, err := dbctx.ScanRows(rows)
	if err != nil {
		return sqlfrag.Fragment{}, err
	}

	var where sqlfrag.Fragment
	for _, row := range decoded {
		var rowWhere sqlfrag.Fragment
		for _, col := range pkCols {
			rowWhere = rowWhere.And(sqlfrag.Fragment{Clause: compiler.QuoteIdentifier(col) + " = ?", Args: []any{row[col]}})
		}
		if where.Empty() {
			where = rowWhere
		} else {
			where = sqlfrag.Fragment{
				Clause: where.Clause + " OR (" + rowWhere.Clause + ")",
				Args:   append(append([]any{}, where.Args...), rowWhere.Args...),
			}
		}
	}
	return where, nil
}

// selectRows runs a plain SELECT * against where and returns decoded rows;
// an empty where (no candidate rows captured) returns an empty slice
// without issuing a query.
func (h *Handler) selectRows(r *http.Request, table *catalog.Table, where sqlfrag.Fragment) (respond.Rows, error) {
	if where.Empty() {
		return respond.Rows{}, nil
	}
	stmt, err := compiler.CompileSelect(h.Catalog, table, nil, where, "", -1, 0)
	if err != nil {
		return nil, apperr.Internal("failed to resolve rows", err)
	}
	rows, err := h.DB.Query(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		return nil, err
	}
	return dbctx.ScanRows(rows)
}

// Delete handles DELETE /<t>/:id and DELETE /<t>: single-row delete by
// primary key, or bulk delete under the user's filter. An empty filter
// with no policy deletes every row, matching PostgREST's documented
// default.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	var predicate sqlfrag.Fragment
	if id := chi.URLParam(r, "id"); id != "" {
		pkWhere, err := compiler.ParsePrimaryKey(table, id)
		if err != nil {
			h.writeError(w, apperr.Validation("malformed id", err))
			return
		}
		predicate = pkWhere
	} else {
		pr := queryparam.Parse(r.URL.Query())
		predicate = compiler.CompileFilters(table, pr.Filters)
	}
	where := h.RLS.Inject(table.Name, rls.OpDelete, predicate)

	representation := wantRepresentation(r)
	var captured respond.Rows
	if representation {
		var err error
		captured, err = h.selectRows(r, table, where)
		if err != nil {
			h.writeError(w, err)
			return
		}
	}

	stmt := compiler.CompileDelete(table, where)
	result, err := h.DB.Exec(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	affected, _ := result.RowsAffected()

	if err := respond.MutationResponse(w, representation, captured, affected); err != nil {
		h.Log.Errorw("failed writing delete response", "err", err)
	}
}
