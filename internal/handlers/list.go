package handlers

import (
	"net/http"

	"smf/internal/apperr"
	"smf/internal/catalog"
	"smf/internal/compiler"
	"smf/internal/dbctx"
	"smf/internal/queryparam"
	"smf/internal/respond"
	"smf/internal/rls"
	"smf/internal/sqlfrag"
)

// List handles GET /<t>: filtered, ordered, paginated select with
// embedded relations, an optional exact count, and Content-Range.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}
	pr := queryparam.Parse(r.URL.Query())
	h.list(w, r, table, pr, sqlfrag.Fragment{})
}

// list is the shared implementation behind List and Relational: extra is
// ANDed into the WHERE fragment before the SELECT policy is injected —
// the parent FK predicate, for a nested list.
func (h *Handler) list(w http.ResponseWriter, r *http.Request, table *catalog.Table, pr *queryparam.ParseResult, extra sqlfrag.Fragment) {
	tree, err := h.planSelect(pr.Select, table.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	where := extra.And(compiler.CompileFilters(table, pr.Filters))
	where = h.RLS.Inject(table.Name, rls.OpSelect, where)
	orderBy := orderClause(table, pr.Order, "")

	claims := claimsFrom(r)
	total := -1
	if wantCount(r) {
		countStmt := compiler.CompileCount(table, where)
		rows, err := h.DB.Query(r.Context(), claims, countStmt)
		if err != nil {
			h.writeError(w, err)
			return
		}
		decoded, err := dbctx.ScanRows(rows)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if len(decoded) == 1 {
			total = toInt(decoded[0]["no_of_rows"])
		}
	}

	stmt, err := compiler.CompileSelect(h.Catalog, table, tree, where, orderBy, pr.Pagination.Limit, pr.Pagination.Offset)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid request", err))
		return
	}

	rows, err := h.DB.Query(r.Context(), claims, stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	decoded, err := dbctx.ScanRows(rows)
	if err != nil {
		h.writeError(w, err)
		return
	}
	decodeRelationColumns(tree, decoded)

	if err := respond.WriteList(w, respond.ListResponse{
		Rows:      decoded,
		Accept:    r.Header.Get("Accept"),
		WantCount: wantCount(r),
		Total:     total,
		Offset:    pr.Pagination.Offset,
	}); err != nil {
		h.Log.Errorw("failed writing list response", "err", err)
	}
}

// Count handles GET /<t>/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}
	pr := queryparam.Parse(r.URL.Query())
	where := h.RLS.Inject(table.Name, rls.OpSelect, compiler.CompileFilters(table, pr.Filters))
	stmt := compiler.CompileCount(table, where)

	rows, err := h.DB.Query(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	decoded, err := dbctx.ScanRows(rows)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := respond.WriteJSON(w, http.StatusOK, decoded); err != nil {
		h.Log.Errorw("failed writing count response", "err", err)
	}
}

// Describe handles GET /<t>/describe: column and foreign-key metadata for
// one table, the gateway's narrowed stand-in for a full OpenAPI export.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}
	if err := respond.WriteJSON(w, http.StatusOK, describeTable(table)); err != nil {
		h.Log.Errorw("failed writing describe response", "err", err)
	}
}

func describeTable(table *catalog.Table) map[string]any {
	columns := make([]map[string]any, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = map[string]any{
			"name":     c.Name,
			"type":     string(c.Type),
			"rawType":  c.RawType,
			"nullable": c.Nullable,
			"isPK":     c.IsPK,
		}
	}
	fks := make([]map[string]any, len(table.ForeignKeys))
	for i, fk := range table.ForeignKeys {
		fks[i] = map[string]any{
			"column":    fk.Column,
			"refTable":  fk.RefTable,
			"refColumn": fk.RefColumn,
		}
	}
	return map[string]any{
		"name":        table.Name,
		"columns":     columns,
		"foreignKeys": fks,
	}
}

// GroupBy handles GET /<t>/groupby, requiring a _fields parameter.
func (h *Handler) GroupBy(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}
	fields := splitFields(r.URL.Query().Get("_fields"))
	if len(fields) == 0 {
		h.writeError(w, apperr.Validation("_fields is required", nil))
		return
	}

	pr := queryparam.Parse(r.URL.Query())
	where := h.RLS.Inject(table.Name, rls.OpSelect, compiler.CompileFilters(table, pr.Filters))
	orderBy := orderClause(table, pr.Order, "")

	stmt, err := compiler.CompileGroupBy(table, fields, where, orderBy)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid groupby request", err))
		return
	}
	h.runSelectAndRespond(w, r, stmt)
}

// Aggregate handles GET /<t>/aggregate, requiring a _fields parameter.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}
	fields := splitFields(r.URL.Query().Get("_fields"))
	if len(fields) == 0 {
		h.writeError(w, apperr.Validation("_fields is required", nil))
		return
	}

	pr := queryparam.Parse(r.URL.Query())
	where := h.RLS.Inject(table.Name, rls.OpSelect, compiler.CompileFilters(table, pr.Filters))

	stmt, err := compiler.CompileAggregate(table, fields, where)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid aggregate request", err))
		return
	}
	h.runSelectAndRespond(w, r, stmt)
}

// runSelectAndRespond executes stmt and writes its decoded rows as a plain
// JSON array, for the handlers (groupby, aggregate) that don't need
// Content-Range or the singular contract.
func (h *Handler) runSelectAndRespond(w http.ResponseWriter, r *http.Request, stmt compiler.Statement) {
	rows, err := h.DB.Query(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	decoded, err := dbctx.ScanRows(rows)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := respond.WriteJSON(w, http.StatusOK, decoded); err != nil {
		h.Log.Errorw("failed writing response", "err", err)
	}
}
