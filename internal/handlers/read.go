package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smf/internal/apperr"
	"smf/internal/compiler"
	"smf/internal/dbctx"
	"smf/internal/queryparam"
	"smf/internal/respond"
	"smf/internal/rls"
)

// Read handles GET /<t>/:id: a single row by primary key, with the SELECT
// policy applied.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	h.readByID(w, r, true)
}

// Exists handles GET /<t>/:id/exists: identical to Read but without the
// SELECT policy AND-clause — existence is deliberately looser than a full
// read.
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	h.readByID(w, r, false)
}

func (h *Handler) readByID(w http.ResponseWriter, r *http.Request, applyPolicy bool) {
	table, ok := h.resolveTable(w, r)
	if !ok {
		return
	}

	pkWhere, err := compiler.ParsePrimaryKey(table, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, apperr.Validation("malformed id", err))
		return
	}

	where := pkWhere
	if applyPolicy {
		where = h.RLS.Inject(table.Name, rls.OpSelect, pkWhere)
	}

	pr := queryparam.Parse(r.URL.Query())
	tree, err := h.planSelect(pr.Select, table.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	stmt, err := compiler.CompileSelect(h.Catalog, table, tree, where, "", 1, 0)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid request", err))
		return
	}

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
	decodeRelationColumns(tree, decoded)

	if err := respond.WriteJSON(w, http.StatusOK, decoded); err != nil {
		h.Log.Errorw("failed writing read response", "err", err)
	}
}
