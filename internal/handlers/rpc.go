package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smf/internal/apperr"
	"smf/internal/compiler"
	"smf/internal/dbctx"
	"smf/internal/respond"
)

// RPC handles POST /rpc/<name>: looks up the routine in the catalog and
// invokes it, binding declared parameters in order from the JSON body's
// matching keys — a parameter whose name has no matching body key binds
// SQL NULL. For a procedure that returns multiple result sets, only the
// first is surfaced in the response, per spec.
func (h *Handler) RPC(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	routine, ok := h.Catalog.Routine(name)
	if !ok {
		h.writeError(w, apperr.NotFound("unknown routine", nil))
		return
	}

	rows, err := decodeRows(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input map[string]any
	if len(rows) == 1 {
		input = rows[0]
	}

	args := make([]any, len(routine.Parameters))
	for i, p := range routine.Parameters {
		args[i] = input[p.Name]
	}

	stmt := compiler.CompileRPC(routine, args)
	dbRows, err := h.DB.Query(r.Context(), claimsFrom(r), stmt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	decoded, err := dbctx.ScanRows(dbRows)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := respond.WriteJSON(w, http.StatusOK, decoded); err != nil {
		h.Log.Errorw("failed writing rpc response", "err", err)
	}
}
