package handlers

import (
	"net/http"

	"smf/internal/respond"
	"smf/internal/rls"
)

// Tables handles GET /tables: the catalog's table/view names, excluding
// the policy store table itself.
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	names := h.Catalog.TableNames()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == rls.StoreTable() {
			continue
		}
		out = append(out, n)
	}
	if err := respond.WriteJSON(w, http.StatusOK, out); err != nil {
		h.Log.Errorw("failed writing tables response", "err", err)
	}
}
