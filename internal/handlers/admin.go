package handlers

import (
	"net/http"

	"smf/internal/apperr"
	"smf/internal/respond"
)

// ReloadPolicies handles POST /admin/reload-policies: re-reads the policy
// store table and swaps in a fresh index, per spec's "an optional
// administrative endpoint may call it" hook. Gated behind the same bearer
// requirement as every other route.
func (h *Handler) ReloadPolicies(w http.ResponseWriter, r *http.Request) {
	if err := h.RLS.Reload(r.Context(), h.DB.DB(), h.Log); err != nil {
		h.writeError(w, apperr.Internal("reloading policies", err))
		return
	}
	if err := respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "reloaded"}); err != nil {
		h.Log.Errorw("failed writing reload-policies response", "err", err)
	}
}
