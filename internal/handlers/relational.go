package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smf/internal/apperr"
	"smf/internal/compiler"
	"smf/internal/queryparam"
)

// Relational handles GET /<parent>/:id/<child>: a nested list scoped to
// the single foreign key connecting parent and child, combined with the
// caller's own filters, the SELECT policy, ordering, pagination, and an
// optional exact count.
func (h *Handler) Relational(w http.ResponseWriter, r *http.Request) {
	parentName := chi.URLParam(r, "table")
	childName := chi.URLParam(r, "child")

	if _, ok := h.Catalog.Table(parentName); !ok {
		h.writeError(w, apperr.NotFound("unknown parent table", nil))
		return
	}
	child, ok := h.Catalog.Table(childName)
	if !ok {
		h.writeError(w, apperr.NotFound("unknown child table", nil))
		return
	}

	fk, ownedByParent, err := h.Catalog.ForeignKeyBetween(parentName, childName, "")
	if err != nil {
		h.writeError(w, apperr.Validation("no relation between parent and child tables", err))
		return
	}
	if ownedByParent {
		h.writeError(w, apperr.Validation("parent does not own the foreign key; child is not a nested collection of parent", nil))
		return
	}

	fkWhere, err := compiler.ForeignKeyPredicate(fk, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, apperr.Validation("malformed parent id", err))
		return
	}

	pr := queryparam.Parse(r.URL.Query())
	h.list(w, r, child, pr, fkWhere)
}
