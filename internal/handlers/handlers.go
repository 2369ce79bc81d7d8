// Package handlers composes the query-param parser, select planner, RLS
// engine, compiler, and connection/context executor into the gateway's
// fourteen operations: list, read, exists, create, upsert, update, patch,
// delete, count, describe, relational, groupby, aggregate, rpc. Each
// handler runs one main parameterized statement, plus at most two helper
// statements (an exact count, or the row capture and re-select behind
// return=representation), and writes one HTTP response, following the teacher's practice in
// internal/apply of keeping one typed result flowing end to end from
// input to response rather than scattering state across globals.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"smf/internal/apperr"
	"smf/internal/catalog"
	"smf/internal/compiler"
	"smf/internal/dbctx"
	"smf/internal/queryparam"
	"smf/internal/respond"
	"smf/internal/rls"
	"smf/internal/selectplan"
)

// Handler holds the process-wide dependencies every operation needs:
// the read-only catalog, the bounded executor, the policy engine, and a
// logger for request-scoped diagnostics.
type Handler struct {
	Catalog *catalog.Catalog
	DB      *dbctx.Pool
	RLS     *rls.Engine
	Log     *zap.SugaredLogger
}

// New builds a Handler from its dependencies.
func New(cat *catalog.Catalog, db *dbctx.Pool, engine *rls.Engine, log *zap.SugaredLogger) *Handler {
	return &Handler{Catalog: cat, DB: db, RLS: engine, Log: log}
}

// writeError renders err as a JSON error body with the status its Kind
// maps to, falling back to a generic 500 for anything not already an
// *apperr.Error (a database/sql driver error, most commonly).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !apperr.As(err, &appErr) {
		appErr = apperr.FromDriverError(err)
	}
	h.Log.Warnw("request failed", "status", apperr.StatusCode(appErr.Kind), "err", appErr.Error())
	if writeErr := respond.WriteJSON(w, apperr.StatusCode(appErr.Kind), map[string]string{"error": appErr.Message}); writeErr != nil {
		h.Log.Errorw("failed writing error response", "err", writeErr)
	}
}

// resolveTable looks up the :table chi URL param against the catalog,
// writing a 404 and returning ok=false if it isn't a known table or view.
func (h *Handler) resolveTable(w http.ResponseWriter, r *http.Request) (*catalog.Table, bool) {
	name := chi.URLParam(r, "table")
	table, ok := h.Catalog.Table(name)
	if !ok {
		h.writeError(w, apperr.NotFound("unknown table", nil))
		return nil, false
	}
	return table, true
}

type claimsContextKey struct{}

// WithClaims attaches the request's decoded claim map to ctx, for the
// authn middleware to call before handing the request to a route.
func WithClaims(ctx context.Context, claims dbctx.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// claimsFrom reads the per-request claim map the authn middleware stores
// on the request context; absent claims (anonymous request) decode to nil.
func claimsFrom(r *http.Request) dbctx.Claims {
	claims, _ := r.Context().Value(claimsContextKey{}).(dbctx.Claims)
	return claims
}

// wantCount reports whether the caller asked for an exact count via
// Prefer: count=exact.
func wantCount(r *http.Request) bool {
	return preferHas(r, "count=exact")
}

// wantRepresentation reports whether the caller asked for the affected/
// inserted rows back via Prefer: return=representation.
func wantRepresentation(r *http.Request) bool {
	return preferHas(r, "return=representation")
}

func preferHas(r *http.Request, token string) bool {
	for _, part := range strings.Split(r.Header.Get("Prefer"), ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// upsertMode decodes the Resolution header into a compiler.UpsertMode.
func upsertMode(r *http.Request) compiler.UpsertMode {
	switch strings.TrimSpace(r.Header.Get("Resolution")) {
	case "merge-duplicates":
		return compiler.UpsertMergeDuplicates
	case "ignore-duplicates":
		return compiler.UpsertIgnoreDuplicates
	default:
		return compiler.UpsertNone
	}
}

// planSelect parses and resolves the request's select expression against
// table, rooted at table.Name.
func (h *Handler) planSelect(selectExpr, rootTable string) (*selectplan.Tree, error) {
	tree, err := selectplan.Parse(selectExpr)
	if err != nil {
		return nil, apperr.Validation("invalid select expression", err)
	}
	if err := selectplan.Resolve(tree, h.Catalog, rootTable); err != nil {
		return nil, apperr.Validation("invalid select expression", err)
	}
	return tree, nil
}

// orderClause renders pr.Order against table, falling back to def ("" for
// none) when the request specified no order terms.
func orderClause(table *catalog.Table, terms []queryparam.OrderTerm, def string) string {
	if len(terms) == 0 {
		return def
	}
	if rendered := compiler.CompileOrder(table, terms); rendered != "" {
		return rendered
	}
	return def
}
