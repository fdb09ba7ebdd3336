package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/freshroute-backend/api/responses"
	pkgerrors "github.com/angelmondragon/freshroute-backend/pkg/errors"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL error response. The log
// line carries the route and its path ids (recordId, orderId, ...) so the
// failing entity can be found. http.ErrAbortHandler is re-raised.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{
						"panic":  fmt.Sprint(rec),
						"method": r.Method,
						"stack":  string(debug.Stack()),
					}
					if rctx := chi.RouteContext(ctx); rctx != nil {
						if pattern := rctx.RoutePattern(); pattern != "" {
							fields["route"] = pattern
						}
						for i, key := range rctx.URLParams.Keys {
							if i < len(rctx.URLParams.Values) {
								fields[key] = rctx.URLParams.Values[i]
							}
						}
					}
					ctx = logg.WithFields(ctx, fields)
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
