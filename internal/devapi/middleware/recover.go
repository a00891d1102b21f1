package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/school-admin/internal/errors"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
)

// Recover перехватывает panic и отвечает 500 в форме DRF.
// Детали паники не утекают на клиент.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.From(r.Context()).
						LogAttrs(r.Context(), slog.LevelError, "panic",
							slog.String("path", r.URL.Path),
							slog.Any("reason", rec),
						)
					apierrors.WriteError(w, r, http.StatusInternalServerError, "A server error occurred.", "error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
