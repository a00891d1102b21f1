package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/school-admin/internal/errors"
)

// Timeout ограничивает обработку запроса d. Дедлайн, уже пришедший с
// контекстом, не заменяется; d <= 0 отключает мидлвар.
//
// Если обработчик вернулся по истёкшему дедлайну, ничего не записав,
// клиент получает 503 {"detail":"Request timed out.","code":"timeout"}.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if !sw.written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				apierrors.WriteError(sw, r, http.StatusServiceUnavailable, "Request timed out.", "timeout")
			}
		})
	}
}
