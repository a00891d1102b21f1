package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const ctxRequestID ctxKey = "request_id"

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// WithRequestID кладёт id запроса в контекст; WithMetadata отправит его в заголовке.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestID достаёт id запроса из контекста.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// WithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id: из заголовка запроса, из контекста или новый UUID;
//   - User-Agent: если передан параметром.
//
// Исходный *http.Request не модифицируется (контракт RoundTripper).
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = RequestID(r.Context())
			}
			if rid == "" {
				rid = uuid.NewString()
			}

			out := r.Clone(WithRequestID(r.Context(), rid))
			out.Header.Set(HeaderRequestID, rid)
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
