package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/school-admin/internal/pkg/log"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - добавляет поля request_id/method/path и прокладывает обогащённый логгер в контекст;
//   - пишет одну финальную запись уровня Info: msg="http_client", status, dur
//     (или Warn с err при транспортной ошибке).
//
// Не логирует заголовки (Authorization!), тела и query-строку.
func WithLogging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = RequestID(r.Context())
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn("http_client",
					slog.String("err", err.Error()),
					slog.Duration("dur", time.Since(start)),
				)
				return nil, err
			}

			l.Info("http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
