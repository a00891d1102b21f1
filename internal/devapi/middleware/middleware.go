// middleware — net/http обёртки dev API: восстановление после паник,
// X-Request-Id, журнал запросов, дедлайн, Bearer-аутентификация, метрики.
package middleware

import "net/http"

// Middleware оборачивает обработчик dev API.
type Middleware func(http.Handler) http.Handler

// Chain собирает обработчик так, что mws[0] оказывается самым внешним:
// Chain(h, Recover(), RequestID()) видит панику и из RequestID, и из h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusWriter запоминает отданный статус и число байт тела для
// журнала, метрик и Timeout. status == 0 — ответ ещё не начат.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(p)
	w.count += n
	return n, err
}

// Unwrap открывает исходный writer для http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// written — обработчик уже начал ответ.
func (w *statusWriter) written() bool { return w.status != 0 }
