package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/school-admin/internal/apiclient/transport"
	apierrors "github.com/pribylovaa/school-admin/internal/errors"
)

// capHandler — тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - собирает attrs из каждой записи в map[string]any.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)

	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}

	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) apierrors.Detail {
	t.Helper()
	var d apierrors.Detail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	return d
}

func TestChain_Order(t *testing.T) {
	order := []string{}

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-begin")
				next.ServeHTTP(w, r)
				order = append(order, name+"-end")
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, mw("m1"), mw("m2")).ServeHTTP(rr, makeReq("/chain"))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenID, seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get(transport.HeaderRequestID)
		seenCtxID = transport.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get(transport.HeaderRequestID)
	require.Len(t, respID, 32) // 16 байт → 32 hex-символа
	require.Equal(t, respID, seenID)
	require.Equal(t, respID, seenCtxID)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = transport.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set(transport.HeaderRequestID, given)
	Chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get(transport.HeaderRequestID))
	require.Equal(t, given, seenCtxID)
}

type validatorFunc func(string) (string, error)

func (f validatorFunc) Validate(token string) (string, error) { return f(token) }

func TestAuthenticate(t *testing.T) {
	v := validatorFunc(func(token string) (string, error) {
		if token == "good" {
			return "admin", nil
		}
		return "", errors.New("bad token")
	})

	var user string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = User(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), Authenticate(v))

	tcs := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{"missing", "", http.StatusUnauthorized, CodeNotAuthenticated, DetailNotAuthenticated},
		{"basic_scheme", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized, CodeNotAuthenticated, DetailNotAuthenticated},
		{"empty_bearer", "Bearer   ", http.StatusUnauthorized, CodeNotAuthenticated, DetailNotAuthenticated},
		{"invalid", "Bearer nope", http.StatusUnauthorized, CodeTokenNotValid, DetailTokenNotValid},
		{"valid", "Bearer good", http.StatusNoContent, "", ""},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			user = ""
			rr := httptest.NewRecorder()
			req := makeReq("/fines/")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			h.ServeHTTP(rr, req)

			require.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode == "" {
				require.Equal(t, "admin", user)
				return
			}

			d := decodeDetail(t, rr)
			require.Equal(t, tc.wantCode, d.Code)
			require.Equal(t, tc.wantDetail, d.Detail)
			require.Empty(t, user)
		})
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	var left time.Duration

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, ok := r.Context().Deadline()
		hasDeadline = ok
		if ok {
			left = time.Until(dl)
		}
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	Chain(h, Timeout(50*time.Millisecond)).ServeHTTP(rr, makeReq("/timeout"))

	require.True(t, hasDeadline)
	require.Greater(t, left, time.Duration(0))
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, _ := r.Context().Deadline()
		childDL = dl
		w.WriteHeader(http.StatusOK)
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := makeReq("/timeout2").WithContext(parent)

	rr := httptest.NewRecorder()
	Chain(h, Timeout(1*time.Second)).ServeHTTP(rr, req)

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_NonPositiveIsNoop(t *testing.T) {
	var hasDeadline bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/"))
	require.False(t, hasDeadline)
}

func TestTimeout_SilentHandlerGets503(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rr := httptest.NewRecorder()
	Chain(h, Timeout(20*time.Millisecond)).ServeHTTP(rr, makeReq("/slow"))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "timeout", body.Code)
	require.Equal(t, "Request timed out.", body.Detail)
}

func TestTimeout_WrittenResponseIsKept(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		<-r.Context().Done()
	})

	rr := httptest.NewRecorder()
	Chain(h, Timeout(20*time.Millisecond)).ServeHTTP(rr, makeReq("/slow"))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Empty(t, rr.Body.String())
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	Chain(panicHandler, Recover()).ServeHTTP(rr, makeReq("/panic"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	d := decodeDetail(t, rr)
	require.Equal(t, "error", d.Code)
	require.NotContains(t, d.Detail, "boom")
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	h := &capHandler{}
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Не вызываем WriteHeader — статус должен стать 200 после Write.
		_, _ = w.Write([]byte("0123456789"))
	})

	// Порядок важен: RequestID до Logging, чтобы id попал в attrs лога.
	handler := Chain(final, RequestID(), Logging(logger))

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set(transport.HeaderRequestID, rid)

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http", h.lastMsg)

	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.EqualValues(t, 10, h.attrs["bytes"])
	require.Equal(t, rid, h.attrs["request_id"])

	_, hasDur := h.attrs["dur"]
	require.True(t, hasDur)
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()

	r := chi.NewRouter()
	r.Use(Metrics(reg))
	r.Get("/fines/{id}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, p := range []string{"/fines/1/", "/fines/2/"} {
		r.ServeHTTP(httptest.NewRecorder(), makeReq(p))
	}

	n, err := testutil.GatherAndCount(reg, "schoolapi_devapi_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, n, "one series per route, not per raw path")
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newStatusWriter(rr)

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 4, sw.count)
}

func TestStatusWriter_KeepsFirstStatusAndUnwraps(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := newStatusWriter(rr)
	require.False(t, sw.written())

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)

	require.True(t, sw.written())
	require.Equal(t, http.StatusCreated, sw.status)
	require.Same(t, rr, sw.Unwrap())
}
