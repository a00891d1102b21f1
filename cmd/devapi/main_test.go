package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpsMux(t *testing.T) {
	var ready atomic.Bool

	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	mux := opsMux(&ready, api)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	require.Equal(t, http.StatusOK, get("/livez"))
	require.Equal(t, http.StatusServiceUnavailable, get("/healthz"))

	ready.Store(true)
	require.Equal(t, http.StatusOK, get("/healthz"))
	require.Equal(t, http.StatusOK, get("/metrics"))
	require.Equal(t, http.StatusTeapot, get("/api/groups/"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	var ready atomic.Bool

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, log, srv, &ready) }()

	require.Eventually(t, ready.Load, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.False(t, ready.Load())
}

func TestServe_ListenError(t *testing.T) {
	var ready atomic.Bool

	srv := &http.Server{Addr: "256.0.0.1:bad"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := serve(context.Background(), log, srv, &ready)
	require.Error(t, err)
	require.False(t, ready.Load())
}
