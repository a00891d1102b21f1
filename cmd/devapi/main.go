package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/school-admin/internal/config"
	"github.com/pribylovaa/school-admin/internal/devapi"
	"github.com/pribylovaa/school-admin/internal/devapi/auth"
	"github.com/pribylovaa/school-admin/internal/pkg/redact"
)

const shutdownTimeout = 10 * time.Second

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath string
		rotate     bool
		noSeed     bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&rotate, "rotate-refresh", false, "issue a new refresh token on every refresh")
	flag.BoolVar(&noSeed, "no-seed", false, "start with empty collections")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting devapi", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	authSvc, err := auth.New(auth.Config{
		JWTSecret:     cfg.DevAPI.JWTSecret,
		AccessTTL:     cfg.DevAPI.AccessTTL,
		RefreshTTL:    cfg.DevAPI.RefreshTTL,
		RotateRefresh: rotate,
	}, cfg.DevAPI.AdminUsername, cfg.DevAPI.AdminPassword)
	if err != nil {
		log.Error("auth_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("admin_configured",
		slog.String("username", redact.Username(cfg.DevAPI.AdminUsername)),
		slog.String("password", redact.Password()),
		slog.Duration("access_ttl", cfg.DevAPI.AccessTTL),
		slog.Bool("rotate_refresh", rotate),
	)

	apiHandler, err := devapi.NewRouter(devapi.Options{
		Logger:      log,
		Timeout:     cfg.DevAPI.Timeout,
		Auth:        authSvc,
		Registerer:  prometheus.DefaultRegisterer,
		Collections: devapi.NewCollections(!noSeed),
		CORSOrigins: cfg.DevAPI.CORSOrigins,
	})
	if err != nil {
		log.Error("router_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var ready atomic.Bool

	srv := &http.Server{
		Addr:              cfg.DevAPI.Addr(),
		Handler:           opsMux(&ready, apiHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := serve(rootCtx, log, srv, &ready); err != nil {
		log.Error("devapi_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("devapi_stopped")
}

// opsMux — служебные эндпойнты поверх API: /livez, /healthz, /metrics.
func opsMux(ready *atomic.Bool, api http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	return mux
}

// serve слушает srv.Addr до отмены ctx и затем гасит сервер за shutdownTimeout.
func serve(ctx context.Context, log *slog.Logger, srv *http.Server, ready *atomic.Bool) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	log.Info("http_listen_start", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	ready.Store(true)

	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case err := <-errCh:
		return err
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	}

	return <-errCh
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
