package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/adspend-reports/cmd/api"
	"github.com/FACorreiaa/adspend-reports/pkg/config"
)

const (
	initTimeout     = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded, using process environment", "error", err)
	}

	if err := run(logger); err != nil {
		logger.Error("adspend reports API exited", "error", err)
		os.Exit(1)
	}
}

// run owns the dependency lifecycle so Cleanup happens on every exit path.
func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	deps, err := api.InitDependencies(initCtx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Cleanup()

	servers := []*http.Server{{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second, // multipart uploads up to MAX_UPLOAD_MB
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
	if cfg.Profiling.Enabled {
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf("localhost:%d", cfg.Profiling.Port),
			Handler:           pprofMux(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	return serve(ctx, logger, servers)
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// serve listens on every server until ctx is cancelled or one of them fails,
// then drains them all. The first server is the API.
func serve(ctx context.Context, logger *slog.Logger, servers []*http.Server) error {
	errs := make(chan error, len(servers))
	for i, srv := range servers {
		name := "api"
		if i > 0 {
			name = "pprof"
		}
		go func() {
			logger.Info("listening", "server", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	var serveErr error
	select {
	case serveErr = <-errs:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			serveErr = errors.Join(serveErr, fmt.Errorf("graceful shutdown of %s failed: %w", srv.Addr, err))
		}
	}

	if serveErr == nil {
		logger.Info("servers stopped gracefully")
	}
	return serveErr
}
