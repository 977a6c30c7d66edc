package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"geochat/internal/chat"
	"geochat/internal/config"
	"geochat/internal/history"
	"geochat/internal/presence"
	"geochat/internal/preview"
	"geochat/internal/relay"
)

func main() {
	// 1. Config
	cfg := config.Load()

	// 2. Logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	// 3. History store (file-backed, best-effort persistence)
	store := history.NewStore(cfg.HistoryFile, history.DefaultLimit, logger)
	store.Load()

	// 4. Presence registry and preview fetcher
	registry := presence.NewRegistry()

	var fetcher *preview.Fetcher
	if cfg.PreviewEnabled {
		fetcher = preview.NewFetcher(preview.DefaultTimeout, logger)
	}

	// 5. Broadcast hub
	hub := chat.NewHub(registry, store, fetcher, logger)
	go hub.Run()

	wsHandler := chat.NewHandler(hub, logger)
	relayHandler := relay.NewHandler(logger)

	// 6. Routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/index.html")
	})
	r.Get("/ws", wsHandler.ServeWS)
	r.Get("/radio-proxy", relayHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// No WriteTimeout: the radio proxy streams unbounded audio, and a write
	// timeout would sever long-lived streams mid-play.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Bool("previews", cfg.PreviewEnabled).
			Msg("starting geochat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown with active connections")
	}

	// Stop the hub loop, then flush any pending history write.
	hub.Stop()
	store.Close()

	logger.Info().Msg("server stopped")
}

// requestLogger records method, path, status, and latency for every request.
func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
