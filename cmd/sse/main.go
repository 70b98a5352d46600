package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/api/middleware"
	"github.com/hemoglovida/dashboard/backend/internal/bootstrap"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := bootstrap.SetupTelemetry(ctx, cfg)
	defer shutdownTelemetry()

	if cfg.EventBus.Driver == "memory" {
		log.Warn().Msg("SSE server on the in-memory event bus only sees its own writes; set EVENT_BUS_DRIVER=redis or postgres")
	}

	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer infra.Close()

	svc, err := bootstrap.NewServices(infra)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	sseHandler := handlers.NewSSEHandler(svc.Appointments, svc.Auth, infra.Clock, infra.Metrics)
	session := middleware.RequireSession(svc.Auth)
	admin := func(fn http.HandlerFunc) http.Handler {
		return session(middleware.RequireAdmin(fn))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/stream/appointments", admin(sseHandler.StreamAppointments))
	mux.Handle("GET /api/stream/schedule", admin(sseHandler.StreamSchedule))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		stats := map[string]interface{}{
			"connected_clients": sseHandler.GetClientCount(),
			"streams":           sseHandler.ClientCounts(),
		}
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error().Err(err).Msg("failed to encode stream stats")
		}
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.SSEPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("SSE server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("SSE server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("SSE server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("SSE server stopped")
}
