package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/api/middleware"
	"github.com/hemoglovida/dashboard/backend/internal/api/routes"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/bootstrap"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
)

const (
	reconcileBatch = 100
	warmInterval   = 5 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := bootstrap.SetupTelemetry(ctx, cfg)
	defer shutdownTelemetry()

	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer infra.Close()

	svc, err := bootstrap.NewServices(infra)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	// Background workers
	invalidation := services.NewCacheInvalidationService(infra.Cache, infra.EventBus, cfg.Facility.ID)
	if err := invalidation.Start(); err != nil {
		log.Warn().Err(err).Msg("cache invalidation disabled")
	} else {
		defer invalidation.Stop()
	}

	warming := services.NewCacheWarmingService(svc.Facility, svc.Dashboard, infra.Cache, cfg.Facility.ID)
	go warming.StartPeriodicWarming(ctx, warmInterval)

	if cfg.Scheduling.ReconcileInterval > 0 {
		go svc.Reconciler.Run(ctx, cfg.Scheduling.ReconcileInterval, reconcileBatch)
	}

	// Handlers
	h := routes.Handlers{
		Auth:        handlers.NewAuthHandler(svc.Auth),
		Appointment: handlers.NewAppointmentHandler(svc.Appointments, svc.Workflow, svc.Donors, infra.Clock),
		Schedule:    handlers.NewScheduleHandler(svc.Appointments, infra.Clock),
		Donor:       handlers.NewDonorHandler(svc.Donor),
		Campaign:    handlers.NewCampaignHandler(svc.Campaign),
		Facility:    handlers.NewFacilityHandler(svc.Facility),
		Activity:    handlers.NewActivityHandler(svc.Activities, svc.Dashboard),
		SSE:         handlers.NewSSEHandler(svc.Appointments, svc.Auth, infra.Clock, infra.Metrics),
	}

	cacheMiddleware := middleware.NewCacheMiddleware(infra.Cache, cfg.Facility.ID, infra.Metrics, nil)
	router := routes.NewRouter(h, svc.Auth, svc.Donors, cacheMiddleware, cfg.Server.AllowedOrigins, infra.Metrics)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // appointment streams stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("facility_id", cfg.Facility.ID).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
