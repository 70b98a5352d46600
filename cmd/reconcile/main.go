// Command reconcile applies donor eligibility for completed appointments
// whose second phase never finished, then exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/bootstrap"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
)

func main() {
	limit := flag.Int("limit", 500, "maximum appointments to reconcile")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-reconcile", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer infra.Close()

	svc, err := bootstrap.NewServices(infra)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	n, err := svc.Reconciler.ReconcilePending(ctx, *limit)
	if err != nil {
		log.Error().Err(err).Int("reconciled", n).Msg("reconcile stopped early")
		infra.Close()
		os.Exit(1)
	}
	log.Info().Int("reconciled", n).Msg("reconcile finished")
}
