package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/pkg/config"
	"github.com/hemoglovida/dashboard/backend/pkg/retry"
)

// NewListenerPool opens the pgx pool used for LISTEN/NOTIFY change events
func NewListenerPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = 8
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	err = retry.DoWithLog(ctx, retry.DefaultConfig(), "PostgreSQL listener",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.Logger(log.Logger, "PostgreSQL listener"),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect pgx pool after retries: %w", err)
	}

	return pool, nil
}
