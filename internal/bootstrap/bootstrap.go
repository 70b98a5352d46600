// Package bootstrap connects the infrastructure clients and builds the
// application services shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/adapters/cache"
	"github.com/hemoglovida/dashboard/backend/internal/adapters/database"
	"github.com/hemoglovida/dashboard/backend/internal/adapters/events"
	"github.com/hemoglovida/dashboard/backend/internal/adapters/search"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/redis"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/typesense"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/notifications"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
)

// localCacheSize bounds the in-process cache used when Redis is disabled
const localCacheSize = 4096

// Infra holds the connected clients
type Infra struct {
	Config   *config.Config
	Clock    calendar.Clock
	Postgres *postgres.Client
	Redis    *redis.Client
	Cache    providers.CacheProvider
	EventBus providers.EventBus
	Search   repositories.DonorSearchRepository
	Metrics  *observability.Metrics

	closers []func() error
}

// Open connects to Postgres and, when configured, Redis and Typesense, then
// selects the cache and event bus backends.
func Open(ctx context.Context, cfg *config.Config) (*Infra, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}

	infra := &Infra{
		Config: cfg,
		Clock:  calendar.SystemClock{Location: loc},
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	infra.Metrics = metrics

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}
	infra.Postgres = pgClient
	infra.closers = append(infra.closers, pgClient.Close)

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		infra.Redis = redisClient
		infra.closers = append(infra.closers, redisClient.Close)
		infra.Cache = cache.NewRedisAdapter(redisClient)
	} else {
		lru, err := cache.NewLRUAdapter(localCacheSize)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("failed to initialize local cache: %w", err)
		}
		infra.Cache = lru
		log.Warn().Msg("Redis disabled; using in-process cache")
	}

	bus, err := openEventBus(ctx, cfg, infra)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.EventBus = bus
	// closed first so subscribers stop before their clients go away
	infra.closers = append(infra.closers, bus.Close)

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable; donor search falls back to the database")
		} else {
			if err := tsClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to init Typesense schema")
			}
			infra.Search = search.NewTypesenseAdapter(tsClient)
		}
	}

	return infra, nil
}

func openEventBus(ctx context.Context, cfg *config.Config, infra *Infra) (providers.EventBus, error) {
	switch cfg.EventBus.Driver {
	case "redis":
		if infra.Redis == nil {
			return nil, errors.New("event bus driver redis requires REDIS_ENABLED=true")
		}
		log.Info().Msg("using Redis event bus")
		return events.NewRedisEventBus(infra.Redis), nil
	case "postgres":
		pool, err := postgres.NewListenerPool(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize listener pool: %w", err)
		}
		infra.closers = append(infra.closers, func() error {
			pool.Close()
			return nil
		})
		log.Info().Msg("using Postgres LISTEN/NOTIFY event bus")
		return events.NewPostgresEventBus(pool), nil
	default:
		log.Warn().Msg("using in-memory event bus; changes are not shared across processes")
		return events.NewMemoryEventBus(), nil
	}
}

// Close releases every client in reverse order of opening
func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			log.Warn().Err(err).Msg("error closing client")
		}
	}
	i.closers = nil
}

// Services are the application services of one facility
type Services struct {
	Donors       repositories.DonorRepository
	Appointments *services.AppointmentStore
	Workflow     *services.AppointmentWorkflow
	Eligibility  *services.EligibilityService
	Reconciler   *services.EligibilityReconciler
	Activities   *services.ActivityService
	Donor        *services.DonorService
	Campaign     *services.CampaignService
	Facility     *services.FacilityService
	Dashboard    *services.DashboardService
	Auth         *services.AuthService
}

// NewServices builds the services on top of infra
func NewServices(infra *Infra) (*Services, error) {
	cfg := infra.Config
	facilityID := cfg.Facility.ID

	policy, err := services.ParseDoubleBookingPolicy(cfg.Scheduling.DoubleBooking)
	if err != nil {
		return nil, err
	}

	facilities := database.NewCachedFacilityAdapter(database.NewFacilityAdapter(infra.Postgres), infra.Cache)
	appointmentRepo := database.NewAppointmentAdapter(infra.Postgres)
	donorRepo := database.NewDonorAdapter(infra.Postgres)
	campaignRepo := database.NewCampaignAdapter(infra.Postgres)
	activityRepo := database.NewActivityAdapter(infra.Postgres)
	userRepo := database.NewUserAdapter(infra.Postgres)

	alerts, err := newAlertSender(&cfg.Telegram)
	if err != nil {
		return nil, err
	}

	activities := services.NewActivityService(activityRepo, facilityID, infra.Clock)
	store := services.NewAppointmentStore(appointmentRepo, infra.EventBus, activities, facilityID, policy, infra.Clock)
	eligibility := services.NewEligibilityService(donorRepo, appointmentRepo, infra.EventBus)
	completion := services.NewCompletionService(store, eligibility, infra.Clock, infra.Metrics)

	return &Services{
		Donors:       donorRepo,
		Appointments: store,
		Workflow:     services.NewAppointmentWorkflow(store, completion, activities, infra.Clock, infra.Metrics),
		Eligibility:  eligibility,
		Reconciler:   services.NewEligibilityReconciler(appointmentRepo, eligibility, infra.Clock, infra.Metrics),
		Activities:   activities,
		Donor:        services.NewDonorService(donorRepo, infra.Search, activities, infra.EventBus, facilityID),
		Campaign:     services.NewCampaignService(campaignRepo, facilities, alerts, activities, infra.EventBus, facilityID, infra.Clock),
		Facility:     services.NewFacilityService(facilities, infra.EventBus, facilityID),
		Dashboard:    services.NewDashboardService(donorRepo, campaignRepo, appointmentRepo, activityRepo, infra.Cache, facilityID, infra.Clock, infra.Metrics),
		Auth:         services.NewAuthService(userRepo, infra.Cache, infra.EventBus, &cfg.Auth, infra.Clock),
	}, nil
}

func newAlertSender(cfg *config.TelegramConfig) (providers.AlertSender, error) {
	logger := log.With().Str("component", "alerts").Logger()
	if !cfg.Enabled {
		logger.Warn().Msg("Telegram disabled; campaign alerts are only logged")
		return notifications.NewLogSender(logger), nil
	}
	sender, err := notifications.NewTelegramSender(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram sender: %w", err)
	}
	return sender, nil
}

// SetupTelemetry starts the OTLP exporters when configured and returns their shutdown
func SetupTelemetry(ctx context.Context, cfg *config.Config) func() {
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint == "" {
		return func() {}
	}

	shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
	if err != nil {
		log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		return func() {}
	}
	log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
		}
	}
}
