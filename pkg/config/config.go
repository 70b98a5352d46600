package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Env        string           `yaml:"env" validate:"oneof=development staging production test"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	EventBus   EventBusConfig   `yaml:"event_bus"`
	Typesense  TypesenseConfig  `yaml:"typesense"`
	Auth       AuthConfig       `yaml:"auth"`
	Facility   FacilityConfig   `yaml:"facility"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	OTEL       OTELConfig       `yaml:"otel"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	SSEPort        int      `yaml:"sse_port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EventBusConfig selects the change-notification backend
type EventBusConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory redis postgres"`
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
	APIKey  string `yaml:"api_key"`
}

// AuthConfig holds session token settings
type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret" validate:"required,min=16"`
	TokenTTL    time.Duration `yaml:"token_ttl" validate:"gt=0"`
	Issuer      string        `yaml:"issuer"`
}

// FacilityConfig identifies the collection facility this deployment operates
type FacilityConfig struct {
	ID string `yaml:"id" validate:"required"`
}

// SchedulingConfig holds appointment scheduling policies
type SchedulingConfig struct {
	DoubleBooking     string        `yaml:"double_booking" validate:"oneof=allow warn reject"`
	ClockRefresh      time.Duration `yaml:"clock_refresh" validate:"gt=0"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	TimeZone          string        `yaml:"time_zone"`
}

// TelegramConfig holds the alert bot settings
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token" validate:"required_if=Enabled true"`
	ChannelID int64  `yaml:"channel_id"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Endpoint       string `yaml:"endpoint"`
	Enabled        bool   `yaml:"enabled"`
}

// Defaults returns the configuration used when neither a file nor the environment set a value
func Defaults() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			SSEPort:        8081,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "hemoglovida",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		EventBus: EventBusConfig{Driver: "memory"},
		Typesense: TypesenseConfig{
			URL:    "http://localhost:8108",
			APIKey: "xyz",
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
			Issuer:   "hemoglovida-dashboard",
		},
		Scheduling: SchedulingConfig{
			DoubleBooking:     "allow",
			ClockRefresh:      30 * time.Second,
			ReconcileInterval: 5 * time.Minute,
			TimeZone:          "America/Sao_Paulo",
		},
		OTEL: OTELConfig{
			ServiceName:    "hemoglovida-dashboard",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment,
// and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("APP_ENV", cfg.Env)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.SSEPort = getEnvAsInt("SSE_PORT", cfg.Server.SSEPort)
	cfg.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvAsInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.EventBus.Driver = getEnv("EVENT_BUS_DRIVER", cfg.EventBus.Driver)

	cfg.Typesense.Enabled = getEnvAsBool("TYPESENSE_ENABLED", cfg.Typesense.Enabled)
	cfg.Typesense.URL = getEnv("TYPESENSE_URL", cfg.Typesense.URL)
	cfg.Typesense.APIKey = getEnv("TYPESENSE_API_KEY", cfg.Typesense.APIKey)

	cfg.Auth.TokenSecret = getEnv("AUTH_TOKEN_SECRET", cfg.Auth.TokenSecret)
	cfg.Auth.TokenTTL = getEnvAsDuration("AUTH_TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.Issuer = getEnv("AUTH_ISSUER", cfg.Auth.Issuer)

	cfg.Facility.ID = getEnv("FACILITY_ID", cfg.Facility.ID)

	cfg.Scheduling.DoubleBooking = getEnv("SCHEDULING_DOUBLE_BOOKING", cfg.Scheduling.DoubleBooking)
	cfg.Scheduling.ClockRefresh = getEnvAsDuration("SCHEDULING_CLOCK_REFRESH", cfg.Scheduling.ClockRefresh)
	cfg.Scheduling.ReconcileInterval = getEnvAsDuration("SCHEDULING_RECONCILE_INTERVAL", cfg.Scheduling.ReconcileInterval)
	cfg.Scheduling.TimeZone = getEnv("SCHEDULING_TIME_ZONE", cfg.Scheduling.TimeZone)

	cfg.Telegram.Enabled = getEnvAsBool("TELEGRAM_ENABLED", cfg.Telegram.Enabled)
	cfg.Telegram.BotToken = getEnv("TG_TOKEN", cfg.Telegram.BotToken)
	cfg.Telegram.ChannelID = int64(getEnvAsInt("TG_CHANNEL_ID", int(cfg.Telegram.ChannelID)))

	cfg.OTEL.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.OTEL.ServiceName)
	cfg.OTEL.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", cfg.OTEL.ServiceVersion)
	cfg.OTEL.Endpoint = getEnv("OTEL_ENDPOINT", cfg.OTEL.Endpoint)
	cfg.OTEL.Enabled = getEnvAsBool("OTEL_ENABLED", cfg.OTEL.Enabled)
}

// Validate checks struct constraints and the time zone name
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.Scheduling.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Location resolves the scheduling time zone
func (c *SchedulingConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL returns the connection string in URL form, as pgx expects it
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
