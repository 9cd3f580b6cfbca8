package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Settlement gateway drivers.
const (
	SettlementHTTP      = "http"
	SettlementSimulated = "simulated"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	StorageDriver string
	MigrationsDir string

	JWTSecret string
	JWTIssuer string

	// Ledger
	BankCode          string
	LedgerLockTimeout time.Duration
	LedgerMaxRetries  uint64

	// Idempotency
	IdempotencyWaitTimeout  time.Duration
	IdempotencyTTL          time.Duration
	IdempotencyLockDuration time.Duration

	// External settlement
	SettlementDriver        string
	SettlementBaseURL       string
	SettlementAPIKey        string
	SettlementTimeout       time.Duration
	SettlementWebhookSecret string
	SimulatedSettlementSeed int64

	// Reconciliation worker
	ReconcileInterval    time.Duration
	ReconcileMinAge      time.Duration
	ReconcileBatchSize   int
	ReconcileConcurrency int

	// Notifications
	KafkaBrokers      []string
	KafkaTopic        string
	EventPublishLimit time.Duration

	// HTTP surface
	RateLimit          string
	CORSAllowedOrigins []string
	PosthogAPIKey      string
	PosthogEndpoint    string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("MIGRATIONS_DIR", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "banking-ledger")
	viper.SetDefault("BANK_CODE", "LEDG01")
	viper.SetDefault("LEDGER_LOCK_TIMEOUT", "3s")
	viper.SetDefault("LEDGER_MAX_RETRIES", 3)
	viper.SetDefault("IDEMPOTENCY_WAIT_TIMEOUT", "5s")
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("IDEMPOTENCY_LOCK_DURATION", "2m")
	viper.SetDefault("SETTLEMENT_DRIVER", SettlementSimulated)
	viper.SetDefault("SETTLEMENT_BASE_URL", "")
	viper.SetDefault("SETTLEMENT_API_KEY", "")
	viper.SetDefault("SETTLEMENT_TIMEOUT", "10s")
	viper.SetDefault("SETTLEMENT_WEBHOOK_SECRET", "")
	viper.SetDefault("SIMULATED_SETTLEMENT_SEED", 1)
	viper.SetDefault("RECONCILE_INTERVAL", "30s")
	viper.SetDefault("RECONCILE_MIN_AGE", "30s")
	viper.SetDefault("RECONCILE_BATCH_SIZE", 100)
	viper.SetDefault("RECONCILE_CONCURRENCY", 4)
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "ledger.transactions")
	viper.SetDefault("EVENT_PUBLISH_TIMEOUT", "5s")
	viper.SetDefault("RATE_LIMIT", "120-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

	// Environment variables override defaults and .env values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsDir = viper.GetString("MIGRATIONS_DIR")

	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		log.Printf("Warning: unknown STORAGE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StorageDriver, StoragePostgres)
		cfg.StorageDriver = StoragePostgres
	}
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.BankCode = viper.GetString("BANK_CODE")
	cfg.LedgerLockTimeout = durationOrDefault("LEDGER_LOCK_TIMEOUT", 3*time.Second)
	cfg.LedgerMaxRetries = uint64(viper.GetInt("LEDGER_MAX_RETRIES"))

	cfg.IdempotencyWaitTimeout = durationOrDefault("IDEMPOTENCY_WAIT_TIMEOUT", 5*time.Second)
	cfg.IdempotencyTTL = durationOrDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	cfg.IdempotencyLockDuration = durationOrDefault("IDEMPOTENCY_LOCK_DURATION", 2*time.Minute)

	cfg.SettlementDriver = strings.ToLower(viper.GetString("SETTLEMENT_DRIVER"))
	cfg.SettlementBaseURL = viper.GetString("SETTLEMENT_BASE_URL")
	cfg.SettlementAPIKey = viper.GetString("SETTLEMENT_API_KEY")
	cfg.SettlementTimeout = durationOrDefault("SETTLEMENT_TIMEOUT", 10*time.Second)
	cfg.SettlementWebhookSecret = viper.GetString("SETTLEMENT_WEBHOOK_SECRET")
	cfg.SimulatedSettlementSeed = viper.GetInt64("SIMULATED_SETTLEMENT_SEED")
	if cfg.SettlementDriver == SettlementHTTP && cfg.SettlementBaseURL == "" {
		log.Println("Warning: SETTLEMENT_BASE_URL not set. Falling back to the simulated settlement gateway.")
		cfg.SettlementDriver = SettlementSimulated
	}
	if cfg.SettlementWebhookSecret == "" {
		log.Println("Warning: SETTLEMENT_WEBHOOK_SECRET not set. Settlement webhooks will be rejected.")
	}

	cfg.ReconcileInterval = durationOrDefault("RECONCILE_INTERVAL", 30*time.Second)
	cfg.ReconcileMinAge = durationOrDefault("RECONCILE_MIN_AGE", 30*time.Second)
	cfg.ReconcileBatchSize = viper.GetInt("RECONCILE_BATCH_SIZE")
	cfg.ReconcileConcurrency = viper.GetInt("RECONCILE_CONCURRENCY")
	if cfg.ReconcileConcurrency < 1 {
		cfg.ReconcileConcurrency = 1
	}

	cfg.KafkaBrokers = splitList(viper.GetString("KAFKA_BROKERS"))
	cfg.KafkaTopic = viper.GetString("KAFKA_TOPIC")
	cfg.EventPublishLimit = durationOrDefault("EVENT_PUBLISH_TIMEOUT", 5*time.Second)

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	return cfg, nil
}

// durationOrDefault parses a duration setting, logging and falling back on bad input.
func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
