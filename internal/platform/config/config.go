package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	MigrationsPath string
	JWTSecret      string
	JWTIssuer      string

	// Redis backs the balance cache and the rate limiter when set.
	RedisURL        string
	BalanceCacheTTL time.Duration

	RateLimit          string
	CORSAllowedOrigins []string

	// Concurrency
	DBLockTimeout     time.Duration
	LockRetryMax      uint64
	LockRetryInterval time.Duration

	// Ledger rules
	PaymentToleranceAbsolute        decimal.Decimal
	PaymentTolerancePercent         decimal.Decimal
	ReconciliationVarianceThreshold decimal.Decimal
	SettlementDefaultStrategy       string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "remittance-ledger")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("BALANCE_CACHE_TTL", "30s")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_LOCK_TIMEOUT", "3s")
	v.SetDefault("LOCK_RETRY_MAX", 3)
	v.SetDefault("LOCK_RETRY_INTERVAL", "50ms")
	v.SetDefault("PAYMENT_TOLERANCE_ABSOLUTE", "0")
	v.SetDefault("PAYMENT_TOLERANCE_PERCENT", "")
	v.SetDefault("RECONCILIATION_VARIANCE_THRESHOLD", "0")
	v.SetDefault("SETTLEMENT_DEFAULT_STRATEGY", "FIFO")

	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.DatabaseURL = v.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = v.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = v.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = v.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = v.GetString("MIGRATIONS_PATH")

	cfg.JWTSecret = v.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = v.GetString("JWT_ISSUER")

	cfg.RedisURL = v.GetString("REDIS_URL")
	cfg.BalanceCacheTTL = durationOr(v, "BALANCE_CACHE_TTL", 30*time.Second)

	cfg.RateLimit = v.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.DBLockTimeout = durationOr(v, "DB_LOCK_TIMEOUT", 3*time.Second)
	cfg.LockRetryMax = uint64(v.GetInt("LOCK_RETRY_MAX"))
	cfg.LockRetryInterval = durationOr(v, "LOCK_RETRY_INTERVAL", 50*time.Millisecond)

	cfg.PaymentToleranceAbsolute = decimalOr(v, "PAYMENT_TOLERANCE_ABSOLUTE", decimal.Zero)
	if v.GetString("PAYMENT_TOLERANCE_PERCENT") == "" {
		// No product-confirmed value exists; 2% admits the documented rounding overshoot.
		log.Println("Warning: PAYMENT_TOLERANCE_PERCENT not set. Defaulting to 2.")
		cfg.PaymentTolerancePercent = decimal.NewFromInt(2)
	} else {
		cfg.PaymentTolerancePercent = decimalOr(v, "PAYMENT_TOLERANCE_PERCENT", decimal.NewFromInt(2))
	}
	cfg.ReconciliationVarianceThreshold = decimalOr(v, "RECONCILIATION_VARIANCE_THRESHOLD", decimal.Zero)

	cfg.SettlementDefaultStrategy = strings.ToUpper(v.GetString("SETTLEMENT_DEFAULT_STRATEGY"))
	if cfg.SettlementDefaultStrategy != "FIFO" && cfg.SettlementDefaultStrategy != "BEST_RATE" {
		log.Printf("Warning: Invalid value for SETTLEMENT_DEFAULT_STRATEGY ('%s'). Defaulting to FIFO.\n", cfg.SettlementDefaultStrategy)
		cfg.SettlementDefaultStrategy = "FIFO"
	}

	return cfg
}

func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func decimalOr(v *viper.Viper, key string, def decimal.Decimal) decimal.Decimal {
	raw := v.GetString(key)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
