package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const devJWTSecret = "dev-secret-change-me"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr        string `envconfig:"APP_ADDR" default:":8080"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"hrleave.db"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`

	JWTSecret          string   `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes       int64    `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	MetricsEnabled     bool     `envconfig:"METRICS_ENABLED" default:"true"`
	RunMigrations      bool     `envconfig:"RUN_MIGRATIONS" default:"true"`
	RunSeed            bool     `envconfig:"RUN_SEED" default:"true"`

	EmailFrom    string `envconfig:"EMAIL_FROM" default:"no-reply@example.com"`
	EmailEnabled bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `envconfig:"SMTP_USE_TLS" default:"true"`

	LeaveStrictPolicy    bool          `envconfig:"LEAVE_STRICT_POLICY" default:"false"`
	LeaveAccrualInterval time.Duration `envconfig:"LEAVE_ACCRUAL_INTERVAL" default:"24h"`
	LeaveAccrualCron     string        `envconfig:"LEAVE_ACCRUAL_CRON" default:"0 1 * * *"`
	AccrualConcurrency   int           `envconfig:"ACCRUAL_CONCURRENCY" default:"4"`
	AccrualLockTTL       time.Duration `envconfig:"ACCRUAL_LOCK_TTL" default:"30s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.AccrualConcurrency <= 0 {
		return fmt.Errorf("ACCRUAL_CONCURRENCY must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
