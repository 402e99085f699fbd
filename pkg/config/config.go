package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	// MigrationsPath overrides the embedded migrations, e.g. file://migrations.
	MigrationsPath string

	// Storage selects the appointment store: "postgres" or "memory".
	// Memory mode seeds itself from FixturesPath and needs no database.
	Storage      string
	FixturesPath string

	// DATABASE_URL is the runtime connection (often a pooler);
	// DIRECT_URL is the direct connection used for migrations.
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// RedisAddr enables the shared undo ledger. Empty keeps undo in process memory.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers is a comma-separated list; empty disables publishing notifications.
	KafkaBrokers string
	KafkaTopic   string

	UndoWindow time.Duration

	Session SessionConfig

	// AllowedOrigins is the CORS allowlist for the staff dashboard.
	AllowedOrigins []string

	OTel OTelConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type SessionConfig struct {
	Secret   string
	Audience string
	Issuer   string
	TTL      time.Duration
}

type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		LogLevel:       env("LOG_LEVEL", "info"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		Storage:        env("STORAGE", "postgres"),
		FixturesPath:   os.Getenv("FIXTURES_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "petcare"),
			User:     env("DB_USER", "petcare"),
			Password: env("DB_PASSWORD", "petcare"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:    env("KAFKA_TOPIC", "appointment.notifications"),
		UndoWindow:    envDuration("UNDO_WINDOW", 5*time.Second),
		Session: SessionConfig{
			Secret:   os.Getenv("SESSION_SECRET"),
			Audience: env("SESSION_AUDIENCE", "petcare-dashboard"),
			Issuer:   env("SESSION_ISSUER", "petcare"),
			TTL:      envDuration("SESSION_TTL", 12*time.Hour),
		},
		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
		OTel: OTelConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			Endpoint:    env("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio: envRatio("OTEL_SAMPLING_RATIO", 1),
		},
	}
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envRatio(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}
