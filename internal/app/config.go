package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/okrbridge-backend/internal/data/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/data/db"
	"github.com/yungbote/okrbridge-backend/internal/observability"
)

type Config struct {
	LogMode string

	Postgres db.PostgresConfig

	// RedisAddr switches lock coordination from in-process to Redis.
	RedisAddr   string
	LockTTL     time.Duration
	MetricsAddr string

	Policy aggregates.OKRPolicy
	Otel   observability.OtelConfig
}

// newViper binds every setting to its environment variable with a default.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("LOG_MODE", "development")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_NAME", "okrbridge")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("OKR_LOCK_TTL_SECONDS", 30)
	v.SetDefault("METRICS_ADDR", "")

	v.SetDefault("OKR_RETAIN_EMPTY_ROLLUP", true)
	v.SetDefault("OKR_AT_RISK_WINDOW_DAYS", 5.0)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "okrbridge")
	v.SetDefault("OTEL_ENVIRONMENT", "")
	v.SetDefault("OTEL_SERVICE_VERSION", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_HEADERS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_TRACES_SAMPLER_RATIO", 1.0)
	return v
}

func LoadConfig() Config {
	return configFrom(newViper())
}

func configFrom(v *viper.Viper) Config {
	lockTTL := v.GetInt("OKR_LOCK_TTL_SECONDS")
	if lockTTL <= 0 {
		lockTTL = 30
	}
	windowDays := v.GetFloat64("OKR_AT_RISK_WINDOW_DAYS")
	if windowDays <= 0 {
		windowDays = 5
	}

	return Config{
		LogMode: strings.TrimSpace(v.GetString("LOG_MODE")),
		Postgres: db.PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Name:     v.GetString("POSTGRES_NAME"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		RedisAddr:   strings.TrimSpace(v.GetString("REDIS_ADDR")),
		LockTTL:     time.Duration(lockTTL) * time.Second,
		MetricsAddr: strings.TrimSpace(v.GetString("METRICS_ADDR")),
		Policy: aggregates.OKRPolicy{
			ResetEmptyRollup: !v.GetBool("OKR_RETAIN_EMPTY_ROLLUP"),
			AtRiskWindow:     time.Duration(windowDays * float64(24*time.Hour)),
		},
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Environment: v.GetString("OTEL_ENVIRONMENT"),
			Version:     v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:     observability.ParseHeaders(v.GetString("OTEL_EXPORTER_OTLP_HEADERS")),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio: v.GetFloat64("OTEL_TRACES_SAMPLER_RATIO"),
		},
	}
}
