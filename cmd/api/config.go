package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/ripbid/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	LogFile         string        `env:"APP_LOG_FILE" envDefault:""`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	WSOrigins       []string      `env:"API_WS_ALLOWED_ORIGINS" envDefault:""`

	Postgres config.PostgresConfig
	Redis    config.RedisConfig
	Auth     config.AuthConfig
	Stripe   config.StripeConfig
	Credits  config.CreditsConfig
	Sweep    config.SweepConfig
}
