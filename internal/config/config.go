package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig drives the realtime bridge and the leaders cache.
// With Enabled=false both fall back to in-process implementations.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Channel  string        `env:"REDIS_EVENTS_CHANNEL" envDefault:"ripbid:events"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"30s"`
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	Issuer    string `env:"AUTH_JWT_ISSUER" envDefault:""`
	AdminRole string `env:"AUTH_ADMIN_ROLE" envDefault:"admin"`
}

type StripeConfig struct {
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// CreditsConfig amounts are in minor units (1 credit = 100).
type CreditsConfig struct {
	EntryFeeGrant    int64 `env:"CREDITS_ENTRY_FEE_GRANT" envDefault:"2500"`
	LotteryEntryCost int64 `env:"CREDITS_LOTTERY_ENTRY_COST" envDefault:"500"`
}

type SweepConfig struct {
	Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5s"`
}
