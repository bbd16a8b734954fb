package codehub

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is the environment-variable form of [Config], plus the
// Redis connection settings the caller needs to build a client.
type EnvConfig struct {
	TokenSecret      string        `env:"CODEHUB_TOKEN_SECRET"`
	TokenTTL         time.Duration `env:"CODEHUB_TOKEN_TTL, default=168h"`
	TokenIssuer      string        `env:"CODEHUB_TOKEN_ISSUER, default=codehub"`
	StorePrefix      string        `env:"CODEHUB_STORE_PREFIX, default=codehub"`
	ValidateInterval time.Duration `env:"CODEHUB_VALIDATE_INTERVAL, default=60s"`
	RefreshWindow    time.Duration `env:"CODEHUB_REFRESH_WINDOW, default=24h"`
	AuditEnabled     bool          `env:"CODEHUB_AUDIT_ENABLED, default=false"`
	MetricsEnabled   bool          `env:"CODEHUB_METRICS_ENABLED, default=false"`
	SeedDemoAccount  bool          `env:"CODEHUB_SEED_DEMO, default=false"`
	DemoPassword     string        `env:"CODEHUB_DEMO_PASSWORD"`

	RedisAddr     string `env:"CODEHUB_REDIS_ADDR, default=localhost:6379"`
	RedisPassword string `env:"CODEHUB_REDIS_PASSWORD"`
	RedisDB       int    `env:"CODEHUB_REDIS_DB, default=0"`
}

// LoadEnv reads EnvConfig from the process environment.
func LoadEnv(ctx context.Context) (*EnvConfig, error) {
	var env EnvConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Config converts the environment form into an engine [Config],
// starting from defaults.
func (e *EnvConfig) Config() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = []byte(e.TokenSecret)
	cfg.Token.TTL = e.TokenTTL
	cfg.Token.Issuer = e.TokenIssuer
	cfg.Store.Prefix = e.StorePrefix
	cfg.Session.ValidateInterval = e.ValidateInterval
	cfg.Session.RefreshWindow = e.RefreshWindow
	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Demo.SeedAccount = e.SeedDemoAccount
	cfg.Demo.Password = e.DemoPassword
	return cfg
}
