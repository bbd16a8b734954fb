package codehub

import (
	"errors"
	"time"
)

// Config defines the engine's tunable behavior.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Token    TokenConfig
	Store    StoreConfig
	Password PasswordConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Demo     DemoConfig
}

// TokenConfig controls session-token issuance.
type TokenConfig struct {
	// TTL is the token lifetime. Expiry is strict: a token is invalid
	// at exactly its expiry instant.
	TTL    time.Duration
	Secret []byte
	Issuer string
}

// StoreConfig controls the dual-scope session store.
type StoreConfig struct {
	// Prefix namespaces every Redis key written by the engine.
	Prefix string
}

// PasswordConfig carries the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// UpgradeOnLogin re-hashes a password transparently when its
	// stored hash used weaker parameters.
	UpgradeOnLogin bool
}

// SessionConfig controls the background validation loop.
type SessionConfig struct {
	// ValidateInterval is how often the signed-in token is re-checked.
	ValidateInterval time.Duration
	// RefreshWindow is how close to expiry a still-valid token gets
	// refreshed proactively.
	RefreshWindow time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DemoConfig controls the seeded demonstration account.
type DemoConfig struct {
	// SeedAccount creates the built-in demo account at startup when it
	// does not exist yet.
	SeedAccount bool
	// Password is the demo account's plaintext password, hashed at
	// seed time. Required when SeedAccount is true.
	Password string
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    7 * 24 * time.Hour,
			Issuer: "codehub",
		},
		Store: StoreConfig{
			Prefix: "codehub",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			ValidateInterval: time.Minute,
			RefreshWindow:    24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Demo: DemoConfig{
			SeedAccount: false,
		},
	}
}

// DefaultConfig returns the engine defaults: 7-day tokens, 60-second
// validation ticks, and production argon2id parameters. The token
// secret must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if len(c.Token.Secret) < 16 {
		return errors.New("Token Secret must be >= 16 bytes")
	}

	// Store
	if c.Store.Prefix == "" {
		return errors.New("Store Prefix is required")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Session
	if c.Session.ValidateInterval <= 0 {
		return errors.New("Session ValidateInterval must be > 0")
	}
	if c.Session.RefreshWindow < 0 {
		return errors.New("Session RefreshWindow must be >= 0")
	}
	if c.Session.RefreshWindow >= c.Token.TTL {
		return errors.New("Session RefreshWindow must be shorter than Token TTL")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Demo
	if c.Demo.SeedAccount && c.Demo.Password == "" {
		return errors.New("Demo Password is required when SeedAccount is enabled")
	}

	return nil
}
