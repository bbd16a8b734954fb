package codehub

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
	"github.com/praveen-sk-07/codegen-code-hub/ledger"
	"github.com/praveen-sk-07/codegen-code-hub/password"
	"github.com/praveen-sk-07/codegen-code-hub/store"
	"github.com/praveen-sk-07/codegen-code-hub/token"
)

// Builder assembles an Engine from configuration and dependencies.
//
// Builder instances are intended to be used once; Build fails on reuse.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	dir       *directory.Directory
	auditSink AuditSink
	logger    *zerolog.Logger
	clk       clock.Clock
	ephemeral store.KV

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the persistent scope, the
// directory mirror, and the completion ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory replaces the default directory. Useful when several
// engines share one registry.
func (b *Builder) WithDirectory(dir *directory.Directory) *Builder {
	b.dir = dir
	return b
}

// WithAuditSink sets the destination for audit events, activated by
// Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Without one the engine logs
// nothing.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the time source for token expiry and record
// stamps. Tests use this to drive time manually.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clk = clk
	return b
}

// WithEphemeralKV replaces the default in-process ephemeral scope.
func (b *Builder) WithEphemeralKV(kv store.KV) *Builder {
	b.ephemeral = kv
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires all subsystems, and returns
// a ready Engine. Call Engine.Start to hydrate state and launch the
// validation loop.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clk := b.clk
	if clk == nil {
		clk = clock.System{}
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		TTL:    cfg.Token.TTL,
		Secret: cloneBytes(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
		Clock:  clk,
	})
	if err != nil {
		return nil, err
	}

	ephemeral := b.ephemeral
	if ephemeral == nil {
		ephemeral = store.NewMemoryKV(clk)
	}
	sessions, err := store.NewStore(ephemeral, store.NewRedisKV(b.redis), store.Config{
		Prefix: cfg.Store.Prefix,
		TTL:    cfg.Token.TTL,
		Clock:  clk,
	})
	if err != nil {
		return nil, err
	}

	dir := b.dir
	if dir == nil {
		dir = directory.New(
			directory.WithMirror(b.redis, cfg.Store.Prefix),
			directory.WithClock(clk),
		)
	}

	engine := &Engine{
		config:  cfg,
		log:     logger,
		dir:     dir,
		ledger:  ledger.New(b.redis, cfg.Store.Prefix),
		tokens:  tokens,
		store:   sessions,
		hasher:  hasher,
		clock:   clk,
		input:   validator.New(validator.WithRequiredStructEnabled()),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		subs:    make(map[uint64]chan Event),
		stop:    make(chan struct{}),
	}

	b.built = true

	return engine, nil
}
