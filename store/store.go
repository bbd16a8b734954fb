package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
)

// Scope names one of the two session scopes.
type Scope string

const (
	// ScopeEphemeral lives only as long as the process.
	ScopeEphemeral Scope = "ephemeral"
	// ScopePersistent survives restarts.
	ScopePersistent Scope = "persistent"
)

const (
	sessionKeySuffix = ":session"
	deviceKeySuffix  = ":device"
)

// Store holds session state across the two scopes and reconciles them.
// Writes go through WriteThrough so both scopes carry the same record;
// Reconcile resolves divergence after a restart by picking the record
// with the newer LastSync and re-propagating it.
type Store struct {
	ephemeral  KV
	persistent KV
	prefix     string
	ttl        time.Duration
	clock      clock.Clock
}

// Config configures a Store.
type Config struct {
	// Prefix namespaces every key. Must be non-empty.
	Prefix string
	// TTL bounds how long a persistent record may outlive its last
	// write. It should match the session-token lifetime.
	TTL time.Duration
	// Clock supplies LastSync stamps. Nil means the system clock.
	Clock clock.Clock
}

// NewStore builds a Store over the two scope KVs.
func NewStore(ephemeral, persistent KV, cfg Config) (*Store, error) {
	if ephemeral == nil || persistent == nil {
		return nil, errors.New("both scope KVs are required")
	}
	if cfg.Prefix == "" {
		return nil, errors.New("store prefix is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("store TTL must be positive")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Store{
		ephemeral:  ephemeral,
		persistent: persistent,
		prefix:     cfg.Prefix,
		ttl:        cfg.TTL,
		clock:      clk,
	}, nil
}

func (s *Store) sessionKey() string { return s.prefix + sessionKeySuffix }
func (s *Store) deviceKey() string  { return s.prefix + deviceKeySuffix }

func (s *Store) scopeKV(scope Scope) (KV, error) {
	switch scope {
	case ScopeEphemeral:
		return s.ephemeral, nil
	case ScopePersistent:
		return s.persistent, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

// WriteThrough stamps rec with a fresh LastSync and writes it to the
// ephemeral scope, and to the persistent scope as well when
// rec.Remember is set. When Remember is not set any stale persistent
// record is cleared so a restart cannot resurrect the session.
func (s *Store) WriteThrough(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}

	rec.LastSync = s.clock.Now().UnixMilli()
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	if err := s.ephemeral.Set(ctx, s.sessionKey(), data, s.ttl); err != nil {
		return err
	}

	if rec.Remember {
		return s.persistent.Set(ctx, s.sessionKey(), data, s.ttl)
	}
	return s.persistent.Del(ctx, s.sessionKey())
}

// Load reads the record from one scope. An absent key returns
// (nil, nil). A corrupt blob is deleted from that scope and reported
// as ErrCorruptRecord so the caller can log it; the scope then reads
// as absent.
func (s *Store) Load(ctx context.Context, scope Scope) (*Record, error) {
	kv, err := s.scopeKV(scope)
	if err != nil {
		return nil, err
	}

	data, err := kv.Get(ctx, s.sessionKey())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rec, err := Decode(data)
	if err != nil {
		// Corrupt state must not shadow a later healthy write.
		_ = kv.Del(ctx, s.sessionKey())
		return nil, fmt.Errorf("%w: scope %s", ErrCorruptRecord, scope)
	}
	return rec, nil
}

// Reconcile merges the two scopes after a restart. The record with the
// newer LastSync wins; the winner is written back to both scopes it
// belongs in. Corrupt blobs in either scope read as absent; the
// returned error reports the corruption without blocking the merge.
// A nil record with a nil error means no session exists anywhere.
func (s *Store) Reconcile(ctx context.Context) (*Record, error) {
	var corruptErr error

	eph, err := s.Load(ctx, ScopeEphemeral)
	if err != nil {
		if !errors.Is(err, ErrCorruptRecord) {
			return nil, err
		}
		corruptErr = err
	}

	per, err := s.Load(ctx, ScopePersistent)
	if err != nil {
		if !errors.Is(err, ErrCorruptRecord) {
			return nil, err
		}
		corruptErr = errors.Join(corruptErr, err)
	}

	winner := pickNewer(eph, per)
	if winner == nil {
		return nil, corruptErr
	}

	data, err := Encode(winner)
	if err != nil {
		return nil, err
	}
	if err := s.ephemeral.Set(ctx, s.sessionKey(), data, s.ttl); err != nil {
		return nil, err
	}
	if winner.Remember {
		if err := s.persistent.Set(ctx, s.sessionKey(), data, s.ttl); err != nil {
			return nil, err
		}
	}

	return winner, corruptErr
}

func pickNewer(a, b *Record) *Record {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.LastSync > a.LastSync:
		return b
	default:
		return a
	}
}

// Clear removes the session record from both scopes. The ephemeral
// scope is always cleared; a persistent-scope failure is returned but
// does not undo the local clear.
func (s *Store) Clear(ctx context.Context) error {
	ephErr := s.ephemeral.Del(ctx, s.sessionKey())
	perErr := s.persistent.Del(ctx, s.sessionKey())
	return errors.Join(ephErr, perErr)
}

// DeviceID returns the stable per-installation identifier, creating
// and persisting one on first use. The identifier never expires.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	data, err := s.persistent.Get(ctx, s.deviceKey())
	if err == nil && len(data) > 0 {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id := uuid.NewString()
	if err := s.persistent.Set(ctx, s.deviceKey(), []byte(id), 0); err != nil {
		return "", err
	}
	return id, nil
}
