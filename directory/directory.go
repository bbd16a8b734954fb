package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// ErrDuplicateAccount is returned when a create or update would reuse
// an email or username already held by another account.
var ErrDuplicateAccount = errors.New("duplicate account identifier")

// ErrUnavailable is returned when the Redis mirror cannot be reached.
var ErrUnavailable = errors.New("directory mirror unavailable")

const accountKeyPrefix = ":account:"

// Directory is the member registry: an in-memory index mirrored to
// Redis so records survive restarts. All lookups are served from
// memory; every mutation is written through to the mirror before the
// index is updated.
//
// Email and username uniqueness is byte-exact. "Alice" and "alice"
// are distinct identifiers.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
	byName  map[string]string
	mirror  redis.UniversalClient
	prefix  string
	clock   clock.Clock
}

// Option configures a Directory.
type Option func(*Directory)

// WithMirror attaches a Redis mirror under the given key prefix.
func WithMirror(client redis.UniversalClient, prefix string) Option {
	return func(d *Directory) {
		d.mirror = client
		d.prefix = prefix
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(clk clock.Clock) Option {
	return func(d *Directory) {
		d.clock = clk
	}
}

// New builds an empty Directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		byName:  make(map[string]string),
		prefix:  "codehub",
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Directory) accountKey(id string) string {
	return d.prefix + accountKeyPrefix + id
}

// Hydrate loads all mirrored accounts into the in-memory index. Call
// once at startup before serving lookups. Without a mirror it is a
// no-op.
func (d *Directory) Hydrate(ctx context.Context) error {
	if d.mirror == nil {
		return nil
	}

	pattern := d.prefix + accountKeyPrefix + "*"
	var cursor uint64
	for {
		keys, next, err := d.mirror.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		for _, key := range keys {
			data, err := d.mirror.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			var acc Account
			if err := json.Unmarshal(data, &acc); err != nil {
				// Unreadable mirror entries are skipped, not fatal.
				continue
			}

			d.mu.Lock()
			d.index(&acc)
			d.mu.Unlock()
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// index and unindex require d.mu held.
func (d *Directory) index(acc *Account) {
	d.byID[acc.ID] = acc
	d.byEmail[acc.Email] = acc.ID
	d.byName[acc.Username] = acc.ID
}

func (d *Directory) unindex(acc *Account) {
	delete(d.byID, acc.ID)
	delete(d.byEmail, acc.Email)
	delete(d.byName, acc.Username)
}

func (d *Directory) writeMirror(ctx context.Context, acc *Account) error {
	if d.mirror == nil {
		return nil
	}
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	if err := d.mirror.Set(ctx, d.accountKey(acc.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (d *Directory) deleteMirror(ctx context.Context, id string) error {
	if d.mirror == nil {
		return nil
	}
	if err := d.mirror.Del(ctx, d.accountKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Create registers a new account. An empty ID is assigned a fresh
// UUID. The returned account is a copy with timestamps set.
func (d *Directory) Create(ctx context.Context, acc Account) (*Account, error) {
	if acc.Email == "" || acc.Username == "" {
		return nil, errors.New("email and username are required")
	}
	if acc.SecretHash == "" {
		return nil, errors.New("secret hash is required")
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}

	now := d.clock.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byID[acc.ID]; exists {
		return nil, ErrDuplicateAccount
	}
	if _, exists := d.byEmail[acc.Email]; exists {
		return nil, fmt.Errorf("%w: email %s", ErrDuplicateAccount, acc.Email)
	}
	if _, exists := d.byName[acc.Username]; exists {
		return nil, fmt.Errorf("%w: username %s", ErrDuplicateAccount, acc.Username)
	}

	if err := d.writeMirror(ctx, &acc); err != nil {
		return nil, err
	}
	d.index(&acc)
	return acc.Clone(), nil
}

// ByID returns the account with the given ID.
func (d *Directory) ByID(_ context.Context, id string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acc, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acc.Clone(), nil
}

// ByEmail returns the account with the given email, byte-exact.
func (d *Directory) ByEmail(_ context.Context, email string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return d.byID[id].Clone(), nil
}

// ByUsername returns the account with the given username, byte-exact.
func (d *Directory) ByUsername(_ context.Context, username string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	return d.byID[id].Clone(), nil
}

// Apply mutates the account identified by id. The ID itself is
// immutable. Identifier changes are checked for uniqueness against
// every other account before anything is written.
func (d *Directory) Apply(ctx context.Context, id string, upd Update) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := *current
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Username != nil {
		next.Username = *upd.Username
	}
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.Organization != nil {
		next.Organization = *upd.Organization
	}
	if upd.UserType != nil {
		next.UserType = *upd.UserType
	}
	if upd.ProblemsSolved != nil {
		next.ProblemsSolved = *upd.ProblemsSolved
	}
	if upd.Points != nil {
		next.Points = *upd.Points
	}
	if upd.ProfileImage != nil {
		next.ProfileImage = *upd.ProfileImage
	}
	if upd.Downloads != nil {
		next.Downloads = *upd.Downloads
	}
	if upd.SecretHash != nil {
		next.SecretHash = *upd.SecretHash
	}

	if next.Email != current.Email {
		if owner, exists := d.byEmail[next.Email]; exists && owner != id {
			return nil, fmt.Errorf("%w: email %s", ErrDuplicateAccount, next.Email)
		}
	}
	if next.Username != current.Username {
		if owner, exists := d.byName[next.Username]; exists && owner != id {
			return nil, fmt.Errorf("%w: username %s", ErrDuplicateAccount, next.Username)
		}
	}

	next.UpdatedAt = d.clock.Now()
	if err := d.writeMirror(ctx, &next); err != nil {
		return nil, err
	}

	delete(d.byEmail, current.Email)
	delete(d.byName, current.Username)
	d.index(&next)
	return next.Clone(), nil
}

// Delete removes the account. Deleting an unknown ID returns
// ErrNotFound.
func (d *Directory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok {
		return ErrNotFound
	}
	if err := d.deleteMirror(ctx, id); err != nil {
		return err
	}
	d.unindex(acc)
	return nil
}

// Peers lists the accounts sharing organization, excluding the account
// identified by selfID and all demo accounts. Results are ordered by
// points descending, then name, so callers get a stable leaderboard.
func (d *Directory) Peers(_ context.Context, organization, selfID string) ([]*Account, error) {
	if organization == "" {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var peers []*Account
	for _, acc := range d.byID {
		if acc.ID == selfID || acc.Demo {
			continue
		}
		if acc.Organization != organization {
			continue
		}
		peers = append(peers, acc.Clone())
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Points != peers[j].Points {
			return peers[i].Points > peers[j].Points
		}
		return peers[i].Name < peers[j].Name
	})
	return peers, nil
}

// EmailAvailable reports whether email is unused by any account other
// than selfID.
func (d *Directory) EmailAvailable(_ context.Context, email, selfID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	owner, exists := d.byEmail[email]
	return !exists || owner == selfID
}

// UsernameAvailable reports whether username is unused by any account
// other than selfID.
func (d *Directory) UsernameAvailable(_ context.Context, username, selfID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	owner, exists := d.byName[username]
	return !exists || owner == selfID
}

// Len returns the number of registered accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
