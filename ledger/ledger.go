package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrUnknownChallenge is returned when the challenge ID is not in the
// catalog.
var ErrUnknownChallenge = errors.New("unknown challenge")

// ErrUnavailable is returned when the ledger backend cannot be reached.
var ErrUnavailable = errors.New("ledger unavailable")

const completedKeyPrefix = ":completed:"

// Ledger records which challenges each account has completed. The
// record is the idempotence guard: marking an already-completed
// challenge awards nothing, no matter how many times it is replayed.
type Ledger struct {
	client redis.UniversalClient
	prefix string
}

// New builds a Ledger over client, namespaced by prefix.
func New(client redis.UniversalClient, prefix string) *Ledger {
	return &Ledger{client: client, prefix: prefix}
}

func (l *Ledger) key(accountID string) string {
	return l.prefix + completedKeyPrefix + accountID
}

// MarkCompleted records that accountID finished challengeID and
// returns the points to award: the challenge's point value on first
// completion, zero on every repeat.
func (l *Ledger) MarkCompleted(ctx context.Context, accountID, challengeID string) (int, error) {
	ch, ok := Lookup(challengeID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChallenge, challengeID)
	}

	added, err := l.client.SAdd(ctx, l.key(accountID), challengeID).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if added == 0 {
		return 0, nil
	}
	return ch.Points, nil
}

// Completed returns the challenge IDs accountID has finished.
func (l *Ledger) Completed(ctx context.Context, accountID string) ([]string, error) {
	ids, err := l.client.SMembers(ctx, l.key(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ids, nil
}

// IsCompleted reports whether accountID has finished challengeID.
func (l *Ledger) IsCompleted(ctx context.Context, accountID, challengeID string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.key(accountID), challengeID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// Forget drops the completion record for accountID. Used when an
// account is deleted.
func (l *Ledger) Forget(ctx context.Context, accountID string) error {
	if err := l.client.Del(ctx, l.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
