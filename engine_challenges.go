package codehub

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
	"github.com/praveen-sk-07/codegen-code-hub/ledger"
)

// Challenges returns the fixed challenge catalog.
func (e *Engine) Challenges() []Challenge {
	return ledger.Catalog()
}

// CompletedChallenges lists the challenge IDs the signed-in account
// has already finished.
func (e *Engine) CompletedChallenges(ctx context.Context) ([]string, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	selfID := e.selfID()
	if selfID == "" {
		return nil, ErrNotSignedIn
	}

	done, err := e.ledger.Completed(ctx, selfID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return done, nil
}

// IncrementProblemsSolved credits points and one solved problem to
// the signed-in account in a single critical section. Rank is
// recomputed as part of the same update. Most callers want
// [Engine.CompleteChallenge], which adds the once-per-challenge
// guard.
func (e *Engine) IncrementProblemsSolved(ctx context.Context, points int) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNotSignedIn
	}
	profile, err := e.creditLocked(ctx, points)
	if err != nil {
		return nil, err
	}
	e.publish(Event{Kind: EventUpdated, Account: profile, At: e.clock.Now()})
	return profile, nil
}

// creditLocked applies +1 solved and +points to the signed-in account
// and refreshes the live snapshot. Requires e.mu held with a session
// present.
func (e *Engine) creditLocked(ctx context.Context, points int) (*Profile, error) {
	newPoints := e.current.Points + points
	newSolved := e.current.ProblemsSolved + 1
	acc, err := e.dir.Apply(ctx, e.current.ID, directory.Update{
		Points:         &newPoints,
		ProblemsSolved: &newSolved,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	e.current = profileFromAccount(acc)
	return e.current, nil
}

// CompleteChallenge records that the signed-in account finished the
// challenge and credits its points. Completion is idempotent: a
// repeat of an already-finished challenge awards nothing and leaves
// the profile untouched.
func (e *Engine) CompleteChallenge(ctx context.Context, challengeID string) (awarded int, err error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return 0, ErrNotSignedIn
	}
	accountID := e.current.ID

	points, err := e.ledger.MarkCompleted(ctx, accountID, challengeID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownChallenge) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownChallenge, challengeID)
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if points == 0 {
		e.metrics.Inc(MetricChallengeReplay)
		return 0, nil
	}

	profile, err := e.creditLocked(ctx, points)
	if err != nil {
		return 0, err
	}
	e.publish(Event{Kind: EventUpdated, Account: profile, At: e.clock.Now()})

	e.metrics.Inc(MetricChallengeCompleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: "challenge_completed",
		AccountID: accountID,
		Success:   true,
		Metadata: map[string]string{
			"challenge": challengeID,
			"points":    strconv.Itoa(points),
		},
	})

	return points, nil
}
