package codehub

import (
	"context"
	"errors"
	"fmt"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
)

// UpdateProfile applies a partial update to the signed-in account.
// Nil fields are left untouched. A new password goes through the same
// policy check as registration and is re-hashed before storage.
func (e *Engine) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNotSignedIn
	}
	accountID := e.current.ID

	dirUpd := directory.Update{
		Name:         upd.Name,
		Username:     upd.Username,
		Email:        upd.Email,
		Organization: upd.Organization,
		UserType:     upd.UserType,
		ProfileImage: upd.ProfileImage,
	}

	if upd.NewPassword != nil {
		if err := CheckPasswordPolicy(*upd.NewPassword); err != nil {
			return nil, err
		}
		hash, err := e.hasher.Hash(*upd.NewPassword)
		if err != nil {
			return nil, err
		}
		dirUpd.SecretHash = &hash
	}

	acc, err := e.dir.Apply(ctx, accountID, dirUpd)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrDuplicateAccount):
			return nil, fmt.Errorf("%w: %v", ErrAccountExists, err)
		case errors.Is(err, directory.ErrNotFound):
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.current = profileFromAccount(acc)
	profile := e.current
	e.publish(Event{Kind: EventUpdated, Account: profile, At: e.clock.Now()})

	e.metrics.Inc(MetricProfileUpdated)
	e.emitAudit(ctx, AuditEvent{
		EventType: "profile_update",
		AccountID: accountID,
		Success:   true,
	})

	return profile, nil
}

// Peers lists the other members of the signed-in account's
// organization, highest points first. The demo account and the caller
// never appear, and the secret field is always the redaction marker,
// never hash material.
func (e *Engine) Peers(ctx context.Context) ([]PeerProfile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return nil, ErrNotSignedIn
	}
	selfID := e.current.ID
	org := e.current.Organization
	e.mu.Unlock()

	accounts, err := e.dir.Peers(ctx, org, selfID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	peers := make([]PeerProfile, 0, len(accounts))
	for _, acc := range accounts {
		peers = append(peers, PeerProfile{
			Profile: *profileFromAccount(acc),
			Secret:  RedactedSecret,
		})
	}
	return peers, nil
}

// CheckEmailAvailable reports whether email is free to claim. The
// signed-in account's own email always counts as available so a
// profile form can round-trip unchanged values.
func (e *Engine) CheckEmailAvailable(ctx context.Context, email string) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	return e.dir.EmailAvailable(ctx, email, e.selfID()), nil
}

// CheckUsernameAvailable reports whether username is free to claim,
// with the same self-exclusion as CheckEmailAvailable.
func (e *Engine) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	return e.dir.UsernameAvailable(ctx, username, e.selfID()), nil
}

// IncrementDownloads bumps the signed-in account's download counter.
func (e *Engine) IncrementDownloads(ctx context.Context) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNotSignedIn
	}

	downloads := e.current.Downloads + 1
	acc, err := e.dir.Apply(ctx, e.current.ID, directory.Update{Downloads: &downloads})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.current = profileFromAccount(acc)
	profile := e.current
	e.publish(Event{Kind: EventUpdated, Account: profile, At: e.clock.Now()})
	return profile, nil
}

// DeleteAccount removes the signed-in account along with its
// challenge history, then signs out.
func (e *Engine) DeleteAccount(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return ErrNotSignedIn
	}
	accountID := e.current.ID
	e.mu.Unlock()

	if err := e.ledger.Forget(ctx, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := e.dir.Delete(ctx, accountID); err != nil && !errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.Logout(ctx)

	e.emitAudit(ctx, AuditEvent{
		EventType: "account_delete",
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

func (e *Engine) selfID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ""
	}
	return e.current.ID
}
