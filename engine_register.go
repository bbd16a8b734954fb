package codehub

import (
	"context"
	"errors"
	"fmt"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
	"github.com/praveen-sk-07/codegen-code-hub/store"
)

// defaultOrganization is recorded when registration omits one.
const defaultOrganization = "N/A"

// Register creates a new account and signs it in. The operation is
// atomic from the caller's point of view: when the account was
// created but the session could not be established, the account is
// removed again and ErrRegistrationRolledBack is returned so a retry
// starts from a clean slate.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if !e.started.Load() {
		return nil, ErrEngineNotReady
	}

	e.setLoading(true)
	defer e.setLoading(false)

	if err := e.input.Struct(in); err != nil {
		e.recordRegisterFailure(ctx, in.Email, "invalid input")
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := CheckPasswordPolicy(in.Password); err != nil {
		e.recordRegisterFailure(ctx, in.Email, "password policy")
		return nil, err
	}

	org := in.Organization
	if org == "" {
		org = defaultOrganization
	}
	userType := in.UserType
	if userType == "" {
		userType = directory.UserTypeStudent
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	acc, err := e.dir.Create(ctx, directory.Account{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		SecretHash:   hash,
		Organization: org,
		UserType:     userType,
	})
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateAccount) {
			e.recordRegisterFailure(ctx, in.Email, "duplicate identifier")
			return nil, fmt.Errorf("%w: %v", ErrAccountExists, err)
		}
		e.recordRegisterFailure(ctx, in.Email, "directory create failed")
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	tok, issueErr := e.tokens.Issue(acc.ID)
	if issueErr == nil {
		e.mu.Lock()
		rec := &store.Record{AccountID: acc.ID, Token: tok, Remember: in.Remember}
		if err := e.store.WriteThrough(ctx, rec); err != nil {
			issueErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		} else {
			e.setSessionLocked(profileFromAccount(acc), tok, in.Remember)
		}
		e.mu.Unlock()
	}

	if issueErr != nil {
		return nil, e.rollbackRegistration(ctx, acc.ID, in.Email, issueErr)
	}

	profile := profileFromAccount(acc)
	e.publish(Event{Kind: EventSignedIn, Account: profile, At: e.clock.Now()})

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: "register",
		AccountID: acc.ID,
		Success:   true,
	})

	return profile, nil
}

// rollbackRegistration undoes a half-finished registration. The
// account row is the only durable artifact at this point, so deleting
// it restores the pre-call state.
func (e *Engine) rollbackRegistration(ctx context.Context, accountID, email string, cause error) error {
	e.metrics.Inc(MetricRegisterRollback)

	if err := e.store.Clear(ctx); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear session record during rollback")
	}

	if err := e.dir.Delete(ctx, accountID); err != nil {
		// The orphan account stays behind. Flag it loudly so an
		// operator can reap it.
		e.log.Error().Err(err).Str("account_id", accountID).Msg("registration rollback failed, orphan account left")
	}

	e.recordRegisterFailure(ctx, email, "session establishment failed")
	return fmt.Errorf("%w: %v", ErrRegistrationRolledBack, cause)
}

func (e *Engine) recordRegisterFailure(ctx context.Context, email, reason string) {
	e.metrics.Inc(MetricRegisterFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: "register",
		Success:   false,
		Error:     reason,
		Metadata:  map[string]string{"email": email},
	})
}
