package codehub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
	"github.com/praveen-sk-07/codegen-code-hub/ledger"
	"github.com/praveen-sk-07/codegen-code-hub/password"
	"github.com/praveen-sk-07/codegen-code-hub/store"
	"github.com/praveen-sk-07/codegen-code-hub/token"
)

// Engine is the session facade. It owns sign-in state for exactly one
// account at a time, keeps both session scopes in sync, re-validates
// the token on a fixed interval, and notifies subscribers on every
// state change.
//
// Construct with [New] and the [Builder], then call [Engine.Start].
type Engine struct {
	config  Config
	log     zerolog.Logger
	dir     *directory.Directory
	ledger  *ledger.Ledger
	tokens  *token.Manager
	store   *store.Store
	hasher  *password.Hasher
	clock   clock.Clock
	input   *validator.Validate
	audit   *auditDispatcher
	metrics *Metrics

	// mu guards the session state below. All mutation paths,
	// including the validation loop, hold it end to end, so a stale
	// refresh can never resurrect a cleared session.
	mu       sync.Mutex
	current  *Profile
	tokenStr string
	remember bool
	loading  bool

	subMu   sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  atomic.Bool
	closed   atomic.Bool
}

const subscriberBuffer = 16

// demo seed account values.
const (
	demoName         = "Demo User"
	demoUsername     = "demouser"
	demoEmail        = "demo@example.com"
	demoOrganization = "Adhiyamaan College of Engineering"
	demoSolved       = 45
	demoPoints       = 325
)

func profileFromAccount(acc *directory.Account) *Profile {
	if acc == nil {
		return nil
	}
	return &Profile{
		ID:             acc.ID,
		Name:           acc.Name,
		Username:       acc.Username,
		Email:          acc.Email,
		Organization:   acc.Organization,
		UserType:       acc.UserType,
		ProblemsSolved: acc.ProblemsSolved,
		Points:         acc.Points,
		ProfileImage:   acc.ProfileImage,
		Downloads:      acc.Downloads,
		Rank:           Rank(acc.ProblemsSolved),
	}
}

// Start hydrates session state from the two scopes and launches the
// periodic validation loop. A stored session whose token still
// verifies is restored; an invalid one gets a single refresh attempt
// before the engine falls back to signed-out. Start must be called
// once, before any other operation.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine already started")
	}

	e.setLoading(true)
	defer e.setLoading(false)

	if _, err := e.store.DeviceID(ctx); err != nil {
		e.log.Warn().Err(err).Msg("device id unavailable")
	}

	if err := e.dir.Hydrate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if e.config.Demo.SeedAccount {
		if err := e.seedDemoAccount(ctx); err != nil {
			return err
		}
	}

	rec, err := e.store.Reconcile(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptRecord) {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		// Corrupt scope data reads as absence, never as a fatal error.
		e.metrics.Inc(MetricCorruptRecord)
		e.log.Warn().Err(err).Msg("discarded corrupt session record")
	}

	if rec != nil {
		e.hydrateSession(ctx, rec)
	}

	e.wg.Add(1)
	go e.run()

	return nil
}

// hydrateSession restores sign-in state from a reconciled record.
func (e *Engine) hydrateSession(ctx context.Context, rec *store.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tokens.IsValid(rec.Token) {
		acc, err := e.dir.ByID(ctx, rec.AccountID)
		if err != nil {
			e.log.Warn().Str("account_id", rec.AccountID).Msg("stored session references unknown account")
			e.clearSessionLocked(ctx)
			return
		}
		e.setSessionLocked(profileFromAccount(acc), rec.Token, rec.Remember)
		e.publish(Event{Kind: EventSignedIn, Account: e.current, At: e.clock.Now()})
		return
	}

	// One refresh attempt for a stale record, then give up.
	if err := e.refreshForAccountLocked(ctx, rec.AccountID, rec.Remember); err != nil {
		e.metrics.Inc(MetricSessionExpired)
		e.log.Info().Str("account_id", rec.AccountID).Msg("stored session expired")
		e.clearSessionLocked(ctx)
		return
	}
	e.publish(Event{Kind: EventSignedIn, Account: e.current, At: e.clock.Now()})
}

func (e *Engine) seedDemoAccount(ctx context.Context) error {
	if _, err := e.dir.ByEmail(ctx, demoEmail); err == nil {
		return nil
	} else if !errors.Is(err, directory.ErrNotFound) {
		return err
	}

	hash, err := e.hasher.Hash(e.config.Demo.Password)
	if err != nil {
		return err
	}

	if _, err := e.dir.Create(ctx, directory.Account{
		Name:           demoName,
		Username:       demoUsername,
		Email:          demoEmail,
		SecretHash:     hash,
		Organization:   demoOrganization,
		ProblemsSolved: demoSolved,
		Points:         demoPoints,
		Demo:           true,
	}); err != nil && !errors.Is(err, directory.ErrDuplicateAccount) {
		return err
	}

	return nil
}

// Close stops the validation loop, drains the audit dispatcher, and
// closes all subscriber channels. The engine cannot be reused.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		e.closed.Store(true)
		close(e.stop)
		e.wg.Wait()
		e.audit.Close()

		e.subMu.Lock()
		for id, ch := range e.subs {
			close(ch)
			delete(e.subs, id)
		}
		e.subMu.Unlock()
	})
}

// Login verifies credentials and establishes the session. Every
// failure path that involves the credentials returns
// ErrInvalidCredentials; callers can never tell an unknown email from
// a wrong password. With remember set, the session is written to the
// persistent scope as well.
func (e *Engine) Login(ctx context.Context, email, passwd string, remember bool) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if !e.started.Load() {
		return nil, ErrEngineNotReady
	}

	e.setLoading(true)
	defer e.setLoading(false)

	acc, err := e.dir.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			e.recordLoginFailure(ctx, "", "unknown identifier")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(passwd, acc.SecretHash)
	if err != nil {
		// An unreadable hash is a server-side defect, but the caller
		// still only learns "invalid credentials".
		e.log.Error().Err(err).Str("account_id", acc.ID).Msg("stored secret hash unreadable")
		e.recordLoginFailure(ctx, acc.ID, "hash unreadable")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		e.recordLoginFailure(ctx, acc.ID, "secret mismatch")
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin {
		e.maybeUpgradeHash(ctx, acc, passwd)
	}

	tok, err := e.tokens.Issue(acc.ID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := &store.Record{AccountID: acc.ID, Token: tok, Remember: remember}
	if err := e.store.WriteThrough(ctx, rec); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.setSessionLocked(profileFromAccount(acc), tok, remember)
	profile := e.current
	e.publish(Event{Kind: EventSignedIn, Account: profile, At: e.clock.Now()})

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: "login",
		AccountID: acc.ID,
		Success:   true,
	})

	return profile, nil
}

// Logout ends the session. Local state is cleared first and
// unconditionally; a failure clearing the persistent scope is logged
// but never resurrects the session, so Logout always succeeds from
// the caller's point of view.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	accountID := ""
	if e.current != nil {
		accountID = e.current.ID
	}
	e.current = nil
	e.tokenStr = ""
	e.remember = false
	e.mu.Unlock()

	e.publish(Event{Kind: EventSignedOut, At: e.clock.Now()})

	if err := e.store.Clear(ctx); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear stored session")
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: "logout",
		AccountID: accountID,
		Success:   true,
	})
}

// Refresh re-issues the session token for the signed-in account and
// writes it through both scopes.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return ErrNotSignedIn
	}
	if err := e.refreshForAccountLocked(ctx, e.current.ID, e.remember); err != nil {
		return err
	}
	e.publish(Event{Kind: EventUpdated, Account: e.current, At: e.clock.Now()})
	return nil
}

// refreshForAccountLocked mints a fresh token for accountID and
// installs it. Requires e.mu held.
func (e *Engine) refreshForAccountLocked(ctx context.Context, accountID string, remember bool) error {
	acc, err := e.dir.ByID(ctx, accountID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("%w: account gone", ErrSessionExpired)
		}
		return err
	}

	tok, err := e.tokens.Issue(acc.ID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return err
	}

	rec := &store.Record{AccountID: acc.ID, Token: tok, Remember: remember}
	if err := e.store.WriteThrough(ctx, rec); err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.setSessionLocked(profileFromAccount(acc), tok, remember)
	e.metrics.Inc(MetricRefreshSuccess)
	return nil
}

// setSessionLocked installs new session state. Requires e.mu held.
func (e *Engine) setSessionLocked(profile *Profile, tok string, remember bool) {
	e.current = profile
	e.tokenStr = tok
	e.remember = remember
}

// clearSessionLocked drops session state and both scopes. Requires
// e.mu held.
func (e *Engine) clearSessionLocked(ctx context.Context) {
	e.current = nil
	e.tokenStr = ""
	e.remember = false
	if err := e.store.Clear(ctx); err != nil {
		e.log.Warn().Err(err).Msg("failed to clear stored session")
	}
}

// run is the periodic validation loop: every tick the signed-in token
// is re-checked, with exactly one refresh attempt before the session
// is torn down.
func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.Session.ValidateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.validateTick()
		case <-e.stop:
			return
		}
	}
}

func (e *Engine) validateTick() {
	start := time.Now()
	ctx := context.Background()

	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		e.metrics.Inc(MetricValidationTick)
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	if e.current == nil {
		return
	}

	valid := e.tokens.IsValid(e.tokenStr)
	if valid && !e.nearExpiryLocked() {
		return
	}

	// Exactly one refresh attempt. When it fails, the session is torn
	// down rather than retried: better signed out than wrongly in.
	accountID := e.current.ID
	if err := e.refreshForAccountLocked(ctx, accountID, e.remember); err != nil {
		e.metrics.Inc(MetricSessionExpired)
		e.log.Info().Err(err).Str("account_id", accountID).Msg("session invalidated")
		e.clearSessionLocked(ctx)
		e.publish(Event{Kind: EventSignedOut, At: e.clock.Now()})
		e.emitAudit(ctx, AuditEvent{
			EventType: "session_expired",
			AccountID: accountID,
			Success:   false,
			Error:     err.Error(),
		})
		return
	}

	if !valid {
		e.publish(Event{Kind: EventUpdated, Account: e.current, At: e.clock.Now()})
	}
}

// nearExpiryLocked reports whether the current token is inside the
// proactive refresh window. Requires e.mu held.
func (e *Engine) nearExpiryLocked() bool {
	if e.config.Session.RefreshWindow <= 0 {
		return false
	}
	exp, err := e.tokens.ExpiresAt(e.tokenStr)
	if err != nil {
		return true
	}
	return e.clock.Now().Add(e.config.Session.RefreshWindow).After(exp)
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{Status: StatusSignedOut, Loading: e.loading}
	if e.current != nil {
		st.Status = StatusSignedIn
		profile := *e.current
		st.Account = &profile
	}
	return st
}

// CurrentAccount returns the signed-in profile, or false when signed
// out.
func (e *Engine) CurrentAccount() (*Profile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, false
	}
	profile := *e.current
	return &profile, true
}

// IsSignedIn reports whether a session is active.
func (e *Engine) IsSignedIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// IsLoading reports whether a sign-in, registration, or hydration is
// in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// ValidateSession is a pure check: signed in with a token that is
// still strictly before its expiry. It never mutates state; the
// periodic loop owns teardown and refresh.
func (e *Engine) ValidateSession(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.tokens.IsValid(e.tokenStr)
}

// Subscribe registers a listener for session events. The returned
// cancel function unregisters it and closes the channel. Slow
// listeners lose events rather than blocking the engine.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if existing, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(existing)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// DeviceID returns the stable per-installation identifier.
func (e *Engine) DeviceID(ctx context.Context) (string, error) {
	return e.store.DeviceID(ctx)
}

// Metrics returns the engine's metrics instance.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// AuditDropped reports how many audit events were discarded due to a
// full dispatcher buffer.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

func (e *Engine) setLoading(v bool) {
	e.mu.Lock()
	e.loading = v
	e.mu.Unlock()
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, acc *directory.Account, passwd string) {
	up, err := e.hasher.NeedsUpgrade(acc.SecretHash)
	if err != nil || !up {
		return
	}
	newHash, err := e.hasher.Hash(passwd)
	if err != nil {
		return
	}
	if _, err := e.dir.Apply(ctx, acc.ID, directory.Update{SecretHash: &newHash}); err != nil {
		e.log.Warn().Err(err).Str("account_id", acc.ID).Msg("secret hash upgrade failed")
		return
	}
	acc.SecretHash = newHash
}

func (e *Engine) recordLoginFailure(ctx context.Context, accountID, reason string) {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: "login",
		AccountID: accountID,
		Success:   false,
		Error:     reason,
	})
}

func (e *Engine) emitAudit(ctx context.Context, ev AuditEvent) {
	if e.audit == nil {
		return
	}
	ev.Timestamp = e.clock.Now()
	ev.IP = clientIPFromContext(ctx)
	ev.UserAgent = userAgentFromContext(ctx)
	e.audit.Emit(ctx, ev)
}
