package codehub

import "errors"

var (
	// ErrInvalidInput is an exported constant or variable used by the session engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for any sign-in failure. It never
	// distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is an exported constant or variable used by the session engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is an exported constant or variable used by the session engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPasswordPolicy is an exported constant or variable used by the session engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrSessionExpired is an exported constant or variable used by the session engine.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotSignedIn is an exported constant or variable used by the session engine.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrStorageUnavailable is an exported constant or variable used by the session engine.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	// ErrUnknownChallenge is an exported constant or variable used by the session engine.
	ErrUnknownChallenge = errors.New("unknown challenge")
	// ErrRegistrationRolledBack is returned when an account was created but
	// the follow-up session setup failed, so the account was removed again.
	ErrRegistrationRolledBack = errors.New("registration rolled back")
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEngineClosed is an exported constant or variable used by the session engine.
	ErrEngineClosed = errors.New("engine closed")
)
