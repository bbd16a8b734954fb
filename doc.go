// Package codehub is the account and session engine for the CodeGen
// code hub. It signs accounts in and out with short-lived HMAC
// session tokens, persists session state across two scopes (an
// in-process ephemeral store and a persistent Redis-backed one),
// keeps an organization directory of accounts, and tracks challenge
// completion with idempotent point awards.
//
// The package is designed for concurrent use: Engine methods are safe
// to call from multiple goroutines after initialization through
// [Builder.Build] and [Engine.Start].
//
// # Architecture boundaries
//
// codehub is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Profile, State, Event, AuditEvent).
// Domain mechanics live in sub-packages: token issuance and
// verification in token, scope storage and reconciliation in store,
// the account directory in directory, challenge bookkeeping in
// ledger, and password hashing in password.
//
// # What this package must NOT do
//
//   - Expose raw tokens, secret hashes, or Redis clients through
//     Profile, State, or Event values.
//   - Report whether a login failure was an unknown email or a wrong
//     password; both are ErrInvalidCredentials.
//   - Block Engine methods on subscriber channels; slow listeners
//     lose events.
//
// # Session contract
//
// A token is valid strictly before its expiry instant and invalid at
// and after it. The engine re-validates on a fixed interval and makes
// exactly one refresh attempt per failed check before tearing the
// session down. Logout always clears local state even when the
// persistent scope is unreachable.
package codehub
