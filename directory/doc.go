// Package directory is the member registry: account records indexed in
// memory and mirrored to Redis so they survive restarts.
//
// # Uniqueness
//
// Email and username uniqueness is byte-exact; identifiers differing
// only in case are distinct accounts.
//
// # Architecture boundaries
//
// This package owns account storage and lookup only. It never sees
// plaintext passwords and makes no sign-in decisions; credential
// verification and session handling belong to the engine.
package directory
