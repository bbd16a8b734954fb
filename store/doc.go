// Package store provides dual-scope session persistence: an ephemeral
// in-process scope and a persistent Redis-backed scope, reconciled by
// last-write-wins on the record's LastSync stamp.
//
// # Encoding
//
// Records are stored as versioned JSON. A blob that fails to decode, or
// carries an unknown schema version, is treated as if it were absent:
// it is deleted from its scope and reported as [ErrCorruptRecord].
//
// # Architecture boundaries
//
// This package owns the [Store] (scope operations and reconciliation)
// and the [Record] model. It does NOT interpret session tokens or make
// sign-in decisions; those responsibilities belong to the engine.
//
// # What this package must NOT do
//
//   - Import the root package, token, or directory (no upward imports).
//   - Decide whether a session is still valid.
//   - Store plaintext passwords in [Record] fields.
package store
