// Package ledger tracks per-account challenge completion in Redis and
// carries the built-in practice catalog. The completion set doubles as
// the idempotence guard for point awards: a challenge pays out once
// per account, ever.
package ledger
