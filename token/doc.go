// Package token manages session-token issuance and verification with strict
// expiry semantics: a token is valid only strictly before its expiry instant,
// with no leeway, so a token observed at exactly its expiry time is rejected.
package token
