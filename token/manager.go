package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
)

const minSecretBytes = 16

// Config describes how session tokens are minted and verified.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// TTL is the lifetime of a freshly issued token.
	TTL time.Duration
	// Secret is the HMAC-SHA256 signing key.
	Secret []byte
	// Issuer, when set, is stamped into issued tokens and required on parse.
	Issuer string
	// Clock supplies the time source for both issuance and expiry
	// checks. Nil means the system clock.
	Clock clock.Clock
}

// Manager mints and verifies HS256 session tokens. A token is valid
// strictly before its expiry instant: at the exact expiry time it is
// already expired. No leeway is applied.
type Manager struct {
	config Config
	clock  clock.Clock
}

// SessionClaims is the claim set carried by a session token.
type SessionClaims struct {
	AccountID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("signing secret must be at least 16 bytes")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Manager{config: cfg, clock: clk}, nil
}

// Issue mints a signed token for accountID, expiring TTL from now.
func (m *Manager) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("empty account id")
	}

	now := m.clock.Now()
	claims := SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.Secret)
}

// Parse verifies tokenStr and returns its claims. Expired, malformed,
// unsigned, or foreign-key tokens all return an error.
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.AccountID == "" {
		return nil, errors.New("token missing account id")
	}

	return claims, nil
}

// IsValid reports whether tokenStr parses and has not expired. Any
// parse failure, including malformed input, reads as invalid rather
// than an error.
func (m *Manager) IsValid(tokenStr string) bool {
	if tokenStr == "" {
		return false
	}
	_, err := m.Parse(tokenStr)
	return err == nil
}

// ExpiresAt returns the expiry instant of tokenStr without checking
// whether the token is still live. Useful for scheduling refreshes.
func (m *Manager) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
