package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionTokenIssuer is the iss claim of every session token
	SessionTokenIssuer = "portfolio-gate"

	signingKeyInfo = "portfolio-gate session token v1"
	signingKeySize = 32
)

// SessionTokenManager mints and checks signed portfolio session tokens.
// Tokens are self contained; there is no server-side session or revocation list.
type SessionTokenManager struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSessionTokenManager derives an HMAC-SHA256 key from secret
func NewSessionTokenManager(secret string, expiry time.Duration) (*SessionTokenManager, error) {
	if secret == "" {
		return nil, errors.New("session signing secret is required")
	}

	key := make([]byte, signingKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &SessionTokenManager{
		key:    key,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and validating tokens
func (tm *SessionTokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// IssueToken creates a token granting portfolio access until now + expiry
func (tm *SessionTokenManager) IssueToken() (string, error) {
	now := tm.now()

	claims := &models.SessionClaims{
		PortfolioAccess: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    SessionTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ParseToken validates signature, expiry, issuer and the access claim
func (tm *SessionTokenManager) ParseToken(tokenString string) (*models.SessionClaims, error) {
	if tokenString == "" {
		return nil, models.ErrInvalidToken
	}

	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return tm.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(SessionTokenIssuer),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	if !token.Valid || !claims.PortfolioAccess {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken reports whether tokenString is a valid, unexpired session token
func (tm *SessionTokenManager) VerifyToken(tokenString string) bool {
	_, err := tm.ParseToken(tokenString)
	return err == nil
}
