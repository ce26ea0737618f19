// Package auth provides JWT token issuance/validation, bcrypt password
// hashing and the authentication middleware.
//
// TOKEN MODEL:
// Two token kinds, both HS256-signed JWTs from the same secret:
//
//   - access tokens (short-lived, default 15m) authenticate API calls
//   - refresh tokens (long-lived, default 7d) mint new access tokens
//
// Every token carries a "type" claim so one kind can never stand in for the
// other, and a "jti" (JWT ID, an xid) so individual tokens can be revoked.
// Logout puts the refresh token's jti on a persisted blacklist; validation
// consults the blacklist on every call. The entry only needs to live until
// the token's own expiry — after that the expiry check rejects it anyway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "calc-tracker"

// TokenType distinguishes access from refresh tokens via the "type" claim.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	ErrTokenRevoked   = errors.New("auth: token has been revoked")
	ErrWrongTokenType = errors.New("auth: wrong token type")
)

// Claims is the JWT payload: the registered claims plus our type tag.
// Subject holds the user's internal ID, ID (jti) the revocation key.
type Claims struct {
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

// RevocationStore is the narrow view of the token repository that validation
// needs. Kept as a local interface so this package does not import the
// repository package.
type RevocationStore interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenService issues and validates the token pair.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    RevocationStore
}

// NewTokenService creates a TokenService.
//
// The secret should be at least 32 bytes of random data in production
// (JWT_SECRET=$(openssl rand -hex 32)); anything under 16 characters is
// rejected outright. Zero TTLs fall back to 15m access / 7d refresh.
// revoked may be nil, in which case no blacklist is consulted (tests).
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, revoked RevocationStore) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoked:    revoked,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
// Used by handlers to set matching cookie expiries.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// TokenPair bundles the two tokens issued on login/registration.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// GeneratePair issues a fresh access+refresh pair for the user.
func (s *TokenService) GeneratePair(userID string) (*TokenPair, error) {
	access, err := s.Generate(userID, TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Generate(userID, TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Generate creates and signs one token of the given type and lifetime.
func (s *TokenService) Generate(userID string, typ TokenType, ttl time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        xid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", typ, err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT and returns its claims.
//
// Checks, in order: signature and algorithm (HS256 only — rejecting other
// algorithms prevents algorithm-confusion attacks), issuer, expiry, the
// expected token type, and finally the revocation blacklist. A refresh token
// presented where an access token is expected fails with ErrWrongTokenType
// even though its signature is perfectly valid.
func (s *TokenService) Validate(ctx context.Context, tokenStr string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if c.TokenType != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, c.TokenType, expected)
	}

	if s.revoked != nil && c.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("auth: checking revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return c, nil
}

// ValidateAccess is the common case: validate an access token and return the
// user ID it authenticates.
func (s *TokenService) ValidateAccess(ctx context.Context, tokenStr string) (string, error) {
	c, err := s.Validate(ctx, tokenStr, TokenAccess)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}
