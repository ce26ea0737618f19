package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/calc-tracker/internal/apperror"
	"github.com/sakif/calc-tracker/internal/auth"
	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// AuthService orchestrates registration, login, token refresh and logout.
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT) ↘ TokenRepository (revocations)
type AuthService struct {
	users       repository.UserRepository
	revocations repository.TokenRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	revocations repository.TokenRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		passwords:   passwords,
		logger:      logger,
	}
}

// AuthResult bundles the user record and the issued token pair so the HTTP
// handler can set cookies and respond in one step.
type AuthResult struct {
	User   *model.User
	Tokens *auth.TokenPair
}

// Register creates a password account and logs it straight in.
//
// Duplicate usernames/emails surface as Conflict from the repository's UNIQUE
// constraints — no check-then-insert race here.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issueTokens(user)
}

// Login verifies credentials and issues a token pair.
//
// The same Unauthorized error covers "no such user" and "wrong password" so
// the response never confirms which usernames exist. Inactive accounts fail
// with Forbidden AFTER the password check — a deactivated user gets a
// distinct answer only once they have proven they are the account owner.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Unauthorized("invalid username or password")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperror.Unauthorized("invalid username or password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt", slog.String("username", username))
		return nil, apperror.Unauthorized("invalid username or password")
	}

	if !user.Active {
		return nil, apperror.Forbidden("account is deactivated")
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the stamp is bookkeeping.
		s.logger.Error("failed to record last login",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issueTokens(user)
}

// LoginOrRegisterGitHub completes the OAuth callback: upsert the user by
// GitHub ID (insert on first login, refresh email after), then issue the
// same token pair a password login gets.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID: ghUser.ID,
		Username: ghUser.Login,
		Email:    ghUser.Email,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("failed to record last login",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issueTokens(user)
}

// Refresh mints a new access token from a valid refresh token.
// The user must still exist and still be active — revoking an account kills
// its refresh tokens at the next refresh, not just at access expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Validate(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", apperror.Unauthorized(err.Error())
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return "", apperror.Unauthorized("user no longer exists")
	}
	if !user.Active {
		return "", apperror.Forbidden("account is deactivated")
	}

	access, err := s.tokens.Generate(user.ID, auth.TokenAccess, s.tokens.AccessTTL())
	if err != nil {
		return "", fmt.Errorf("service/auth: generating access token: %w", err)
	}

	return access, nil
}

// Logout revokes the presented refresh token.
//
// The jti goes on the blacklist until the token's own expiry; any later
// refresh attempt with it fails as revoked. Access tokens are not tracked —
// they die within minutes on their own, which is the documented trade-off of
// a 15-minute access TTL.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Validate(ctx, refreshToken, auth.TokenRefresh)
	if err != nil {
		return apperror.Unauthorized(err.Error())
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("userID", claims.Subject))
	return nil
}

// GetUserByID returns the profile for /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperror.Forbidden("account is deactivated")
	}

	return user, nil
}

func (s *AuthService) issueTokens(user *model.User) (*AuthResult, error) {
	pair, err := s.tokens.GeneratePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating tokens for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}
