// Package repository declares the storage interfaces consumed by the service
// layer. Concrete implementations live in subpackages (sqlite); tests inject
// in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/calc-tracker/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// CalculationRepository stores user-owned calculations.
//
// OWNER SCOPING IS PART OF THE CONTRACT:
// Every read, update and delete takes (or carries, via calc.UserID) the owning
// user's ID, and implementations must scope the lookup by it. A caller asking
// for another user's record gets NotFound — the same answer as for a record
// that does not exist — so ownership is enforced at the lowest layer and
// resource existence never leaks across accounts.
type CalculationRepository interface {
	Create(ctx context.Context, calc *model.Calculation) error
	GetByID(ctx context.Context, id, ownerID string) (*model.Calculation, error)
	ListByUser(ctx context.Context, ownerID string, opts ListOptions) ([]model.Calculation, error)
	// AllByUser returns every calculation for the user, unpaginated.
	// Used by the statistics aggregator, which needs the full record set.
	AllByUser(ctx context.Context, ownerID string) ([]model.Calculation, error)
	Update(ctx context.Context, calc *model.Calculation) error
	Delete(ctx context.Context, id, ownerID string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHub inserts or updates a user keyed by GitHubID.
	// First OAuth login creates the account; later logins refresh the email.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// TouchLastLogin records a successful login without rewriting the profile.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenRepository is the revocation store for JWT IDs (jti claims).
// A revoked jti stays on the list until its token would have expired anyway;
// PurgeExpired garbage-collects rows past that point.
type TokenRepository interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
