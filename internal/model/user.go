// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: classic username/password registration and
// GitHub OAuth login. Both end up in the same table:
//
//   - Password accounts have a non-empty PasswordHash and GitHubID == 0.
//   - OAuth accounts have an empty PasswordHash and a non-zero GitHubID.
//     They cannot log in with a password (bcrypt against "" always fails).
//
// The internal ID is an xid string so primary keys are never tied to GitHub's
// numbering scheme or to usernames.
//
// WHY LastLoginAt *time.Time (not time.Time)?
// A freshly registered account has never logged in. A nil pointer models
// "never" honestly; a zero time.Time would serialize as year 1 and confuse
// every consumer.
type User struct {
	ID           string     `json:"id"           db:"id"`
	Username     string     `json:"username"     db:"username"`
	Email        string     `json:"email"        db:"email"`
	PasswordHash string     `json:"-"            db:"password_hash"` // never serialized
	GitHubID     int64      `json:"-"            db:"github_id"`     // 0 unless OAuth account
	Active       bool       `json:"active"       db:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"    db:"updated_at"`
}
