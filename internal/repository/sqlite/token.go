package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/calc-tracker/internal/repository"
)

// compile-time check that *DB implements repository.TokenRepository
var _ repository.TokenRepository = (*DB)(nil)

// Revoke blacklists a JWT ID until the token's own expiry.
// INSERT OR IGNORE makes revoking the same token twice a no-op, so logout is
// safe to retry.
func (db *DB) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether the JWT ID is on the blacklist.
// Rows past their expiry still count as revoked until purged — an expired
// token fails validation on its own expiry check anyway.
func (db *DB) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking revocation for %s: %w", jti, err)
	}
	return count > 0, nil
}

// PurgeExpired removes blacklist rows whose tokens have expired.
// Returns the number of rows deleted.
func (db *DB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return deleted, nil
}
