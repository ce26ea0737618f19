package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/calc-tracker/internal/apperror"
	"github.com/sakif/calc-tracker/internal/model"
	"github.com/sakif/calc-tracker/internal/repository"
)

// compile-time check that *DB implements repository.CalculationRepository
var _ repository.CalculationRepository = (*DB)(nil)

// encodeOperands serializes the ordered operand list for the TEXT column.
func encodeOperands(operands []float64) (string, error) {
	raw, err := json.Marshal(operands)
	if err != nil {
		return "", fmt.Errorf("encoding operands: %w", err)
	}
	return string(raw), nil
}

func decodeOperands(raw string) ([]float64, error) {
	var operands []float64
	if err := json.Unmarshal([]byte(raw), &operands); err != nil {
		return nil, fmt.Errorf("decoding operands %q: %w", raw, err)
	}
	return operands, nil
}

// Create inserts a new calculation. The repository owns ID generation (xid:
// 20 chars, URL-safe, sortable by creation time) and timestamps — the caller
// sees them filled in on its struct after a successful insert.
func (db *DB) Create(ctx context.Context, calc *model.Calculation) error {
	calc.ID = xid.New().String()

	now := time.Now().UTC()
	calc.CreatedAt = now
	calc.UpdatedAt = now

	operands, err := encodeOperands(calc.Operands)
	if err != nil {
		return fmt.Errorf("sqlite: creating calculation: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO calculations (id, user_id, type, operands, result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		calc.ID,
		calc.UserID,
		calc.Type,
		operands,
		calc.Result,
		calc.CreatedAt,
		calc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating calculation: %w", err)
	}

	return nil
}

// GetByID retrieves a single calculation owned by ownerID.
//
// The WHERE clause filters on both id and user_id, so a non-owner gets the
// same NotFound as a missing record. This is the access-control invariant:
// ownership is checked by the query itself, not by a comparison after the
// fetch, and existence of other users' records never leaks.
func (db *DB) GetByID(ctx context.Context, id, ownerID string) (*model.Calculation, error) {
	var (
		calc        model.Calculation
		rawOperands string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, operands, result, created_at, updated_at
		 FROM calculations
		 WHERE id = ? AND user_id = ?`,
		id, ownerID,
	).Scan(
		&calc.ID,
		&calc.UserID,
		&calc.Type,
		&rawOperands,
		&calc.Result,
		&calc.CreatedAt,
		&calc.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("calculation", id)
		}
		return nil, fmt.Errorf("sqlite: getting calculation %s: %w", id, err)
	}

	if calc.Operands, err = decodeOperands(rawOperands); err != nil {
		return nil, fmt.Errorf("sqlite: getting calculation %s: %w", id, err)
	}

	return &calc, nil
}

// ListByUser retrieves one user's calculations, newest first, paginated.
func (db *DB) ListByUser(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Calculation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, type, operands, result, created_at, updated_at
		 FROM calculations
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing calculations: %w", err)
	}
	defer rows.Close()

	return scanCalculations(rows, limit)
}

// AllByUser returns the user's entire history, unpaginated.
// The statistics aggregator needs every record: counts, the operand average
// and the max timestamp are all properties of the full set.
func (db *DB) AllByUser(ctx context.Context, ownerID string) ([]model.Calculation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, type, operands, result, created_at, updated_at
		 FROM calculations
		 WHERE user_id = ?`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading calculations for user %s: %w", ownerID, err)
	}
	defer rows.Close()

	return scanCalculations(rows, 0)
}

func scanCalculations(rows *sql.Rows, sizeHint int) ([]model.Calculation, error) {
	calcs := make([]model.Calculation, 0, sizeHint)

	for rows.Next() {
		var (
			c           model.Calculation
			rawOperands string
		)
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Type, &rawOperands,
			&c.Result, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning calculation row: %w", err)
		}

		operands, err := decodeOperands(rawOperands)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning calculation row: %w", err)
		}
		c.Operands = operands

		calcs = append(calcs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating calculations: %w", err)
	}

	return calcs, nil
}

// Update rewrites operands, result and updated_at for an existing record.
// type, created_at and ownership are immutable — the SET list simply does not
// include them. Owner scoping works the same way as GetByID: the WHERE clause
// matches on (id, user_id), and zero affected rows means NotFound.
func (db *DB) Update(ctx context.Context, calc *model.Calculation) error {
	calc.UpdatedAt = time.Now().UTC()

	operands, err := encodeOperands(calc.Operands)
	if err != nil {
		return fmt.Errorf("sqlite: updating calculation %s: %w", calc.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE calculations
		 SET operands = ?, result = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		operands,
		calc.Result,
		calc.UpdatedAt,
		calc.ID,
		calc.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating calculation %s: %w", calc.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("calculation", calc.ID)
	}

	return nil
}

// Delete removes a calculation owned by ownerID.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM calculations WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting calculation %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("calculation", id)
	}

	return nil
}
