package model

import "time"

// Calculation is one persisted arithmetic operation performed by a user.
//
// Type is the operation tag (one of the closed set defined in the calculation
// package: "add", "subtract", "multiply", "divide", "power", "modulus") and is
// immutable once the record is created. Operands is the ordered list of inputs.
//
// Result is a cache, not the source of truth — it is always re-derivable from
// (Type, Operands) and is recomputed whenever the operands are edited.
//
// Ownership: a Calculation belongs to exactly one user. Every repository
// lookup is scoped by UserID, so one user can never see (or even confirm the
// existence of) another user's records.
type Calculation struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Type      string    `json:"type"      db:"type"`
	Operands  []float64 `json:"operands"  db:"operands"` // stored as a JSON array
	Result    float64   `json:"result"    db:"result"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
