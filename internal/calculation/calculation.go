// Package calculation implements the arithmetic operation variants and the
// factory that constructs Calculation records from an operation tag.
//
// DESIGN: TAGGED VARIANTS, NOT INHERITANCE
// Each operation kind ("add", "divide", ...) is one entry in a dispatch table
// mapping the tag to its validation rule (operand arity) and a pure compute
// function. The closed set lives in exactly one place — the variants map —
// so adding an operation is a one-line change and the exhaustiveness of
// Parse/Compute falls out of the table for free.
//
// Validation always precedes computation: a bad operand count or a zero
// divisor is reported as a distinct error kind, never silently coerced and
// never a panic. All four kinds are deterministic given the same input, so
// callers must not retry them.
package calculation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sakif/calc-tracker/internal/model"
)

// Error kinds surfaced by Parse, Compute and New.
// The service layer wraps these as validation errors; they stay on the error
// chain so callers can still distinguish them with errors.Is.
var (
	ErrUnknownOperation    = errors.New("unknown operation")
	ErrInvalidOperandCount = errors.New("invalid operand count")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrModulusByZero       = errors.New("modulus by zero")
)

// Operation is one tag from the closed operation set.
type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
	OpMultiply Operation = "multiply"
	OpDivide   Operation = "divide"
	OpPower    Operation = "power"
	OpModulus  Operation = "modulus"
)

// variant bundles the validation rule and compute function for one operation.
// maxOperands == 0 means "no upper bound".
type variant struct {
	minOperands int
	maxOperands int
	compute     func(operands []float64) (float64, error)
}

// variants is the dispatch table — the single source of truth for the closed
// operation set. Parse, Compute and Operations all derive from it.
var variants = map[Operation]variant{
	OpAdd: {minOperands: 1, compute: func(ops []float64) (float64, error) {
		sum := 0.0
		for _, v := range ops {
			sum += v
		}
		return sum, nil
	}},
	OpSubtract: {minOperands: 2, compute: func(ops []float64) (float64, error) {
		// Left-to-right fold: [10, 3, 2] → (10 - 3) - 2 = 5.
		result := ops[0]
		for _, v := range ops[1:] {
			result -= v
		}
		return result, nil
	}},
	OpMultiply: {minOperands: 1, compute: func(ops []float64) (float64, error) {
		product := 1.0
		for _, v := range ops {
			product *= v
		}
		return product, nil
	}},
	OpDivide: {minOperands: 2, maxOperands: 2, compute: func(ops []float64) (float64, error) {
		if ops[1] == 0 {
			return 0, ErrDivisionByZero
		}
		return ops[0] / ops[1], nil
	}},
	OpPower: {minOperands: 2, maxOperands: 2, compute: func(ops []float64) (float64, error) {
		return math.Pow(ops[0], ops[1]), nil
	}},
	OpModulus: {minOperands: 2, maxOperands: 2, compute: func(ops []float64) (float64, error) {
		if ops[1] == 0 {
			return 0, ErrModulusByZero
		}
		return math.Mod(ops[0], ops[1]), nil
	}},
}

// Operations returns all supported operation tags in sorted order.
// Used in validation error messages and the exhaustiveness test.
func Operations() []Operation {
	tags := make([]Operation, 0, len(variants))
	for op := range variants {
		tags = append(tags, op)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Parse maps a raw tag string to its Operation.
// Returns ErrUnknownOperation for anything outside the closed set — tags are
// case-sensitive and never normalized, matching what the API documents.
func Parse(tag string) (Operation, error) {
	op := Operation(tag)
	if _, ok := variants[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, tag)
	}
	return op, nil
}

// Compute validates the operand count for op and applies its arithmetic rule.
// Pure: no side effects, deterministic for a given (op, operands) pair.
func Compute(op Operation, operands []float64) (float64, error) {
	v, ok := variants[op]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, string(op))
	}

	if len(operands) < v.minOperands {
		return 0, fmt.Errorf("%w: %s requires at least %d operands, got %d",
			ErrInvalidOperandCount, op, v.minOperands, len(operands))
	}
	if v.maxOperands > 0 && len(operands) > v.maxOperands {
		return 0, fmt.Errorf("%w: %s takes exactly %d operands, got %d",
			ErrInvalidOperandCount, op, v.maxOperands, len(operands))
	}

	return v.compute(operands)
}

// New is the factory: it builds an unsaved Calculation for the given tag,
// owner and operands, with the result already computed.
//
// The repository fills in ID and timestamps on insert (the same contract the
// rest of the models follow). The operand slice is copied so later mutation
// of the caller's slice cannot desync the cached result.
func New(tag, userID string, operands []float64) (*model.Calculation, error) {
	op, err := Parse(tag)
	if err != nil {
		return nil, err
	}

	result, err := Compute(op, operands)
	if err != nil {
		return nil, err
	}

	ops := make([]float64, len(operands))
	copy(ops, operands)

	return &model.Calculation{
		UserID:   userID,
		Type:     string(op),
		Operands: ops,
		Result:   result,
	}, nil
}
